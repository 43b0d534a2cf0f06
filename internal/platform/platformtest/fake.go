// Package platformtest provides an in-memory Gateway for service tests.
package platformtest

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/guildops/ticketbot/internal/domain"
	"github.com/guildops/ticketbot/internal/platform"
)

// Operation names accepted by Fail.
const (
	OpCreateChannel  = "create_channel"
	OpSetAccess      = "set_access"
	OpDeleteChannel  = "delete_channel"
	OpCloneChannel   = "clone_channel"
	OpSendMessage    = "send_message"
	OpEditMessage    = "edit_message"
	OpFetchMessage   = "fetch_message"
	OpFetchHistory   = "fetch_history"
	OpDeleteMessages = "delete_messages"
	OpKick           = "kick"
	OpBan            = "ban"
	OpAddRole        = "add_role"
	OpRemoveRole     = "remove_role"
	OpPresence       = "presence"
)

// SentMessage records a SendMessage call. Attachment bytes are read eagerly.
type SentMessage struct {
	ChannelID      string
	Ref            platform.MessageRef
	Message        platform.OutgoingMessage
	AttachmentData []byte
}

// Sanction records a moderation call.
type Sanction struct {
	Action string
	UserID string
	RoleID string
	Reason string
}

// Gateway is a fake platform. The zero value is not usable; call New.
type Gateway struct {
	mu sync.Mutex

	BotID    string
	Guilds   int
	Members  int
	IsReady  bool
	failures map[string]error

	members  map[string]*domain.Member
	roles    map[string]*domain.Role
	history  map[string][]domain.HistoryMessage
	messages map[platform.MessageRef]*platform.Message

	Channels        map[string]platform.ChannelSpec
	DeletedChannels []string
	AccessChanges   map[string][]platform.AccessGrant
	Sent            []SentMessage
	Edits           []SentMessage
	Sanctions       []Sanction
	DeleteRequests  []int
	DeletedMessages []platform.MessageRef
	Statuses        []string

	seq atomic.Int64
}

// New returns an empty, ready fake.
func New() *Gateway {
	return &Gateway{
		BotID:         "bot",
		IsReady:       true,
		failures:      map[string]error{},
		members:       map[string]*domain.Member{},
		roles:         map[string]*domain.Role{},
		history:       map[string][]domain.HistoryMessage{},
		messages:      map[platform.MessageRef]*platform.Message{},
		Channels:      map[string]platform.ChannelSpec{},
		AccessChanges: map[string][]platform.AccessGrant{},
	}
}

// Fail makes every later call of op return err. A nil err clears the failure.
func (g *Gateway) Fail(op string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err == nil {
		delete(g.failures, op)
		return
	}
	g.failures[op] = err
}

// AddMember registers a member for Directory lookups.
func (g *Gateway) AddMember(m domain.Member) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.members[m.ID] = &m
}

// AddGuildRole registers a role for Directory lookups.
func (g *Gateway) AddGuildRole(r domain.Role) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roles[r.ID] = &r
}

// SetHistory seeds the history returned for a channel.
func (g *Gateway) SetHistory(channelID string, history []domain.HistoryMessage) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.history[channelID] = history
}

// SeedMessages fills channelID with n plain history messages, oldest first.
func (g *Gateway) SeedMessages(channelID string, n int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	base := time.Now().Add(-time.Duration(n) * time.Minute)
	history := make([]domain.HistoryMessage, 0, n)
	for i := 0; i < n; i++ {
		history = append(history, domain.HistoryMessage{
			ID:         fmt.Sprintf("seed-%d", i),
			AuthorName: "member",
			Content:    fmt.Sprintf("message %d", i),
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		})
	}
	g.history[channelID] = history
}

// SentTo returns the messages sent to channelID in order.
func (g *Gateway) SentTo(channelID string) []SentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []SentMessage
	for _, s := range g.Sent {
		if s.ChannelID == channelID {
			out = append(out, s)
		}
	}
	return out
}

// ChannelCount reports how many channels were created.
func (g *Gateway) ChannelCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Channels)
}

// Deleted reports whether channelID was deleted.
func (g *Gateway) Deleted(channelID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range g.DeletedChannels {
		if id == channelID {
			return true
		}
	}
	return false
}

// Access returns the access changes applied to channelID after creation.
func (g *Gateway) Access(channelID string) []platform.AccessGrant {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]platform.AccessGrant(nil), g.AccessChanges[channelID]...)
}

// Message returns a sent or edited message by reference.
func (g *Gateway) Message(ref platform.MessageRef) (*platform.Message, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.messages[ref]
	return m, ok
}

func (g *Gateway) failure(op string) error {
	return g.failures[op]
}

func (g *Gateway) nextID(prefix string) string {
	return fmt.Sprintf("%s-%d", prefix, g.seq.Add(1))
}

func (g *Gateway) CreateChannel(_ context.Context, spec platform.ChannelSpec) (*platform.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(OpCreateChannel); err != nil {
		return nil, err
	}
	id := g.nextID("chan")
	g.Channels[id] = spec
	return &platform.Channel{ID: id, Name: spec.Name}, nil
}

func (g *Gateway) SetChannelAccess(_ context.Context, channelID string, grant platform.AccessGrant) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(OpSetAccess); err != nil {
		return err
	}
	g.AccessChanges[channelID] = append(g.AccessChanges[channelID], grant)
	return nil
}

func (g *Gateway) DeleteChannel(_ context.Context, channelID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(OpDeleteChannel); err != nil {
		return err
	}
	g.DeletedChannels = append(g.DeletedChannels, channelID)
	delete(g.Channels, channelID)
	return nil
}

func (g *Gateway) CloneChannel(_ context.Context, channelID string) (*platform.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(OpCloneChannel); err != nil {
		return nil, err
	}
	spec := g.Channels[channelID]
	id := g.nextID("chan")
	g.Channels[id] = spec
	return &platform.Channel{ID: id, Name: spec.Name}, nil
}

func (g *Gateway) SendMessage(_ context.Context, channelID string, msg platform.OutgoingMessage) (*platform.MessageRef, error) {
	var data []byte
	if msg.Attachment != nil && msg.Attachment.Reader != nil {
		b, err := io.ReadAll(msg.Attachment.Reader)
		if err != nil {
			return nil, err
		}
		data = b
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(OpSendMessage); err != nil {
		return nil, err
	}
	ref := platform.MessageRef{ChannelID: channelID, MessageID: g.nextID("msg")}
	g.Sent = append(g.Sent, SentMessage{ChannelID: channelID, Ref: ref, Message: msg, AttachmentData: data})
	stored := &platform.Message{Ref: ref, Content: msg.Content}
	if msg.Embed != nil {
		stored.Embeds = []platform.Embed{*msg.Embed}
	}
	g.messages[ref] = stored
	return &ref, nil
}

func (g *Gateway) EditMessage(_ context.Context, ref platform.MessageRef, msg platform.OutgoingMessage) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(OpEditMessage); err != nil {
		return err
	}
	stored, ok := g.messages[ref]
	if !ok {
		return platform.ErrNotFound
	}
	if msg.Content != "" {
		stored.Content = msg.Content
	}
	if msg.Embed != nil {
		stored.Embeds = []platform.Embed{*msg.Embed}
	}
	g.Edits = append(g.Edits, SentMessage{ChannelID: ref.ChannelID, Ref: ref, Message: msg})
	return nil
}

func (g *Gateway) FetchMessage(_ context.Context, ref platform.MessageRef) (*platform.Message, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(OpFetchMessage); err != nil {
		return nil, err
	}
	stored, ok := g.messages[ref]
	if !ok {
		return nil, platform.ErrNotFound
	}
	out := *stored
	out.Embeds = append([]platform.Embed(nil), stored.Embeds...)
	return &out, nil
}

func (g *Gateway) FetchHistory(ctx context.Context, channelID string) ([]domain.HistoryMessage, error) {
	g.mu.Lock()
	err := g.failure(OpFetchHistory)
	history := append([]domain.HistoryMessage(nil), g.history[channelID]...)
	g.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	return history, nil
}

func (g *Gateway) DeleteMessage(_ context.Context, ref platform.MessageRef) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(OpDeleteMessages); err != nil {
		return err
	}
	delete(g.messages, ref)
	g.DeletedMessages = append(g.DeletedMessages, ref)
	return nil
}

// MessageDeleted reports whether ref was deleted.
func (g *Gateway) MessageDeleted(ref platform.MessageRef) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, r := range g.DeletedMessages {
		if r == ref {
			return true
		}
	}
	return false
}

// DeleteRecentMessages removes up to limit of the newest seeded history
// messages and reports how many existed.
func (g *Gateway) DeleteRecentMessages(_ context.Context, channelID string, limit int) (int, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(OpDeleteMessages); err != nil {
		return 0, err
	}
	g.DeleteRequests = append(g.DeleteRequests, limit)
	history := g.history[channelID]
	n := min(limit, len(history))
	g.history[channelID] = history[:len(history)-n]
	return n, nil
}

func (g *Gateway) Member(_ context.Context, userID string) (*domain.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[userID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	out := *m
	return &out, nil
}

func (g *Gateway) Role(_ context.Context, roleID string) (*domain.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.roles[roleID]
	if !ok {
		return nil, platform.ErrNotFound
	}
	out := *r
	return &out, nil
}

func (g *Gateway) BotUserID() string { return g.BotID }

func (g *Gateway) Kick(_ context.Context, userID, reason string) error {
	return g.sanction(OpKick, Sanction{Action: OpKick, UserID: userID, Reason: reason})
}

func (g *Gateway) Ban(_ context.Context, userID, reason string) error {
	return g.sanction(OpBan, Sanction{Action: OpBan, UserID: userID, Reason: reason})
}

func (g *Gateway) AddRole(_ context.Context, userID, roleID string) error {
	return g.sanction(OpAddRole, Sanction{Action: OpAddRole, UserID: userID, RoleID: roleID})
}

func (g *Gateway) RemoveRole(_ context.Context, userID, roleID string) error {
	return g.sanction(OpRemoveRole, Sanction{Action: OpRemoveRole, UserID: userID, RoleID: roleID})
}

func (g *Gateway) sanction(op string, s Sanction) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(op); err != nil {
		return err
	}
	g.Sanctions = append(g.Sanctions, s)
	return nil
}

// SanctionsCount reports how many moderation calls succeeded.
func (g *Gateway) SanctionsCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.Sanctions)
}

func (g *Gateway) SetStreamingStatus(_ context.Context, text, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.failure(OpPresence); err != nil {
		return err
	}
	g.Statuses = append(g.Statuses, text)
	return nil
}

func (g *Gateway) GuildCount() int  { return g.Guilds }
func (g *Gateway) MemberCount() int { return g.Members }
func (g *Gateway) Ready() bool      { return g.IsReady }

var _ platform.Gateway = (*Gateway)(nil)

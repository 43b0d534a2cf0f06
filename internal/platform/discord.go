package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/guildops/ticketbot/internal/domain"
)

const (
	historyPageSize  = 100
	bulkDeleteMaxAge = 14 * 24 * time.Hour

	readBits  = discordgo.PermissionViewChannel | discordgo.PermissionReadMessageHistory
	writeBits = discordgo.PermissionSendMessages | discordgo.PermissionAttachFiles
)

// DiscordGateway implements Gateway over a discordgo session bound to one guild.
type DiscordGateway struct {
	session *discordgo.Session
	guildID string
	logger  *zap.Logger
	ready   atomic.Bool
}

// NewDiscordGateway creates the session and routes discordgo's logger through zap.
// The session is not opened until Open is called.
func NewDiscordGateway(token, guildID string, logger *zap.Logger) (*DiscordGateway, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, fmt.Errorf("create discord session: %w", err)
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsMessageContent
	session.State.TrackMembers = true
	session.State.TrackRoles = true

	named := logger.Named("discordgo")
	discordgo.Logger = func(level, _ int, format string, a ...interface{}) {
		msg := fmt.Sprintf(format, a...)
		switch level {
		case discordgo.LogError:
			named.Error(msg)
		case discordgo.LogWarning:
			named.Warn(msg)
		case discordgo.LogInformational:
			named.Info(msg)
		default:
			named.Debug(msg)
		}
	}

	g := &DiscordGateway{session: session, guildID: guildID, logger: logger}
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Ready) { g.ready.Store(true) })
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Resumed) { g.ready.Store(true) })
	session.AddHandler(func(_ *discordgo.Session, _ *discordgo.Disconnect) { g.ready.Store(false) })
	return g, nil
}

// Session exposes the underlying session for inbound event wiring.
func (g *DiscordGateway) Session() *discordgo.Session { return g.session }

// GuildID returns the guild the gateway is bound to.
func (g *DiscordGateway) GuildID() string { return g.guildID }

// Open connects to the gateway websocket.
func (g *DiscordGateway) Open() error { return g.session.Open() }

// Close disconnects from the gateway websocket.
func (g *DiscordGateway) Close() error {
	g.ready.Store(false)
	return g.session.Close()
}

func (g *DiscordGateway) Ready() bool { return g.ready.Load() }

func (g *DiscordGateway) BotUserID() string {
	if g.session.State == nil || g.session.State.User == nil {
		return ""
	}
	return g.session.State.User.ID
}

func (g *DiscordGateway) CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error) {
	parentID := ""
	if spec.ParentName != "" {
		parent, err := g.ensureCategory(ctx, spec.ParentName)
		if err != nil {
			return nil, err
		}
		parentID = parent
	}

	overwrites := make([]*discordgo.PermissionOverwrite, 0, len(spec.Access))
	for _, grant := range spec.Access {
		overwrites = append(overwrites, toOverwrite(grant))
	}

	ch, err := g.session.GuildChannelCreateComplex(g.guildID, discordgo.GuildChannelCreateData{
		Name:                 spec.Name,
		Type:                 discordgo.ChannelTypeGuildText,
		Topic:                spec.Topic,
		ParentID:             parentID,
		PermissionOverwrites: overwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	return toChannel(ch), nil
}

func (g *DiscordGateway) ensureCategory(ctx context.Context, name string) (string, error) {
	channels, err := g.session.GuildChannels(g.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return "", translate(err)
	}
	for _, ch := range channels {
		if ch.Type == discordgo.ChannelTypeGuildCategory && ch.Name == name {
			return ch.ID, nil
		}
	}
	created, err := g.session.GuildChannelCreate(g.guildID, name, discordgo.ChannelTypeGuildCategory, discordgo.WithContext(ctx))
	if err != nil {
		return "", translate(err)
	}
	g.logger.Info("created ticket category", zap.String("category_id", created.ID), zap.String("name", name))
	return created.ID, nil
}

func (g *DiscordGateway) SetChannelAccess(ctx context.Context, channelID string, grant AccessGrant) error {
	ow := toOverwrite(grant)
	err := g.session.ChannelPermissionSet(channelID, ow.ID, ow.Type, ow.Allow, ow.Deny, discordgo.WithContext(ctx))
	return translate(err)
}

func (g *DiscordGateway) DeleteChannel(ctx context.Context, channelID string) error {
	_, err := g.session.ChannelDelete(channelID, discordgo.WithContext(ctx))
	return translate(err)
}

// CloneChannel recreates a channel with the same name, placement and overwrites.
func (g *DiscordGateway) CloneChannel(ctx context.Context, channelID string) (*Channel, error) {
	src, err := g.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	ch, err := g.session.GuildChannelCreateComplex(g.guildID, discordgo.GuildChannelCreateData{
		Name:                 src.Name,
		Type:                 src.Type,
		Topic:                src.Topic,
		Position:             src.Position,
		ParentID:             src.ParentID,
		NSFW:                 src.NSFW,
		RateLimitPerUser:     src.RateLimitPerUser,
		PermissionOverwrites: src.PermissionOverwrites,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	return toChannel(ch), nil
}

func (g *DiscordGateway) SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) (*MessageRef, error) {
	send := &discordgo.MessageSend{
		Content:    msg.Content,
		Components: toComponents(msg),
	}
	if msg.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{ToDiscordEmbed(*msg.Embed)}
	}
	if msg.Attachment != nil {
		send.Files = []*discordgo.File{{
			Name:        msg.Attachment.Name,
			ContentType: msg.Attachment.ContentType,
			Reader:      msg.Attachment.Reader,
		}}
	}
	sent, err := g.session.ChannelMessageSendComplex(channelID, send, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	return &MessageRef{ChannelID: sent.ChannelID, MessageID: sent.ID}, nil
}

func (g *DiscordGateway) EditMessage(ctx context.Context, ref MessageRef, msg OutgoingMessage) error {
	edit := discordgo.NewMessageEdit(ref.ChannelID, ref.MessageID)
	if msg.Content != "" {
		edit.SetContent(msg.Content)
	}
	if msg.Embed != nil {
		edit.SetEmbeds([]*discordgo.MessageEmbed{ToDiscordEmbed(*msg.Embed)})
	}
	if components := toComponents(msg); components != nil {
		edit.Components = &components
	}
	_, err := g.session.ChannelMessageEditComplex(edit, discordgo.WithContext(ctx))
	return translate(err)
}

func (g *DiscordGateway) FetchMessage(ctx context.Context, ref MessageRef) (*Message, error) {
	m, err := g.session.ChannelMessage(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	out := &Message{Ref: ref, Content: m.Content}
	for _, e := range m.Embeds {
		out.Embeds = append(out.Embeds, FromDiscordEmbed(e))
	}
	return out, nil
}

// FetchHistory pages backwards through the channel and returns messages oldest first.
func (g *DiscordGateway) FetchHistory(ctx context.Context, channelID string) ([]domain.HistoryMessage, error) {
	var (
		newestFirst []*discordgo.Message
		before      string
	)
	for {
		page, err := g.session.ChannelMessages(channelID, historyPageSize, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return nil, translate(err)
		}
		newestFirst = append(newestFirst, page...)
		if len(page) < historyPageSize {
			break
		}
		before = page[len(page)-1].ID
	}

	history := make([]domain.HistoryMessage, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		m := newestFirst[i]
		history = append(history, domain.HistoryMessage{
			ID:         m.ID,
			AuthorName: authorName(m.Author),
			Content:    m.Content,
			CreatedAt:  m.Timestamp,
		})
	}
	return history, nil
}

func (g *DiscordGateway) DeleteMessage(ctx context.Context, ref MessageRef) error {
	return translate(g.session.ChannelMessageDelete(ref.ChannelID, ref.MessageID, discordgo.WithContext(ctx)))
}

// DeleteRecentMessages deletes up to limit of the newest messages and returns
// how many were removed. Messages older than two weeks cannot be bulk deleted
// and are removed one at a time.
func (g *DiscordGateway) DeleteRecentMessages(ctx context.Context, channelID string, limit int) (int, error) {
	if limit <= 0 {
		return 0, nil
	}
	if limit > historyPageSize {
		limit = historyPageSize
	}
	page, err := g.session.ChannelMessages(channelID, limit, "", "", "", discordgo.WithContext(ctx))
	if err != nil {
		return 0, translate(err)
	}

	cutoff := time.Now().Add(-bulkDeleteMaxAge)
	var recent, old []string
	for _, m := range page {
		if m.Timestamp.After(cutoff) {
			recent = append(recent, m.ID)
		} else {
			old = append(old, m.ID)
		}
	}

	if err := g.session.ChannelMessagesBulkDelete(channelID, recent, discordgo.WithContext(ctx)); err != nil {
		return 0, translate(err)
	}
	deleted := len(recent)
	for _, id := range old {
		if err := g.session.ChannelMessageDelete(channelID, id, discordgo.WithContext(ctx)); err != nil {
			return deleted, translate(err)
		}
		deleted++
	}
	return deleted, nil
}

// Member resolves a guild member, preferring the state cache.
func (g *DiscordGateway) Member(ctx context.Context, userID string) (*domain.Member, error) {
	m, err := g.session.State.Member(g.guildID, userID)
	if err != nil {
		m, err = g.session.GuildMember(g.guildID, userID, discordgo.WithContext(ctx))
		if err != nil {
			return nil, translate(err)
		}
	}
	roles, err := g.guildRoles(ctx)
	if err != nil {
		return nil, err
	}
	return ToMember(m, roles, g.guildOwnerID()), nil
}

func (g *DiscordGateway) Role(ctx context.Context, roleID string) (*domain.Role, error) {
	roles, err := g.guildRoles(ctx)
	if err != nil {
		return nil, err
	}
	for _, r := range roles {
		if r.ID == roleID {
			return &domain.Role{ID: r.ID, Name: r.Name, Position: r.Position}, nil
		}
	}
	return nil, ErrNotFound
}

// ResolveMember converts a member delivered with an event into the domain
// view. The event payload omits User on message events, so author fills it.
func (g *DiscordGateway) ResolveMember(ctx context.Context, m *discordgo.Member, author *discordgo.User) (*domain.Member, error) {
	if m == nil {
		return nil, ErrNotFound
	}
	if m.User == nil {
		cp := *m
		cp.User = author
		m = &cp
	}
	if m.User == nil {
		return nil, ErrNotFound
	}
	roles, err := g.guildRoles(ctx)
	if err != nil {
		return nil, err
	}
	return ToMember(m, roles, g.guildOwnerID()), nil
}

func (g *DiscordGateway) guildRoles(ctx context.Context) ([]*discordgo.Role, error) {
	if guild, err := g.session.State.Guild(g.guildID); err == nil && len(guild.Roles) > 0 {
		return guild.Roles, nil
	}
	roles, err := g.session.GuildRoles(g.guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, translate(err)
	}
	return roles, nil
}

func (g *DiscordGateway) guildOwnerID() string {
	if guild, err := g.session.State.Guild(g.guildID); err == nil {
		return guild.OwnerID
	}
	return ""
}

func (g *DiscordGateway) Kick(ctx context.Context, userID, reason string) error {
	return translate(g.session.GuildMemberDeleteWithReason(g.guildID, userID, reason, discordgo.WithContext(ctx)))
}

func (g *DiscordGateway) Ban(ctx context.Context, userID, reason string) error {
	return translate(g.session.GuildBanCreateWithReason(g.guildID, userID, reason, 0, discordgo.WithContext(ctx)))
}

func (g *DiscordGateway) AddRole(ctx context.Context, userID, roleID string) error {
	return translate(g.session.GuildMemberRoleAdd(g.guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (g *DiscordGateway) RemoveRole(ctx context.Context, userID, roleID string) error {
	return translate(g.session.GuildMemberRoleRemove(g.guildID, userID, roleID, discordgo.WithContext(ctx)))
}

func (g *DiscordGateway) SetStreamingStatus(_ context.Context, text, url string) error {
	return g.session.UpdateStatusComplex(discordgo.UpdateStatusData{
		Status: string(discordgo.StatusOnline),
		Activities: []*discordgo.Activity{{
			Name: text,
			Type: discordgo.ActivityTypeStreaming,
			URL:  url,
		}},
	})
}

func (g *DiscordGateway) GuildCount() int {
	g.session.State.RLock()
	defer g.session.State.RUnlock()
	return len(g.session.State.Guilds)
}

func (g *DiscordGateway) MemberCount() int {
	g.session.State.RLock()
	defer g.session.State.RUnlock()
	total := 0
	for _, guild := range g.session.State.Guilds {
		total += guild.MemberCount
	}
	return total
}

// ToMember converts a discordgo member into the domain view, computing the top
// role position and administrator flag from the guild roles.
func ToMember(m *discordgo.Member, roles []*discordgo.Role, guildOwnerID string) *domain.Member {
	if m == nil || m.User == nil {
		return nil
	}
	byID := make(map[string]*discordgo.Role, len(roles))
	for _, r := range roles {
		byID[r.ID] = r
	}

	out := &domain.Member{
		ID:            m.User.ID,
		Username:      m.User.Username,
		DisplayName:   displayName(m),
		RoleIDs:       append([]string(nil), m.Roles...),
		Bot:           m.User.Bot,
		Administrator: m.User.ID == guildOwnerID || m.Permissions&discordgo.PermissionAdministrator != 0,
	}
	for _, id := range m.Roles {
		r, ok := byID[id]
		if !ok {
			continue
		}
		if r.Position > out.TopRolePosition {
			out.TopRolePosition = r.Position
		}
		if r.Permissions&discordgo.PermissionAdministrator != 0 {
			out.Administrator = true
		}
	}
	return out
}

// ToDiscordEmbed renders an Embed as a discordgo embed.
func ToDiscordEmbed(e Embed) *discordgo.MessageEmbed {
	out := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != "" || e.FooterIconURL != "" {
		out.Footer = &discordgo.MessageEmbedFooter{Text: e.Footer, IconURL: e.FooterIconURL}
	}
	if !e.Timestamp.IsZero() {
		out.Timestamp = e.Timestamp.Format(time.RFC3339)
	}
	if e.ThumbnailURL != "" {
		out.Thumbnail = &discordgo.MessageEmbedThumbnail{URL: e.ThumbnailURL}
	}
	if e.ImageURL != "" {
		out.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
	}
	return out
}

// FromDiscordEmbed converts a received discordgo embed.
func FromDiscordEmbed(e *discordgo.MessageEmbed) Embed {
	out := Embed{Title: e.Title, Description: e.Description, Color: e.Color}
	for _, f := range e.Fields {
		out.Fields = append(out.Fields, EmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.Footer != nil {
		out.Footer = e.Footer.Text
		out.FooterIconURL = e.Footer.IconURL
	}
	if e.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
			out.Timestamp = ts
		}
	}
	if e.Thumbnail != nil {
		out.ThumbnailURL = e.Thumbnail.URL
	}
	if e.Image != nil {
		out.ImageURL = e.Image.URL
	}
	return out
}

// ToDiscordComponents renders buttons and a select menu as action rows.
func ToDiscordComponents(buttons []Button, menu *SelectMenu) []discordgo.MessageComponent {
	return toComponents(OutgoingMessage{Buttons: buttons, Menu: menu})
}

func toComponents(msg OutgoingMessage) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	if msg.Menu != nil {
		options := make([]discordgo.SelectMenuOption, 0, len(msg.Menu.Options))
		for _, o := range msg.Menu.Options {
			options = append(options, discordgo.SelectMenuOption{
				Label:       o.Label,
				Value:       o.Value,
				Description: o.Description,
				Emoji:       emoji(o.Emoji),
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				MenuType:    discordgo.StringSelectMenu,
				CustomID:    msg.Menu.CustomID,
				Placeholder: msg.Menu.Placeholder,
				Options:     options,
			},
		}})
	}
	if len(msg.Buttons) > 0 {
		buttons := make([]discordgo.MessageComponent, 0, len(msg.Buttons))
		for _, b := range msg.Buttons {
			buttons = append(buttons, discordgo.Button{
				CustomID: b.CustomID,
				Label:    b.Label,
				Style:    discordgo.ButtonStyle(b.Style),
				Disabled: b.Disabled,
				Emoji:    emoji(b.Emoji),
			})
		}
		rows = append(rows, discordgo.ActionsRow{Components: buttons})
	}
	return rows
}

func emoji(name string) *discordgo.ComponentEmoji {
	if name == "" {
		return nil
	}
	return &discordgo.ComponentEmoji{Name: name}
}

func toOverwrite(grant AccessGrant) *discordgo.PermissionOverwrite {
	ow := &discordgo.PermissionOverwrite{ID: grant.SubjectID, Type: discordgo.PermissionOverwriteTypeRole}
	if grant.SubjectType == SubjectMember {
		ow.Type = discordgo.PermissionOverwriteTypeMember
	}
	if grant.Read {
		ow.Allow |= readBits
	} else {
		ow.Deny |= discordgo.PermissionViewChannel
	}
	if grant.Write {
		ow.Allow |= writeBits
	} else if grant.Read {
		ow.Deny |= writeBits
	}
	return ow
}

func toChannel(ch *discordgo.Channel) *Channel {
	return &Channel{ID: ch.ID, Name: ch.Name, ParentID: ch.ParentID, Position: ch.Position}
}

func displayName(m *discordgo.Member) string {
	if m.Nick != "" {
		return m.Nick
	}
	return m.User.GlobalName
}

func authorName(u *discordgo.User) string {
	if u == nil {
		return "unknown"
	}
	if u.GlobalName != "" {
		return u.GlobalName
	}
	return u.Username
}

// translate maps "unknown object" REST failures to ErrNotFound.
func translate(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	}
	return err
}

var _ Gateway = (*DiscordGateway)(nil)

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildops/ticketbot/internal/auth"
	"github.com/guildops/ticketbot/internal/config"
	"github.com/guildops/ticketbot/internal/domain"
	"github.com/guildops/ticketbot/internal/events"
	"github.com/guildops/ticketbot/internal/observability"
	"github.com/guildops/ticketbot/internal/platform"
	"github.com/guildops/ticketbot/internal/platform/platformtest"
	"github.com/guildops/ticketbot/internal/repository"
	apperrors "github.com/guildops/ticketbot/pkg/util"
)

const (
	openLog   = "log-open"
	closedLog = "log-closed"
)

var (
	alice   = domain.Member{ID: "alice", Username: "Alice"}
	bob     = domain.Member{ID: "bob", Username: "Bob"}
	staff   = domain.Member{ID: "staff-1", Username: "Sam", RoleIDs: []string{"staff-role"}}
	staff2  = domain.Member{ID: "staff-2", Username: "Sue", RoleIDs: []string{"staff-role"}}
	errBoom = errors.New("discord unavailable")
)

type ticketFixture struct {
	svc     *TicketService
	gw      *platformtest.Gateway
	store   repository.TicketStore
	metrics *observability.Metrics
	events  []events.Event
	mu      sync.Mutex
}

func newTicketFixture(t *testing.T) *ticketFixture {
	t.Helper()
	f := &ticketFixture{
		gw:      platformtest.New(),
		store:   repository.NewTicketStore(),
		metrics: observability.NewMetrics(),
	}
	discordCfg := config.DiscordConfig{
		GuildID:                "guild",
		OwnerID:                "owner",
		StaffRoleID:            "staff-role",
		MentionRoleID:          "ping-role",
		LogOpenChannelID:       openLog,
		LogTranscriptChannelID: closedLog,
	}
	dispatcher := events.NewInMemoryDispatcher()
	for _, et := range []events.EventType{events.EventTicketOpened, events.EventTicketClaimed, events.EventTicketClosed} {
		dispatcher.Subscribe(et, func(_ context.Context, e events.Event) error {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.events = append(f.events, e)
			return nil
		})
	}

	f.gw.AddMember(alice)
	f.gw.AddMember(bob)
	f.gw.AddMember(staff)
	f.gw.AddMember(staff2)

	f.svc = NewTicketService(TicketDependencies{
		Store:      f.store,
		Platform:   f.gw,
		Audit:      NewAuditService(AuditDependencies{Messenger: f.gw, Discord: discordCfg}),
		Policy:     auth.NewPolicy(discordCfg.OwnerID, discordCfg.StaffRoleID),
		Dispatcher: dispatcher,
		Metrics:    f.metrics,
		Discord:    discordCfg,
		Tickets:    config.TicketConfig{CategoryName: "Tickets", Brand: "KryptosMC"},
	})
	return f
}

func (f *ticketFixture) eventTypes() []events.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]events.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

func (f *ticketFixture) open(t *testing.T, owner domain.Member) *domain.Ticket {
	t.Helper()
	ticket, err := f.svc.Open(context.Background(), owner, domain.CategoryGeneral)
	require.NoError(t, err)
	return ticket
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, code), "want %s, got %v", code, err)
}

func TestOpenCreatesPrivateChannel(t *testing.T) {
	f := newTicketFixture(t)

	ticket := f.open(t, alice)

	assert.Equal(t, domain.TicketStateOpen, ticket.State)
	assert.Equal(t, "general-alice", ticket.ChannelName)
	assert.Equal(t, "alice", ticket.OwnerID)
	assert.Nil(t, ticket.ClaimantID)
	require.NotNil(t, ticket.OpenLogMessageID)

	spec := f.gw.Channels[ticket.ChannelID]
	assert.Equal(t, "Tickets", spec.ParentName)
	assert.Contains(t, spec.Access, platform.AccessGrant{SubjectID: "guild", SubjectType: platform.SubjectRole})
	assert.Contains(t, spec.Access, platform.AccessGrant{SubjectID: "alice", SubjectType: platform.SubjectMember, Read: true, Write: true})
	assert.Contains(t, spec.Access, platform.AccessGrant{SubjectID: "bot", SubjectType: platform.SubjectMember, Read: true, Write: true})
	assert.Contains(t, spec.Access, platform.AccessGrant{SubjectID: "staff-role", SubjectType: platform.SubjectRole, Read: true, Write: true})

	inTicket := f.gw.SentTo(ticket.ChannelID)
	require.Len(t, inTicket, 2)
	assert.Contains(t, inTicket[0].Message.Content, "<@&ping-role>")
	assert.Len(t, inTicket[1].Message.Buttons, 2)

	logs := f.gw.SentTo(openLog)
	require.Len(t, logs, 1)
	assert.Equal(t, *ticket.OpenLogMessageID, logs[0].Ref.MessageID)

	stored, err := f.store.Get(context.Background(), ticket.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, ticket.OpenLogMessageID, stored.OpenLogMessageID)
	assert.Equal(t, []events.EventType{events.EventTicketOpened}, f.eventTypes())
}

func TestOpenDistinctOwnersGetDistinctTickets(t *testing.T) {
	f := newTicketFixture(t)

	a := f.open(t, alice)
	b := f.open(t, bob)

	assert.NotEqual(t, a.ChannelID, b.ChannelID)
	list, err := f.svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestOpenRejectsSecondLiveTicket(t *testing.T) {
	f := newTicketFixture(t)
	first := f.open(t, alice)

	_, err := f.svc.Open(context.Background(), alice, domain.CategoryBug)

	assertCode(t, err, apperrors.CodeDuplicateTicket)
	assert.Equal(t, 1, f.gw.ChannelCount())
	got, getErr := f.store.Get(context.Background(), first.ChannelID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TicketStateOpen, got.State)
}

func TestOpenConcurrentSameOwner(t *testing.T) {
	f := newTicketFixture(t)

	const attempts = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		dupes     int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.svc.Open(context.Background(), alice, domain.CategoryStore)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if apperrors.HasCode(err, apperrors.CodeDuplicateTicket) {
				dupes++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, attempts-1, dupes)
	assert.Equal(t, 1, f.gw.ChannelCount())
	assert.Zero(t, f.svc.ownerLocks.size())
}

func TestOpenChannelFailureLeavesNoRecord(t *testing.T) {
	f := newTicketFixture(t)
	f.gw.Fail(platformtest.OpCreateChannel, errBoom)

	_, err := f.svc.Open(context.Background(), alice, domain.CategoryGeneral)

	assertCode(t, err, apperrors.CodeCapabilityFailure)
	list, listErr := f.store.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, list)
	assert.Empty(t, f.gw.SentTo(openLog))
	assert.Empty(t, f.eventTypes())

	f.gw.Fail(platformtest.OpCreateChannel, nil)
	f.open(t, alice)
}

type failingInsertStore struct {
	repository.TicketStore
}

func (failingInsertStore) Insert(context.Context, *domain.Ticket) error {
	return repository.ErrTicketExists
}

func TestOpenInsertFailureRetractsAuditRecord(t *testing.T) {
	f := newTicketFixture(t)
	f.svc.store = failingInsertStore{TicketStore: f.store}

	_, err := f.svc.Open(context.Background(), alice, domain.CategoryGeneral)

	assertCode(t, err, apperrors.CodeInternal)
	records := f.gw.SentTo(openLog)
	require.Len(t, records, 1)
	assert.True(t, f.gw.MessageDeleted(records[0].Ref))
	require.Len(t, f.gw.DeletedChannels, 1)
	assert.Empty(t, f.eventTypes())
}

func TestOpenUnknownCategory(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.Open(context.Background(), alice, domain.TicketCategory("lottery"))

	assertCode(t, err, apperrors.CodeValidation)
	assert.Zero(t, f.gw.ChannelCount())
}

func TestOpenSurvivesAuditFailure(t *testing.T) {
	f := newTicketFixture(t)
	f.gw.Fail(platformtest.OpSendMessage, errBoom)

	ticket, err := f.svc.Open(context.Background(), alice, domain.CategoryAppeal)

	require.NoError(t, err)
	assert.Nil(t, ticket.OpenLogMessageID)
	assert.Equal(t, domain.TicketStateOpen, ticket.State)
}

func TestClaimRejectsNonStaff(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)

	_, err := f.svc.Claim(context.Background(), ticket.ChannelID, bob)

	assertCode(t, err, apperrors.CodeUnauthorized)
	got, getErr := f.store.Get(context.Background(), ticket.ChannelID)
	require.NoError(t, getErr)
	assert.Equal(t, domain.TicketStateOpen, got.State)
	assert.Nil(t, got.ClaimantID)
	assert.Empty(t, f.gw.Access(ticket.ChannelID))
	assert.Empty(t, f.gw.Edits)
}

func TestClaimNarrowsAccessAndUpdatesAudit(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)

	claimed, err := f.svc.Claim(context.Background(), ticket.ChannelID, staff)
	require.NoError(t, err)

	assert.Equal(t, domain.TicketStateClaimed, claimed.State)
	require.NotNil(t, claimed.ClaimantID)
	assert.Equal(t, "staff-1", *claimed.ClaimantID)

	assert.Equal(t, []platform.AccessGrant{
		{SubjectID: "staff-role", SubjectType: platform.SubjectRole},
		{SubjectID: "staff-1", SubjectType: platform.SubjectMember, Read: true, Write: true},
		{SubjectID: "alice", SubjectType: platform.SubjectMember, Read: true, Write: true},
		{SubjectID: "owner", SubjectType: platform.SubjectMember, Read: true, Write: true},
	}, f.gw.Access(ticket.ChannelID))

	record, ok := f.gw.Message(platform.MessageRef{ChannelID: openLog, MessageID: *ticket.OpenLogMessageID})
	require.True(t, ok)
	require.Len(t, record.Embeds, 1)
	embed := record.Embeds[0]
	assert.Equal(t, platform.ColorGold, embed.Color)
	assert.True(t, strings.HasPrefix(embed.Footer, "Claimed at "))
	last := embed.Fields[len(embed.Fields)-1]
	assert.Equal(t, "Claimed by", last.Name)
	assert.Contains(t, last.Value, "staff-1")

	assert.Equal(t, []events.EventType{events.EventTicketOpened, events.EventTicketClaimed}, f.eventTypes())
}

func TestClaimTwiceIsRejectedWithoutSideEffects(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)
	_, err := f.svc.Claim(context.Background(), ticket.ChannelID, staff)
	require.NoError(t, err)
	accessBefore := len(f.gw.Access(ticket.ChannelID))
	editsBefore := len(f.gw.Edits)

	_, err = f.svc.Claim(context.Background(), ticket.ChannelID, staff2)

	assertCode(t, err, apperrors.CodeAlreadyClaimed)
	assert.Len(t, f.gw.Access(ticket.ChannelID), accessBefore)
	assert.Len(t, f.gw.Edits, editsBefore)
	got, getErr := f.store.Get(context.Background(), ticket.ChannelID)
	require.NoError(t, getErr)
	assert.Equal(t, "staff-1", *got.ClaimantID)
}

func TestClaimConcurrentExactlyOneWins(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)

	var (
		wg      sync.WaitGroup
		results = make([]error, 2)
		actors  = []domain.Member{staff, staff2}
	)
	for i := range actors {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.svc.Claim(context.Background(), ticket.ChannelID, actors[i])
		}(i)
	}
	wg.Wait()

	var winner string
	wins, rejected := 0, 0
	for i, err := range results {
		switch {
		case err == nil:
			wins++
			winner = actors[i].ID
		case apperrors.HasCode(err, apperrors.CodeAlreadyClaimed):
			rejected++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, rejected)

	got, err := f.store.Get(context.Background(), ticket.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, winner, *got.ClaimantID)
	assert.Zero(t, f.svc.channelLocks.size())
}

func TestClaimMissingTicket(t *testing.T) {
	f := newTicketFixture(t)

	_, err := f.svc.Claim(context.Background(), "nope", staff)

	assertCode(t, err, apperrors.CodeNotFound)
}

func TestClaimSideEffectFailuresDoNotAbort(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)
	f.gw.Fail(platformtest.OpSetAccess, errBoom)
	f.gw.Fail(platformtest.OpFetchMessage, errBoom)

	claimed, err := f.svc.Claim(context.Background(), ticket.ChannelID, staff)

	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateClaimed, claimed.State)
}

func TestClaimByPrivilegedOwner(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)
	owner := domain.Member{ID: "owner", Username: "Boss"}

	claimed, err := f.svc.Claim(context.Background(), ticket.ChannelID, owner)
	require.NoError(t, err)
	assert.Equal(t, "owner", *claimed.ClaimantID)
	assert.Len(t, f.gw.Access(ticket.ChannelID), 3, "staff deny, claimant and ticket owner")
}

func TestCloseWithTranscript(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)
	_, err := f.svc.Claim(context.Background(), ticket.ChannelID, staff)
	require.NoError(t, err)
	base := time.Now()
	f.gw.SetHistory(ticket.ChannelID, []domain.HistoryMessage{
		{AuthorName: "Alice", Content: "hi", CreatedAt: base},
		{AuthorName: "Bob", Content: "", CreatedAt: base.Add(time.Second)},
		{AuthorName: "Alice", Content: "bye", CreatedAt: base.Add(2 * time.Second)},
	})

	closed, err := f.svc.Close(context.Background(), ticket.ChannelID, staff2)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateClosed, closed.State)

	assert.True(t, f.gw.Deleted(ticket.ChannelID))
	_, err = f.store.Get(context.Background(), ticket.ChannelID)
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)

	records := f.gw.SentTo(closedLog)
	require.Len(t, records, 1)
	rec := records[0]
	require.NotNil(t, rec.Message.Attachment)
	assert.Equal(t, "transcript-general-alice.html", rec.Message.Attachment.Name)
	assert.Equal(t, 2, strings.Count(string(rec.AttachmentData), `<div class="msg">`))

	fields := map[string]string{}
	for _, field := range rec.Message.Embed.Fields {
		fields[field.Name] = field.Value
	}
	assert.Equal(t, "Sam (staff-1)", fields["Attended by"])
	assert.Equal(t, "Alice (alice)", fields["Owner"])
	assert.Contains(t, fields["Closed by"], "staff-2")

	assert.Equal(t, []events.EventType{events.EventTicketOpened, events.EventTicketClaimed, events.EventTicketClosed}, f.eventTypes())
}

func TestCloseUnclaimedUsesSentinel(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)

	_, err := f.svc.Close(context.Background(), ticket.ChannelID, staff)
	require.NoError(t, err)

	records := f.gw.SentTo(closedLog)
	require.Len(t, records, 1)
	var attended string
	for _, field := range records[0].Message.Embed.Fields {
		if field.Name == "Attended by" {
			attended = field.Value
		}
	}
	assert.Equal(t, AttendedByNobody, attended)
}

func TestCloseWithFailingHistoryStillDeletes(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)
	f.gw.Fail(platformtest.OpFetchHistory, errBoom)

	_, err := f.svc.Close(context.Background(), ticket.ChannelID, staff)
	require.NoError(t, err)

	assert.True(t, f.gw.Deleted(ticket.ChannelID))
	_, err = f.store.Get(context.Background(), ticket.ChannelID)
	assert.ErrorIs(t, err, repository.ErrTicketNotFound)
	records := f.gw.SentTo(closedLog)
	require.Len(t, records, 1)
	assert.Nil(t, records[0].Message.Attachment)
}

func TestCloseWithFailingAuditStillDeletes(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)
	f.gw.Fail(platformtest.OpSendMessage, errBoom)

	_, err := f.svc.Close(context.Background(), ticket.ChannelID, staff)

	require.NoError(t, err)
	assert.True(t, f.gw.Deleted(ticket.ChannelID))
}

func TestCloseDeleteFailureStillEvicts(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)
	f.gw.Fail(platformtest.OpDeleteChannel, errBoom)

	_, err := f.svc.Close(context.Background(), ticket.ChannelID, staff)

	assertCode(t, err, apperrors.CodeCapabilityFailure)
	_, getErr := f.store.Get(context.Background(), ticket.ChannelID)
	assert.ErrorIs(t, getErr, repository.ErrTicketNotFound)

	f.gw.Fail(platformtest.OpDeleteChannel, nil)
	f.open(t, alice)
}

func TestCloseRejectsNonStaff(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)

	_, err := f.svc.Close(context.Background(), ticket.ChannelID, alice)

	assertCode(t, err, apperrors.CodeUnauthorized)
	assert.False(t, f.gw.Deleted(ticket.ChannelID))
	assert.Empty(t, f.gw.SentTo(closedLog))
	assertCode(t, f.svc.CanClose(context.Background(), ticket.ChannelID, alice), apperrors.CodeUnauthorized)
}

func TestCloseTwice(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)
	require.NoError(t, f.svc.CanClose(context.Background(), ticket.ChannelID, staff))

	_, err := f.svc.Close(context.Background(), ticket.ChannelID, staff)
	require.NoError(t, err)

	_, err = f.svc.Close(context.Background(), ticket.ChannelID, staff)
	assertCode(t, err, apperrors.CodeNotFound)
	assertCode(t, f.svc.CanClose(context.Background(), ticket.ChannelID, staff), apperrors.CodeNotFound)
}

func TestGetTicket(t *testing.T) {
	f := newTicketFixture(t)
	ticket := f.open(t, alice)

	got, err := f.svc.Get(context.Background(), ticket.ChannelID)
	require.NoError(t, err)
	assert.Equal(t, ticket.ChannelID, got.ChannelID)

	_, err = f.svc.Get(context.Background(), "missing")
	assertCode(t, err, apperrors.CodeNotFound)
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/guildops/ticketbot/internal/auth"
	"github.com/guildops/ticketbot/internal/config"
	"github.com/guildops/ticketbot/internal/domain"
	"github.com/guildops/ticketbot/internal/events"
	"github.com/guildops/ticketbot/internal/observability"
	"github.com/guildops/ticketbot/internal/platform"
	"github.com/guildops/ticketbot/internal/repository"
	"github.com/guildops/ticketbot/internal/transcript"
	apperrors "github.com/guildops/ticketbot/pkg/util"
)

// AttendedByNobody is recorded when a ticket closes without a claimant.
const AttendedByNobody = "No one (general staff)"

const (
	opOpen  = "open"
	opClaim = "claim"
	opClose = "close"
)

// TicketPlatform is the subset of platform capabilities the ticket lifecycle uses.
type TicketPlatform interface {
	platform.ChannelManager
	platform.Messenger
	platform.Directory
}

// TicketService drives a ticket channel from creation through claim to closure.
type TicketService struct {
	store      repository.TicketStore
	platform   TicketPlatform
	audit      *AuditService
	policy     auth.Policy
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	discord    config.DiscordConfig
	cfg        config.TicketConfig
	now        func() time.Time

	ownerLocks   *keyedMutex
	channelLocks *keyedMutex
}

// TicketDependencies bundles collaborators for the ticket service.
type TicketDependencies struct {
	Store      repository.TicketStore
	Platform   TicketPlatform
	Audit      *AuditService
	Policy     auth.Policy
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Discord    config.DiscordConfig
	Tickets    config.TicketConfig
	Now        func() time.Time
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &TicketService{
		store:        deps.Store,
		platform:     deps.Platform,
		audit:        deps.Audit,
		policy:       deps.Policy,
		dispatcher:   deps.Dispatcher,
		metrics:      deps.Metrics,
		logger:       logger.Named("tickets"),
		discord:      deps.Discord,
		cfg:          deps.Tickets,
		now:          now,
		ownerLocks:   newKeyedMutex(),
		channelLocks: newKeyedMutex(),
	}
}

// Open creates a private ticket channel for owner. An owner holds at most one
// open or claimed ticket across all categories.
func (s *TicketService) Open(ctx context.Context, owner domain.Member, category domain.TicketCategory) (*domain.Ticket, error) {
	if _, ok := domain.ParseCategory(string(category)); !ok {
		return nil, s.fail(opOpen, apperrors.NewValidationError("Unknown ticket category.", map[string]any{"category": category}))
	}

	unlock := s.ownerLocks.Lock(owner.ID)
	defer unlock()

	existing, err := s.store.FindLiveByOwner(ctx, owner.ID)
	switch {
	case err == nil:
		return nil, s.fail(opOpen, apperrors.NewDuplicateTicket(owner.ID, existing.ChannelID))
	case !errors.Is(err, repository.ErrTicketNotFound):
		return nil, s.fail(opOpen, apperrors.NewInternalError(err))
	}

	info := category.Info()
	name := domain.ChannelNameFor(category, owner.Username)
	channel, err := s.platform.CreateChannel(ctx, platform.ChannelSpec{
		Name:       name,
		Topic:      fmt.Sprintf("Ticket of %s | %s", owner.Name(), info.Label),
		ParentName: s.cfg.CategoryName,
		Access:     s.openAccess(owner.ID),
	})
	if err != nil {
		return nil, s.fail(opOpen, apperrors.NewCapabilityFailure("create channel", err))
	}

	ticket := &domain.Ticket{
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
		OwnerID:     owner.ID,
		OwnerName:   owner.Name(),
		Category:    category,
		State:       domain.TicketStateOpen,
		CreatedAt:   s.now(),
	}
	log := s.logger.With(zap.String("channel_id", ticket.ChannelID), zap.String("owner_id", owner.ID))

	if s.discord.MentionRoleID != "" {
		_, err := s.platform.SendMessage(ctx, ticket.ChannelID, platform.OutgoingMessage{
			Content: fmt.Sprintf("%s new ticket from %s", domain.RoleMention(s.discord.MentionRoleID), owner.Mention()),
		})
		if err != nil {
			log.Warn("mention ping failed", zap.Error(err))
		}
	}

	logID, err := s.audit.RecordOpened(ctx, ticket, owner)
	if err != nil {
		log.Warn("open audit record failed", zap.Error(err))
	}
	ticket.OpenLogMessageID = logID

	if err := s.store.Insert(ctx, ticket); err != nil {
		if retractErr := s.audit.RetractOpened(ctx, logID); retractErr != nil {
			log.Warn("open audit retract failed", zap.Error(retractErr))
		}
		if delErr := s.platform.DeleteChannel(ctx, ticket.ChannelID); delErr != nil {
			log.Error("rollback channel delete failed", zap.Error(delErr))
		}
		return nil, s.fail(opOpen, apperrors.NewInternalError(err))
	}

	if _, err := s.platform.SendMessage(ctx, ticket.ChannelID, s.welcomeMessage(ticket, owner)); err != nil {
		log.Warn("welcome message failed", zap.Error(err))
	}

	log.Info("ticket opened", zap.String("category", string(category)))
	s.publish(ctx, events.New(events.EventTicketOpened, ticket.ChannelID, owner.ID, ticket.CreatedAt,
		events.TicketOpenedPayload{OwnerID: owner.ID, Category: category}))
	return ticket.Clone(), nil
}

// Claim assigns the ticket to actor and narrows channel access to the claimant,
// the owner and the privileged owner. State is committed before access changes;
// access, announcement and audit failures are logged.
func (s *TicketService) Claim(ctx context.Context, channelID string, actor domain.Member) (*domain.Ticket, error) {
	if !s.policy.CanManageTickets(actor) {
		return nil, s.fail(opClaim, apperrors.NewUnauthorized("Only staff can claim tickets."))
	}

	unlock := s.channelLocks.Lock(channelID)
	defer unlock()

	claimed, err := s.store.UpdateClaim(ctx, channelID, actor.ID, s.now())
	switch {
	case errors.Is(err, repository.ErrTicketNotFound):
		return nil, s.fail(opClaim, apperrors.NewNotFound("ticket", map[string]any{"channel_id": channelID}))
	case errors.Is(err, repository.ErrTicketNotOpen):
		claimant := ""
		if claimed != nil && claimed.ClaimantID != nil {
			claimant = *claimed.ClaimantID
		}
		return nil, s.fail(opClaim, apperrors.NewAlreadyClaimed(channelID, claimant))
	case err != nil:
		return nil, s.fail(opClaim, apperrors.NewInternalError(err))
	}

	log := s.logger.With(zap.String("channel_id", channelID), zap.String("claimant_id", actor.ID))
	for _, grant := range s.claimAccess(claimed.OwnerID, actor.ID) {
		if err := s.platform.SetChannelAccess(ctx, channelID, grant); err != nil {
			log.Warn("narrowing channel access failed", zap.String("subject_id", grant.SubjectID), zap.Error(err))
		}
	}

	_, err = s.platform.SendMessage(ctx, channelID, platform.OutgoingMessage{
		Embed: &platform.Embed{
			Title:       "🙋 Ticket claimed",
			Description: fmt.Sprintf("%s will attend you.\nAccess is now restricted to the assigned staff member.", actor.Mention()),
			Color:       platform.ColorGold,
		},
	})
	if err != nil {
		log.Warn("claim announcement failed", zap.Error(err))
	}

	if err := s.audit.RecordClaimed(ctx, claimed, actor); err != nil {
		log.Warn("claim audit update failed", zap.Error(err))
	}

	log.Info("ticket claimed")
	s.publish(ctx, events.New(events.EventTicketClaimed, channelID, actor.ID, *claimed.ClaimedAt,
		events.TicketClaimedPayload{OwnerID: claimed.OwnerID, ClaimantID: actor.ID}))
	return claimed, nil
}

// CanClose runs the close preconditions without side effects.
func (s *TicketService) CanClose(ctx context.Context, channelID string, actor domain.Member) error {
	if !s.policy.CanManageTickets(actor) {
		return s.fail(opClose, apperrors.NewUnauthorized("Only staff can close tickets."))
	}
	ticket, err := s.store.Get(ctx, channelID)
	if err != nil || !ticket.IsLive() {
		return s.fail(opClose, apperrors.NewNotFound("ticket", map[string]any{"channel_id": channelID}))
	}
	return nil
}

// Close archives the ticket and deletes its channel. Transcript and audit
// failures are logged; deletion and eviction always run once authorized.
func (s *TicketService) Close(ctx context.Context, channelID string, actor domain.Member) (*domain.Ticket, error) {
	if !s.policy.CanManageTickets(actor) {
		return nil, s.fail(opClose, apperrors.NewUnauthorized("Only staff can close tickets."))
	}

	unlock := s.channelLocks.Lock(channelID)
	defer unlock()

	closedAt := s.now()
	ticket, err := s.store.MarkClosed(ctx, channelID, closedAt)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, s.fail(opClose, apperrors.NewNotFound("ticket", map[string]any{"channel_id": channelID}))
		}
		return nil, s.fail(opClose, apperrors.NewInternalError(err))
	}
	log := s.logger.With(zap.String("channel_id", channelID), zap.String("closer_id", actor.ID))

	doc := s.buildTranscript(ctx, ticket, closedAt, log)

	err = s.audit.RecordClosed(ctx, ClosureRecord{
		Ticket:     ticket,
		OwnerLabel: s.memberLabel(ctx, ticket.OwnerID, ticket.OwnerName),
		Closer:     actor,
		AttendedBy: s.attendedBy(ctx, ticket),
		Transcript: doc,
	})
	if err != nil {
		log.Warn("closure audit record failed", zap.Error(err))
	}

	wait(ctx, s.cfg.CloseDelay())

	delCtx, cancel := withOptionalTimeout(context.WithoutCancel(ctx), s.cfg.DeleteTimeout())
	deleteErr := s.platform.DeleteChannel(delCtx, channelID)
	cancel()
	if deleteErr != nil {
		log.Error("channel delete failed", zap.Error(deleteErr))
	}

	if err := s.store.Remove(ctx, channelID); err != nil {
		log.Error("evicting ticket failed", zap.Error(err))
	}

	log.Info("ticket closed", zap.Bool("transcript", doc != nil), zap.Bool("channel_deleted", deleteErr == nil))
	s.publish(ctx, events.New(events.EventTicketClosed, channelID, actor.ID, closedAt, events.TicketClosedPayload{
		OwnerID:       ticket.OwnerID,
		ClaimantID:    ticket.ClaimantID,
		Transcript:    doc != nil,
		ChannelDelete: deleteErr == nil,
	}))

	if deleteErr != nil {
		return ticket, s.fail(opClose, apperrors.NewCapabilityFailure("delete channel", deleteErr))
	}
	return ticket, nil
}

// Get returns the live ticket bound to channelID.
func (s *TicketService) Get(ctx context.Context, channelID string) (*domain.Ticket, error) {
	ticket, err := s.store.Get(ctx, channelID)
	if err != nil {
		if errors.Is(err, repository.ErrTicketNotFound) {
			return nil, apperrors.NewNotFound("ticket", map[string]any{"channel_id": channelID})
		}
		return nil, apperrors.NewInternalError(err)
	}
	return ticket, nil
}

// List returns every live ticket ordered by creation.
func (s *TicketService) List(ctx context.Context) ([]domain.Ticket, error) {
	tickets, err := s.store.List(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return tickets, nil
}

func (s *TicketService) buildTranscript(ctx context.Context, ticket *domain.Ticket, at time.Time, log *zap.Logger) []byte {
	histCtx, cancel := withOptionalTimeout(ctx, s.cfg.HistoryTimeout())
	defer cancel()

	history, err := s.platform.FetchHistory(histCtx, ticket.ChannelID)
	if err != nil {
		log.Warn("history fetch failed, closing without transcript", zap.Error(err))
		return nil
	}
	doc, err := transcript.Build(ticket.ChannelName, at, history)
	if err != nil {
		log.Warn("transcript render failed", zap.Error(err))
		return nil
	}
	return doc
}

func (s *TicketService) attendedBy(ctx context.Context, ticket *domain.Ticket) string {
	if ticket.ClaimantID == nil {
		return AttendedByNobody
	}
	return s.memberLabel(ctx, *ticket.ClaimantID, "")
}

func (s *TicketService) memberLabel(ctx context.Context, userID, fallbackName string) string {
	if m, err := s.platform.Member(ctx, userID); err == nil {
		return m.Label()
	}
	if fallbackName != "" {
		return fmt.Sprintf("%s (%s)", fallbackName, userID)
	}
	return domain.UserMention(userID)
}

func (s *TicketService) openAccess(ownerID string) []platform.AccessGrant {
	grants := []platform.AccessGrant{
		{SubjectID: s.discord.GuildID, SubjectType: platform.SubjectRole},
		{SubjectID: ownerID, SubjectType: platform.SubjectMember, Read: true, Write: true},
	}
	if botID := s.platform.BotUserID(); botID != "" {
		grants = append(grants, platform.AccessGrant{SubjectID: botID, SubjectType: platform.SubjectMember, Read: true, Write: true})
	}
	if s.discord.StaffRoleID != "" {
		grants = append(grants, platform.AccessGrant{SubjectID: s.discord.StaffRoleID, SubjectType: platform.SubjectRole, Read: true, Write: true})
	}
	return grants
}

func (s *TicketService) claimAccess(ownerID, claimantID string) []platform.AccessGrant {
	var grants []platform.AccessGrant
	if s.discord.StaffRoleID != "" {
		grants = append(grants, platform.AccessGrant{SubjectID: s.discord.StaffRoleID, SubjectType: platform.SubjectRole})
	}
	seen := map[string]bool{}
	for _, id := range []string{claimantID, ownerID, s.discord.OwnerID} {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		grants = append(grants, platform.AccessGrant{SubjectID: id, SubjectType: platform.SubjectMember, Read: true, Write: true})
	}
	return grants
}

func (s *TicketService) welcomeMessage(ticket *domain.Ticket, owner domain.Member) platform.OutgoingMessage {
	info := ticket.Category.Info()
	return platform.OutgoingMessage{
		Content: owner.Mention(),
		Embed: &platform.Embed{
			Title:         fmt.Sprintf("%s %s", info.Emoji, info.Label),
			Description:   fmt.Sprintf("Hello %s, describe your issue and a staff member will be with you shortly.", owner.Mention()),
			Color:         platform.ColorGreen,
			Footer:        s.cfg.Brand,
			FooterIconURL: s.cfg.BrandIconURL,
			Timestamp:     ticket.CreatedAt,
		},
		Buttons: TicketControls(""),
	}
}

// TicketControls returns the claim and close buttons of a ticket's welcome
// message. A non-empty claimedBy disables the claim button.
func TicketControls(claimedBy string) []platform.Button {
	claim := platform.Button{CustomID: platform.ControlClaimTicket, Label: "Claim", Emoji: "🙋", Style: platform.ButtonSuccess}
	if claimedBy != "" {
		claim.Label = "Claimed by " + claimedBy
		claim.Style = platform.ButtonSecondary
		claim.Disabled = true
	}
	return []platform.Button{
		claim,
		{CustomID: platform.ControlCloseTicket, Label: "Close", Emoji: "🔒", Style: platform.ButtonDanger},
	}
}

func (s *TicketService) fail(op string, err error) error {
	if de := apperrors.ToDomainError(err); de != nil {
		s.metrics.RecordTransitionFailure(op, de.Code)
	}
	return err
}

func (s *TicketService) publish(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, event); err != nil {
		s.logger.Warn("event handler failed", zap.String("event_type", string(event.Type)), zap.Error(err))
	}
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// wait sleeps for d or until ctx is done.
func wait(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

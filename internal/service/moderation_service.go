package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/guildops/ticketbot/internal/auth"
	"github.com/guildops/ticketbot/internal/domain"
	"github.com/guildops/ticketbot/internal/events"
	"github.com/guildops/ticketbot/internal/observability"
	"github.com/guildops/ticketbot/internal/platform"
	apperrors "github.com/guildops/ticketbot/pkg/util"
)

// MaxPurge bounds a single purge request.
const MaxPurge = 100

// DefaultReason is recorded when a kick or ban names no reason.
const DefaultReason = "No reason given"

// Moderation action names.
const (
	ActionKick       = "kick"
	ActionBan        = "ban"
	ActionAddRole    = "addrole"
	ActionRemoveRole = "removerole"
	ActionPurge      = "clear"
	ActionNuke       = "nuke"
)

// ModerationPlatform is the subset of platform capabilities moderation uses.
type ModerationPlatform interface {
	platform.ChannelManager
	platform.Messenger
	platform.Directory
	platform.Moderator
}

// ModerationService runs one-shot moderation commands.
type ModerationService struct {
	platform   ModerationPlatform
	policy     auth.Policy
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// ModerationDependencies bundles collaborators for the moderation service.
type ModerationDependencies struct {
	Platform   ModerationPlatform
	Policy     auth.Policy
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewModerationService creates the service.
func NewModerationService(deps ModerationDependencies) *ModerationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &ModerationService{
		platform:   deps.Platform,
		policy:     deps.Policy,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger.Named("moderation"),
		now:        now,
	}
}

// Kick removes target from the guild.
func (s *ModerationService) Kick(ctx context.Context, actor domain.Member, targetID, reason string) (*domain.Member, error) {
	target, err := s.authorizeOnMember(ctx, ActionKick, actor, targetID)
	if err != nil {
		return nil, err
	}
	reason = NormalizeReason(reason)
	if err := s.platform.Kick(ctx, target.ID, reason); err != nil {
		return nil, s.result(ActionKick, apperrors.NewCapabilityFailure(ActionKick, err))
	}
	s.done(ctx, actor, events.MemberModeratedPayload{Action: ActionKick, TargetID: target.ID})
	return target, nil
}

// Ban bans target from the guild.
func (s *ModerationService) Ban(ctx context.Context, actor domain.Member, targetID, reason string) (*domain.Member, error) {
	target, err := s.authorizeOnMember(ctx, ActionBan, actor, targetID)
	if err != nil {
		return nil, err
	}
	reason = NormalizeReason(reason)
	if err := s.platform.Ban(ctx, target.ID, reason); err != nil {
		return nil, s.result(ActionBan, apperrors.NewCapabilityFailure(ActionBan, err))
	}
	s.done(ctx, actor, events.MemberModeratedPayload{Action: ActionBan, TargetID: target.ID})
	return target, nil
}

// AddRole grants roleID to target.
func (s *ModerationService) AddRole(ctx context.Context, actor domain.Member, targetID, roleID string) (*domain.Member, *domain.Role, error) {
	return s.editRole(ctx, ActionAddRole, actor, targetID, roleID, s.platform.AddRole)
}

// RemoveRole revokes roleID from target.
func (s *ModerationService) RemoveRole(ctx context.Context, actor domain.Member, targetID, roleID string) (*domain.Member, *domain.Role, error) {
	return s.editRole(ctx, ActionRemoveRole, actor, targetID, roleID, s.platform.RemoveRole)
}

func (s *ModerationService) editRole(
	ctx context.Context,
	action string,
	actor domain.Member,
	targetID, roleID string,
	apply func(ctx context.Context, userID, roleID string) error,
) (*domain.Member, *domain.Role, error) {
	target, err := s.authorizeOnMember(ctx, action, actor, targetID)
	if err != nil {
		return nil, nil, err
	}
	role, err := s.platform.Role(ctx, roleID)
	if err != nil {
		return nil, nil, s.result(action, lookupError("role", roleID, err))
	}
	if !s.policy.CanAssignRole(actor, *role) {
		return nil, nil, s.result(action, apperrors.NewInsufficientHierarchy("That role is above your highest role."))
	}
	if err := apply(ctx, target.ID, role.ID); err != nil {
		return nil, nil, s.result(action, apperrors.NewCapabilityFailure(action, err))
	}
	s.done(ctx, actor, events.MemberModeratedPayload{Action: action, TargetID: target.ID, RoleID: role.ID})
	return target, role, nil
}

// Purge deletes up to count of the newest messages in channelID and returns how
// many were deleted. Requests outside 1..MaxPurge delete nothing.
func (s *ModerationService) Purge(ctx context.Context, actor domain.Member, channelID string, count int) (int, error) {
	if !s.policy.CanModerate(actor) {
		return 0, s.result(ActionPurge, apperrors.NewUnauthorized("Access denied."))
	}
	if count < 1 || count > MaxPurge {
		return 0, s.result(ActionPurge, apperrors.NewValidationError(
			fmt.Sprintf("You can delete between 1 and %d messages at a time.", MaxPurge),
			map[string]any{"requested": count},
		))
	}
	deleted, err := s.platform.DeleteRecentMessages(ctx, channelID, count)
	if err != nil {
		return 0, s.result(ActionPurge, apperrors.NewCapabilityFailure(ActionPurge, err))
	}
	if deleted > count {
		deleted = count
	}
	s.done(ctx, actor, events.MemberModeratedPayload{Action: ActionPurge, Count: deleted})
	return deleted, nil
}

// CanNuke reports whether actor may nuke a channel.
func (s *ModerationService) CanNuke(actor domain.Member) error {
	if !s.policy.CanModerate(actor) {
		return s.result(ActionNuke, apperrors.NewUnauthorized("Access denied."))
	}
	return nil
}

// Nuke replaces channelID with a fresh clone and announces it there.
func (s *ModerationService) Nuke(ctx context.Context, actor domain.Member, channelID string) (*platform.Channel, error) {
	if !s.policy.CanModerate(actor) {
		return nil, s.result(ActionNuke, apperrors.NewUnauthorized("Access denied."))
	}
	clone, err := s.platform.CloneChannel(ctx, channelID)
	if err != nil {
		return nil, s.result(ActionNuke, apperrors.NewCapabilityFailure("clone channel", err))
	}
	if err := s.platform.DeleteChannel(ctx, channelID); err != nil {
		return clone, s.result(ActionNuke, apperrors.NewCapabilityFailure("delete channel", err))
	}

	_, err = s.platform.SendMessage(ctx, clone.ID, platform.OutgoingMessage{
		Embed: &platform.Embed{
			Title:       "💥 Channel nuked",
			Description: fmt.Sprintf("This channel was nuked by %s.", actor.Mention()),
			Color:       platform.ColorOrange,
			Timestamp:   s.now(),
		},
	})
	if err != nil {
		s.logger.Warn("nuke announcement failed", zap.String("channel_id", clone.ID), zap.Error(err))
	}
	s.done(ctx, actor, events.MemberModeratedPayload{Action: ActionNuke})
	return clone, nil
}

// authorizeOnMember applies the moderation gate and the hierarchy check.
func (s *ModerationService) authorizeOnMember(ctx context.Context, action string, actor domain.Member, targetID string) (*domain.Member, error) {
	if !s.policy.CanModerate(actor) {
		return nil, s.result(action, apperrors.NewUnauthorized("Access denied."))
	}
	target, err := s.platform.Member(ctx, targetID)
	if err != nil {
		return nil, s.result(action, lookupError("member", targetID, err))
	}
	if !s.policy.Outranks(actor, *target) {
		return nil, s.result(action, apperrors.NewInsufficientHierarchy("You cannot act on a member with an equal or higher role."))
	}
	return target, nil
}

func (s *ModerationService) result(action string, err error) error {
	code := "ok"
	if de := apperrors.ToDomainError(err); de != nil {
		code = de.Code
	}
	s.metrics.RecordModeration(action, code)
	return err
}

func (s *ModerationService) done(ctx context.Context, actor domain.Member, payload events.MemberModeratedPayload) {
	s.metrics.RecordModeration(payload.Action, "ok")
	s.logger.Info("moderation applied",
		zap.String("action", payload.Action),
		zap.String("actor_id", actor.ID),
		zap.String("target_id", payload.TargetID),
		zap.String("role_id", payload.RoleID),
		zap.Int("count", payload.Count))
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Publish(ctx, events.New(events.EventMemberModerated, "", actor.ID, s.now(), payload)); err != nil {
		s.logger.Warn("event handler failed", zap.Error(err))
	}
}

func lookupError(resource, id string, err error) error {
	if errors.Is(err, platform.ErrNotFound) {
		return apperrors.NewNotFound(resource, map[string]any{"id": id})
	}
	return apperrors.NewCapabilityFailure("lookup "+resource, err)
}

// NormalizeReason trims reason and substitutes DefaultReason when blank.
func NormalizeReason(reason string) string {
	if r := strings.TrimSpace(reason); r != "" {
		return r
	}
	return DefaultReason
}

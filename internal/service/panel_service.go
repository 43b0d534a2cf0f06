package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/guildops/ticketbot/internal/auth"
	"github.com/guildops/ticketbot/internal/config"
	"github.com/guildops/ticketbot/internal/domain"
	"github.com/guildops/ticketbot/internal/platform"
	apperrors "github.com/guildops/ticketbot/pkg/util"
)

// PanelService posts the ticket panel with the category menu.
type PanelService struct {
	messenger platform.Messenger
	policy    auth.Policy
	cfg       config.TicketConfig
	logger    *zap.Logger
}

// NewPanelService creates the service.
func NewPanelService(messenger platform.Messenger, policy auth.Policy, cfg config.TicketConfig, logger *zap.Logger) *PanelService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PanelService{messenger: messenger, policy: policy, cfg: cfg, logger: logger.Named("panel")}
}

// Publish replaces the invoking message with the panel.
func (s *PanelService) Publish(ctx context.Context, actor domain.Member, invocation platform.MessageRef) (*platform.MessageRef, error) {
	if !s.policy.CanModerate(actor) {
		return nil, apperrors.NewUnauthorized("Access denied.")
	}
	if err := s.messenger.DeleteMessage(ctx, invocation); err != nil {
		s.logger.Debug("deleting panel command failed", zap.Error(err))
	}
	ref, err := s.messenger.SendMessage(ctx, invocation.ChannelID, s.Message())
	if err != nil {
		return nil, apperrors.NewCapabilityFailure("send panel", err)
	}
	s.logger.Info("panel published", zap.String("channel_id", invocation.ChannelID), zap.String("actor_id", actor.ID))
	return ref, nil
}

// Message renders the panel.
func (s *PanelService) Message() platform.OutgoingMessage {
	options := make([]platform.MenuOption, 0, len(domain.Categories))
	for _, info := range domain.Categories {
		options = append(options, platform.MenuOption{
			Label:       info.Label,
			Value:       string(info.Category),
			Description: info.Description,
			Emoji:       info.Emoji,
		})
	}
	return platform.OutgoingMessage{
		Embed: &platform.Embed{
			Title:         s.cfg.Brand + " | Support Center",
			Description:   "Need help? Pick a category from the menu below and a private ticket will be opened for you.",
			Color:         platform.ColorDark,
			Footer:        s.cfg.Brand,
			FooterIconURL: s.cfg.BrandIconURL,
			ThumbnailURL:  s.cfg.BrandIconURL,
		},
		Menu: &platform.SelectMenu{
			CustomID:    platform.ControlCategorySelect,
			Placeholder: "Select a category...",
			Options:     options,
		},
	}
}

package discord

import (
	"context"

	"go.uber.org/zap"

	"github.com/guildops/ticketbot/internal/domain"
	"github.com/guildops/ticketbot/internal/service"
	apperrors "github.com/guildops/ticketbot/pkg/util"
)

// openTicket handles a category pick from the panel menu.
func (r *Router) openTicket(ctx context.Context, it *interaction) error {
	values := it.raw.MessageComponentData().Values
	if len(values) == 0 {
		return apperrors.NewValidationError("Pick a ticket category.", nil)
	}
	category, ok := domain.ParseCategory(values[0])
	if !ok {
		return apperrors.NewValidationError("Unknown ticket category.", map[string]any{"category": values[0]})
	}

	if err := it.deferReply(true); err != nil {
		return apperrors.NewCapabilityFailure("acknowledge", err)
	}
	ticket, err := r.cfg.Tickets.Open(ctx, it.actor, category)
	if err != nil {
		return err
	}
	return it.followup("✅ Your ticket is ready: "+domain.ChannelMention(ticket.ChannelID), true)
}

// claimTicket handles the claim button and disables it once claimed.
func (r *Router) claimTicket(ctx context.Context, it *interaction) error {
	if err := it.deferUpdate(); err != nil {
		return apperrors.NewCapabilityFailure("acknowledge", err)
	}
	if _, err := r.cfg.Tickets.Claim(ctx, it.raw.ChannelID, it.actor); err != nil {
		return err
	}
	if err := it.editComponents(service.TicketControls(it.actor.Name())); err != nil {
		r.logger.Warn("disabling claim button failed", zap.String("channel_id", it.raw.ChannelID), zap.Error(err))
	}
	return nil
}

// closeTicket handles the close button. The caller is told the ticket is
// closing only once the close is authorized.
func (r *Router) closeTicket(ctx context.Context, it *interaction) error {
	if err := r.cfg.Tickets.CanClose(ctx, it.raw.ChannelID, it.actor); err != nil {
		return err
	}
	if err := it.reply("🔒 Generating transcript and closing the ticket…", true); err != nil {
		return apperrors.NewCapabilityFailure("acknowledge", err)
	}
	_, err := r.cfg.Tickets.Close(ctx, it.raw.ChannelID, it.actor)
	return err
}

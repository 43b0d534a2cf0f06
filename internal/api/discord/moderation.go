package discord

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/guildops/ticketbot/internal/domain"
	"github.com/guildops/ticketbot/internal/platform"
	"github.com/guildops/ticketbot/internal/service"
	apperrors "github.com/guildops/ticketbot/pkg/util"
)

func (r *Router) kick(ctx context.Context, it *interaction) error {
	opts := optionsOf(it.raw.ApplicationCommandData())
	reason := service.NormalizeReason(opts.str(optionReason))
	target, err := r.cfg.Moderation.Kick(ctx, it.actor, opts.userID(optionUser), reason)
	if err != nil {
		return err
	}
	return it.replyEmbed(platform.Embed{
		Title:       "👢 Member kicked",
		Description: fmt.Sprintf("**%s** was kicked.\n**Reason:** %s", target.Name(), reason),
		Color:       platform.ColorOrange,
	}, false)
}

func (r *Router) ban(ctx context.Context, it *interaction) error {
	opts := optionsOf(it.raw.ApplicationCommandData())
	reason := service.NormalizeReason(opts.str(optionReason))
	target, err := r.cfg.Moderation.Ban(ctx, it.actor, opts.userID(optionUser), reason)
	if err != nil {
		return err
	}
	return it.replyEmbed(platform.Embed{
		Title:       "🔨 Member banned",
		Description: fmt.Sprintf("**%s** was banned.\n**Reason:** %s", target.Name(), reason),
		Color:       platform.ColorRed,
	}, false)
}

func (r *Router) addRole(ctx context.Context, it *interaction) error {
	opts := optionsOf(it.raw.ApplicationCommandData())
	target, role, err := r.cfg.Moderation.AddRole(ctx, it.actor, opts.userID(optionUser), opts.roleID(optionRole))
	if err != nil {
		return err
	}
	return it.reply(fmt.Sprintf("✅ Gave %s to %s.", domain.RoleMention(role.ID), target.Mention()), false)
}

func (r *Router) removeRole(ctx context.Context, it *interaction) error {
	opts := optionsOf(it.raw.ApplicationCommandData())
	target, role, err := r.cfg.Moderation.RemoveRole(ctx, it.actor, opts.userID(optionUser), opts.roleID(optionRole))
	if err != nil {
		return err
	}
	return it.reply(fmt.Sprintf("✅ Removed %s from %s.", domain.RoleMention(role.ID), target.Mention()), false)
}

// clear acknowledges privately first because bulk deletion can be slow.
func (r *Router) clear(ctx context.Context, it *interaction) error {
	opts := optionsOf(it.raw.ApplicationCommandData())
	if err := it.deferReply(true); err != nil {
		return apperrors.NewCapabilityFailure("acknowledge", err)
	}
	deleted, err := r.cfg.Moderation.Purge(ctx, it.actor, it.raw.ChannelID, opts.integer(optionAmount))
	if err != nil {
		return err
	}
	return it.followup(fmt.Sprintf("🧹 Deleted %d messages.", deleted), true)
}

// nuke answers before the channel disappears; the result is announced in
// the clone by the moderation service.
func (r *Router) nuke(ctx context.Context, it *interaction) error {
	if err := r.cfg.Moderation.CanNuke(it.actor); err != nil {
		return err
	}
	if err := it.reply("💣 Preparing nuke…", true); err != nil {
		return apperrors.NewCapabilityFailure("acknowledge", err)
	}
	clone, err := r.cfg.Moderation.Nuke(ctx, it.actor, it.raw.ChannelID)
	if err != nil {
		return err
	}
	r.logger.Info("channel nuked", zap.String("old_channel_id", it.raw.ChannelID), zap.String("channel_id", clone.ID))
	return nil
}

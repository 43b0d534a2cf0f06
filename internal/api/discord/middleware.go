package discord

import (
	"context"
	"runtime/debug"

	"go.uber.org/zap"

	apperrors "github.com/guildops/ticketbot/pkg/util"
)

// run invokes h with panic recovery, duration metrics and uniform error
// rendering. Errors never reach the gateway loop.
func (r *Router) run(ctx context.Context, name string, it *interaction, h handlerFunc) {
	observe := r.cfg.Metrics.ObserveInteraction(name)
	var err error
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("panic recovered",
				zap.String("handler", name),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()))
			err = apperrors.NewInternalError(nil)
		}
		observe(resultOf(err))
		if err == nil {
			return
		}
		r.logFailure(name, it, err)
		if sendErr := it.send(renderError(err), true); sendErr != nil {
			r.logger.Warn("error notice failed", zap.String("handler", name), zap.Error(sendErr))
		}
	}()
	err = h(ctx, it)
}

// withActor resolves the invoking member before h runs. Interactions from
// outside the configured guild are refused.
func (r *Router) withActor(h handlerFunc) handlerFunc {
	return func(ctx context.Context, it *interaction) error {
		if it.raw.GuildID != r.cfg.GuildID || it.raw.Member == nil {
			return apperrors.NewUnauthorized("This bot only works inside its server.")
		}
		actor, err := r.cfg.Members.ResolveMember(ctx, it.raw.Member, nil)
		if err != nil {
			return apperrors.NewCapabilityFailure("resolve member", err)
		}
		it.actor = *actor
		return h(ctx, it)
	}
}

func (r *Router) logFailure(name string, it *interaction, err error) {
	de := apperrors.ToDomainError(err)
	fields := []zap.Field{
		zap.String("handler", name),
		zap.String("channel_id", it.raw.ChannelID),
		zap.String("actor_id", it.actor.ID),
		zap.String("code", de.Code),
		zap.Error(err),
	}
	switch de.Code {
	case apperrors.CodeInternal:
		r.logger.Error("interaction failed", fields...)
	case apperrors.CodeCapabilityFailure:
		r.logger.Warn("interaction failed", fields...)
	default:
		r.logger.Debug("interaction rejected", fields...)
	}
}

// renderError turns err into the short caller-facing notice.
func renderError(err error) string {
	de := apperrors.ToDomainError(err)
	switch de.Code {
	case apperrors.CodeUnauthorized:
		return "⛔ **" + de.Message + "**"
	case apperrors.CodeInternal:
		return "❌ Something went wrong, please try again."
	default:
		return "❌ " + de.Message
	}
}

func resultOf(err error) string {
	if err == nil {
		return "ok"
	}
	return apperrors.ToDomainError(err).Code
}

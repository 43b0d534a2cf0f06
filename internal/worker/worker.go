package worker

import (
	"context"

	"go.uber.org/zap"

	"github.com/guildops/ticketbot/internal/service"
)

// Pool owns the bot's background listeners and schedules.
type Pool struct {
	notifications *service.NotificationService
	presence      *service.PresenceService
	logger        *zap.Logger
}

// Start registers event listeners and starts the presence schedule. Either
// service may be nil.
func Start(notifications *service.NotificationService, presence *service.PresenceService, logger *zap.Logger) (*Pool, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &Pool{notifications: notifications, presence: presence, logger: logger.Named("worker")}
	if notifications != nil {
		notifications.RegisterHandlers()
	}
	if presence != nil {
		if err := presence.Start(); err != nil {
			return nil, err
		}
	}
	p.logger.Info("background workers started")
	return p, nil
}

// Stop halts scheduled work.
func (p *Pool) Stop(ctx context.Context) {
	if p == nil {
		return
	}
	if p.presence != nil {
		p.presence.Stop(ctx)
	}
	p.logger.Info("background workers stopped")
}

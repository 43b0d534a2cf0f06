package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/guildops/ticketbot/internal/config"
	"github.com/guildops/ticketbot/internal/platform"
)

// PresenceService rotates the bot's streaming status on a schedule.
type PresenceService struct {
	presence platform.PresenceUpdater
	cfg      config.PresenceConfig
	logger   *zap.Logger

	mu   sync.Mutex
	next int
	cron *cron.Cron
}

// NewPresenceService creates the service.
func NewPresenceService(presence platform.PresenceUpdater, cfg config.PresenceConfig, logger *zap.Logger) *PresenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PresenceService{presence: presence, cfg: cfg, logger: logger.Named("presence")}
}

// Start schedules the rotation. It is a no-op when presence is disabled.
func (s *PresenceService) Start() error {
	if !s.cfg.Enabled {
		return nil
	}
	c := cron.New(cron.WithLocation(time.UTC))
	spec := fmt.Sprintf("@every %s", s.cfg.Interval())
	if _, err := c.AddFunc(spec, func() { s.Rotate(context.Background()) }); err != nil {
		return fmt.Errorf("schedule presence: %w", err)
	}
	s.mu.Lock()
	s.cron = c
	s.mu.Unlock()
	c.Start()
	return nil
}

// Stop halts the schedule and waits for a running rotation.
func (s *PresenceService) Stop(ctx context.Context) {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c == nil {
		return
	}
	select {
	case <-c.Stop().Done():
	case <-ctx.Done():
	}
}

// Rotate publishes the next status in the cycle and returns its text.
func (s *PresenceService) Rotate(ctx context.Context) string {
	s.mu.Lock()
	idx := s.next
	s.next = (s.next + 1) % 2
	s.mu.Unlock()

	var text string
	switch idx {
	case 0:
		text = fmt.Sprintf("in %d servers", s.presence.GuildCount())
	default:
		text = fmt.Sprintf("with %d members", s.presence.MemberCount())
	}
	if err := s.presence.SetStreamingStatus(ctx, text, s.cfg.StreamURL); err != nil {
		s.logger.Warn("presence update failed", zap.Error(err))
	}
	return text
}

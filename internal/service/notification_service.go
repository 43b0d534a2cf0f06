package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/guildops/ticketbot/internal/events"
	"github.com/guildops/ticketbot/internal/observability"
)

// NotificationService turns domain events into log lines and metrics.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger.Named("events"),
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketOpened, n.handleTicketOpened)
	n.dispatcher.Subscribe(events.EventTicketClaimed, n.handleTicketClaimed)
	n.dispatcher.Subscribe(events.EventTicketClosed, n.handleTicketClosed)
	n.dispatcher.Subscribe(events.EventMemberModerated, n.handleMemberModerated)
}

func (n *NotificationService) handleTicketOpened(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketOpened", zap.String("event_id", event.ID), zap.String("channel_id", event.ChannelID), zap.Any("payload", event.Payload))
	if p, ok := event.Payload.(events.TicketOpenedPayload); ok {
		n.metrics.RecordTicketOpened(string(p.Category))
	}
	return nil
}

func (n *NotificationService) handleTicketClaimed(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketClaimed", zap.String("event_id", event.ID), zap.String("channel_id", event.ChannelID), zap.Any("payload", event.Payload))
	n.metrics.RecordTicketClaimed()
	return nil
}

func (n *NotificationService) handleTicketClosed(ctx context.Context, event events.Event) error {
	n.logger.Info("TicketClosed", zap.String("event_id", event.ID), zap.String("channel_id", event.ChannelID), zap.Any("payload", event.Payload))
	if p, ok := event.Payload.(events.TicketClosedPayload); ok {
		n.metrics.RecordTicketClosed(p.ClaimantID != nil)
	}
	return nil
}

func (n *NotificationService) handleMemberModerated(ctx context.Context, event events.Event) error {
	n.logger.Debug("MemberModerated", zap.String("event_id", event.ID), zap.String("actor_id", event.ActorID), zap.Any("payload", event.Payload))
	return nil
}

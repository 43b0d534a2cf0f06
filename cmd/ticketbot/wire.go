package main

import (
	"go.uber.org/zap"

	discordapi "github.com/guildops/ticketbot/internal/api/discord"
	"github.com/guildops/ticketbot/internal/auth"
	"github.com/guildops/ticketbot/internal/config"
	"github.com/guildops/ticketbot/internal/events"
	"github.com/guildops/ticketbot/internal/observability"
	"github.com/guildops/ticketbot/internal/platform"
	"github.com/guildops/ticketbot/internal/repository"
	"github.com/guildops/ticketbot/internal/service"
)

// services holds the assembled application graph for one gateway.
type services struct {
	tickets       *service.TicketService
	moderation    *service.ModerationService
	panel         *service.PanelService
	presence      *service.PresenceService
	notifications *service.NotificationService
}

func buildServices(cfg *config.Config, gateway platform.Gateway, metrics *observability.Metrics, logger *zap.Logger) *services {
	policy := auth.NewPolicy(cfg.Discord.OwnerID, cfg.Discord.StaffRoleID)
	dispatcher := events.NewInMemoryDispatcher()

	audit := service.NewAuditService(service.AuditDependencies{
		Messenger: gateway,
		Discord:   cfg.Discord,
		Logger:    logger,
	})
	return &services{
		tickets: service.NewTicketService(service.TicketDependencies{
			Store:      repository.NewTicketStore(),
			Platform:   gateway,
			Audit:      audit,
			Policy:     policy,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
			Discord:    cfg.Discord,
			Tickets:    cfg.Tickets,
		}),
		moderation: service.NewModerationService(service.ModerationDependencies{
			Platform:   gateway,
			Policy:     policy,
			Dispatcher: dispatcher,
			Metrics:    metrics,
			Logger:     logger,
		}),
		panel:         service.NewPanelService(gateway, policy, cfg.Tickets, logger),
		presence:      service.NewPresenceService(gateway, cfg.Presence, logger),
		notifications: service.NewNotificationService(dispatcher, logger, metrics),
	}
}

func (s *services) routeConfig(cfg *config.Config, gateway platform.Gateway, members discordapi.MemberResolver, responder discordapi.Responder, registrar discordapi.CommandRegistrar, metrics *observability.Metrics, logger *zap.Logger) discordapi.RouteConfig {
	return discordapi.RouteConfig{
		Tickets:      s.tickets,
		Moderation:   s.moderation,
		Panel:        s.panel,
		Messenger:    gateway,
		Members:      members,
		Responder:    responder,
		Registrar:    registrar,
		Metrics:      metrics,
		Logger:       logger,
		GuildID:      cfg.Discord.GuildID,
		Prefix:       cfg.Discord.Prefix,
		SyncCommands: cfg.Discord.SyncCommands,
	}
}

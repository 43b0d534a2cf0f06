package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/guildops/ticketbot/internal/api/http/handlers"
	"github.com/guildops/ticketbot/internal/auth"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Tickets        *handlers.TicketsHandler
	Metrics        fiber.Handler
	AuthMiddleware *auth.AuthMiddleware
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	app.Get("/metrics", cfg.AuthMiddleware.Handle, auth.RequireScope(auth.ScopeMetricsRead), cfg.Metrics)

	ops := app.Group("/ops", cfg.AuthMiddleware.Handle)
	ops.Get("/tickets", auth.RequireScope(auth.ScopeTicketsRead), cfg.Tickets.ListTickets)
	ops.Get("/tickets/:channelID", auth.RequireScope(auth.ScopeTicketsRead), cfg.Tickets.GetTicket)
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	discordapi "github.com/guildops/ticketbot/internal/api/discord"
	httptransport "github.com/guildops/ticketbot/internal/api/http"
	"github.com/guildops/ticketbot/internal/api/http/handlers"
	"github.com/guildops/ticketbot/internal/auth"
	"github.com/guildops/ticketbot/internal/config"
	"github.com/guildops/ticketbot/internal/observability"
	"github.com/guildops/ticketbot/internal/platform"
	"github.com/guildops/ticketbot/internal/worker"
)

const (
	shutdownTimeout = 10 * time.Second
	opsTimeout      = 5 * time.Second
)

func runBot(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Discord.Validate(); err != nil {
		return fmt.Errorf("invalid discord config: %w", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	gateway, err := platform.NewDiscordGateway(cfg.Discord.Token, cfg.Discord.GuildID, logger)
	if err != nil {
		return fmt.Errorf("create discord session: %w", err)
	}

	metrics := observability.NewMetrics()
	svc := buildServices(cfg, gateway, metrics, logger)
	session := gateway.Session()
	router := discordapi.NewRouter(svc.routeConfig(cfg, gateway, gateway, session, session, metrics, logger))
	router.Register(ctx, session)

	if err := gateway.Open(); err != nil {
		return fmt.Errorf("open discord gateway: %w", err)
	}
	defer func() {
		if err := gateway.Close(); err != nil {
			logger.Warn("closing discord gateway", zap.Error(err))
		}
	}()

	pool, err := worker.Start(svc.notifications, svc.presence, logger)
	if err != nil {
		return fmt.Errorf("start workers: %w", err)
	}

	var app *fiber.App
	if cfg.Ops.Enabled {
		app = newOpsApp(cfg, gateway, svc, metrics, logger)
		go func() {
			if err := app.Listen(cfg.Ops.Addr()); err != nil {
				logger.Error("ops listener stopped", zap.Error(err))
			}
		}()
	}

	logger.Info("ticketbot running",
		zap.String("version", cfg.App.Version),
		zap.String("guild_id", cfg.Discord.GuildID),
		zap.Bool("ops", cfg.Ops.Enabled))
	waitForShutdown(ctx, logger)
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	pool.Stop(shutdownCtx)
	if app != nil {
		_ = app.ShutdownWithContext(shutdownCtx)
	}
	return nil
}

func newOpsApp(cfg *config.Config, gateway platform.Gateway, svc *services, metrics *observability.Metrics, logger *zap.Logger) *fiber.App {
	app := fiber.New(fiber.Config{AppName: cfg.App.Name, DisableStartupMessage: true})
	opsLogger := logger.Named("ops")
	httptransport.RegisterMiddlewares(app, opsLogger, metrics, opsTimeout)
	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, gateway),
		Tickets:        handlers.NewTicketsHandler(svc.tickets),
		Metrics:        handlers.NewMetricsHandler(metrics.Registry()),
		AuthMiddleware: auth.NewAuthMiddleware(auth.NewTokenManager(cfg.Ops.JWTSecret, cfg.Ops.TokenTTLMinutes, cfg.App.Name)),
	})
	return app
}

func waitForShutdown(ctx context.Context, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", zap.String("signal", sig.String()))
	case <-ctx.Done():
		logger.Info("shutting down", zap.Error(ctx.Err()))
	}
}

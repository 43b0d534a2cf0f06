// Package discord translates gateway events into service calls.
package discord

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/guildops/ticketbot/internal/domain"
	"github.com/guildops/ticketbot/internal/observability"
	"github.com/guildops/ticketbot/internal/platform"
	"github.com/guildops/ticketbot/internal/service"
)

const defaultNoticeTTL = 5 * time.Second

// MemberResolver turns the member attached to an event into the domain view.
type MemberResolver interface {
	ResolveMember(ctx context.Context, m *discordgo.Member, author *discordgo.User) (*domain.Member, error)
}

// RouteConfig bundles dependencies for the gateway router.
type RouteConfig struct {
	Tickets    *service.TicketService
	Moderation *service.ModerationService
	Panel      *service.PanelService
	Messenger  platform.Messenger
	Members    MemberResolver
	Responder  Responder
	Registrar  CommandRegistrar
	Metrics    *observability.Metrics
	Logger     *zap.Logger

	GuildID      string
	Prefix       string
	SyncCommands bool
	// NoticeTTL is how long the unauthorized panel notice stays up.
	NoticeTTL time.Duration
}

type handlerFunc func(ctx context.Context, it *interaction) error

// Router dispatches interactions, prefix commands and the ready event.
type Router struct {
	cfg        RouteConfig
	logger     *zap.Logger
	commands   map[string]handlerFunc
	components map[string]handlerFunc
}

// NewRouter builds the router and its routing tables.
func NewRouter(cfg RouteConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NoticeTTL <= 0 {
		cfg.NoticeTTL = defaultNoticeTTL
	}
	r := &Router{cfg: cfg, logger: logger.Named("router")}
	r.commands = map[string]handlerFunc{
		CommandNuke:       r.nuke,
		CommandKick:       r.kick,
		CommandBan:        r.ban,
		CommandClear:      r.clear,
		CommandAddRole:    r.addRole,
		CommandRemoveRole: r.removeRole,
	}
	r.components = map[string]handlerFunc{
		platform.ControlCategorySelect: r.openTicket,
		platform.ControlClaimTicket:    r.claimTicket,
		platform.ControlCloseTicket:    r.closeTicket,
	}
	return r
}

// Register attaches the router to session. Handlers run with ctx as their
// parent, so cancelling ctx aborts in-flight work.
func (r *Router) Register(ctx context.Context, session *discordgo.Session) {
	session.AddHandler(func(_ *discordgo.Session, e *discordgo.InteractionCreate) {
		r.HandleInteraction(ctx, e.Interaction)
	})
	session.AddHandler(func(_ *discordgo.Session, e *discordgo.MessageCreate) {
		r.HandleMessage(ctx, e.Message)
	})
	session.AddHandler(func(_ *discordgo.Session, e *discordgo.Ready) {
		r.HandleReady(ctx, e)
	})
}

// HandleInteraction routes a slash command or component interaction.
func (r *Router) HandleInteraction(ctx context.Context, raw *discordgo.Interaction) {
	var (
		name    string
		handler handlerFunc
	)
	switch raw.Type {
	case discordgo.InteractionApplicationCommand:
		name = raw.ApplicationCommandData().Name
		handler = r.commands[name]
	case discordgo.InteractionMessageComponent:
		name = raw.MessageComponentData().CustomID
		handler = r.components[name]
	}
	if handler == nil {
		r.logger.Debug("unrouted interaction", zap.String("name", name), zap.Stringer("type", raw.Type))
		return
	}
	it := &interaction{raw: raw, responder: r.cfg.Responder}
	r.run(ctx, name, it, r.withActor(handler))
}

// HandleMessage serves the prefix panel command.
func (r *Router) HandleMessage(ctx context.Context, m *discordgo.Message) {
	if m == nil || m.Author == nil || m.Author.Bot || m.GuildID != r.cfg.GuildID {
		return
	}
	command, ok := r.parsePrefix(m.Content)
	if !ok || (command != "panel" && command != "setup") {
		return
	}

	observe := r.cfg.Metrics.ObserveInteraction("panel")
	actor, err := r.cfg.Members.ResolveMember(ctx, m.Member, m.Author)
	if err != nil {
		r.logger.Warn("resolve panel author failed", zap.String("user_id", m.Author.ID), zap.Error(err))
		observe("error")
		return
	}

	invocation := platform.MessageRef{ChannelID: m.ChannelID, MessageID: m.ID}
	if _, err := r.cfg.Panel.Publish(ctx, *actor, invocation); err != nil {
		observe(resultOf(err))
		r.panelRejected(ctx, m.ChannelID, err)
		return
	}
	observe("ok")
}

// HandleReady syncs slash commands when configured.
func (r *Router) HandleReady(ctx context.Context, e *discordgo.Ready) {
	if !r.cfg.SyncCommands || r.cfg.Registrar == nil || e.User == nil {
		return
	}
	n, err := SyncCommands(ctx, r.cfg.Registrar, e.User.ID, r.cfg.GuildID)
	if err != nil {
		r.logger.Error("slash command sync failed", zap.Error(err))
		return
	}
	r.logger.Info("slash commands synced", zap.Int("count", n))
}

func (r *Router) parsePrefix(content string) (string, bool) {
	prefix := r.cfg.Prefix
	if prefix == "" || !strings.HasPrefix(content, prefix) {
		return "", false
	}
	fields := strings.Fields(strings.TrimPrefix(content, prefix))
	if len(fields) == 0 {
		return "", false
	}
	return strings.ToLower(fields[0]), true
}

// panelRejected posts a short notice and removes it after NoticeTTL.
func (r *Router) panelRejected(ctx context.Context, channelID string, err error) {
	ref, sendErr := r.cfg.Messenger.SendMessage(ctx, channelID, platform.OutgoingMessage{Content: renderError(err)})
	if sendErr != nil {
		r.logger.Warn("panel notice failed", zap.String("channel_id", channelID), zap.Error(sendErr))
		return
	}
	go func() {
		timer := time.NewTimer(r.cfg.NoticeTTL)
		defer timer.Stop()
		select {
		case <-timer.C:
		case <-ctx.Done():
		}
		if err := r.cfg.Messenger.DeleteMessage(context.WithoutCancel(ctx), *ref); err != nil {
			r.logger.Debug("panel notice cleanup failed", zap.Error(err))
		}
	}()
}

// Package platform declares the capabilities the bot consumes from the chat
// platform. Services depend on these interfaces only; the Discord adapter in
// this package implements all of them.
package platform

import (
	"context"
	"errors"

	"github.com/guildops/ticketbot/internal/domain"
)

// ErrNotFound is returned by adapters when the referenced object does not exist.
var ErrNotFound = errors.New("platform object not found")

// ChannelManager creates, edits and removes guild channels.
type ChannelManager interface {
	CreateChannel(ctx context.Context, spec ChannelSpec) (*Channel, error)
	SetChannelAccess(ctx context.Context, channelID string, grant AccessGrant) error
	DeleteChannel(ctx context.Context, channelID string) error
	CloneChannel(ctx context.Context, channelID string) (*Channel, error)
}

// Messenger sends, reads and edits messages.
type Messenger interface {
	SendMessage(ctx context.Context, channelID string, msg OutgoingMessage) (*MessageRef, error)
	EditMessage(ctx context.Context, ref MessageRef, msg OutgoingMessage) error
	FetchMessage(ctx context.Context, ref MessageRef) (*Message, error)
	// FetchHistory returns the complete channel history, oldest first.
	FetchHistory(ctx context.Context, channelID string) ([]domain.HistoryMessage, error)
	DeleteMessage(ctx context.Context, ref MessageRef) error
	// DeleteRecentMessages removes up to limit of the newest messages and
	// reports how many were deleted.
	DeleteRecentMessages(ctx context.Context, channelID string, limit int) (int, error)
}

// Directory resolves members and roles of the configured guild.
type Directory interface {
	Member(ctx context.Context, userID string) (*domain.Member, error)
	Role(ctx context.Context, roleID string) (*domain.Role, error)
	BotUserID() string
}

// Moderator applies member sanctions and role edits.
type Moderator interface {
	Kick(ctx context.Context, userID, reason string) error
	Ban(ctx context.Context, userID, reason string) error
	AddRole(ctx context.Context, userID, roleID string) error
	RemoveRole(ctx context.Context, userID, roleID string) error
}

// PresenceUpdater drives the bot's status line.
type PresenceUpdater interface {
	SetStreamingStatus(ctx context.Context, text, url string) error
	GuildCount() int
	MemberCount() int
}

// Gateway is the full capability set of a connected bot.
type Gateway interface {
	ChannelManager
	Messenger
	Directory
	Moderator
	PresenceUpdater
	Ready() bool
}

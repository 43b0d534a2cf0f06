package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/guildops/ticketbot/internal/config"
	"github.com/guildops/ticketbot/internal/domain"
	"github.com/guildops/ticketbot/internal/platform"
	"github.com/guildops/ticketbot/internal/transcript"
)

const (
	auditStatusWaiting = "🟢 Waiting for staff"
	auditStatusClaimed = "🟡 Claimed"
	fieldStatus        = "Status"
	fieldClaimedBy     = "Claimed by"
)

// AuditService writes ticket lifecycle records to the two log channels and keeps
// the open record in sync when the ticket is claimed.
type AuditService struct {
	messenger       platform.Messenger
	openChannelID   string
	closedChannelID string
	logger          *zap.Logger
	now             func() time.Time
}

// AuditDependencies bundles collaborators for the audit service.
type AuditDependencies struct {
	Messenger platform.Messenger
	Discord   config.DiscordConfig
	Logger    *zap.Logger
	Now       func() time.Time
}

// ClosureRecord is the content of a closed-ticket log entry.
type ClosureRecord struct {
	Ticket     *domain.Ticket
	OwnerLabel string
	Closer     domain.Member
	AttendedBy string
	Transcript []byte
}

// NewAuditService creates the service.
func NewAuditService(deps AuditDependencies) *AuditService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	return &AuditService{
		messenger:       deps.Messenger,
		openChannelID:   deps.Discord.LogOpenChannelID,
		closedChannelID: deps.Discord.LogTranscriptChannelID,
		logger:          logger.Named("audit"),
		now:             now,
	}
}

// RecordOpened posts the open record and returns its message id. A nil id means
// no open log channel is configured.
func (a *AuditService) RecordOpened(ctx context.Context, ticket *domain.Ticket, owner domain.Member) (*string, error) {
	if a.openChannelID == "" {
		return nil, nil
	}
	info := ticket.Category.Info()
	ref, err := a.messenger.SendMessage(ctx, a.openChannelID, platform.OutgoingMessage{
		Embed: &platform.Embed{
			Title: "🎫 Ticket opened",
			Color: platform.ColorGreen,
			Fields: []platform.EmbedField{
				{Name: "User", Value: owner.Mention() + " " + owner.Label(), Inline: true},
				{Name: "Category", Value: info.Label, Inline: true},
				{Name: "Channel", Value: domain.ChannelMention(ticket.ChannelID), Inline: true},
				{Name: fieldStatus, Value: auditStatusWaiting},
			},
			Timestamp: a.now(),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("send open record: %w", err)
	}
	id := ref.MessageID
	return &id, nil
}

// RetractOpened removes an open record whose ticket was never stored.
func (a *AuditService) RetractOpened(ctx context.Context, logID *string) error {
	if a.openChannelID == "" || logID == nil {
		return nil
	}
	ref := platform.MessageRef{ChannelID: a.openChannelID, MessageID: *logID}
	if err := a.messenger.DeleteMessage(ctx, ref); err != nil {
		return fmt.Errorf("delete open record: %w", err)
	}
	return nil
}

// RecordClaimed rewrites the open record with the claimant.
func (a *AuditService) RecordClaimed(ctx context.Context, ticket *domain.Ticket, claimant domain.Member) error {
	if a.openChannelID == "" || ticket.OpenLogMessageID == nil {
		return nil
	}
	ref := platform.MessageRef{ChannelID: a.openChannelID, MessageID: *ticket.OpenLogMessageID}
	msg, err := a.messenger.FetchMessage(ctx, ref)
	if err != nil {
		return fmt.Errorf("fetch open record: %w", err)
	}
	if len(msg.Embeds) == 0 {
		return errors.New("open record has no embed")
	}

	now := a.now()
	embed := msg.Embeds[0]
	embed.Color = platform.ColorGold
	for i := range embed.Fields {
		if embed.Fields[i].Name == fieldStatus {
			embed.Fields[i].Value = auditStatusClaimed
		}
	}
	embed.Fields = append(embed.Fields, platform.EmbedField{Name: fieldClaimedBy, Value: claimant.Mention() + " " + claimant.Label()})
	embed.Footer = "Claimed at " + now.Format("15:04")
	embed.Timestamp = now

	if err := a.messenger.EditMessage(ctx, ref, platform.OutgoingMessage{Embed: &embed}); err != nil {
		return fmt.Errorf("edit open record: %w", err)
	}
	return nil
}

// RecordClosed posts a fresh closure record with the transcript attached. The
// open record is left untouched.
func (a *AuditService) RecordClosed(ctx context.Context, rec ClosureRecord) error {
	if a.closedChannelID == "" {
		return nil
	}
	msg := platform.OutgoingMessage{
		Embed: &platform.Embed{
			Title: "🔒 Ticket closed",
			Color: platform.ColorRed,
			Fields: []platform.EmbedField{
				{Name: "Channel", Value: rec.Ticket.ChannelName, Inline: true},
				{Name: "Category", Value: rec.Ticket.Category.Info().Label, Inline: true},
				{Name: "Owner", Value: rec.OwnerLabel},
				{Name: "Closed by", Value: rec.Closer.Mention() + " " + rec.Closer.Label()},
				{Name: "Attended by", Value: rec.AttendedBy},
			},
			Timestamp: a.now(),
		},
	}
	if rec.Transcript != nil {
		msg.Attachment = &platform.Attachment{
			Name:        transcript.FileName(rec.Ticket.ChannelName),
			ContentType: transcript.ContentType,
			Reader:      bytes.NewReader(rec.Transcript),
		}
	} else {
		msg.Embed.Description = "Transcript unavailable."
	}
	if _, err := a.messenger.SendMessage(ctx, a.closedChannelID, msg); err != nil {
		return fmt.Errorf("send closure record: %w", err)
	}
	return nil
}

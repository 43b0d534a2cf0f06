package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/guildops/ticketbot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketOpened    EventType = "ticket_opened"
	EventTicketClaimed   EventType = "ticket_claimed"
	EventTicketClosed    EventType = "ticket_closed"
	EventMemberModerated EventType = "member_moderated"
)

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ChannelID string      `json:"channel_id"`
	ActorID   string      `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id.
func New(eventType EventType, channelID, actorID string, at time.Time, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ChannelID: channelID,
		ActorID:   actorID,
		Timestamp: at,
		Payload:   payload,
	}
}

// TicketOpenedPayload payload.
type TicketOpenedPayload struct {
	OwnerID  string                `json:"owner_id"`
	Category domain.TicketCategory `json:"category"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	OwnerID    string `json:"owner_id"`
	ClaimantID string `json:"claimant_id"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	OwnerID       string  `json:"owner_id"`
	ClaimantID    *string `json:"claimant_id,omitempty"`
	Transcript    bool    `json:"transcript"`
	ChannelDelete bool    `json:"channel_deleted"`
}

// MemberModeratedPayload payload.
type MemberModeratedPayload struct {
	Action   string `json:"action"`
	TargetID string `json:"target_id,omitempty"`
	RoleID   string `json:"role_id,omitempty"`
	Count    int    `json:"count,omitempty"`
}

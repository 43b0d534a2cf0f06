package dto

import (
	"time"

	"github.com/guildops/ticketbot/internal/domain"
)

// TicketListQuery captures query filters for the ops listing.
type TicketListQuery struct {
	States     []domain.TicketState
	Categories []domain.TicketCategory
	OwnerID    string
}

// TicketSummary response.
type TicketSummary struct {
	ChannelID        string                `json:"channel_id"`
	ChannelName      string                `json:"channel_name"`
	OwnerID          string                `json:"owner_id"`
	OwnerName        string                `json:"owner_name"`
	Category         domain.TicketCategory `json:"category"`
	State            domain.TicketState    `json:"state"`
	ClaimantID       *string               `json:"claimant_id"`
	OpenLogMessageID *string               `json:"open_log_message_id"`
	CreatedAt        time.Time             `json:"created_at"`
	ClaimedAt        *time.Time            `json:"claimed_at"`
}

// TicketListResponse wraps a listing with its size.
type TicketListResponse struct {
	Data  []TicketSummary `json:"data"`
	Total int             `json:"total"`
}

// TokenResponse is printed by the token command.
type TokenResponse struct {
	Token     string    `json:"token"`
	Operator  string    `json:"operator"`
	Scopes    []string  `json:"scopes"`
	ExpiresAt time.Time `json:"expires_at"`
}

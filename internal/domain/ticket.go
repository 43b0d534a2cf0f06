package domain

import (
	"strings"
	"time"
)

// TicketState enumerates lifecycle states for tickets.
type TicketState string

const (
	TicketStateOpen    TicketState = "OPEN"
	TicketStateClaimed TicketState = "CLAIMED"
	TicketStateClosed  TicketState = "CLOSED"
)

// TicketCategory is the support topic picked from the panel menu.
type TicketCategory string

const (
	CategoryGeneral    TicketCategory = "general"
	CategoryReportUser TicketCategory = "report-user"
	CategoryBug        TicketCategory = "bug"
	CategoryAlliance   TicketCategory = "alliance"
	CategoryAppeal     TicketCategory = "appeal"
	CategoryStore      TicketCategory = "store"
	CategoryAccount    TicketCategory = "account"
)

// CategoryInfo holds the panel presentation of a category.
type CategoryInfo struct {
	Category    TicketCategory
	Label       string
	Description string
	Emoji       string
}

// Categories lists every category in panel order.
var Categories = []CategoryInfo{
	{Category: CategoryGeneral, Label: "General Support", Description: "Connection problems or questions", Emoji: "🎟️"},
	{Category: CategoryReportUser, Label: "Report a User", Description: "Toxic behaviour or cheating", Emoji: "⚔️"},
	{Category: CategoryBug, Label: "Bug Report", Description: "Tell us about a bug you found", Emoji: "🐛"},
	{Category: CategoryAlliance, Label: "Alliances", Description: "Grow together", Emoji: "🤝"},
	{Category: CategoryAppeal, Label: "Appeals", Description: "Request a review of a sanction", Emoji: "⚖️"},
	{Category: CategoryStore, Label: "Store", Description: "Help with purchases", Emoji: "💰"},
	{Category: CategoryAccount, Label: "Account & Connection", Description: "Access problems", Emoji: "👑"},
}

// ParseCategory resolves a menu value to a known category.
func ParseCategory(value string) (TicketCategory, bool) {
	value = strings.ToLower(strings.TrimSpace(value))
	for _, info := range Categories {
		if string(info.Category) == value {
			return info.Category, true
		}
	}
	return "", false
}

// Info returns the presentation metadata for c.
func (c TicketCategory) Info() CategoryInfo {
	for _, info := range Categories {
		if info.Category == c {
			return info
		}
	}
	return CategoryInfo{Category: c, Label: string(c)}
}

// Ticket is the live record of a ticket channel.
type Ticket struct {
	ChannelID        string
	ChannelName      string
	OwnerID          string
	OwnerName        string
	Category         TicketCategory
	State            TicketState
	ClaimantID       *string
	OpenLogMessageID *string
	CreatedAt        time.Time
	ClaimedAt        *time.Time
	ClosedAt         *time.Time
}

// IsLive reports whether the ticket still counts against its owner.
func (t *Ticket) IsLive() bool {
	return t.State == TicketStateOpen || t.State == TicketStateClaimed
}

// Clone returns a deep copy so callers never share pointers with the store.
func (t *Ticket) Clone() *Ticket {
	if t == nil {
		return nil
	}
	out := *t
	out.ClaimantID = cloneString(t.ClaimantID)
	out.OpenLogMessageID = cloneString(t.OpenLogMessageID)
	out.ClaimedAt = cloneTime(t.ClaimedAt)
	out.ClosedAt = cloneTime(t.ClosedAt)
	return &out
}

// ChannelNameFor derives the ticket channel name from category and username.
func ChannelNameFor(category TicketCategory, username string) string {
	slug := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(username)), " ", "-")
	return string(category) + "-" + slug
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}

package handlers

import (
	"context"
	"slices"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/guildops/ticketbot/internal/api/dto"
	"github.com/guildops/ticketbot/internal/domain"
	apperrors "github.com/guildops/ticketbot/pkg/util"
)

// TicketReader is the read side of the ticket service.
type TicketReader interface {
	List(ctx context.Context) ([]domain.Ticket, error)
	Get(ctx context.Context, channelID string) (*domain.Ticket, error)
}

// TicketsHandler serves read-only ticket endpoints for operators.
type TicketsHandler struct {
	service TicketReader
}

// NewTicketsHandler constructs handler.
func NewTicketsHandler(tickets TicketReader) *TicketsHandler {
	return &TicketsHandler{service: tickets}
}

// ListTickets GET /ops/tickets.
func (h *TicketsHandler) ListTickets(c *fiber.Ctx) error {
	query, err := parseTicketQuery(c)
	if err != nil {
		return err
	}
	tickets, err := h.service.List(c.UserContext())
	if err != nil {
		return err
	}
	items := make([]dto.TicketSummary, 0, len(tickets))
	for i := range tickets {
		if !matches(&tickets[i], query) {
			continue
		}
		items = append(items, ticketSummary(&tickets[i]))
	}
	return c.JSON(dto.TicketListResponse{Data: items, Total: len(items)})
}

// GetTicket GET /ops/tickets/:channelID.
func (h *TicketsHandler) GetTicket(c *fiber.Ctx) error {
	ticket, err := h.service.Get(c.UserContext(), c.Params("channelID"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": ticketSummary(ticket)})
}

func parseTicketQuery(c *fiber.Ctx) (dto.TicketListQuery, error) {
	query := dto.TicketListQuery{OwnerID: strings.TrimSpace(c.Query("owner_id"))}
	for _, part := range splitList(c.Query("state")) {
		state := domain.TicketState(strings.ToUpper(part))
		if state != domain.TicketStateOpen && state != domain.TicketStateClaimed {
			return query, apperrors.NewValidationError("state must be OPEN or CLAIMED", map[string]any{"state": part})
		}
		query.States = append(query.States, state)
	}
	for _, part := range splitList(c.Query("category")) {
		category, ok := domain.ParseCategory(part)
		if !ok {
			return query, apperrors.NewValidationError("unknown category", map[string]any{"category": part})
		}
		query.Categories = append(query.Categories, category)
	}
	return query, nil
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func matches(ticket *domain.Ticket, query dto.TicketListQuery) bool {
	if query.OwnerID != "" && ticket.OwnerID != query.OwnerID {
		return false
	}
	if len(query.States) > 0 && !slices.Contains(query.States, ticket.State) {
		return false
	}
	if len(query.Categories) > 0 && !slices.Contains(query.Categories, ticket.Category) {
		return false
	}
	return true
}

func ticketSummary(ticket *domain.Ticket) dto.TicketSummary {
	return dto.TicketSummary{
		ChannelID:        ticket.ChannelID,
		ChannelName:      ticket.ChannelName,
		OwnerID:          ticket.OwnerID,
		OwnerName:        ticket.OwnerName,
		Category:         ticket.Category,
		State:            ticket.State,
		ClaimantID:       ticket.ClaimantID,
		OpenLogMessageID: ticket.OpenLogMessageID,
		CreatedAt:        ticket.CreatedAt,
		ClaimedAt:        ticket.ClaimedAt,
	}
}

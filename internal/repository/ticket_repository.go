package repository

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/guildops/ticketbot/internal/domain"
)

var (
	// ErrTicketExists is returned when inserting a channel that is already tracked.
	ErrTicketExists = errors.New("ticket already exists")
	// ErrTicketNotFound is returned when the channel is not a tracked ticket.
	ErrTicketNotFound = errors.New("ticket not found")
	// ErrTicketNotOpen is returned when a claim targets a ticket that left OPEN.
	ErrTicketNotOpen = errors.New("ticket is not open")
)

// TicketStore encapsulates live ticket state, keyed by channel id.
type TicketStore interface {
	Insert(ctx context.Context, ticket *domain.Ticket) error
	Get(ctx context.Context, channelID string) (*domain.Ticket, error)
	FindLiveByOwner(ctx context.Context, ownerID string) (*domain.Ticket, error)
	UpdateClaim(ctx context.Context, channelID, claimantID string, at time.Time) (*domain.Ticket, error)
	MarkClosed(ctx context.Context, channelID string, at time.Time) (*domain.Ticket, error)
	Remove(ctx context.Context, channelID string) error
	List(ctx context.Context) ([]domain.Ticket, error)
}

type memoryTicketStore struct {
	mu      sync.RWMutex
	tickets map[string]*domain.Ticket
}

// NewTicketStore instantiates an in-memory store.
func NewTicketStore() TicketStore {
	return &memoryTicketStore{tickets: make(map[string]*domain.Ticket)}
}

func (r *memoryTicketStore) Insert(ctx context.Context, ticket *domain.Ticket) error {
	if ticket == nil || ticket.ChannelID == "" {
		return errors.New("ticket channel id required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tickets[ticket.ChannelID]; exists {
		return ErrTicketExists
	}
	r.tickets[ticket.ChannelID] = ticket.Clone()
	return nil
}

func (r *memoryTicketStore) Get(ctx context.Context, channelID string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ticket, ok := r.tickets[channelID]
	if !ok {
		return nil, ErrTicketNotFound
	}
	return ticket.Clone(), nil
}

func (r *memoryTicketStore) FindLiveByOwner(ctx context.Context, ownerID string) (*domain.Ticket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, ticket := range r.tickets {
		if ticket.OwnerID == ownerID && ticket.IsLive() {
			return ticket.Clone(), nil
		}
	}
	return nil, ErrTicketNotFound
}

func (r *memoryTicketStore) UpdateClaim(ctx context.Context, channelID, claimantID string, at time.Time) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[channelID]
	if !ok {
		return nil, ErrTicketNotFound
	}
	if ticket.State != domain.TicketStateOpen {
		return ticket.Clone(), ErrTicketNotOpen
	}
	ticket.State = domain.TicketStateClaimed
	ticket.ClaimantID = &claimantID
	ticket.ClaimedAt = &at
	return ticket.Clone(), nil
}

func (r *memoryTicketStore) MarkClosed(ctx context.Context, channelID string, at time.Time) (*domain.Ticket, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ticket, ok := r.tickets[channelID]
	if !ok || ticket.State == domain.TicketStateClosed {
		return nil, ErrTicketNotFound
	}
	ticket.State = domain.TicketStateClosed
	ticket.ClosedAt = &at
	return ticket.Clone(), nil
}

func (r *memoryTicketStore) Remove(ctx context.Context, channelID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tickets[channelID]; !ok {
		return ErrTicketNotFound
	}
	delete(r.tickets, channelID)
	return nil
}

func (r *memoryTicketStore) List(ctx context.Context) ([]domain.Ticket, error) {
	r.mu.RLock()
	result := make([]domain.Ticket, 0, len(r.tickets))
	for _, ticket := range r.tickets {
		result = append(result, *ticket.Clone())
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

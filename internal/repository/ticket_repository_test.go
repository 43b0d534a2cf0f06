package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildops/ticketbot/internal/domain"
)

func newTicket(channelID, ownerID string, created time.Time) *domain.Ticket {
	return &domain.Ticket{
		ChannelID:   channelID,
		ChannelName: "general-" + ownerID,
		OwnerID:     ownerID,
		Category:    domain.CategoryGeneral,
		State:       domain.TicketStateOpen,
		CreatedAt:   created,
	}
}

func TestTicketStoreInsert(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore()
	now := time.Now()

	require.NoError(t, store.Insert(ctx, newTicket("c1", "u1", now)))

	t.Run("duplicate key", func(t *testing.T) {
		err := store.Insert(ctx, newTicket("c1", "u2", now))
		assert.ErrorIs(t, err, ErrTicketExists)
	})

	t.Run("missing key", func(t *testing.T) {
		err := store.Insert(ctx, &domain.Ticket{})
		assert.Error(t, err)
	})

	t.Run("stored copy is isolated from caller", func(t *testing.T) {
		original := newTicket("c2", "u2", now)
		require.NoError(t, store.Insert(ctx, original))
		original.State = domain.TicketStateClosed

		got, err := store.Get(ctx, "c2")
		require.NoError(t, err)
		assert.Equal(t, domain.TicketStateOpen, got.State)
	})
}

func TestTicketStoreClaimLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore()
	now := time.Now()
	require.NoError(t, store.Insert(ctx, newTicket("c1", "u1", now)))

	claimed, err := store.UpdateClaim(ctx, "c1", "staff-1", now)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateClaimed, claimed.State)
	require.NotNil(t, claimed.ClaimantID)
	assert.Equal(t, "staff-1", *claimed.ClaimantID)

	again, err := store.UpdateClaim(ctx, "c1", "staff-2", now)
	assert.ErrorIs(t, err, ErrTicketNotOpen)
	require.NotNil(t, again)
	assert.Equal(t, "staff-1", *again.ClaimantID, "claimant is set exactly once")

	_, err = store.UpdateClaim(ctx, "missing", "staff-1", now)
	assert.ErrorIs(t, err, ErrTicketNotFound)

	closed, err := store.MarkClosed(ctx, "c1", now)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStateClosed, closed.State)
	assert.Equal(t, "staff-1", *closed.ClaimantID)

	_, err = store.MarkClosed(ctx, "c1", now)
	assert.ErrorIs(t, err, ErrTicketNotFound, "closing twice is rejected")

	require.NoError(t, store.Remove(ctx, "c1"))
	_, err = store.Get(ctx, "c1")
	assert.ErrorIs(t, err, ErrTicketNotFound)
	assert.ErrorIs(t, store.Remove(ctx, "c1"), ErrTicketNotFound)
}

func TestTicketStoreFindLiveByOwner(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore()
	now := time.Now()
	require.NoError(t, store.Insert(ctx, newTicket("c1", "u1", now)))

	found, err := store.FindLiveByOwner(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "c1", found.ChannelID)

	_, err = store.MarkClosed(ctx, "c1", now)
	require.NoError(t, err)

	_, err = store.FindLiveByOwner(ctx, "u1")
	assert.ErrorIs(t, err, ErrTicketNotFound, "closing tickets do not block a new one")
}

func TestTicketStoreListOrdersByCreation(t *testing.T) {
	ctx := context.Background()
	store := NewTicketStore()
	base := time.Now()
	require.NoError(t, store.Insert(ctx, newTicket("late", "u1", base.Add(time.Minute))))
	require.NoError(t, store.Insert(ctx, newTicket("early", "u2", base)))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "early", list[0].ChannelID)
	assert.Equal(t, "late", list[1].ChannelID)
}

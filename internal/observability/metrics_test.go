package observability

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketMetrics(t *testing.T) {
	m := NewMetrics()

	m.RecordTicketOpened("bug")
	m.RecordTicketOpened("bug")
	m.RecordTicketOpened("store")
	m.RecordTicketClaimed()
	m.RecordTicketClosed(true)

	assert.Equal(t, float64(2), testutil.ToFloat64(m.ticketsOpened.WithLabelValues("bug")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ticketsClaimed))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.ticketsClosed.WithLabelValues("true")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.liveTickets))
}

func TestMetricsRegistriesAreIndependent(t *testing.T) {
	a := NewMetrics()
	b := NewMetrics()

	a.RecordModeration("kick", "ok")

	families, err := b.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		assert.NotEqual(t, "ticketbot_moderation_actions_total", family.GetName())
	}
}

func TestNilMetricsAreNoops(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTicketOpened("general")
		m.RecordTicketClosed(false)
		m.RecordTransitionFailure("claim", "UNAUTHORIZED")
		m.ObserveInteraction("claim")("ok")
	})
	assert.Nil(t, m.Registry())
}

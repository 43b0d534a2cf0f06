package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ticketbot"

// Metrics holds the bot's prometheus collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ticketsOpened   *prometheus.CounterVec
	ticketsClaimed  prometheus.Counter
	ticketsClosed   *prometheus.CounterVec
	liveTickets     prometheus.Gauge
	transitionFails *prometheus.CounterVec
	interactions    *prometheus.HistogramVec
	moderation      *prometheus.CounterVec
	requests        *prometheus.CounterVec
}

// NewMetrics registers collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		ticketsOpened: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "opened_total",
			Help:      "Tickets opened, labeled by category",
		}, []string{"category"}),
		ticketsClaimed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "claimed_total",
			Help:      "Tickets claimed by staff",
		}),
		ticketsClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "closed_total",
			Help:      "Tickets closed, labeled by whether they had been claimed",
		}, []string{"claimed"}),
		liveTickets: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "live",
			Help:      "Tickets currently open or claimed",
		}),
		transitionFails: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tickets",
			Name:      "transition_failures_total",
			Help:      "Rejected or failed ticket transitions, labeled by operation and error code",
		}, []string{"operation", "code"}),
		interactions: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "discord",
			Name:      "interaction_duration_seconds",
			Help:      "Time spent handling a Discord interaction",
			Buckets:   prometheus.DefBuckets,
		}, []string{"handler", "result"}),
		moderation: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "moderation",
			Name:      "actions_total",
			Help:      "Moderation commands, labeled by action and result",
		}, []string{"action", "result"}),
		requests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ops",
			Name:      "requests_total",
			Help:      "Ops HTTP requests",
		}, []string{"path", "method", "status"}),
	}
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordTicketOpened counts an opened ticket.
func (m *Metrics) RecordTicketOpened(category string) {
	if m == nil {
		return
	}
	m.ticketsOpened.WithLabelValues(category).Inc()
	m.liveTickets.Inc()
}

// RecordTicketClaimed counts a claim.
func (m *Metrics) RecordTicketClaimed() {
	if m == nil {
		return
	}
	m.ticketsClaimed.Inc()
}

// RecordTicketClosed counts a closed ticket.
func (m *Metrics) RecordTicketClosed(claimed bool) {
	if m == nil {
		return
	}
	m.ticketsClosed.WithLabelValues(strconv.FormatBool(claimed)).Inc()
	m.liveTickets.Dec()
}

// RecordTransitionFailure counts a rejected transition.
func (m *Metrics) RecordTransitionFailure(operation, code string) {
	if m == nil {
		return
	}
	m.transitionFails.WithLabelValues(operation, code).Inc()
}

// ObserveInteraction returns a func that records the handler duration once called.
func (m *Metrics) ObserveInteraction(handler string) func(result string) {
	if m == nil {
		return func(string) {}
	}
	start := time.Now()
	return func(result string) {
		m.interactions.WithLabelValues(handler, result).Observe(time.Since(start).Seconds())
	}
}

// RecordModeration counts a moderation command outcome.
func (m *Metrics) RecordModeration(action, result string) {
	if m == nil {
		return
	}
	m.moderation.WithLabelValues(action, result).Inc()
}

// RecordRequest increments counters for ops requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
}

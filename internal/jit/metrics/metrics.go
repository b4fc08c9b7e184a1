package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus metrics for JIT event processing.
type Metrics struct {
	eventsProcessed    *prometheus.CounterVec
	ticketsCreated     prometheus.Counter
	transitionDuration *prometheus.HistogramVec
}

// New creates and registers all JIT processing metrics.
func New() *Metrics {
	return &Metrics{
		eventsProcessed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "jitbridge_events_processed_total",
			Help: "Total JIT events processed, by event name and outcome",
		}, []string{"event", "outcome"}),
		ticketsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "jitbridge_tickets_created_total",
			Help: "Total tickets created from approved events",
		}),
		transitionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "jitbridge_transition_duration_seconds",
			Help:    "Latency of one event transition including ticket store round trips",
			Buckets: prometheus.DefBuckets,
		}, []string{"event"}),
	}
}

// RecordEvent counts one processed event with its outcome label
// (e.g. "created", "resolved", "closed", "duplicate", "not_found", "error").
func (m *Metrics) RecordEvent(event, outcome string) {
	if m == nil {
		return
	}
	m.eventsProcessed.WithLabelValues(event, outcome).Inc()
}

// IncrementTicketsCreated counts one ticket creation.
func (m *Metrics) IncrementTicketsCreated() {
	if m == nil {
		return
	}
	m.ticketsCreated.Inc()
}

// ObserveTransition records the duration of one transition in seconds.
func (m *Metrics) ObserveTransition(event string, seconds float64) {
	if m == nil {
		return
	}
	m.transitionDuration.WithLabelValues(event).Observe(seconds)
}

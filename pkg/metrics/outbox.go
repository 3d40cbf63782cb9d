package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	OutboxOutcomePublished = "published"
	OutboxOutcomeRetry     = "retry"
	OutboxOutcomeParked    = "parked"
)

// OutboxMetrics tracks rows leaving the outbox table.
type OutboxMetrics struct {
	events  *prometheus.CounterVec
	publish prometheus.Histogram
	batches prometheus.Histogram
}

func NewOutboxMetrics(reg prometheus.Registerer) *OutboxMetrics {
	if reg == nil {
		return &OutboxMetrics{}
	}
	m := &OutboxMetrics{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "outbox_events_total",
			Help: "Outbox rows handled by the publisher, by event type and outcome.",
		}, []string{"event_type", "outcome"}),
		publish: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "outbox_publish_duration_seconds",
			Help:    "Time from Publish to server ack.",
			Buckets: prometheus.DefBuckets,
		}),
		batches: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "outbox_batch_rows",
			Help:    "Rows fetched per non-empty batch.",
			Buckets: []float64{1, 5, 10, 25, 50, 100, 250},
		}),
	}
	reg.MustRegister(m.events, m.publish, m.batches)
	return m
}

// ObserveEvent counts one row outcome.
func (m *OutboxMetrics) ObserveEvent(eventType, outcome string) {
	if m == nil || m.events == nil {
		return
	}
	m.events.WithLabelValues(normalizeLabel(eventType), normalizeLabel(outcome)).Inc()
}

func (m *OutboxMetrics) ObservePublish(d time.Duration) {
	if m == nil || m.publish == nil {
		return
	}
	m.publish.Observe(d.Seconds())
}

func (m *OutboxMetrics) ObserveBatch(rows int) {
	if m == nil || m.batches == nil || rows <= 0 {
		return
	}
	m.batches.Observe(float64(rows))
}

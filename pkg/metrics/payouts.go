package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PayoutMetrics counts settle outcomes per vendor group.
type PayoutMetrics struct {
	groups *prometheus.CounterVec
	runs   *prometheus.CounterVec
}

// NewPayoutMetrics registers the payout metrics on the provided registerer.
func NewPayoutMetrics(reg prometheus.Registerer) *PayoutMetrics {
	if reg == nil {
		return &PayoutMetrics{}
	}
	groups := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_groups_total",
		Help: "Vendor groups processed by settle, by outcome.",
	}, []string{"outcome"})
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payout_settle_runs_total",
		Help: "Settle invocations, by result.",
	}, []string{"result"})
	reg.MustRegister(groups, runs)
	return &PayoutMetrics{groups: groups, runs: runs}
}

// IncGroup records one vendor group outcome (processing, existing, or a failure reason).
func (p *PayoutMetrics) IncGroup(outcome string) {
	if p == nil || p.groups == nil {
		return
	}
	p.groups.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncRun records one settle invocation result.
func (p *PayoutMetrics) IncRun(result string) {
	if p == nil || p.runs == nil {
		return
	}
	p.runs.WithLabelValues(normalizeLabel(result)).Inc()
}

// GatewayMetrics records outbound payment gateway calls.
type GatewayMetrics struct {
	duration *prometheus.HistogramVec
}

// NewGatewayMetrics registers the gateway metrics on the provided registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		return &GatewayMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gateway_request_duration_seconds",
		Help:    "Duration of payment gateway requests in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "status"})
	reg.MustRegister(duration)
	return &GatewayMetrics{duration: duration}
}

// ObserveRequest records one round trip. A zero status means a transport failure.
func (g *GatewayMetrics) ObserveRequest(operation string, status int, duration time.Duration) {
	if g == nil || g.duration == nil {
		return
	}
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	g.duration.WithLabelValues(normalizeLabel(operation), label).Observe(duration.Seconds())
}

package metrics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewOutboxMetrics(reg)

	m.ObserveEvent("vendor_payouts.processed", OutboxOutcomePublished)
	m.ObserveEvent("vendor_payouts.processed", OutboxOutcomePublished)
	m.ObserveEvent("vendor_payouts.processed", OutboxOutcomeRetry)
	m.ObservePublish(250 * time.Millisecond)
	m.ObserveBatch(3)
	m.ObserveBatch(0)

	mfs, err := reg.Gather()
	require.NoError(t, err)
	value := func(name string, labels map[string]string) float64 {
		t.Helper()
		v, err := metricValue(mfs, name, labels)
		require.NoError(t, err)
		return v
	}
	assert.Equal(t, 2.0, value("outbox_events_total", map[string]string{
		"event_type": "vendor_payouts.processed", "outcome": OutboxOutcomePublished,
	}))
	assert.Equal(t, 1.0, value("outbox_events_total", map[string]string{
		"event_type": "vendor_payouts.processed", "outcome": OutboxOutcomeRetry,
	}))
	assert.InDelta(t, 0.25, value("outbox_publish_duration_seconds", nil), 1e-9)
	assert.Equal(t, 3.0, value("outbox_batch_rows", nil))
}

func TestOutboxMetricsNilSafe(t *testing.T) {
	var m *OutboxMetrics
	m.ObserveEvent("x", OutboxOutcomeParked)
	m.ObservePublish(time.Second)
	m.ObserveBatch(1)
	NewOutboxMetrics(nil).ObserveEvent("x", OutboxOutcomeParked)
}

func TestHandlerServesMetricsAndHealth(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewOutboxMetrics(reg).ObserveEvent("vendor_payout.completed", OutboxOutcomeParked)
	h := Handler(reg)

	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	assert.True(t, strings.Contains(resp.Body.String(), "outbox_events_total"))

	resp = httptest.NewRecorder()
	h.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusNoContent, resp.Code)
}

func TestServeWithoutAddrWaitsForCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "", prometheus.NewRegistry()) }()
	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

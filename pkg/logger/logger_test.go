package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		entry := map[string]any{}
		require.NoError(t, json.Unmarshal([]byte(line), &entry), line)
		out = append(out, entry)
	}
	return out
}

func TestErrorCarriesContextFieldsAndStack(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{ServiceName: "api", Output: buf, Format: FormatJSON})

	ctx := log.WithRequestID(context.Background(), "req-123")
	ctx = log.WithOrderID(ctx, "order-1")
	ctx = log.WithFields(ctx, map[string]any{"store_id": "store-1", "attempt": 2})
	log.Error(ctx, "settle failed", errors.New("gateway down"))

	entries := decodeLines(t, buf)
	require.Len(t, entries, 1)
	entry := entries[0]
	require.Equal(t, "api", entry["service"])
	require.Equal(t, "req-123", entry["request_id"])
	require.Equal(t, "order-1", entry["order_id"])
	require.Equal(t, "store-1", entry["store_id"])
	require.Equal(t, float64(2), entry["attempt"])
	require.Equal(t, "gateway down", entry["error"])
	require.NotEmpty(t, entry["stack"])
}

func TestWarnStackToggle(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{Output: buf, WarnStack: true, Format: FormatJSON}).Warn(context.Background(), "slow")
	require.Contains(t, decodeLines(t, buf)[0], "stack")

	buf.Reset()
	New(Options{Output: buf, Format: FormatJSON}).Warn(context.Background(), "slow")
	require.NotContains(t, decodeLines(t, buf)[0], "stack")
}

func TestChildFieldsDoNotLeakIntoParent(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Output: buf, Format: FormatJSON})

	parent := context.Background()
	_ = log.WithVendorID(parent, "vendor-9")
	require.Equal(t, parent, log.WithFields(parent, nil))
	log.Info(parent, "parent entry")

	require.NotContains(t, buf.String(), "vendor-9")
}

func TestLevelFiltersDebug(t *testing.T) {
	buf := &bytes.Buffer{}
	log := New(Options{Output: buf, Format: FormatJSON})
	log.Debug(context.Background(), "hidden")
	require.Empty(t, buf.String())

	log = New(Options{Output: buf, Level: zerolog.DebugLevel, Format: FormatJSON})
	log.Debug(context.Background(), "shown")
	require.Equal(t, "debug", decodeLines(t, buf)[0]["level"])
}

func TestConsoleFormatIsNotJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	New(Options{Output: buf, Format: "CONSOLE"}).Info(context.Background(), "hello")
	require.Contains(t, buf.String(), "hello")
	require.False(t, json.Valid(bytes.TrimSpace(buf.Bytes())))
}

func TestParseLevel(t *testing.T) {
	require.Equal(t, zerolog.InfoLevel, ParseLevel(""))
	require.Equal(t, zerolog.InfoLevel, ParseLevel("invalid"))
	require.Equal(t, zerolog.WarnLevel, ParseLevel(" WARN "))
	require.Equal(t, zerolog.DebugLevel, ParseLevel("debug"))
}

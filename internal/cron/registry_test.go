package cron

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

type namedJob string

func (n namedJob) Name() string              { return string(n) }
func (n namedJob) Run(context.Context) error { return nil }

func TestRegistryKeepsOrderAndCopies(t *testing.T) {
	registry, err := NewRegistry(namedJob("payout-reconcile"), nil, namedJob("outbox-sweep"))
	require.NoError(t, err)
	require.Equal(t, []string{"payout-reconcile", "outbox-sweep"}, registry.Names())

	jobs := registry.Jobs()
	jobs[0] = nil
	require.NotNil(t, registry.Jobs()[0], "callers must not mutate the registry")
}

func TestRegistryRejectsDuplicateAndBlankNames(t *testing.T) {
	_, err := NewRegistry(namedJob("payout-reconcile"), namedJob("payout-reconcile"))
	require.ErrorContains(t, err, "already registered")

	registry, err := NewRegistry()
	require.NoError(t, err)
	require.Error(t, registry.Register(namedJob("  ")))
	require.Error(t, registry.Register(nil))
	require.Empty(t, registry.Jobs())
}

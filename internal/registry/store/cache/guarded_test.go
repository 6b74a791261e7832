package cache_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namereg/internal/registry/store/cache"
	id "namereg/pkg/domain"
	"namereg/pkg/platform/circuit"
)

type flakyNames struct {
	err   error
	gets  int
	sets  int
	value id.DomainID
}

func (f *flakyNames) Get(context.Context, string) (id.DomainID, bool, error) {
	f.gets++
	if f.err != nil {
		return 0, false, f.err
	}
	return f.value, f.value != 0, nil
}

func (f *flakyNames) Set(_ context.Context, _ string, domainID id.DomainID) error {
	f.sets++
	if f.err != nil {
		return f.err
	}
	f.value = domainID
	return nil
}

func newGuarded(inner cache.Names) (*cache.Guarded, *circuit.Breaker) {
	breaker := circuit.New("names", circuit.WithFailureThreshold(2), circuit.WithSuccessThreshold(1), circuit.WithCooldown(0))
	return cache.NewGuarded(inner, breaker, slog.New(slog.NewTextHandler(io.Discard, nil))), breaker
}

func TestGuardedPassesThroughWhenHealthy(t *testing.T) {
	ctx := context.Background()
	inner := &flakyNames{}
	guarded, _ := newGuarded(inner)

	require.NoError(t, guarded.Set(ctx, "org", 1))
	got, ok, err := guarded.Get(ctx, "org")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id.DomainID(1), got)
}

func TestGuardedReportsErrorsUntilOpen(t *testing.T) {
	ctx := context.Background()
	inner := &flakyNames{err: errors.New("connection refused")}
	guarded, breaker := newGuarded(inner)

	_, _, err := guarded.Get(ctx, "org")
	require.Error(t, err)
	assert.False(t, breaker.IsOpen())

	_, ok, err := guarded.Get(ctx, "org")
	require.NoError(t, err, "the failure that opens the breaker degrades to a miss")
	assert.False(t, ok)
	assert.True(t, breaker.IsOpen())

	require.NoError(t, guarded.Set(ctx, "org", 1))
}

func TestGuardedSkipsBackendDuringCooldown(t *testing.T) {
	ctx := context.Background()
	inner := &flakyNames{err: errors.New("connection refused")}
	breaker := circuit.New("names", circuit.WithFailureThreshold(1), circuit.WithCooldown(1<<40))
	guarded := cache.NewGuarded(inner, breaker, nil)

	_, _, _ = guarded.Get(ctx, "org")
	require.True(t, breaker.IsOpen())
	calls := inner.gets

	_, ok, err := guarded.Get(ctx, "org")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, calls, inner.gets)
}

func TestGuardedClosesAfterRecovery(t *testing.T) {
	ctx := context.Background()
	inner := &flakyNames{err: errors.New("timeout")}
	guarded, breaker := newGuarded(inner)

	_, _, _ = guarded.Get(ctx, "org")
	_, _, _ = guarded.Get(ctx, "org")
	require.True(t, breaker.IsOpen())

	inner.err = nil
	inner.value = 3
	got, ok, err := guarded.Get(ctx, "org")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, id.DomainID(3), got)
	assert.False(t, breaker.IsOpen())
}

package cache

import (
	"context"
	"log/slog"

	id "namereg/pkg/domain"
	"namereg/pkg/platform/circuit"
)

// Names is the lookup surface shared by every name cache.
type Names interface {
	Get(ctx context.Context, name string) (id.DomainID, bool, error)
	Set(ctx context.Context, name string, domainID id.DomainID) error
}

// Guarded wraps a name cache with a circuit breaker. While the breaker is open
// lookups report a miss without touching the backend, so reads fall through to
// the store at store latency.
type Guarded struct {
	inner   Names
	breaker *circuit.Breaker
	logger  *slog.Logger
}

func NewGuarded(inner Names, breaker *circuit.Breaker, logger *slog.Logger) *Guarded {
	if logger == nil {
		logger = slog.Default()
	}
	return &Guarded{inner: inner, breaker: breaker, logger: logger}
}

func (g *Guarded) Get(ctx context.Context, name string) (id.DomainID, bool, error) {
	if !g.breaker.Allow() {
		return 0, false, nil
	}
	domainID, ok, err := g.inner.Get(ctx, name)
	g.record(ctx, err)
	if err != nil && g.breaker.IsOpen() {
		return 0, false, nil
	}
	return domainID, ok, err
}

func (g *Guarded) Set(ctx context.Context, name string, domainID id.DomainID) error {
	if !g.breaker.Allow() {
		return nil
	}
	err := g.inner.Set(ctx, name, domainID)
	g.record(ctx, err)
	if err != nil && g.breaker.IsOpen() {
		return nil
	}
	return err
}

func (g *Guarded) record(ctx context.Context, err error) {
	if err != nil {
		if _, change := g.breaker.RecordFailure(); change.Opened {
			g.logger.WarnContext(ctx, "name cache disabled", "breaker", g.breaker.Name(), "error", err)
		}
		return
	}
	if _, change := g.breaker.RecordSuccess(); change.Closed {
		g.logger.InfoContext(ctx, "name cache restored", "breaker", g.breaker.Name())
	}
}

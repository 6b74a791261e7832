// Package relay drains the registry outbox to the event bus.
package relay

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"namereg/internal/registry/events"
)

// Outbox is the pending-event source.
type Outbox interface {
	FetchPending(ctx context.Context, limit int) ([]events.OutboxEntry, error)
	MarkProcessed(ctx context.Context, ids []uuid.UUID, at time.Time) error
}

// Sender publishes a batch of entries.
type Sender interface {
	Publish(ctx context.Context, entries []events.OutboxEntry) error
}

// TxRunner scopes one fetch/publish/mark cycle to a transaction so locked
// rows are released only after they are marked.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

const (
	defaultInterval  = time.Second
	defaultBatchSize = 100
)

// Worker polls the outbox and publishes pending entries in creation order.
// Delivery is at-least-once: a crash between publish and commit republishes
// the batch, and consumers dedupe on the event_id header.
type Worker struct {
	outbox    Outbox
	sender    Sender
	tx        TxRunner
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// Option configures a Worker.
type Option func(*Worker)

func WithInterval(d time.Duration) Option {
	return func(w *Worker) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithBatchSize(n int) Option {
	return func(w *Worker) {
		if n > 0 {
			w.batchSize = n
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(w *Worker) {
		w.logger = logger
	}
}

func NewWorker(outbox Outbox, sender Sender, tx TxRunner, opts ...Option) *Worker {
	w := &Worker{
		outbox:    outbox,
		sender:    sender,
		tx:        tx,
		logger:    slog.Default(),
		interval:  defaultInterval,
		batchSize: defaultBatchSize,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run relays until ctx is cancelled. Failed cycles are logged and retried on
// the next tick.
func (w *Worker) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			for {
				n, err := w.RelayOnce(ctx)
				if err != nil {
					w.logger.WarnContext(ctx, "outbox relay failed", "error", err)
					break
				}
				if n < w.batchSize {
					break
				}
			}
		}
	}
}

// RelayOnce publishes one batch and returns how many entries were sent.
func (w *Worker) RelayOnce(ctx context.Context) (int, error) {
	var sent int
	err := w.tx.RunInTx(ctx, func(ctx context.Context) error {
		entries, err := w.outbox.FetchPending(ctx, w.batchSize)
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		if err := w.sender.Publish(ctx, entries); err != nil {
			return err
		}
		ids := make([]uuid.UUID, len(entries))
		for i, entry := range entries {
			ids[i] = entry.ID
		}
		if err := w.outbox.MarkProcessed(ctx, ids, w.now()); err != nil {
			return err
		}
		sent = len(entries)
		return nil
	})
	if err != nil {
		return 0, err
	}
	if sent > 0 {
		w.logger.DebugContext(ctx, "outbox entries relayed", "count", sent)
	}
	return sent, nil
}

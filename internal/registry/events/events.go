// Package events records registry lifecycle notifications.
//
// The service calls Publisher.Emit inside each operation's transaction, so a
// failing Store aborts the operation. Postgres deployments append to an outbox
// table that the relay worker drains to Kafka.
package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"namereg/internal/registry/models"
	"namereg/pkg/requestcontext"
)

// Store persists emitted events.
type Store interface {
	Append(ctx context.Context, event models.Event) error
}

// Publisher stamps events with request metadata before storing them.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

func (p *Publisher) Emit(ctx context.Context, event models.Event) error {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	if event.RequestID == "" {
		event.RequestID = requestcontext.RequestID(ctx)
	}
	return p.store.Append(ctx, event)
}

// OutboxEntry is one pending row of the registry outbox.
type OutboxEntry struct {
	ID        uuid.UUID
	EventType models.EventKind
	// Key partitions the Kafka topic; events for one domain stay ordered.
	Key       string
	Payload   []byte
	CreatedAt time.Time
}

package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"namereg/internal/registry/events"
	"namereg/internal/registry/models"
	txcontext "namereg/pkg/platform/tx"
)

// Store implements events.Store using the transactional outbox pattern.
// Rows are written in the caller's transaction and published to Kafka by the
// relay worker.
type Store struct {
	db *sql.DB
}

// New creates a PostgreSQL outbox store.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// outboxPayload is the JSON structure published to Kafka. Addresses are
// rendered in checksum form; only the fields relevant to Kind are set.
type outboxPayload struct {
	ID         string   `json:"id"`
	Kind       string   `json:"kind"`
	Timestamp  string   `json:"timestamp"`
	DomainID   *uint64  `json:"domain_id,omitempty"`
	From       string   `json:"from,omitempty"`
	To         string   `json:"to,omitempty"`
	Owner      string   `json:"owner,omitempty"`
	Approved   string   `json:"approved,omitempty"`
	Operator   string   `json:"operator,omitempty"`
	Enabled    *bool    `json:"enabled,omitempty"`
	RecordKeys []string `json:"record_keys,omitempty"`
	RequestID  string   `json:"request_id,omitempty"`
}

func toPayload(eventID uuid.UUID, event models.Event) outboxPayload {
	payload := outboxPayload{
		ID:        eventID.String(),
		Kind:      string(event.Kind),
		Timestamp: event.Timestamp.UTC().Format(time.RFC3339Nano),
		RequestID: event.RequestID,
	}
	domainID := uint64(event.DomainID)
	switch event.Kind {
	case models.EventTransfer:
		payload.DomainID = &domainID
		payload.From = event.From.String()
		payload.To = event.To.String()
	case models.EventApproval:
		payload.DomainID = &domainID
		payload.Owner = event.Owner.String()
		payload.Approved = event.Approved.String()
	case models.EventApprovalForAll:
		enabled := event.Enabled
		payload.Owner = event.Owner.String()
		payload.Operator = event.Operator.String()
		payload.Enabled = &enabled
	case models.EventRefresh:
		payload.DomainID = &domainID
		payload.RecordKeys = event.RecordKeys
	}
	return payload
}

// Append writes event to the outbox table.
func (s *Store) Append(ctx context.Context, event models.Event) error {
	eventID := uuid.New()
	payload, err := json.Marshal(toPayload(eventID, event))
	if err != nil {
		return fmt.Errorf("marshal registry event: %w", err)
	}

	// Domain events are keyed by domain so consumers see them in order;
	// operator grants are keyed by the granting owner.
	var domainID sql.NullInt64
	aggregateKey := event.Owner.Hex()
	if event.Kind != models.EventApprovalForAll {
		domainID = sql.NullInt64{Int64: int64(event.DomainID), Valid: true}
		aggregateKey = event.DomainID.String()
	}
	recordKeys := event.RecordKeys
	if recordKeys == nil {
		recordKeys = []string{}
	}

	// pq.Array renders a text array literal, hence the casts.
	query := `
		INSERT INTO registry_outbox (id, event_type, aggregate_key, domain_id, record_keys, payload, created_at)
		VALUES ($1, $2, $3, $4, ($5::text)::text[], $6, $7)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		eventID.String(),
		string(event.Kind),
		aggregateKey,
		domainID,
		pq.Array(recordKeys),
		payload,
		event.Timestamp,
	)
	if err != nil {
		return fmt.Errorf("insert outbox entry: %w", err)
	}
	return nil
}

// FetchPending returns up to limit unprocessed rows, oldest first. Rows are
// locked with SKIP LOCKED so several relays can share the table; call it
// inside a transaction to hold the locks until MarkProcessed.
func (s *Store) FetchPending(ctx context.Context, limit int) ([]events.OutboxEntry, error) {
	query := `
		SELECT id, event_type, aggregate_key, payload, created_at
		FROM registry_outbox
		WHERE processed_at IS NULL
		ORDER BY created_at
		LIMIT $1
		FOR UPDATE SKIP LOCKED
	`
	var (
		rows *sql.Rows
		err  error
	)
	if tx, ok := txcontext.From(ctx); ok {
		rows, err = tx.QueryContext(ctx, query, limit)
	} else {
		rows, err = s.db.QueryContext(ctx, query, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("query pending outbox entries: %w", err)
	}
	defer rows.Close()

	var entries []events.OutboxEntry
	for rows.Next() {
		var (
			entry     events.OutboxEntry
			rawID     string
			eventType string
		)
		if err := rows.Scan(&rawID, &eventType, &entry.Key, &entry.Payload, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox entry: %w", err)
		}
		if entry.ID, err = uuid.Parse(rawID); err != nil {
			return nil, fmt.Errorf("parse outbox entry id: %w", err)
		}
		entry.EventType = models.EventKind(eventType)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox entries: %w", err)
	}
	return entries, nil
}

// MarkProcessed stamps rows as published.
func (s *Store) MarkProcessed(ctx context.Context, ids []uuid.UUID, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	raw := make([]string, len(ids))
	for i, eventID := range ids {
		raw[i] = eventID.String()
	}
	_, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE registry_outbox SET processed_at = $1 WHERE id = ANY(($2::text)::uuid[])`,
		at, pq.Array(raw),
	)
	if err != nil {
		return fmt.Errorf("mark outbox entries processed: %w", err)
	}
	return nil
}

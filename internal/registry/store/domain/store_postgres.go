package domain

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"namereg/internal/registry/models"
	id "namereg/pkg/domain"
	"namereg/pkg/platform/sentinel"
	txcontext "namereg/pkg/platform/tx"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

// PostgresStore persists the tree in PostgreSQL. Ids come from the
// registry_state counter row, updated in the same transaction as the insert so
// a rolled-back create never consumes an id.
type PostgresStore struct {
	db     *sql.DB
	runner *txcontext.Runner
}

// NewPostgres constructs a PostgreSQL-backed domain store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, runner: txcontext.NewRunner(db)}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

// RunInTx runs fn in one serializable transaction shared by every store call
// made with the callback context.
func (s *PostgresStore) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return s.runner.RunInTx(ctx, fn)
}

func (s *PostgresStore) FindByID(ctx context.Context, domainID id.DomainID) (*models.Domain, error) {
	query := `
		SELECT id, parent_id, prefix, name, owner, approved, expires_at
		FROM domains
		WHERE id = $1
	`
	d, err := scanDomain(s.execer(ctx).QueryRowContext(ctx, query, int64(domainID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find domain by id: %w", err)
	}
	return d, nil
}

func (s *PostgresStore) FindIDByName(ctx context.Context, name string) (id.DomainID, error) {
	var domainID int64
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT id FROM domains WHERE name = $1`, name).Scan(&domainID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, sentinel.ErrNotFound
		}
		return 0, fmt.Errorf("find domain by name: %w", err)
	}
	return id.DomainID(domainID), nil
}

// Insert allocates the next id and writes d. d.ID is set on success.
func (s *PostgresStore) Insert(ctx context.Context, d *models.Domain) (id.DomainID, error) {
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var next int64
		err := s.execer(ctx).QueryRowContext(ctx, `
			UPDATE registry_state SET next_id = next_id + 1
			WHERE singleton
			RETURNING next_id - 1
		`).Scan(&next)
		if err != nil {
			return fmt.Errorf("allocate domain id: %w", err)
		}

		_, err = s.execer(ctx).ExecContext(ctx, `
			INSERT INTO domains (id, parent_id, prefix, name, owner, approved, expires_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`,
			next,
			int64(d.ParentID),
			d.Prefix,
			d.Name,
			d.Owner.Hex(),
			d.Approved.Hex(),
			nullTime(d.ExpiresAt),
		)
		if err != nil {
			return translateWriteError(err)
		}
		d.ID = id.DomainID(next)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return d.ID, nil
}

// Update overwrites owner, approval and expiry of an existing domain.
func (s *PostgresStore) Update(ctx context.Context, d *models.Domain) error {
	res, err := s.execer(ctx).ExecContext(ctx, `
		UPDATE domains
		SET owner = $2, approved = $3, expires_at = $4
		WHERE id = $1
	`,
		int64(d.ID),
		d.Owner.Hex(),
		d.Approved.Hex(),
		nullTime(d.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("update domain: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update domain: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountByOwner(ctx context.Context, owner id.Address) (int, error) {
	var count int
	err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM domains WHERE owner = $1`, owner.Hex()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count domains by owner: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) OperatorApproval(ctx context.Context, owner, operator id.Address) (bool, error) {
	var approved bool
	err := s.execer(ctx).QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM operator_approvals WHERE owner = $1 AND operator = $2
		)
	`, owner.Hex(), operator.Hex()).Scan(&approved)
	if err != nil {
		return false, fmt.Errorf("check operator approval: %w", err)
	}
	return approved, nil
}

func (s *PostgresStore) SetOperatorApproval(ctx context.Context, owner, operator id.Address, approved bool) error {
	var err error
	if approved {
		_, err = s.execer(ctx).ExecContext(ctx, `
			INSERT INTO operator_approvals (owner, operator)
			VALUES ($1, $2)
			ON CONFLICT (owner, operator) DO NOTHING
		`, owner.Hex(), operator.Hex())
	} else {
		_, err = s.execer(ctx).ExecContext(ctx, `
			DELETE FROM operator_approvals WHERE owner = $1 AND operator = $2
		`, owner.Hex(), operator.Hex())
	}
	if err != nil {
		return fmt.Errorf("set operator approval: %w", err)
	}
	return nil
}

// Count returns the number of domains including the root.
func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.execer(ctx).QueryRowContext(ctx, `SELECT COUNT(*) FROM domains`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count domains: %w", err)
	}
	return count, nil
}

func scanDomain(row *sql.Row) (*models.Domain, error) {
	var (
		domainID, parentID int64
		owner, approved    string
		expiresAt          sql.NullTime
		d                  models.Domain
	)
	if err := row.Scan(&domainID, &parentID, &d.Prefix, &d.Name, &owner, &approved, &expiresAt); err != nil {
		return nil, err
	}
	d.ID = id.DomainID(domainID)
	d.ParentID = id.DomainID(parentID)

	var err error
	if d.Owner, err = id.ParseAddress(owner); err != nil {
		return nil, fmt.Errorf("decode owner of domain %d: %w", domainID, err)
	}
	if d.Approved, err = id.ParseAddress(approved); err != nil {
		return nil, fmt.Errorf("decode approved of domain %d: %w", domainID, err)
	}
	if expiresAt.Valid {
		d.ExpiresAt = expiresAt.Time.UTC()
	}
	return &d, nil
}

func translateWriteError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return sentinel.ErrAlreadyUsed
		case pgForeignKeyViolation:
			return sentinel.ErrNotFound
		}
	}
	return fmt.Errorf("insert domain: %w", err)
}

// Public domains carry no lease.
func nullTime(t time.Time) sql.NullTime {
	if t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t, Valid: true}
}

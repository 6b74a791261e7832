package domain

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namereg/internal/registry/models"
	id "namereg/pkg/domain"
	"namereg/pkg/platform/sentinel"
)

const zeroHex = "0x0000000000000000000000000000000000000000"

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewPostgres(db), mock
}

func TestPostgresFindByID(t *testing.T) {
	owner := id.MustParseAddress("0x00000000000000000000000000000000000000aa")
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("maps columns onto the domain", func(t *testing.T) {
		store, mock := newMockStore(t)
		rows := sqlmock.NewRows([]string{"id", "parent_id", "prefix", "name", "owner", "approved", "expires_at"}).
			AddRow(int64(2), int64(1), "ethereum", "ethereum.org", owner.Hex(), zeroHex, expires)
		mock.ExpectQuery(`SELECT id, parent_id, prefix, name, owner, approved, expires_at\s+FROM domains`).
			WithArgs(int64(2)).
			WillReturnRows(rows)

		d, err := store.FindByID(context.Background(), 2)
		require.NoError(t, err)
		assert.Equal(t, id.DomainID(2), d.ID)
		assert.Equal(t, id.DomainID(1), d.ParentID)
		assert.Equal(t, "ethereum.org", d.Name)
		assert.Equal(t, owner, d.Owner)
		assert.True(t, d.Approved.IsZero())
		assert.True(t, expires.Equal(d.ExpiresAt))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("null expiry stays zero for public domains", func(t *testing.T) {
		store, mock := newMockStore(t)
		rows := sqlmock.NewRows([]string{"id", "parent_id", "prefix", "name", "owner", "approved", "expires_at"}).
			AddRow(int64(1), int64(0), "org", "org", zeroHex, zeroHex, nil)
		mock.ExpectQuery(`FROM domains`).WithArgs(int64(1)).WillReturnRows(rows)

		d, err := store.FindByID(context.Background(), 1)
		require.NoError(t, err)
		assert.True(t, d.IsPublic())
		assert.True(t, d.ExpiresAt.IsZero())
	})

	t.Run("no rows maps to ErrNotFound", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectQuery(`FROM domains`).WithArgs(int64(9)).WillReturnError(sql.ErrNoRows)

		_, err := store.FindByID(context.Background(), 9)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestPostgresInsert(t *testing.T) {
	owner := id.MustParseAddress("0x00000000000000000000000000000000000000aa")
	expires := time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("allocates from the counter inside one transaction", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE registry_state SET next_id = next_id \+ 1`).
			WillReturnRows(sqlmock.NewRows([]string{"next_id"}).AddRow(int64(7)))
		mock.ExpectExec(`INSERT INTO domains`).
			WithArgs(int64(7), int64(1), "app", "app.org", owner.Hex(), zeroHex, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		d := &models.Domain{ParentID: 1, Prefix: "app", Name: "app.org", Owner: owner, ExpiresAt: expires}
		domainID, err := store.Insert(context.Background(), d)
		require.NoError(t, err)
		assert.Equal(t, id.DomainID(7), domainID)
		assert.Equal(t, id.DomainID(7), d.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation maps to ErrAlreadyUsed and rolls back", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE registry_state`).
			WillReturnRows(sqlmock.NewRows([]string{"next_id"}).AddRow(int64(2)))
		mock.ExpectExec(`INSERT INTO domains`).
			WillReturnError(&pgconn.PgError{Code: pgUniqueViolation})
		mock.ExpectRollback()

		_, err := store.Insert(context.Background(), &models.Domain{ParentID: 0, Prefix: "org", Name: "org"})
		assert.ErrorIs(t, err, sentinel.ErrAlreadyUsed)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("foreign key violation maps to ErrNotFound", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE registry_state`).
			WillReturnRows(sqlmock.NewRows([]string{"next_id"}).AddRow(int64(2)))
		mock.ExpectExec(`INSERT INTO domains`).
			WillReturnError(&pgconn.PgError{Code: pgForeignKeyViolation})
		mock.ExpectRollback()

		_, err := store.Insert(context.Background(), &models.Domain{ParentID: 99, Prefix: "x", Name: "x.gone"})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("joins a transaction already in context", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`UPDATE registry_state`).
			WillReturnRows(sqlmock.NewRows([]string{"next_id"}).AddRow(int64(3)))
		mock.ExpectExec(`INSERT INTO domains`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO operator_approvals`).WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := store.RunInTx(context.Background(), func(ctx context.Context) error {
			if _, err := store.Insert(ctx, &models.Domain{ParentID: 0, Prefix: "org", Name: "org"}); err != nil {
				return err
			}
			return store.SetOperatorApproval(ctx, owner, id.BytesToAddress([]byte{1}), true)
		})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPostgresUpdate(t *testing.T) {
	owner := id.MustParseAddress("0x00000000000000000000000000000000000000aa")

	t.Run("writes mutable fields", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE domains\s+SET owner = \$2, approved = \$3, expires_at = \$4`).
			WithArgs(int64(4), owner.Hex(), zeroHex, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := store.Update(context.Background(), &models.Domain{ID: 4, Owner: owner, ExpiresAt: time.Now()})
		require.NoError(t, err)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row maps to ErrNotFound", func(t *testing.T) {
		store, mock := newMockStore(t)
		mock.ExpectExec(`UPDATE domains`).WillReturnResult(sqlmock.NewResult(0, 0))

		err := store.Update(context.Background(), &models.Domain{ID: 4})
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("driver errors are wrapped", func(t *testing.T) {
		store, mock := newMockStore(t)
		boom := errors.New("connection reset")
		mock.ExpectExec(`UPDATE domains`).WillReturnError(boom)

		err := store.Update(context.Background(), &models.Domain{ID: 4})
		assert.ErrorIs(t, err, boom)
	})
}

func TestPostgresOperatorApproval(t *testing.T) {
	owner := id.BytesToAddress([]byte{0xaa})
	operator := id.BytesToAddress([]byte{0xbb})

	store, mock := newMockStore(t)
	mock.ExpectExec(`DELETE FROM operator_approvals`).
		WithArgs(owner.Hex(), operator.Hex()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs(owner.Hex(), operator.Hex()).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	require.NoError(t, store.SetOperatorApproval(context.Background(), owner, operator, false))
	approved, err := store.OperatorApproval(context.Background(), owner, operator)
	require.NoError(t, err)
	assert.False(t, approved)
	require.NoError(t, mock.ExpectationsWereMet())
}

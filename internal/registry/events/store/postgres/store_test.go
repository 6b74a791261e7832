package postgres

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"namereg/internal/registry/models"
	id "namereg/pkg/domain"
)

func TestAppend(t *testing.T) {
	owner := id.BytesToAddress([]byte{0xaa})
	operator := id.BytesToAddress([]byte{0xbb})
	ts := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("domain events are keyed by domain id", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		event := models.RefreshEvent(7, []string{"avatar"})
		event.Timestamp = ts
		mock.ExpectExec(`INSERT INTO registry_outbox`).
			WithArgs(sqlmock.AnyArg(), "Refresh", "7", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), ts).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, New(db).Append(context.Background(), event))
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("operator grants are keyed by owner", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		event := models.ApprovalForAllEvent(owner, operator, true)
		mock.ExpectExec(`INSERT INTO registry_outbox`).
			WithArgs(sqlmock.AnyArg(), "ApprovalForAll", owner.Hex(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, New(db).Append(context.Background(), event))
		require.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestToPayload(t *testing.T) {
	owner := id.MustParseAddress("0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed")
	eventID := uuid.New()

	transfer := toPayload(eventID, models.TransferEvent(id.ZeroAddress, owner, 2))
	raw, err := json.Marshal(transfer)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, "Transfer", decoded["kind"])
	assert.Equal(t, float64(2), decoded["domain_id"])
	assert.Equal(t, "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed", decoded["to"])
	assert.NotContains(t, decoded, "operator")

	grant := toPayload(eventID, models.ApprovalForAllEvent(owner, id.BytesToAddress([]byte{1}), false))
	require.NotNil(t, grant.Enabled)
	assert.False(t, *grant.Enabled)
	assert.Nil(t, grant.DomainID)
}

func TestFetchPendingAndMark(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	eventID := uuid.New()
	created := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT id, event_type, aggregate_key, payload, created_at\s+FROM registry_outbox`).
		WithArgs(10).
		WillReturnRows(sqlmock.NewRows([]string{"id", "event_type", "aggregate_key", "payload", "created_at"}).
			AddRow(eventID.String(), "Transfer", "2", []byte(`{}`), created))
	mock.ExpectExec(`UPDATE registry_outbox SET processed_at`).
		WithArgs(created, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	store := New(db)
	entries, err := store.FetchPending(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, eventID, entries[0].ID)
	assert.Equal(t, "2", entries[0].Key)
	assert.Equal(t, models.EventTransfer, entries[0].EventType)

	require.NoError(t, store.MarkProcessed(context.Background(), []uuid.UUID{eventID}, created))
	require.NoError(t, store.MarkProcessed(context.Background(), nil, created))
	require.NoError(t, mock.ExpectationsWereMet())
}

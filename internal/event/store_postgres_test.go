package event

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var receivedAt = time.Date(2025, 8, 18, 8, 0, 15, 0, time.UTC)

func TestPostgresRecord_Insert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO raw_events").
		WithArgs("acct-1", "evt-1", []byte(`{"phone":"11999990000"}`), receivedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(7), receivedAt))

	store := NewPostgresStore(mock)
	ev, inserted, err := store.Record(context.Background(), "acct-1", "evt-1", []byte(`{"phone":"11999990000"}`), receivedAt)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.Equal(t, int64(7), ev.ID)
	assert.Equal(t, "evt-1", ev.ExternalID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecord_DuplicateIsNoOp(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	// ON CONFLICT DO NOTHING yields no RETURNING row on the second delivery.
	mock.ExpectQuery("INSERT INTO raw_events").
		WithArgs("acct-1", "evt-1", []byte(`{}`), receivedAt).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("SELECT id, account_id, external_id").
		WithArgs("acct-1", "evt-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "account_id", "external_id", "payload", "received_at", "created_at"}).
			AddRow(int64(7), "acct-1", "evt-1", []byte(`{}`), receivedAt, receivedAt))

	store := NewPostgresStore(mock)
	ev, inserted, err := store.Record(context.Background(), "acct-1", "evt-1", []byte(`{}`), receivedAt)
	require.NoError(t, err)
	assert.False(t, inserted, "duplicate delivery must report already recorded")
	assert.Equal(t, int64(7), ev.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresRecord_GeneratesExternalID(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("INSERT INTO raw_events").
		WithArgs("acct-1", pgxmock.AnyArg(), []byte(`{}`), receivedAt).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).AddRow(int64(1), receivedAt))

	store := NewPostgresStore(mock)
	ev, inserted, err := store.Record(context.Background(), "acct-1", "", []byte(`{}`), receivedAt)
	require.NoError(t, err)
	assert.True(t, inserted)
	assert.NotEmpty(t, ev.ExternalID, "missing external id must be generated")
	assert.NoError(t, mock.ExpectationsWereMet())
}

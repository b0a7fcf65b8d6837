package event

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/model"
)

// SQLiteStore implements Writer using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(sdb *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: sdb}
}

// Record implements Writer.
func (s *SQLiteStore) Record(ctx context.Context, accountID, externalID string, payload []byte, receivedAt time.Time) (*model.RawEvent, bool, error) {
	if externalID == "" {
		externalID = uuid.NewString()
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO raw_events (account_id, external_id, payload, received_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (account_id, external_id) DO NOTHING`,
		accountID, externalID, string(payload), receivedAt.UTC(), time.Now().UTC(),
	)
	if err != nil {
		return nil, false, eris.Wrap(err, "event: sqlite record")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, false, eris.Wrap(err, "event: sqlite rows affected")
	}

	ev, err := s.get(ctx, accountID, externalID)
	if err != nil {
		return nil, false, err
	}
	return ev, n > 0, nil
}

func (s *SQLiteStore) get(ctx context.Context, accountID, externalID string) (*model.RawEvent, error) {
	ev := &model.RawEvent{}
	var payload string
	err := s.db.QueryRowContext(ctx, `
		SELECT id, account_id, external_id, payload, received_at, created_at
		FROM raw_events WHERE account_id = ? AND external_id = ?`,
		accountID, externalID,
	).Scan(&ev.ID, &ev.AccountID, &ev.ExternalID, &payload, &ev.ReceivedAt, &ev.CreatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "event: sqlite get")
	}
	ev.Payload = []byte(payload)
	return ev, nil
}

// ListByAccount implements Writer.
func (s *SQLiteStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]model.RawEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, account_id, external_id, payload, received_at, created_at
		FROM raw_events WHERE account_id = ?
		ORDER BY received_at DESC LIMIT ?`, accountID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "event: sqlite list")
	}
	defer rows.Close()

	var events []model.RawEvent
	for rows.Next() {
		var ev model.RawEvent
		var payload string
		if err := rows.Scan(&ev.ID, &ev.AccountID, &ev.ExternalID, &payload, &ev.ReceivedAt, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "event: sqlite scan")
		}
		ev.Payload = []byte(payload)
		events = append(events, ev)
	}
	return events, rows.Err()
}

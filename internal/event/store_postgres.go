package event

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/db"
	"github.com/sells-group/leadflow/internal/model"
)

// PostgresStore implements Writer using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Record implements Writer. Idempotency rides on the unique
// (account_id, external_id) constraint: a duplicate delivery hits
// ON CONFLICT DO NOTHING and the original row is returned instead.
func (s *PostgresStore) Record(ctx context.Context, accountID, externalID string, payload []byte, receivedAt time.Time) (*model.RawEvent, bool, error) {
	if externalID == "" {
		externalID = uuid.NewString()
	}

	ev := &model.RawEvent{
		AccountID:  accountID,
		ExternalID: externalID,
		Payload:    payload,
		ReceivedAt: receivedAt,
	}

	err := s.pool.QueryRow(ctx, `
		INSERT INTO raw_events (account_id, external_id, payload, received_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (account_id, external_id) DO NOTHING
		RETURNING id, created_at`,
		accountID, externalID, payload, receivedAt,
	).Scan(&ev.ID, &ev.CreatedAt)
	if err == nil {
		return ev, true, nil
	}
	if err != pgx.ErrNoRows {
		return nil, false, eris.Wrap(err, "event: record")
	}

	// Conflict: the event was already recorded by an earlier delivery.
	existing := &model.RawEvent{}
	err = s.pool.QueryRow(ctx, `
		SELECT id, account_id, external_id, payload, received_at, created_at
		FROM raw_events WHERE account_id = $1 AND external_id = $2`,
		accountID, externalID,
	).Scan(&existing.ID, &existing.AccountID, &existing.ExternalID, &existing.Payload, &existing.ReceivedAt, &existing.CreatedAt)
	if err != nil {
		return nil, false, eris.Wrap(err, "event: fetch existing")
	}
	return existing, false, nil
}

// ListByAccount implements Writer.
func (s *PostgresStore) ListByAccount(ctx context.Context, accountID string, limit int) ([]model.RawEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, account_id, external_id, payload, received_at, created_at
		FROM raw_events WHERE account_id = $1
		ORDER BY received_at DESC LIMIT $2`, accountID, limit)
	if err != nil {
		return nil, eris.Wrap(err, "event: list")
	}
	defer rows.Close()

	var events []model.RawEvent
	for rows.Next() {
		var ev model.RawEvent
		if err := rows.Scan(&ev.ID, &ev.AccountID, &ev.ExternalID, &ev.Payload, &ev.ReceivedAt, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "event: scan")
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

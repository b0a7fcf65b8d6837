package staging

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/model"
)

// SQLiteRepository implements Repository using modernc.org/sqlite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLiteRepository.
func NewSQLiteRepository(sdb *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: sdb}
}

// Upsert implements Repository.
func (r *SQLiteRepository) Upsert(ctx context.Context, lead *model.StagedLead) (*model.StagedLead, bool, error) {
	newID := uuid.NewString()

	now := time.Now().UTC()

	if lead.Phone == "" {
		if _, err := r.db.ExecContext(ctx, `
			INSERT INTO staged_leads (id, account_id, name, phone, email, origin, received_at, state, payload, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, 'new', ?, ?, ?)`,
			newID, lead.AccountID, lead.Name, lead.Phone, lead.Email, lead.Origin,
			lead.ReceivedAt.UTC(), string(lead.Payload), now, now,
		); err != nil {
			return nil, false, eris.Wrap(err, "staging: sqlite insert")
		}
		stored, err := r.Get(ctx, newID)
		return stored, false, err
	}

	var storedID string
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO staged_leads (id, account_id, name, phone, email, origin, received_at, state, payload, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, 'new', ?, ?, ?)
		ON CONFLICT (account_id, phone) WHERE state IN ('new', 'updated') AND phone <> ''
		DO UPDATE SET
			name = excluded.name,
			email = excluded.email,
			origin = excluded.origin,
			received_at = excluded.received_at,
			payload = excluded.payload,
			state = 'updated',
			updated_at = excluded.updated_at
		RETURNING id`,
		newID, lead.AccountID, lead.Name, lead.Phone, lead.Email, lead.Origin,
		lead.ReceivedAt.UTC(), string(lead.Payload), now, now,
	).Scan(&storedID)
	if err != nil {
		return nil, false, eris.Wrap(err, "staging: sqlite upsert")
	}

	stored, err := r.Get(ctx, storedID)
	if err != nil {
		return nil, false, err
	}
	return stored, storedID != newID, nil
}

// GetPending implements Repository.
func (r *SQLiteRepository) GetPending(ctx context.Context, accountID, phone string) (*model.StagedLead, error) {
	if phone == "" {
		return nil, nil
	}
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, phone, email, origin, received_at, state, payload, created_at, updated_at
		FROM staged_leads
		WHERE account_id = ? AND phone = ? AND state IN ('new', 'updated')`,
		accountID, phone)
	return scanStagedRow(row)
}

// Get implements Repository.
func (r *SQLiteRepository) Get(ctx context.Context, id string) (*model.StagedLead, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, name, phone, email, origin, received_at, state, payload, created_at, updated_at
		FROM staged_leads WHERE id = ?`, id)
	return scanStagedRow(row)
}

func scanStagedRow(row *sql.Row) (*model.StagedLead, error) {
	l := &model.StagedLead{}
	var payload string
	err := row.Scan(&l.ID, &l.AccountID, &l.Name, &l.Phone, &l.Email, &l.Origin,
		&l.ReceivedAt, &l.State, &payload, &l.CreatedAt, &l.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "staging: sqlite scan")
	}
	l.Payload = []byte(payload)
	return l, nil
}

// List implements Repository.
func (r *SQLiteRepository) List(ctx context.Context, accountID string, f Filter) ([]model.StagedLead, error) {
	query := `SELECT id, account_id, name, phone, email, origin, received_at, state, payload, created_at, updated_at
		FROM staged_leads WHERE account_id = ?`
	args := []any{accountID}

	if f.Search != "" {
		pattern := "%" + f.Search + "%"
		query += " AND (name LIKE ? OR phone LIKE ? OR email LIKE ?)"
		args = append(args, pattern, pattern, pattern)
	}
	if len(f.States) > 0 {
		placeholders := make([]string, len(f.States))
		for i, s := range f.States {
			placeholders[i] = "?"
			args = append(args, string(s))
		}
		query += " AND state IN (" + strings.Join(placeholders, ", ") + ")"
	}
	if !f.From.IsZero() {
		query += " AND received_at >= ?"
		args = append(args, f.From.UTC())
	}
	if !f.To.IsZero() {
		query += " AND received_at <= ?"
		args = append(args, f.To.UTC())
	}

	query += " ORDER BY received_at DESC LIMIT ?"
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	if f.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, f.Offset)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "staging: sqlite list")
	}
	defer rows.Close()

	var leads []model.StagedLead
	for rows.Next() {
		var l model.StagedLead
		var payload string
		if err := rows.Scan(&l.ID, &l.AccountID, &l.Name, &l.Phone, &l.Email, &l.Origin,
			&l.ReceivedAt, &l.State, &payload, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, eris.Wrap(err, "staging: sqlite scan")
		}
		l.Payload = []byte(payload)
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// Update implements Repository.
func (r *SQLiteRepository) Update(ctx context.Context, lead *model.StagedLead) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE staged_leads SET name = ?, email = ?, origin = ?, updated_at = ?
		WHERE id = ?`,
		lead.Name, lead.Email, lead.Origin, time.Now().UTC(), lead.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "staging: sqlite update %s", lead.ID)
	}
	return requireRow(res, "update", lead.ID)
}

// SetState implements Repository.
func (r *SQLiteRepository) SetState(ctx context.Context, id string, state model.StagedState) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE staged_leads SET state = ?, updated_at = ? WHERE id = ?`,
		string(state), time.Now().UTC(), id,
	)
	if err != nil {
		return eris.Wrapf(err, "staging: sqlite set state %s", id)
	}
	return requireRow(res, "set state", id)
}

// Delete implements Repository.
func (r *SQLiteRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM staged_leads WHERE id = ?`, id); err != nil {
		return eris.Wrapf(err, "staging: sqlite delete %s", id)
	}
	return nil
}

func requireRow(res sql.Result, op, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "staging: sqlite %s %s", op, id)
	}
	if n == 0 {
		return eris.Errorf("staging: sqlite %s %s: not found", op, id)
	}
	return nil
}

package staging

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/db"
	"github.com/sells-group/leadflow/internal/model"
)

// PostgresRepository implements Repository using pgx.
type PostgresRepository struct {
	pool db.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(pool db.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

const stagedColumns = `id, account_id, name, phone, email, origin, received_at, state, payload, created_at, updated_at`

func stagedDests(l *model.StagedLead) []any {
	return []any{
		&l.ID, &l.AccountID, &l.Name, &l.Phone, &l.Email, &l.Origin,
		&l.ReceivedAt, &l.State, &l.Payload, &l.CreatedAt, &l.UpdatedAt,
	}
}

// Upsert implements Repository. The conflict target is the partial unique
// index over pending rows, so terminal rows never absorb new events.
func (r *PostgresRepository) Upsert(ctx context.Context, lead *model.StagedLead) (*model.StagedLead, bool, error) {
	newID := uuid.NewString()

	if lead.Phone == "" {
		// Empty phones are excluded from the pending index; plain insert.
		return r.insert(ctx, newID, lead)
	}

	stored := &model.StagedLead{}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO staged_leads (id, account_id, name, phone, email, origin, received_at, state, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'new', $8)
		ON CONFLICT (account_id, phone) WHERE state IN ('new', 'updated') AND phone <> ''
		DO UPDATE SET
			name = EXCLUDED.name,
			email = EXCLUDED.email,
			origin = EXCLUDED.origin,
			received_at = EXCLUDED.received_at,
			payload = EXCLUDED.payload,
			state = 'updated',
			updated_at = now()
		RETURNING `+stagedColumns,
		newID, lead.AccountID, lead.Name, lead.Phone, lead.Email, lead.Origin,
		lead.ReceivedAt, lead.Payload,
	).Scan(stagedDests(stored)...)
	if err != nil {
		return nil, false, eris.Wrap(err, "staging: upsert")
	}

	return stored, stored.ID != newID, nil
}

func (r *PostgresRepository) insert(ctx context.Context, id string, lead *model.StagedLead) (*model.StagedLead, bool, error) {
	stored := &model.StagedLead{}
	err := r.pool.QueryRow(ctx, `
		INSERT INTO staged_leads (id, account_id, name, phone, email, origin, received_at, state, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 'new', $8)
		RETURNING `+stagedColumns,
		id, lead.AccountID, lead.Name, lead.Phone, lead.Email, lead.Origin,
		lead.ReceivedAt, lead.Payload,
	).Scan(stagedDests(stored)...)
	if err != nil {
		return nil, false, eris.Wrap(err, "staging: insert")
	}
	return stored, false, nil
}

// GetPending implements Repository. Empty phones never match by contract.
func (r *PostgresRepository) GetPending(ctx context.Context, accountID, phone string) (*model.StagedLead, error) {
	if phone == "" {
		return nil, nil
	}
	l := &model.StagedLead{}
	err := r.pool.QueryRow(ctx, `
		SELECT `+stagedColumns+` FROM staged_leads
		WHERE account_id = $1 AND phone = $2 AND state IN ('new', 'updated')`,
		accountID, phone,
	).Scan(stagedDests(l)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "staging: get pending")
	}
	return l, nil
}

// Get implements Repository.
func (r *PostgresRepository) Get(ctx context.Context, id string) (*model.StagedLead, error) {
	l := &model.StagedLead{}
	err := r.pool.QueryRow(ctx, `SELECT `+stagedColumns+` FROM staged_leads WHERE id = $1`, id).
		Scan(stagedDests(l)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "staging: get %s", id)
	}
	return l, nil
}

// List implements Repository.
func (r *PostgresRepository) List(ctx context.Context, accountID string, f Filter) ([]model.StagedLead, error) {
	sql := `SELECT ` + stagedColumns + ` FROM staged_leads WHERE account_id = $1`
	args := []any{accountID}

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		sql += fmt.Sprintf(" AND (name ILIKE $%d OR phone LIKE $%d OR email ILIKE $%d)", n, n, n)
	}
	if len(f.States) > 0 {
		states := make([]string, len(f.States))
		for i, s := range f.States {
			states[i] = string(s)
		}
		args = append(args, states)
		sql += fmt.Sprintf(" AND state = ANY($%d)", len(args))
	}
	if !f.From.IsZero() {
		args = append(args, f.From)
		sql += fmt.Sprintf(" AND received_at >= $%d", len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		sql += fmt.Sprintf(" AND received_at <= $%d", len(args))
	}

	sql += " ORDER BY received_at DESC"
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	sql += fmt.Sprintf(" LIMIT $%d", len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		sql += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, eris.Wrap(err, "staging: list")
	}
	defer rows.Close()

	var leads []model.StagedLead
	for rows.Next() {
		var l model.StagedLead
		if err := rows.Scan(stagedDests(&l)...); err != nil {
			return nil, eris.Wrap(err, "staging: scan")
		}
		leads = append(leads, l)
	}
	return leads, rows.Err()
}

// Update implements Repository.
func (r *PostgresRepository) Update(ctx context.Context, lead *model.StagedLead) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staged_leads SET name = $2, email = $3, origin = $4, updated_at = now()
		WHERE id = $1`,
		lead.ID, lead.Name, lead.Email, lead.Origin,
	)
	if err != nil {
		return eris.Wrapf(err, "staging: update %s", lead.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("staging: update %s: not found", lead.ID)
	}
	return nil
}

// SetState implements Repository.
func (r *PostgresRepository) SetState(ctx context.Context, id string, state model.StagedState) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE staged_leads SET state = $2, updated_at = now() WHERE id = $1`,
		id, string(state),
	)
	if err != nil {
		return eris.Wrapf(err, "staging: set state %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("staging: set state %s: not found", id)
	}
	return nil
}

// Delete implements Repository.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM staged_leads WHERE id = $1`, id); err != nil {
		return eris.Wrapf(err, "staging: delete %s", id)
	}
	return nil
}

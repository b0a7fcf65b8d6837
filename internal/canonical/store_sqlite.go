package canonical

import (
	"context"
	"database/sql"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/model"
)

// SQLiteStore implements Store backed by a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLiteStore.
func NewSQLiteStore(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

// FindByPhone implements Store.
func (s *SQLiteStore) FindByPhone(ctx context.Context, accountID, phone string) (*model.CanonicalLead, error) {
	if phone == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, `
		SELECT `+leadColumns+` FROM canonical_leads
		WHERE account_id = ? AND phone = ?
		ORDER BY created_at ASC LIMIT 1`,
		accountID, phone,
	)
	return scanLeadRow(row, "canonical: find by phone")
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*model.CanonicalLead, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM canonical_leads WHERE id = ?`, id)
	return scanLeadRow(row, "canonical: get")
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, lead *model.CanonicalLead) error {
	now := time.Now().UTC()
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO canonical_leads (account_id, name, phone, email, status, origin, sub_origin, campaign, ad, location, attribution_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`,
		lead.AccountID, lead.Name, lead.Phone, lead.Email, lead.Status,
		lead.Origin, lead.SubOrigin, lead.Campaign, lead.Ad, lead.Location,
		lead.AttributionAt, now, now,
	).Scan(&lead.ID)
	if err != nil {
		return eris.Wrap(err, "canonical: create")
	}
	lead.CreatedAt = now
	lead.UpdatedAt = now
	return nil
}

// Update implements Store.
func (s *SQLiteStore) Update(ctx context.Context, lead *model.CanonicalLead) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE canonical_leads SET
			name = ?, email = ?, status = ?,
			origin = ?, sub_origin = ?, campaign = ?, ad = ?, location = ?,
			attribution_at = ?, updated_at = ?
		WHERE id = ?`,
		lead.Name, lead.Email, lead.Status,
		lead.Origin, lead.SubOrigin, lead.Campaign, lead.Ad, lead.Location,
		lead.AttributionAt, time.Now().UTC(),
		lead.ID,
	)
	if err != nil {
		return eris.Wrapf(err, "canonical: update %d", lead.ID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "canonical: update rows affected")
	}
	if n == 0 {
		return eris.Errorf("canonical: update %d: not found", lead.ID)
	}
	return nil
}

func scanLeadRow(row *sql.Row, action string) (*model.CanonicalLead, error) {
	l := &model.CanonicalLead{}
	if err := row.Scan(leadDests(l)...); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, action)
	}
	return l, nil
}

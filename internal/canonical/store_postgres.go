package canonical

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/db"
	"github.com/sells-group/leadflow/internal/model"
)

// PostgresStore implements Store using pgx.
type PostgresStore struct {
	pool db.Pool
}

// NewPostgresStore creates a new PostgresStore.
func NewPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

const leadColumns = `id, account_id, name, phone, email, status, origin, sub_origin, campaign, ad, location, attribution_at, created_at, updated_at`

func leadDests(l *model.CanonicalLead) []any {
	return []any{
		&l.ID, &l.AccountID, &l.Name, &l.Phone, &l.Email, &l.Status,
		&l.Origin, &l.SubOrigin, &l.Campaign, &l.Ad, &l.Location,
		&l.AttributionAt, &l.CreatedAt, &l.UpdatedAt,
	}
}

// FindByPhone implements Store.
func (s *PostgresStore) FindByPhone(ctx context.Context, accountID, phone string) (*model.CanonicalLead, error) {
	if phone == "" {
		return nil, nil
	}
	l := &model.CanonicalLead{}
	err := s.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM canonical_leads
		WHERE account_id = $1 AND phone = $2
		ORDER BY created_at ASC LIMIT 1`,
		accountID, phone,
	).Scan(leadDests(l)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrap(err, "canonical: find by phone")
	}
	return l, nil
}

// Get implements Store.
func (s *PostgresStore) Get(ctx context.Context, id int64) (*model.CanonicalLead, error) {
	l := &model.CanonicalLead{}
	err := s.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM canonical_leads WHERE id = $1`, id).
		Scan(leadDests(l)...)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "canonical: get %d", id)
	}
	return l, nil
}

// Create implements Store.
func (s *PostgresStore) Create(ctx context.Context, lead *model.CanonicalLead) error {
	err := s.pool.QueryRow(ctx, `
		INSERT INTO canonical_leads (account_id, name, phone, email, status, origin, sub_origin, campaign, ad, location, attribution_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`,
		lead.AccountID, lead.Name, lead.Phone, lead.Email, lead.Status,
		lead.Origin, lead.SubOrigin, lead.Campaign, lead.Ad, lead.Location,
		lead.AttributionAt,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt)
	if err != nil {
		return eris.Wrap(err, "canonical: create")
	}
	return nil
}

// Update implements Store.
func (s *PostgresStore) Update(ctx context.Context, lead *model.CanonicalLead) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE canonical_leads SET
			name = $2, email = $3, status = $4,
			origin = $5, sub_origin = $6, campaign = $7, ad = $8, location = $9,
			attribution_at = $10, updated_at = now()
		WHERE id = $1`,
		lead.ID,
		lead.Name, lead.Email, lead.Status,
		lead.Origin, lead.SubOrigin, lead.Campaign, lead.Ad, lead.Location,
		lead.AttributionAt,
	)
	if err != nil {
		return eris.Wrapf(err, "canonical: update %d", lead.ID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Errorf("canonical: update %d: not found", lead.ID)
	}
	return nil
}

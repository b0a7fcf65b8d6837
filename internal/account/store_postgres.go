package account

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/sells-group/leadflow/internal/db"
)

// PostgresSource reads account settings from the accounts table.
type PostgresSource struct {
	pool db.Pool
}

// NewPostgresSource creates a PostgresSource.
func NewPostgresSource(pool db.Pool) *PostgresSource {
	return &PostgresSource{pool: pool}
}

// Get implements Source. Returns (nil, nil) when the account does not exist.
func (s *PostgresSource) Get(ctx context.Context, accountID string) (*Account, error) {
	a := &Account{}
	err := s.pool.QueryRow(ctx, `
		SELECT id, name, webhook_secret, route_to_staging, country_code, refresh_pending, rate_per_minute
		FROM accounts WHERE id = $1`, accountID).
		Scan(&a.ID, &a.Name, &a.WebhookSecret, &a.RouteToStaging, &a.CountryCode, &a.RefreshPending, &a.RatePerMinute)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "account: get %s", accountID)
	}
	return a, nil
}

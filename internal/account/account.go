// Package account provides per-request access to account intake settings.
// Settings are fetched on every call rather than cached at module level, so
// secret rotation and routing changes take effect immediately across all
// pipeline instances.
package account

import (
	"context"
	"crypto/subtle"
)

// Account holds the intake settings for one tenant.
type Account struct {
	ID   string `json:"id" yaml:"id" db:"id"`
	Name string `json:"name,omitempty" yaml:"name" db:"name"`

	// WebhookSecret is the shared secret third-party senders present as a
	// query parameter.
	WebhookSecret string `json:"-" yaml:"webhook_secret" db:"webhook_secret"`

	// RouteToStaging controls whether identifiable payloads are quarantined
	// as staged leads. Raw events are recorded regardless.
	RouteToStaging bool `json:"route_to_staging" yaml:"route_to_staging" db:"route_to_staging"`

	// CountryCode is prepended to domestic-length phone numbers.
	CountryCode string `json:"country_code,omitempty" yaml:"country_code" db:"country_code"`

	// RefreshPending selects the repeat-event behavior: true refreshes the
	// pending staged row's fields, false leaves it untouched. Either way the
	// sender is answered with a benign duplicate.
	RefreshPending bool `json:"refresh_pending" yaml:"refresh_pending" db:"refresh_pending"`

	// RatePerMinute caps webhook deliveries; zero means the server default.
	RatePerMinute int `json:"rate_per_minute,omitempty" yaml:"rate_per_minute" db:"rate_per_minute"`
}

// SecretMatches compares a presented secret in constant time.
func (a *Account) SecretMatches(secret string) bool {
	if a.WebhookSecret == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.WebhookSecret), []byte(secret)) == 1
}

// Source fetches account settings. Implementations must not cache: the
// handler depends on reading current settings per request.
type Source interface {
	// Get returns the account, or (nil, nil) when it does not exist.
	Get(ctx context.Context, accountID string) (*Account, error)
}

package account

import (
	"context"
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// registryFile is the on-disk shape of the YAML account registry.
type registryFile struct {
	Accounts []registryEntry `yaml:"accounts"`
}

type registryEntry struct {
	ID             string `yaml:"id"`
	Name           string `yaml:"name"`
	WebhookSecret  string `yaml:"webhook_secret"`
	RouteToStaging *bool  `yaml:"route_to_staging"`
	CountryCode    string `yaml:"country_code"`
	RefreshPending *bool  `yaml:"refresh_pending"`
	RatePerMinute  int    `yaml:"rate_per_minute"`
}

// Registry is a file-backed Source for deployments without an accounts table
// (the SQLite single-binary mode). The file is re-read on every Get so edits
// apply without a restart.
type Registry struct {
	path string
}

// NewRegistry creates a Registry reading from path.
func NewRegistry(path string) *Registry {
	return &Registry{path: path}
}

// Get implements Source.
func (r *Registry) Get(_ context.Context, accountID string) (*Account, error) {
	data, err := os.ReadFile(r.path)
	if err != nil {
		return nil, eris.Wrapf(err, "account: read registry %s", r.path)
	}

	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, eris.Wrapf(err, "account: parse registry %s", r.path)
	}

	for _, e := range file.Accounts {
		if e.ID != accountID {
			continue
		}
		acct := &Account{
			ID:             e.ID,
			Name:           e.Name,
			WebhookSecret:  e.WebhookSecret,
			RouteToStaging: true,
			CountryCode:    e.CountryCode,
			RefreshPending: true,
			RatePerMinute:  e.RatePerMinute,
		}
		if e.RouteToStaging != nil {
			acct.RouteToStaging = *e.RouteToStaging
		}
		if e.RefreshPending != nil {
			acct.RefreshPending = *e.RefreshPending
		}
		return acct, nil
	}
	return nil, nil
}

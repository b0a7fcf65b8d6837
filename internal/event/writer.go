// Package event persists the raw inbound callback trail. The store is
// append-only: rows are never updated and never deleted by the pipeline, so
// every delivery remains auditable even when later intake steps reject it.
package event

import (
	"context"
	"time"

	"github.com/sells-group/leadflow/internal/model"
)

// Writer appends raw events with an idempotency guarantee: two deliveries of
// the same (account, external id) resolve to exactly one stored row.
type Writer interface {
	// Record stores the event and reports whether a new row was inserted.
	// An empty externalID gets a generated unique id, so the write always
	// inserts. A false return is the benign "already recorded" case.
	Record(ctx context.Context, accountID, externalID string, payload []byte, receivedAt time.Time) (*model.RawEvent, bool, error)

	// ListByAccount returns the most recent events for an account, newest
	// first, for the CRM audit view.
	ListByAccount(ctx context.Context, accountID string, limit int) ([]model.RawEvent, error)
}

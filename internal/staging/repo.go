// Package staging manages the quarantine table of candidate leads awaiting
// operator disposition.
package staging

import (
	"context"
	"time"

	"github.com/sells-group/leadflow/internal/model"
)

// Filter narrows List results.
type Filter struct {
	// Search matches name, phone or email, case-insensitively.
	Search string
	// States limits results to the given lifecycle states; empty means all.
	States []model.StagedState
	// From/To bound received_at; zero values are open ends.
	From time.Time
	To   time.Time

	Limit  int
	Offset int
}

// Repository is the persistence contract for staged leads. The pending-row
// invariant (one new/updated row per account+phone) is enforced by the
// storage layer, not application locks, because multiple pipeline instances
// run concurrently with no shared memory.
type Repository interface {
	// Upsert inserts a pending staged lead, or refreshes the fields of the
	// existing pending row for the same (account, phone) and moves it to
	// StagedUpdated. The returned lead is the stored row; refreshed reports
	// whether an existing pending row was hit. Leads with an empty phone
	// always insert.
	Upsert(ctx context.Context, lead *model.StagedLead) (stored *model.StagedLead, refreshed bool, err error)

	// GetPending returns the pending row for (account, phone), or (nil, nil).
	GetPending(ctx context.Context, accountID, phone string) (*model.StagedLead, error)

	// Get returns a staged lead by id, or (nil, nil).
	Get(ctx context.Context, id string) (*model.StagedLead, error)

	// List returns staged leads for an account, newest first.
	List(ctx context.Context, accountID string, f Filter) ([]model.StagedLead, error)

	// Update writes the operator-editable fields: name, email, origin.
	Update(ctx context.Context, lead *model.StagedLead) error

	// SetState transitions a staged lead's lifecycle state.
	SetState(ctx context.Context, id string, state model.StagedState) error

	// Delete hard-deletes a staged lead. Only explicit user action reaches
	// this; pipeline logic transitions to ignored/consolidated instead.
	Delete(ctx context.Context, id string) error
}

// Package canonical holds the pipeline's narrow view of the authoritative
// lead store: exact phone lookup, creation, and attribution updates. The
// canonical records belong to the surrounding CRM; nothing here deletes them
// or touches fields outside the pipeline's write capability.
package canonical

import (
	"context"

	"github.com/sells-group/leadflow/internal/model"
)

// Store is the pipeline's write capability over canonical leads.
type Store interface {
	// FindByPhone returns the canonical lead matching the canonicalized
	// phone exactly, or (nil, nil). An empty phone never matches. When the
	// soft phone-uniqueness invariant has been violated the oldest row wins;
	// surfacing the violation is the conflict resolver's job.
	FindByPhone(ctx context.Context, accountID, phone string) (*model.CanonicalLead, error)

	// Get returns a canonical lead by id, or (nil, nil).
	Get(ctx context.Context, id int64) (*model.CanonicalLead, error)

	// Create inserts a new canonical lead and sets its ID.
	Create(ctx context.Context, lead *model.CanonicalLead) error

	// Update writes the fields the pipeline is allowed to change: contact
	// data and attribution. Status is written only through promote and the
	// explicit conflict-resolution path.
	Update(ctx context.Context, lead *model.CanonicalLead) error
}

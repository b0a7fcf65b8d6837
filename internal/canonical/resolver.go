package canonical

import (
	"strings"
	"time"

	"github.com/sells-group/leadflow/internal/model"
)

// ConflictSide is one side of a phone-ownership conflict.
type ConflictSide struct {
	Name   string `json:"name"`
	Status string `json:"status"`
	Origin string `json:"origin"`
}

// Conflict is the structured comparison surfaced when an inbound phone
// matches a canonical lead that should not be silently updated, e.g. one
// already in a terminal status. The human's choice is the only path to a
// canonical write in this scenario.
type Conflict struct {
	StagedID    string       `json:"staged_id"`
	CanonicalID int64        `json:"canonical_id"`
	Phone       string       `json:"phone"`
	Existing    ConflictSide `json:"existing"`
	Incoming    ConflictSide `json:"incoming"`
	DetectedAt  time.Time    `json:"detected_at"`
}

// Resolver detects and describes phone-ownership conflicts. It never writes.
type Resolver struct {
	terminalStatuses []string
}

// NewResolver creates a Resolver. terminalStatuses lists the canonical
// statuses (case-insensitive) that freeze a lead against automatic merges.
func NewResolver(terminalStatuses []string) *Resolver {
	return &Resolver{terminalStatuses: terminalStatuses}
}

// Terminal reports whether a canonical status blocks automatic merging.
func (r *Resolver) Terminal(status string) bool {
	for _, t := range r.terminalStatuses {
		if strings.EqualFold(status, t) {
			return true
		}
	}
	return false
}

// Compare builds the side-by-side comparison for human disposition.
func (r *Resolver) Compare(staged *model.StagedLead, existing *model.CanonicalLead) *Conflict {
	return &Conflict{
		StagedID:    staged.ID,
		CanonicalID: existing.ID,
		Phone:       staged.Phone,
		Existing: ConflictSide{
			Name:   existing.Name,
			Status: existing.Status,
			Origin: existing.Origin,
		},
		Incoming: ConflictSide{
			Name:   staged.Name,
			Status: string(staged.State),
			Origin: staged.Origin,
		},
		DetectedAt: time.Now().UTC(),
	}
}

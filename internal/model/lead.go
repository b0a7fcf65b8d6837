// Package model defines the core data types shared across the intake pipeline.
package model

import "time"

// RawEvent is the immutable record of one inbound attribution callback.
// Rows are append-only: the pipeline never mutates or deletes them.
type RawEvent struct {
	ID         int64     `json:"id" db:"id"`
	AccountID  string    `json:"account_id" db:"account_id"`
	ExternalID string    `json:"external_id" db:"external_id"`
	Payload    []byte    `json:"payload,omitempty" db:"payload"` // JSONB
	ReceivedAt time.Time `json:"received_at" db:"received_at"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// StagedState is the lifecycle state of a quarantined lead.
type StagedState string

// Staged lead lifecycle states. A row in StagedNew or StagedUpdated is
// "pending" and holds the (account, phone) slot; StagedIgnored and
// StagedConsolidated are terminal and release it.
const (
	StagedNew          StagedState = "new"
	StagedUpdated      StagedState = "updated"
	StagedIgnored      StagedState = "ignored"
	StagedConsolidated StagedState = "consolidated"
)

// Pending reports whether the state still holds the (account, phone) slot.
func (s StagedState) Pending() bool {
	return s == StagedNew || s == StagedUpdated
}

// StagedLead is a quarantined candidate lead awaiting disposition.
// At most one pending row may exist per (account, normalized phone).
type StagedLead struct {
	ID         string      `json:"id" db:"id"`
	AccountID  string      `json:"account_id" db:"account_id"`
	Name       string      `json:"name" db:"name"`
	Phone      string      `json:"phone" db:"phone"` // canonicalized, digits only
	Email      string      `json:"email,omitempty" db:"email"`
	Origin     string      `json:"origin,omitempty" db:"origin"`
	ReceivedAt time.Time   `json:"received_at" db:"received_at"`
	State      StagedState `json:"state" db:"state"`
	Payload    []byte      `json:"payload,omitempty" db:"payload"` // original body, JSONB
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at" db:"updated_at"`
}

// CanonicalLead is the authoritative customer record owned by the CRM domain.
// The pipeline only creates new rows or applies attribution updates; it never
// deletes canonical leads.
type CanonicalLead struct {
	ID        int64  `json:"id" db:"id"`
	AccountID string `json:"account_id" db:"account_id"`
	Name      string `json:"name" db:"name"`
	Phone     string `json:"phone" db:"phone"`
	Email     string `json:"email,omitempty" db:"email"`
	Status    string `json:"status" db:"status"`

	// Attribution
	Origin    string `json:"origin,omitempty" db:"origin"`
	SubOrigin string `json:"sub_origin,omitempty" db:"sub_origin"`
	Campaign  string `json:"campaign,omitempty" db:"campaign"`
	Ad        string `json:"ad,omitempty" db:"ad"`
	Location  string `json:"location,omitempty" db:"location"`

	// AttributionAt is the received-at of the event that last touched the
	// attribution fields; nil when the lead was created outside the pipeline.
	AttributionAt *time.Time `json:"attribution_at,omitempty" db:"attribution_at"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

package model

// Outcome classifies the result of a pipeline operation. Outcomes are values
// carried in result structs, not errors: bulk callers aggregate them per item.
type Outcome string

const (
	// OutcomeStaged means the event was recorded and a staged lead was
	// created or refreshed.
	OutcomeStaged Outcome = "staged"
	// OutcomeRecorded means the raw event was stored but the account does
	// not route this source into staging.
	OutcomeRecorded Outcome = "recorded"
	// OutcomeDuplicateIgnored is the benign outcome for a repeat delivery:
	// a pending staged lead already holds the phone slot.
	OutcomeDuplicateIgnored Outcome = "duplicate_ignored"
	// OutcomeUnauthorized means the account id / secret pair failed.
	OutcomeUnauthorized Outcome = "unauthorized"
	// OutcomeInvalidPayload means the body lacked both name and phone. The
	// raw event is still retained.
	OutcomeInvalidPayload Outcome = "invalid_payload"
	// OutcomeStorageError means persistence was unavailable or timed out.
	// It maps to a 5xx so the sender retries.
	OutcomeStorageError Outcome = "storage_error"

	// OutcomeConsolidated means a staged lead was promoted or merged.
	OutcomeConsolidated Outcome = "consolidated"
	// OutcomeIncompleteLead blocks promotion: status or origin missing.
	OutcomeIncompleteLead Outcome = "incomplete_lead"
	// OutcomeNoCanonicalMatch blocks a merge: no canonical lead owns the phone.
	OutcomeNoCanonicalMatch Outcome = "no_canonical_match"
	// OutcomeConflict means the phone belongs to a canonical lead in a
	// terminal status; a human must choose before anything is written.
	OutcomeConflict Outcome = "conflict"
	// OutcomeIgnored means the staged lead was dismissed.
	OutcomeIgnored Outcome = "ignored"
	// OutcomeNotFound means the referenced staged lead does not exist or
	// was already dispositioned.
	OutcomeNotFound Outcome = "not_found"
)

// Retryable reports whether the sender should retry the request that produced
// this outcome.
func (o Outcome) Retryable() bool {
	return o == OutcomeStorageError
}

// Disposition is the operator-chosen action for a staged lead.
type Disposition string

const (
	DispositionPromote Disposition = "promote"
	DispositionMerge   Disposition = "merge"
	DispositionIgnore  Disposition = "ignore"
)

// Valid reports whether d is a known disposition.
func (d Disposition) Valid() bool {
	switch d {
	case DispositionPromote, DispositionMerge, DispositionIgnore:
		return true
	}
	return false
}

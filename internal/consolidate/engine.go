// Package consolidate moves staged leads out of quarantine: promotion into a
// new canonical lead, merge into an existing one, or dismissal.
package consolidate

import (
	"context"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/leadflow/internal/canonical"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/internal/staging"
)

// DefaultConcurrency bounds the worker pool for bulk consolidation.
const DefaultConcurrency = 4

// Request is one consolidation instruction.
type Request struct {
	StagedID    string            `json:"staged_id"`
	Disposition model.Disposition `json:"disposition"`

	// Status is the canonical status a promoted lead starts with. Required
	// for promote, unused otherwise.
	Status string `json:"status,omitempty"`
}

// ItemResult is the per-item outcome of a consolidation request. Failures are
// ordinary values here so bulk callers can aggregate them.
type ItemResult struct {
	StagedID    string              `json:"staged_id"`
	Outcome     model.Outcome       `json:"outcome"`
	Message     string              `json:"message,omitempty"`
	CanonicalID int64               `json:"canonical_id,omitempty"`
	Conflict    *canonical.Conflict `json:"conflict,omitempty"`
}

// Summary aggregates a bulk run.
type Summary struct {
	Succeeded int          `json:"succeeded"`
	Failed    int          `json:"failed"`
	Items     []ItemResult `json:"items"`
}

// Engine executes consolidation requests. Each item's canonical write is its
// own storage round trip; one item's failure never aborts the others.
type Engine struct {
	staged      staging.Repository
	canon       canonical.Store
	resolver    *canonical.Resolver
	concurrency int
}

// NewEngine creates a consolidation engine.
func NewEngine(staged staging.Repository, canon canonical.Store, resolver *canonical.Resolver) *Engine {
	return &Engine{
		staged:      staged,
		canon:       canon,
		resolver:    resolver,
		concurrency: DefaultConcurrency,
	}
}

// WithConcurrency overrides the bulk worker-pool size.
func (e *Engine) WithConcurrency(n int) *Engine {
	if n > 0 {
		e.concurrency = n
	}
	return e
}

// Consolidate executes a single request. Storage failures surface as
// OutcomeStorageError; everything else is a typed outcome.
func (e *Engine) Consolidate(ctx context.Context, req Request) ItemResult {
	log := zap.L().With(
		zap.String("component", "consolidate"),
		zap.String("staged_id", req.StagedID),
		zap.String("disposition", string(req.Disposition)),
	)

	if !req.Disposition.Valid() {
		return ItemResult{StagedID: req.StagedID, Outcome: model.OutcomeInvalidPayload, Message: "unknown disposition"}
	}

	lead, err := e.staged.Get(ctx, req.StagedID)
	if err != nil {
		log.Error("staged lookup failed", zap.Error(err))
		return ItemResult{StagedID: req.StagedID, Outcome: model.OutcomeStorageError, Message: err.Error()}
	}
	if lead == nil {
		return ItemResult{StagedID: req.StagedID, Outcome: model.OutcomeNotFound, Message: "staged lead not found"}
	}
	if !lead.State.Pending() {
		return ItemResult{StagedID: req.StagedID, Outcome: model.OutcomeNotFound, Message: "staged lead already dispositioned"}
	}

	switch req.Disposition {
	case model.DispositionIgnore:
		return e.ignore(ctx, log, lead)
	case model.DispositionPromote:
		return e.promote(ctx, log, lead, req.Status)
	default:
		return e.merge(ctx, log, lead)
	}
}

// ConsolidateBulk runs the requests through a bounded pool and reports every
// item. The UI renders this as "N succeeded, M failed", so the result is
// always per item, never a single aggregate error.
func (e *Engine) ConsolidateBulk(ctx context.Context, reqs []Request) Summary {
	results := make([]ItemResult, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for i, req := range reqs {
		g.Go(func() error {
			results[i] = e.Consolidate(gctx, req)
			return nil // individual failures are carried in the result
		})
	}
	_ = g.Wait()

	s := Summary{Items: results}
	for _, r := range results {
		if r.Outcome == model.OutcomeConsolidated || r.Outcome == model.OutcomeIgnored {
			s.Succeeded++
		} else {
			s.Failed++
		}
	}
	zap.L().Info("bulk consolidation complete",
		zap.String("component", "consolidate"),
		zap.Int("succeeded", s.Succeeded),
		zap.Int("failed", s.Failed),
	)
	return s
}

func (e *Engine) ignore(ctx context.Context, log *zap.Logger, lead *model.StagedLead) ItemResult {
	if err := e.staged.SetState(ctx, lead.ID, model.StagedIgnored); err != nil {
		log.Error("ignore transition failed", zap.Error(err))
		return ItemResult{StagedID: lead.ID, Outcome: model.OutcomeStorageError, Message: err.Error()}
	}
	log.Info("staged lead ignored")
	return ItemResult{StagedID: lead.ID, Outcome: model.OutcomeIgnored, Message: "ignored"}
}

func (e *Engine) promote(ctx context.Context, log *zap.Logger, lead *model.StagedLead, status string) ItemResult {
	if status == "" || lead.Origin == "" {
		log.Warn("promotion blocked", zap.String("status", status), zap.String("origin", lead.Origin))
		return ItemResult{StagedID: lead.ID, Outcome: model.OutcomeIncompleteLead, Message: "promotion requires a status and an origin"}
	}

	att := canonical.StagedAttribution(lead)
	attAt := lead.ReceivedAt
	created := &model.CanonicalLead{
		AccountID:     lead.AccountID,
		Name:          lead.Name,
		Phone:         lead.Phone,
		Email:         lead.Email,
		Status:        status,
		Origin:        att.Origin,
		SubOrigin:     att.SubOrigin,
		Campaign:      att.Campaign,
		Ad:            att.Ad,
		Location:      att.Location,
		AttributionAt: &attAt,
	}
	if err := e.canon.Create(ctx, created); err != nil {
		log.Error("canonical create failed", zap.Error(err))
		return ItemResult{StagedID: lead.ID, Outcome: model.OutcomeStorageError, Message: err.Error()}
	}

	if err := e.staged.SetState(ctx, lead.ID, model.StagedConsolidated); err != nil {
		// The canonical row exists; report the transition failure so the
		// operator retries the disposition rather than losing track of it.
		log.Error("consolidated transition failed", zap.Error(err), zap.Int64("canonical_id", created.ID))
		return ItemResult{StagedID: lead.ID, Outcome: model.OutcomeStorageError, Message: err.Error(), CanonicalID: created.ID}
	}

	log.Info("promoted staged lead", zap.Int64("canonical_id", created.ID), zap.String("status", status))
	return ItemResult{StagedID: lead.ID, Outcome: model.OutcomeConsolidated, Message: "promoted", CanonicalID: created.ID}
}

func (e *Engine) merge(ctx context.Context, log *zap.Logger, lead *model.StagedLead) ItemResult {
	existing, err := e.canon.FindByPhone(ctx, lead.AccountID, lead.Phone)
	if err != nil {
		log.Error("canonical lookup failed", zap.Error(err))
		return ItemResult{StagedID: lead.ID, Outcome: model.OutcomeStorageError, Message: err.Error()}
	}
	if existing == nil {
		log.Debug("no canonical match", zap.String("phone", lead.Phone))
		return ItemResult{StagedID: lead.ID, Outcome: model.OutcomeNoCanonicalMatch, Message: "no canonical lead owns this phone"}
	}

	if e.resolver.Terminal(existing.Status) {
		// Never silently update a closed lead; hand the comparison to a
		// human and leave both records untouched.
		conflict := e.resolver.Compare(lead, existing)
		log.Warn("merge blocked by terminal status",
			zap.Int64("canonical_id", existing.ID),
			zap.String("status", existing.Status))
		return ItemResult{StagedID: lead.ID, Outcome: model.OutcomeConflict, Message: "canonical lead is in a terminal status", CanonicalID: existing.ID, Conflict: conflict}
	}

	changed := canonical.FillContact(existing, lead)
	if canonical.ApplyAttribution(existing, canonical.StagedAttribution(lead)) {
		changed = true
	}
	if changed {
		if err := e.canon.Update(ctx, existing); err != nil {
			log.Error("canonical update failed", zap.Error(err))
			return ItemResult{StagedID: lead.ID, Outcome: model.OutcomeStorageError, Message: err.Error()}
		}
	}

	if err := e.staged.SetState(ctx, lead.ID, model.StagedConsolidated); err != nil {
		log.Error("consolidated transition failed", zap.Error(err), zap.Int64("canonical_id", existing.ID))
		return ItemResult{StagedID: lead.ID, Outcome: model.OutcomeStorageError, Message: err.Error(), CanonicalID: existing.ID}
	}

	log.Info("merged staged lead", zap.Int64("canonical_id", existing.ID), zap.Bool("changed", changed))
	return ItemResult{StagedID: lead.ID, Outcome: model.OutcomeConsolidated, Message: "merged", CanonicalID: existing.ID}
}

// ResolveConflict applies the human's choice for a blocked merge. keep=true
// updates the existing canonical lead with the staged data; keep=false
// dismisses the staged lead and leaves the canonical record alone.
func (e *Engine) ResolveConflict(ctx context.Context, stagedID string, keep bool) ItemResult {
	log := zap.L().With(
		zap.String("component", "consolidate"),
		zap.String("staged_id", stagedID),
		zap.Bool("keep", keep),
	)

	lead, err := e.staged.Get(ctx, stagedID)
	if err != nil {
		return ItemResult{StagedID: stagedID, Outcome: model.OutcomeStorageError, Message: err.Error()}
	}
	if lead == nil || !lead.State.Pending() {
		return ItemResult{StagedID: stagedID, Outcome: model.OutcomeNotFound, Message: "staged lead not found"}
	}

	if !keep {
		return e.ignore(ctx, log, lead)
	}

	existing, err := e.canon.FindByPhone(ctx, lead.AccountID, lead.Phone)
	if err != nil {
		return ItemResult{StagedID: stagedID, Outcome: model.OutcomeStorageError, Message: err.Error()}
	}
	if existing == nil {
		return ItemResult{StagedID: stagedID, Outcome: model.OutcomeNoCanonicalMatch, Message: "canonical lead disappeared"}
	}

	// Explicit confirmation given: staged data overwrites the contact
	// fields and attribution, terminal status or not.
	existing.Name = firstNonEmpty(lead.Name, existing.Name)
	existing.Email = firstNonEmpty(lead.Email, existing.Email)
	att := canonical.StagedAttribution(lead)
	att.ReceivedAt = time.Now().UTC() // human override counts as fresh attribution
	canonical.ApplyAttribution(existing, att)

	if err := e.canon.Update(ctx, existing); err != nil {
		log.Error("canonical update failed", zap.Error(err))
		return ItemResult{StagedID: stagedID, Outcome: model.OutcomeStorageError, Message: err.Error()}
	}
	if err := e.staged.SetState(ctx, lead.ID, model.StagedConsolidated); err != nil {
		return ItemResult{StagedID: stagedID, Outcome: model.OutcomeStorageError, Message: err.Error(), CanonicalID: existing.ID}
	}

	log.Info("conflict resolved, canonical updated", zap.Int64("canonical_id", existing.ID))
	return ItemResult{StagedID: stagedID, Outcome: model.OutcomeConsolidated, Message: "updated existing", CanonicalID: existing.ID}
}

func firstNonEmpty(a, b string) string {
	if a != "" {
		return a
	}
	return b
}

// Package intake orchestrates the ingestion of a single inbound webhook
// callback: authenticate, record the raw event, normalize, and stage.
package intake

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/account"
	"github.com/sells-group/leadflow/internal/event"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/internal/normalize"
	"github.com/sells-group/leadflow/internal/staging"
)

// DefaultStorageTimeout bounds each storage call made by the handler.
const DefaultStorageTimeout = 10 * time.Second

// Result is the typed outcome of one ingestion attempt.
type Result struct {
	Outcome    model.Outcome `json:"outcome"`
	Message    string        `json:"message,omitempty"`
	RawEventID int64         `json:"raw_event_id,omitempty"`
	StagedID   string        `json:"staged_id,omitempty"`
}

// Handler is the pipeline entry point for inbound webhook deliveries. It
// holds no mutable state; every invocation is an independent request and all
// cross-request coordination happens through storage constraints.
type Handler struct {
	accounts account.Source
	events   event.Writer
	staged   staging.Repository

	storageTimeout time.Duration
	now            func() time.Time
}

// NewHandler creates an ingestion handler.
func NewHandler(accounts account.Source, events event.Writer, staged staging.Repository) *Handler {
	return &Handler{
		accounts:       accounts,
		events:         events,
		staged:         staged,
		storageTimeout: DefaultStorageTimeout,
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// WithStorageTimeout overrides the per-call storage timeout.
func (h *Handler) WithStorageTimeout(d time.Duration) *Handler {
	if d > 0 {
		h.storageTimeout = d
	}
	return h
}

// Ingest processes one inbound delivery. The returned error is non-nil only
// alongside OutcomeStorageError; every other condition is expressed as a
// benign Result so the HTTP layer can map it to a status code directly.
func (h *Handler) Ingest(ctx context.Context, accountID, secret string, body []byte) (*Result, error) {
	log := zap.L().With(zap.String("component", "intake"), zap.String("account_id", accountID))

	acct, err := h.fetchAccount(ctx, accountID)
	if err != nil {
		log.Error("account lookup failed", zap.Error(err))
		return &Result{Outcome: model.OutcomeStorageError, Message: "account lookup failed"}, err
	}
	if acct == nil || !acct.SecretMatches(secret) {
		// Fail closed on both missing account and bad secret, without
		// telling the caller which one it was.
		log.Warn("unauthorized delivery")
		return &Result{Outcome: model.OutcomeUnauthorized, Message: "unauthorized"}, nil
	}

	receivedAt := h.now()

	// Decode before recording only to harvest the external event id; the
	// raw body is persisted verbatim whether or not it decodes.
	payload, parseErr := model.ParsePayload(body)
	externalID := ""
	if parseErr == nil {
		externalID = payload.EventID
	}

	raw, inserted, err := h.recordEvent(ctx, accountID, externalID, body, receivedAt)
	if err != nil {
		log.Error("raw event write failed", zap.Error(err))
		return &Result{Outcome: model.OutcomeStorageError, Message: "event store unavailable"}, err
	}

	res := &Result{RawEventID: raw.ID}

	if parseErr != nil {
		log.Warn("malformed payload", zap.Error(parseErr), zap.Int64("raw_event_id", raw.ID))
		res.Outcome = model.OutcomeInvalidPayload
		res.Message = "malformed payload"
		return res, nil
	}

	if externalID != "" && !inserted {
		// Webhook retry for an event we already hold. The raw row is the
		// one from the first delivery; nothing further to do.
		log.Debug("duplicate raw event", zap.String("external_id", externalID))
		res.Outcome = model.OutcomeDuplicateIgnored
		res.Message = "already recorded"
		return res, nil
	}

	if !acct.RouteToStaging {
		res.Outcome = model.OutcomeRecorded
		res.Message = "recorded"
		return res, nil
	}

	if !payload.Identifiable() {
		log.Warn("payload lacks name and phone", zap.Int64("raw_event_id", raw.ID))
		res.Outcome = model.OutcomeInvalidPayload
		res.Message = "payload has neither name nor phone"
		return res, nil
	}

	cc := acct.CountryCode
	if cc == "" {
		cc = normalize.DefaultCountryCode
	}
	ts, fallback := normalize.ParseReceivedAt(payload.CreatedTime, h.now)
	if fallback && payload.CreatedTime != "" {
		log.Warn("unparseable event timestamp, using receipt time",
			zap.String("created_time", payload.CreatedTime))
	}

	lead := &model.StagedLead{
		AccountID:  accountID,
		Name:       normalize.Name(payload.Name),
		Phone:      normalize.Phone(payload.Phone, cc),
		Email:      payload.Email,
		Origin:     normalize.Origin(payload.Origin),
		ReceivedAt: ts,
		Payload:    body,
	}

	if lead.Phone != "" && !acct.RefreshPending {
		pending, err := h.getPending(ctx, accountID, lead.Phone)
		if err != nil {
			log.Error("pending lookup failed", zap.Error(err))
			return &Result{Outcome: model.OutcomeStorageError, Message: "staging unavailable", RawEventID: raw.ID}, err
		}
		if pending != nil {
			log.Debug("pending staged lead exists, leaving untouched",
				zap.String("staged_id", pending.ID), zap.String("phone", lead.Phone))
			res.Outcome = model.OutcomeDuplicateIgnored
			res.Message = "duplicate, ignored"
			res.StagedID = pending.ID
			return res, nil
		}
	}

	stored, refreshed, err := h.upsert(ctx, lead)
	if err != nil {
		log.Error("staged upsert failed", zap.Error(err))
		return &Result{Outcome: model.OutcomeStorageError, Message: "staging unavailable", RawEventID: raw.ID}, err
	}

	res.StagedID = stored.ID
	if refreshed {
		// First event wins the review state; this one only refreshed the
		// pending row's fields.
		log.Info("refreshed pending staged lead",
			zap.String("staged_id", stored.ID), zap.String("phone", stored.Phone))
		res.Outcome = model.OutcomeDuplicateIgnored
		res.Message = "duplicate, fields refreshed"
		return res, nil
	}

	log.Info("staged lead",
		zap.String("staged_id", stored.ID),
		zap.String("phone", stored.Phone),
		zap.String("origin", stored.Origin))
	res.Outcome = model.OutcomeStaged
	res.Message = "staged"
	return res, nil
}

func (h *Handler) fetchAccount(ctx context.Context, accountID string) (*account.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, h.storageTimeout)
	defer cancel()
	return h.accounts.Get(ctx, accountID)
}

func (h *Handler) recordEvent(ctx context.Context, accountID, externalID string, body []byte, receivedAt time.Time) (*model.RawEvent, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, h.storageTimeout)
	defer cancel()
	return h.events.Record(ctx, accountID, externalID, body, receivedAt)
}

func (h *Handler) getPending(ctx context.Context, accountID, phone string) (*model.StagedLead, error) {
	ctx, cancel := context.WithTimeout(ctx, h.storageTimeout)
	defer cancel()
	return h.staged.GetPending(ctx, accountID, phone)
}

func (h *Handler) upsert(ctx context.Context, lead *model.StagedLead) (*model.StagedLead, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, h.storageTimeout)
	defer cancel()
	return h.staged.Upsert(ctx, lead)
}

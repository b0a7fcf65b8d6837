package server

import (
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/intake"
	"github.com/sells-group/leadflow/internal/model"
)

// handleWebhook receives one third-party attribution callback. Account id and
// shared secret ride in the query string because the sending platforms only
// support URL configuration, not custom headers.
func (s *Server) handleWebhook(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	secret := r.URL.Query().Get("secret")
	if accountID == "" {
		writeError(w, http.StatusUnauthorized, "account_id is required")
		return
	}

	// The account's own rate cap applies when it resolves; unknown accounts
	// burn the default bucket so probing can't bypass the limiter.
	perMinute := 0
	if acct, err := s.accounts.Get(r.Context(), accountID); err == nil && acct != nil {
		perMinute = acct.RatePerMinute
	}
	if !s.limits.Allow(accountID, perMinute) {
		zap.L().Warn("webhook rate limited", zap.String("account_id", accountID))
		writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
		return
	}

	maxBody := s.cfg.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = 1 << 20
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, "unreadable body")
		return
	}

	res, _ := s.intake.Ingest(r.Context(), accountID, secret, body)
	writeJSON(w, statusFor(res), res)
}

// statusFor maps an ingestion outcome to its HTTP status. Benign duplicates
// answer 200 so the sender stops retrying; storage errors answer 500 so it
// retries later.
func statusFor(res *intake.Result) int {
	switch res.Outcome {
	case model.OutcomeStaged, model.OutcomeRecorded, model.OutcomeDuplicateIgnored:
		return http.StatusOK
	case model.OutcomeInvalidPayload:
		return http.StatusBadRequest
	case model.OutcomeUnauthorized:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/consolidate"
	"github.com/sells-group/leadflow/internal/model"
	"github.com/sells-group/leadflow/internal/staging"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// handleListStaged lists staged leads for an account with optional search
// text, state and received-at filters.
func (s *Server) handleListStaged(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	f, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	leads, err := s.staged.List(r.Context(), accountID, f)
	if err != nil {
		zap.L().Error("staged list failed", zap.String("account_id", accountID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": leads})
}

func parseFilter(r *http.Request) (staging.Filter, error) {
	q := r.URL.Query()
	f := staging.Filter{
		Search: q.Get("q"),
		Limit:  defaultListLimit,
	}

	if states := q.Get("state"); states != "" {
		for _, s := range strings.Split(states, ",") {
			f.States = append(f.States, model.StagedState(strings.TrimSpace(s)))
		}
	}
	if from := q.Get("from"); from != "" {
		t, err := parseTimeParam(from)
		if err != nil {
			return f, err
		}
		f.From = t
	}
	if to := q.Get("to"); to != "" {
		t, err := parseTimeParam(to)
		if err != nil {
			return f, err
		}
		f.To = t
	}
	if limit := q.Get("limit"); limit != "" {
		n, err := strconv.Atoi(limit)
		if err != nil || n < 1 {
			return f, errBadParam("limit")
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		f.Limit = n
	}
	if offset := q.Get("offset"); offset != "" {
		n, err := strconv.Atoi(offset)
		if err != nil || n < 0 {
			return f, errBadParam("offset")
		}
		f.Offset = n
	}
	return f, nil
}

func parseTimeParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Time{}, errBadParam("time")
}

func errBadParam(name string) error {
	return eris.Errorf("invalid %s parameter", name)
}

// handleGetStaged returns one staged lead.
func (s *Server) handleGetStaged(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lead, err := s.staged.Get(r.Context(), id)
	if err != nil {
		zap.L().Error("staged get failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if lead == nil {
		writeError(w, http.StatusNotFound, "staged lead not found")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// handleUpdateStaged patches the operator-editable fields.
func (s *Server) handleUpdateStaged(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Name   *string `json:"name"`
		Email  *string `json:"email"`
		Origin *string `json:"origin"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	lead, err := s.staged.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if lead == nil {
		writeError(w, http.StatusNotFound, "staged lead not found")
		return
	}

	if req.Name != nil {
		lead.Name = *req.Name
	}
	if req.Email != nil {
		lead.Email = *req.Email
	}
	if req.Origin != nil {
		lead.Origin = *req.Origin
	}

	if err := s.staged.Update(r.Context(), lead); err != nil {
		zap.L().Error("staged update failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

// handleDeleteStaged hard-deletes a staged lead. This is the explicit user
// action; pipeline flows transition to ignored instead.
func (s *Server) handleDeleteStaged(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	lead, err := s.staged.Get(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	if lead == nil {
		writeError(w, http.StatusNotFound, "staged lead not found")
		return
	}

	if err := s.staged.Delete(r.Context(), id); err != nil {
		zap.L().Error("staged delete failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleConsolidate runs one or many consolidation requests and always
// answers with the per-item summary.
func (s *Server) handleConsolidate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Items []consolidate.Request `json:"items"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(req.Items) == 0 {
		writeError(w, http.StatusBadRequest, "items is required")
		return
	}

	summary := s.engine.ConsolidateBulk(r.Context(), req.Items)
	writeJSON(w, http.StatusOK, summary)
}

// handleResolveConflict applies the operator's choice for a merge that was
// blocked by a terminal-status conflict.
func (s *Server) handleResolveConflict(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req struct {
		Keep bool `json:"keep"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res := s.engine.ResolveConflict(r.Context(), id, req.Keep)
	switch res.Outcome {
	case model.OutcomeNotFound:
		writeError(w, http.StatusNotFound, res.Message)
	case model.OutcomeStorageError:
		writeError(w, http.StatusInternalServerError, res.Message)
	default:
		writeJSON(w, http.StatusOK, res)
	}
}

// handleListEvents serves the raw-event audit view.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	accountID := r.URL.Query().Get("account_id")
	if accountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	limit := defaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid limit parameter")
			return
		}
		if n > maxListLimit {
			n = maxListLimit
		}
		limit = n
	}

	events, err := s.events.ListByAccount(r.Context(), accountID, limit)
	if err != nil {
		zap.L().Error("event list failed", zap.String("account_id", accountID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "storage unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": events})
}

// Package server exposes the pipeline over HTTP: the public webhook endpoint
// third-party ad platforms call, and the private API the CRM frontend uses to
// review and consolidate staged leads.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/leadflow/internal/account"
	"github.com/sells-group/leadflow/internal/config"
	"github.com/sells-group/leadflow/internal/consolidate"
	"github.com/sells-group/leadflow/internal/event"
	"github.com/sells-group/leadflow/internal/intake"
	"github.com/sells-group/leadflow/internal/staging"
)

// Server wires the HTTP surface to the pipeline components.
type Server struct {
	cfg      config.ServerConfig
	intake   *intake.Handler
	engine   *consolidate.Engine
	staged   staging.Repository
	events   event.Writer
	accounts account.Source
	limits   *limiterPool
}

// New creates a Server.
func New(cfg config.ServerConfig, h *intake.Handler, e *consolidate.Engine, staged staging.Repository, events event.Writer, accounts account.Source) *Server {
	rate := cfg.RatePerMinute
	if rate <= 0 {
		rate = 120
	}
	return &Server{
		cfg:      cfg,
		intake:   h,
		engine:   e,
		staged:   staged,
		events:   events,
		accounts: accounts,
		limits:   newLimiterPool(rate),
	}
}

// Router builds the HTTP routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// The webhook is called cross-origin by third-party systems, so it
	// answers pre-flight requests permissively.
	r.Group(func(r chi.Router) {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{http.MethodPost, http.MethodOptions},
			AllowedHeaders: []string{"*"},
		}))
		r.Post("/webhook/lead", s.handleWebhook)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/staged", s.handleListStaged)
		r.Get("/staged/{id}", s.handleGetStaged)
		r.Patch("/staged/{id}", s.handleUpdateStaged)
		r.Delete("/staged/{id}", s.handleDeleteStaged)
		r.Post("/staged/consolidate", s.handleConsolidate)
		r.Post("/staged/{id}/resolve", s.handleResolveConflict)
		r.Get("/events", s.handleListEvents)
	})

	return r
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.Router(),
		ReadTimeout:  time.Duration(s.cfg.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(s.cfg.WriteTimeout) * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server", zap.Int("port", s.cfg.Port))
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

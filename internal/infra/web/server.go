// File: internal/infra/web/server.go
package web

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"sprint-estimator/internal/domain/model"
	"sprint-estimator/internal/domain/ports/repository"
	"sprint-estimator/internal/infra/logging"
	"sprint-estimator/internal/infra/worker"
)

// Estimator runs one estimation job to completion.
type Estimator interface {
	Run(ctx context.Context, jobID string, req model.EstimationRequest) error
}

type Server struct {
	estimator Estimator
	jobs      repository.JobStore
	pool      *worker.Pool
	auth      *AuthManager
	password  string
	log       *zerolog.Logger
}

func NewServer(
	estimator Estimator,
	jobs repository.JobStore,
	pool *worker.Pool,
	auth *AuthManager,
	password string,
	logger *zerolog.Logger,
) *Server {
	return &Server{
		estimator: estimator,
		jobs:      jobs,
		pool:      pool,
		auth:      auth,
		password:  password,
		log:       logger,
	}
}

// Router builds the full route tree. Estimation endpoints sit behind the
// session middleware; health, metrics and login stay open.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()
	r.Use(s.traceMiddleware)

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/api/auth/login", s.handleLogin)
	r.Post("/api/auth/logout", s.handleLogout)

	r.Group(func(g chi.Router) {
		g.Use(s.requireSession)
		g.Post("/api/estimate/start", s.handleStart)
		g.Get("/api/estimate/status/{jobID}", s.handleStatus)
	})
	return r
}

func (s *Server) traceMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := logging.WithTraceID(r.Context(), uuid.NewString())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.auth.Enabled() {
			next.ServeHTTP(w, r)
			return
		}
		if _, err := s.auth.ParseFromRequest(r); err != nil {
			writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

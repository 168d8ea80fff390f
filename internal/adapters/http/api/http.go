// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	service "github.com/okian/roster/internal/app"
	"github.com/okian/roster/internal/adapters/publish"
	"github.com/okian/roster/internal/adapters/repository"
	"github.com/okian/roster/internal/domain/model"
	"github.com/okian/roster/internal/domain/pool"
)

const defaultMaxBodyBytes = 1 << 20

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to the service implementation.
type Dependencies interface {
	AssignmentDependencies
	RosterDependencies
}

// AssignmentDependencies generates slot assignments.
type AssignmentDependencies interface {
	Generate(ctx context.Context, req service.GenerateRequest) (service.Result, error)
}

// RosterDependencies manages stored rosters and their publications.
type RosterDependencies interface {
	PutRoster(ctx context.Context, id string, records []pool.Record) (repository.Roster, error)
	GetRoster(ctx context.Context, id string) (repository.Roster, error)
	DeleteRoster(ctx context.Context, id string) error
	ListRosters(ctx context.Context) ([]string, error)
	Summary(ctx context.Context, id string) (model.Summary, error)
	Published(ctx context.Context, id string) (publish.Publication, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	assignmentsHandler *AssignmentsHandler
	rostersHandler     *RostersHandler
}

// Option configures a Server.
type Option func(*settings)

type settings struct {
	maxBodyBytes int64
}

// WithMaxBodyBytes caps request body size. Non-positive values keep the
// 1 MiB default.
func WithMaxBodyBytes(n int64) Option {
	return func(s *settings) {
		if n > 0 {
			s.maxBodyBytes = n
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	cfg := settings{maxBodyBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(&cfg)
	}
	return &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		assignmentsHandler: NewAssignmentsHandler(deps, cfg.maxBodyBytes),
		rostersHandler:     NewRostersHandler(deps, cfg.maxBodyBytes),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(_ context.Context, mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("GET /metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
	mux.HandleFunc("GET /stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

	mux.HandleFunc("POST /assignments/generate", MetricsMiddleware(s.assignmentsHandler.HandleGenerate, "assignments_generate"))

	mux.HandleFunc("GET /rosters", MetricsMiddleware(s.rostersHandler.HandleList, "rosters_list"))
	mux.HandleFunc("PUT /rosters/{id}", MetricsMiddleware(s.rostersHandler.HandlePut, "rosters_put"))
	mux.HandleFunc("GET /rosters/{id}", MetricsMiddleware(s.rostersHandler.HandleGet, "rosters_get"))
	mux.HandleFunc("DELETE /rosters/{id}", MetricsMiddleware(s.rostersHandler.HandleDelete, "rosters_delete"))
	mux.HandleFunc("GET /rosters/{id}/summary", MetricsMiddleware(s.rostersHandler.HandleSummary, "rosters_summary"))
	mux.HandleFunc("GET /rosters/{id}/published", MetricsMiddleware(s.rostersHandler.HandlePublished, "rosters_published"))
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeFailure maps an error kind to its status and error code.
func writeFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "too_large", err)
	case errors.Is(err, ErrBadRequest), errors.Is(err, service.ErrBadRequest), errors.Is(err, repository.ErrInvalidRoster):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, ErrNotFound), errors.Is(err, service.ErrNotFound), errors.Is(err, service.ErrNotPublished):
		writeError(w, http.StatusNotFound, "not_found", err)
	case errors.Is(err, ErrUnavailable):
		writeError(w, http.StatusServiceUnavailable, "unavailable", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

// decodeJSON reads a size-limited JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return ErrTooLarge
		}
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	service "github.com/okian/stagepay/internal/app"
	"github.com/okian/stagepay/internal/adapters/repository"
	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/types"
	"github.com/okian/stagepay/internal/domain/validation"
	"github.com/okian/stagepay/pkg/logger"
	"github.com/okian/stagepay/pkg/metrics"
)

const (
	defaultMaxLimit = 100
	maxBodyBytes    = 1 << 20
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	CompetitionDependencies
	EventDependencies
	StandingsDependencies
	RankDependencies
	StatsProvider
}

// Entry mirrors the read shape returned by standings queries.
type Entry = types.Entry

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	competitionsHandler *CompetitionsHandler
	eventsHandler       *EventsHandler
	standingsHandler    *StandingsHandler
	rankHandler         *RankHandler
	royaltiesHandler    *RoyaltiesHandler

	logger logger.Logger
}

// ServerOption applies a configuration option to the Server.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxLimit int
	logger   logger.Logger
}

// WithMaxLimit caps the standings limit query parameter.
func WithMaxLimit(n int) ServerOption {
	return func(c *serverConfig) {
		if n > 0 {
			c.maxLimit = n
		}
	}
}

// WithLogger sets the request logger.
func WithLogger(l logger.Logger) ServerOption {
	return func(c *serverConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, engine RoyaltyEngine, opts ...ServerOption) *Server {
	cfg := serverConfig{maxLimit: defaultMaxLimit}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get()
	}

	return &Server{
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(deps),
		competitionsHandler: NewCompetitionsHandler(deps),
		eventsHandler:       NewEventsHandler(deps),
		standingsHandler:    NewStandingsHandler(deps, cfg.maxLimit),
		rankHandler:         NewRankHandler(deps),
		royaltiesHandler:    NewRoyaltiesHandler(engine),
		logger:              cfg.logger.Named("http"),
	}
}

// Register attaches all HTTP routes to r. The request middleware is scoped to
// a group, so r may already carry other routes.
func (s *Server) Register(_ context.Context, r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequestID)
		r.Use(s.requestLogger)
		r.Use(middleware.Recoverer)

		r.Get("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
		r.Get("/metrics", MetricsMiddleware(s.healthHandler.HandleMetrics, "metrics"))
		r.Get("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))

		r.Route("/competitions", func(r chi.Router) {
			r.Post("/", MetricsMiddleware(s.competitionsHandler.HandleCreate, "competitions_create"))
			r.Get("/", MetricsMiddleware(s.competitionsHandler.HandleList, "competitions_list"))
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", MetricsMiddleware(s.competitionsHandler.HandleGet, "competitions_get"))
				r.Post("/participants", MetricsMiddleware(s.competitionsHandler.HandleAddParticipant, "participants_add"))
				r.Get("/participants/{participantID}/rank", MetricsMiddleware(s.rankHandler.HandleGetRank, "rank"))
				r.Post("/events", MetricsMiddleware(s.eventsHandler.HandlePostEvent, "events"))
				r.Get("/standings", MetricsMiddleware(s.standingsHandler.HandleGetStandings, "standings"))
				r.Post("/finalize", MetricsMiddleware(s.competitionsHandler.HandleFinalize, "finalize"))
			})
		})

		r.Route("/royalties", s.royaltiesHandler.routes)
	})
}

// Handler returns a router with every API route registered.
func (s *Server) Handler(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	s.Register(ctx, r)
	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Debug(r.Context(), "http request",
			logger.String("method", r.Method),
			logger.String("path", r.URL.Path),
			logger.Int("status", ww.Status()),
			logger.Duration("took", time.Since(start)),
			logger.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

type ackResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate"`
	EventID   string `json:"event_id,omitempty"`
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

// respondError maps upstream error kinds to HTTP statuses. It is the one
// place a rejected input is counted, labelled by the component that
// rejected it.
func respondError(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	if ve, ok := validation.As(err); ok {
		metrics.RecordValidationFailure(ve.Component())
	}
	writeError(w, status, code, Wrap(op, err))
}

func classify(err error) (int, string) {
	switch {
	case validation.Is(err):
		return http.StatusBadRequest, "validation_failed"
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, repository.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, service.ErrUnknownParticipant):
		return http.StatusNotFound, "unknown_participant"
	case errors.Is(err, repository.ErrCompleted):
		return http.StatusConflict, "competition_completed"
	case errors.Is(err, repository.ErrExists), errors.Is(err, repository.ErrDuplicateParticipant),
		errors.Is(err, repository.ErrLogAdvanced):
		return http.StatusConflict, "conflict"
	case errors.Is(err, service.ErrBackpressure), errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, service.ErrNotStarted):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads one JSON document from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decode body: %w", ErrBadRequest, err)
	}
	return nil
}

// parseTime accepts an empty string as the zero time.
func parseTime(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: invalid %s; must be RFC3339", ErrBadRequest, field)
	}
	return t, nil
}

type competitionResponse struct {
	ID           string                  `json:"id"`
	Name         string                  `json:"name"`
	Status       model.CompetitionStatus `json:"status"`
	PrizePool    float64                 `json:"prize_pool"`
	Participants []string                `json:"participants"`
	Winners      []model.Winner          `json:"winners,omitempty"`
	CreatedAt    time.Time               `json:"created_at"`
	CompletedAt  *time.Time              `json:"completed_at,omitempty"`
}

func toCompetitionResponse(c model.Competition) competitionResponse { //nolint:gocritic // hugeParam: read-only conversion
	out := competitionResponse{
		ID:           c.ID,
		Name:         c.Name,
		Status:       c.Status,
		PrizePool:    c.PrizePool,
		Participants: c.Roster,
		Winners:      c.Winners,
		CreatedAt:    c.CreatedAt,
	}
	if out.Participants == nil {
		out.Participants = []string{}
	}
	if !c.CompletedAt.IsZero() {
		at := c.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

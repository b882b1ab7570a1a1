// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/okian/stagepay/internal/domain/types"
)

// StandingsDependencies defines the interface for standings queries
type StandingsDependencies interface {
	Standings(ctx context.Context, id string, limit int) (types.Standings, error)
}

// StandingsHandler handles standings requests
type StandingsHandler struct {
	deps     StandingsDependencies
	maxLimit int
}

// NewStandingsHandler creates a new standings handler
func NewStandingsHandler(deps StandingsDependencies, maxLimit int) *StandingsHandler {
	if maxLimit < 1 {
		maxLimit = defaultMaxLimit
	}
	return &StandingsHandler{
		deps:     deps,
		maxLimit: maxLimit,
	}
}

// HandleGetStandings handles GET /competitions/{id}/standings?limit=N requests.
// Without a limit every roster participant is returned.
func (h *StandingsHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_standings"

	n := 0
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		var err error
		n, err = strconv.Atoi(limitStr)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("limit must be a positive integer")))
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", WrapKind(op, ErrBadRequest, errors.New("limit exceeds maximum of "+strconv.Itoa(h.maxLimit))))
			return
		}
	}

	st, err := h.deps.Standings(r.Context(), chi.URLParam(r, "id"), n)
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

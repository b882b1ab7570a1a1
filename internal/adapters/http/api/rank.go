// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RankDependencies defines the interface for rank operations.
type RankDependencies interface {
	Rank(ctx context.Context, competitionID, participantID string) (Entry, error)
}

// RankHandler handles rank requests.
type RankHandler struct {
	deps RankDependencies
}

// NewRankHandler creates a new rank handler.
func NewRankHandler(deps RankDependencies) *RankHandler {
	return &RankHandler{deps: deps}
}

// HandleGetRank handles GET /competitions/{id}/participants/{participantID}/rank requests.
func (h *RankHandler) HandleGetRank(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_rank"
	entry, err := h.deps.Rank(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "participantID"))
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, entry)
}

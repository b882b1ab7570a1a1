package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	service "github.com/okian/stagepay/internal/app"
	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/royalty"
)

// CompetitionDependencies defines the competition lifecycle operations.
type CompetitionDependencies interface {
	CreateCompetition(ctx context.Context, in service.CompetitionInput) (model.Competition, error)
	Competition(ctx context.Context, id string) (model.Competition, error)
	ListCompetitions(ctx context.Context) ([]model.Competition, error)
	AddParticipant(ctx context.Context, competitionID, participantID string) error
	Finalize(ctx context.Context, id string) (service.FinalizeResult, error)
}

// CompetitionsHandler handles competition requests.
type CompetitionsHandler struct {
	deps CompetitionDependencies
}

// NewCompetitionsHandler creates a new competitions handler.
func NewCompetitionsHandler(deps CompetitionDependencies) *CompetitionsHandler {
	return &CompetitionsHandler{deps: deps}
}

type createCompetitionRequest struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	PrizePool    float64  `json:"prize_pool"`
	Participants []string `json:"participants"`
}

type addParticipantRequest struct {
	ParticipantID string `json:"participant_id"`
}

type payoutResponse struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participant_id"`
	royalty.Payout
}

type finalizeResponse struct {
	Competition competitionResponse `json:"competition"`
	Distributed model.Money         `json:"distributed"`
	Forfeited   model.Money         `json:"forfeited"`
	Payouts     []payoutResponse    `json:"payouts"`
}

// HandleCreate handles POST /competitions.
func (h *CompetitionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_competition"

	var req createCompetitionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, op, err)
		return
	}
	c, err := h.deps.CreateCompetition(r.Context(), service.CompetitionInput{
		ID:           req.ID,
		Name:         req.Name,
		PrizePool:    req.PrizePool,
		Participants: req.Participants,
	})
	if err != nil {
		respondError(w, op, err)
		return
	}
	w.Header().Set("Location", "/competitions/"+c.ID)
	writeJSON(w, http.StatusCreated, toCompetitionResponse(c))
}

// HandleList handles GET /competitions.
func (h *CompetitionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_competitions"

	comps, err := h.deps.ListCompetitions(r.Context())
	if err != nil {
		respondError(w, op, err)
		return
	}
	out := make([]competitionResponse, len(comps))
	for i := range comps {
		out[i] = toCompetitionResponse(comps[i])
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /competitions/{id}.
func (h *CompetitionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_competition"

	c, err := h.deps.Competition(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, toCompetitionResponse(c))
}

// HandleAddParticipant handles POST /competitions/{id}/participants.
func (h *CompetitionsHandler) HandleAddParticipant(w http.ResponseWriter, r *http.Request) {
	const op = "api.add_participant"

	var req addParticipantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, op, err)
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.deps.AddParticipant(r.Context(), id, req.ParticipantID); err != nil {
		respondError(w, op, err)
		return
	}
	c, err := h.deps.Competition(r.Context(), id)
	if err != nil {
		respondError(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompetitionResponse(c))
}

// HandleFinalize handles POST /competitions/{id}/finalize.
func (h *CompetitionsHandler) HandleFinalize(w http.ResponseWriter, r *http.Request) {
	const op = "api.finalize_competition"

	res, err := h.deps.Finalize(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, op, err)
		return
	}

	out := finalizeResponse{
		Competition: toCompetitionResponse(res.Competition),
		Distributed: res.Distributed,
		Forfeited:   res.Forfeited,
		Payouts:     make([]payoutResponse, len(res.Payouts)),
	}
	for i, p := range res.Payouts {
		winner := res.Competition.Winners[i]
		out.Payouts[i] = payoutResponse{Rank: winner.Rank, ParticipantID: winner.ParticipantID, Payout: p}
	}
	writeJSON(w, http.StatusOK, out)
}

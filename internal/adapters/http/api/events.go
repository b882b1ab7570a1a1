// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/okian/stagepay/internal/domain/model"
)

// EventDependencies defines the interface for event ingestion.
type EventDependencies interface {
	// Submit returns true when the event ID was already accepted.
	Submit(ctx context.Context, e model.EngagementEvent) (bool, error)
}

// EventsHandler handles event requests
type EventsHandler struct {
	deps EventDependencies
}

// NewEventsHandler creates a new events handler
func NewEventsHandler(deps EventDependencies) *EventsHandler {
	return &EventsHandler{deps: deps}
}

// eventRequest mirrors the OpenAPI schema for POST /competitions/{id}/events.
type eventRequest struct {
	EventID       string `json:"event_id"`
	ParticipantID string `json:"participant_id"`
	Kind          string `json:"kind"`
	TS            string `json:"ts"`
}

func (e eventRequest) validate() error {
	switch {
	case strings.TrimSpace(e.EventID) == "":
		return errors.New("missing event_id")
	case strings.TrimSpace(e.ParticipantID) == "":
		return errors.New("missing participant_id")
	case strings.TrimSpace(e.Kind) == "":
		return errors.New("missing kind")
	}
	return nil
}

// HandlePostEvent handles POST /competitions/{id}/events requests
func (h *EventsHandler) HandlePostEvent(w http.ResponseWriter, r *http.Request) {
	const op = "api.post_event"

	var req eventRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, op, err)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	ts, err := parseTime("ts", req.TS)
	if err != nil {
		respondError(w, op, err)
		return
	}

	duplicate, err := h.deps.Submit(r.Context(), model.EngagementEvent{
		EventID:       req.EventID,
		CompetitionID: chi.URLParam(r, "id"),
		ParticipantID: req.ParticipantID,
		Kind:          model.EventKind(req.Kind),
		TS:            ts,
	})
	if err != nil {
		respondError(w, op, err)
		return
	}
	if duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", Duplicate: true, EventID: req.EventID})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", EventID: req.EventID})
}

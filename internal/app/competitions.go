package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	eventqueue "github.com/okian/stagepay/internal/adapters/mq/queue"
	"github.com/okian/stagepay/internal/adapters/repository"
	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/royalty"
	"github.com/okian/stagepay/internal/domain/types"
	"github.com/okian/stagepay/internal/domain/validation"
	"github.com/okian/stagepay/pkg/logger"
	"github.com/okian/stagepay/pkg/metrics"
)

// CompetitionInput describes a competition to create. An empty ID is
// replaced by a random UUID.
type CompetitionInput struct {
	ID           string
	Name         string
	PrizePool    float64
	Participants []string
}

// FinalizeResult is the outcome of completing a competition. Payouts are
// index-aligned with Competition.Winners.
type FinalizeResult struct {
	Competition model.Competition
	Distributed model.Money
	Forfeited   model.Money
	Payouts     []royalty.Payout
}

// CreateCompetition persists a new active competition.
func (s *Service) CreateCompetition(ctx context.Context, in CompetitionInput) (model.Competition, error) {
	const op = "service.create_competition"

	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return model.Competition{}, validation.New(op, "name", "must not be empty")
	}
	if math.IsNaN(in.PrizePool) || math.IsInf(in.PrizePool, 0) || in.PrizePool < 0 {
		return model.Competition{}, validation.Newf(op, "prize_pool", "must be a non-negative number, got %v", in.PrizePool)
	}
	seen := make(map[string]struct{}, len(in.Participants))
	for i, p := range in.Participants {
		if strings.TrimSpace(p) == "" {
			return model.Competition{}, validation.Newf(op, "participants", "empty participant id at position %d", i)
		}
		if _, dup := seen[p]; dup {
			return model.Competition{}, validation.Newf(op, "participants", "duplicate participant %q", p)
		}
		seen[p] = struct{}{}
	}
	if in.ID == "" {
		in.ID = uuid.New().String()
	}

	c := model.Competition{
		ID:        in.ID,
		Name:      in.Name,
		Status:    model.StatusActive,
		PrizePool: in.PrizePool,
		Roster:    append([]string(nil), in.Participants...),
		CreatedAt: s.now().UTC(),
	}

	store, err := s.storeOrErr()
	if err != nil {
		return model.Competition{}, err
	}
	if err := store.CreateCompetition(ctx, c); err != nil {
		return model.Competition{}, err
	}

	metrics.RecordCompetitionCreated()
	s.logger.Info(ctx, "competition created",
		logger.String("competition_id", c.ID),
		logger.Float64("prize_pool", c.PrizePool),
		logger.Int("participants", len(c.Roster)),
	)
	return c, nil
}

// Competition returns one competition.
func (s *Service) Competition(ctx context.Context, id string) (model.Competition, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return model.Competition{}, err
	}
	return store.Competition(ctx, id)
}

// ListCompetitions returns every competition in creation order.
func (s *Service) ListCompetitions(ctx context.Context) ([]model.Competition, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return nil, err
	}
	return store.ListCompetitions(ctx)
}

// AddParticipant appends participantID to the roster of an active
// competition. Join order is the ranking tie-break order.
func (s *Service) AddParticipant(ctx context.Context, competitionID, participantID string) error {
	if strings.TrimSpace(participantID) == "" {
		return validation.New("service.add_participant", "participant_id", "must not be empty")
	}
	store, err := s.storeOrErr()
	if err != nil {
		return err
	}
	if err := store.AddParticipant(ctx, competitionID, participantID); err != nil {
		return err
	}
	s.logger.Debug(ctx, "participant joined",
		logger.String("competition_id", competitionID),
		logger.String("participant_id", participantID),
	)
	return nil
}

// Submit accepts an engagement event for asynchronous ingestion. It returns
// true when the event ID was already accepted for the competition, in which
// case nothing is enqueued.
func (s *Service) Submit(ctx context.Context, e model.EngagementEvent) (bool, error) { //nolint:gocritic // hugeParam: events are values throughout the pipeline
	const op = "service.submit"

	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return false, ErrNotStarted
	}

	if !e.Kind.Valid() {
		metrics.RecordEventRejected("unknown_kind")
		return false, validation.Newf(op, "kind", "unknown event kind %q", string(e.Kind))
	}
	if strings.TrimSpace(e.ParticipantID) == "" {
		metrics.RecordEventRejected("missing_participant")
		return false, validation.New(op, "participant_id", "must not be empty")
	}
	if e.EventID == "" {
		e.EventID = uuid.New().String()
	}
	if e.TS.IsZero() {
		e.TS = s.now().UTC()
	}

	c, err := s.store.Competition(ctx, e.CompetitionID)
	if err != nil {
		metrics.RecordEventRejected("unknown_competition")
		return false, err
	}
	if c.Status == model.StatusCompleted {
		metrics.RecordEventRejected("competition_closed")
		return false, fmt.Errorf("competition %q: %w", c.ID, repository.ErrCompleted)
	}
	if !slices.Contains(c.Roster, e.ParticipantID) {
		metrics.RecordEventRejected("unknown_participant")
		return false, fmt.Errorf("participant %q: %w", e.ParticipantID, ErrUnknownParticipant)
	}

	key := dedupeKey(e.CompetitionID, e.EventID)
	if s.deduper.SeenAndRecord(ctx, key) {
		metrics.RecordEventDuplicate()
		s.logger.Debug(ctx, "duplicate event detected, skipping",
			logger.String("competition_id", e.CompetitionID),
			logger.String("event_id", e.EventID),
		)
		return true, nil
	}

	if err := s.eventQueue.Enqueue(ctx, e); err != nil {
		s.deduper.Unrecord(ctx, key)
		if errors.Is(err, eventqueue.ErrFull) {
			metrics.RecordEventRejected("backpressure")
			return false, ErrBackpressure
		}
		return false, fmt.Errorf("enqueue event %s: %w", e.EventID, err)
	}
	return false, nil
}

// Standings ranks every roster participant on the events logged so far.
// A positive limit truncates the rows returned, never the ranking itself.
func (s *Service) Standings(ctx context.Context, id string, limit int) (types.Standings, error) {
	start := time.Now()
	defer func() {
		metrics.RecordStandingsLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	store, err := s.storeOrErr()
	if err != nil {
		return types.Standings{}, err
	}
	c, err := store.Competition(ctx, id)
	if err != nil {
		return types.Standings{}, err
	}
	events, err := store.Events(ctx, id)
	if err != nil {
		return types.Standings{}, err
	}

	out := types.Standings{
		CompetitionID: c.ID,
		Status:        c.Status,
		Participants:  len(c.Roster),
		Events:        len(events),
		Entries:       []types.Entry{},
	}
	if len(c.Roster) == 0 {
		return out, nil
	}

	ranking, err := s.scorer.Score(c.Roster, events)
	if err != nil {
		return types.Standings{}, err
	}
	out.Entries = types.Entries(ranking, limit)
	return out, nil
}

// Rank returns one participant's row of the full standings.
func (s *Service) Rank(ctx context.Context, competitionID, participantID string) (types.Entry, error) {
	st, err := s.Standings(ctx, competitionID, 0)
	if err != nil {
		return types.Entry{}, err
	}
	for _, e := range st.Entries {
		if e.ParticipantID == participantID {
			return e, nil
		}
	}
	return types.Entry{}, fmt.Errorf("participant %q: %w", participantID, ErrUnknownParticipant)
}

// finalizeAttempts bounds how often Finalize rescores a log that kept
// growing while it was being scored.
const finalizeAttempts = 3

// Finalize scores an active competition, allocates its prize pool and
// stores the winners while flipping it to completed. Only the first call
// succeeds; later ones fail with repository.ErrCompleted. Events appended
// while the log is being scored make it start over; after finalizeAttempts
// such rounds it fails with repository.ErrLogAdvanced.
func (s *Service) Finalize(ctx context.Context, id string) (FinalizeResult, error) {
	store, err := s.storeOrErr()
	if err != nil {
		return FinalizeResult{}, err
	}

	for attempt := 1; ; attempt++ {
		res, err := s.finalize(ctx, store, id)
		if err == nil || !errors.Is(err, repository.ErrLogAdvanced) || attempt == finalizeAttempts {
			return res, err
		}
		s.logger.Debug(ctx, "event log advanced during finalize, rescoring",
			logger.String("competition_id", id),
			logger.Int("attempt", attempt))
	}
}

func (s *Service) finalize(ctx context.Context, store repository.Store, id string) (FinalizeResult, error) {
	c, err := store.Competition(ctx, id)
	if err != nil {
		return FinalizeResult{}, err
	}
	if c.Status == model.StatusCompleted {
		return FinalizeResult{}, fmt.Errorf("competition %q: %w", id, repository.ErrCompleted)
	}
	events, err := store.Events(ctx, id)
	if err != nil {
		return FinalizeResult{}, err
	}

	ranking, err := s.scorer.Score(c.Roster, events)
	if err != nil {
		return FinalizeResult{}, err
	}
	alloc, err := s.scorer.Allocate(ranking, c.PrizePool)
	if err != nil {
		return FinalizeResult{}, err
	}

	completedAt := s.now().UTC()
	payouts := make([]royalty.Payout, len(alloc.Winners))
	for i, w := range alloc.Winners {
		p, err := s.engine.CalculatePayout(w.Prize.Exact, 1.0, completedAt)
		if err != nil {
			return FinalizeResult{}, err
		}
		payouts[i] = p
	}

	if err := store.Complete(ctx, id, alloc.Winners, completedAt, len(events)); err != nil {
		return FinalizeResult{}, err
	}
	for range payouts {
		metrics.RecordRoyaltyCalculation("payout")
	}

	c.Status = model.StatusCompleted
	c.Winners = alloc.Winners
	c.CompletedAt = completedAt

	metrics.RecordCompetitionFinalized(alloc.Distributed.Exact, alloc.Forfeited.Exact)
	s.logger.Info(ctx, "competition finalized",
		logger.String("competition_id", id),
		logger.Int("events", len(events)),
		logger.Int("winners", len(alloc.Winners)),
		logger.String("distributed", alloc.Distributed.String()),
		logger.String("forfeited", alloc.Forfeited.String()),
	)

	return FinalizeResult{
		Competition: c,
		Distributed: alloc.Distributed,
		Forfeited:   alloc.Forfeited,
		Payouts:     payouts,
	}, nil
}

func (s *Service) storeOrErr() (repository.Store, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.store, nil
}

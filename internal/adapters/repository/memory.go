package repository

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/okian/stagepay/internal/domain/model"
)

type competitionState struct {
	comp     model.Competition
	members  map[string]struct{}
	events   []model.EngagementEvent
	eventIDs map[string]struct{}
}

// MemoryStore is a process-local Store. Nothing survives a restart.
type MemoryStore struct {
	mu    sync.RWMutex
	byID  map[string]*competitionState
	order []string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]*competitionState)}
}

func (s *MemoryStore) CreateCompetition(_ context.Context, c model.Competition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[c.ID]; ok {
		return fmt.Errorf("competition %q: %w", c.ID, ErrExists)
	}
	st := &competitionState{
		comp:     cloneCompetition(c),
		members:  make(map[string]struct{}, len(c.Roster)),
		eventIDs: make(map[string]struct{}),
	}
	for _, p := range c.Roster {
		st.members[p] = struct{}{}
	}
	s.byID[c.ID] = st
	s.order = append(s.order, c.ID)
	return nil
}

func (s *MemoryStore) Competition(_ context.Context, id string) (model.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.byID[id]
	if !ok {
		return model.Competition{}, fmt.Errorf("competition %q: %w", id, ErrNotFound)
	}
	return cloneCompetition(st.comp), nil
}

func (s *MemoryStore) ListCompetitions(_ context.Context) ([]model.Competition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]model.Competition, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, cloneCompetition(s.byID[id].comp))
	}
	return out, nil
}

func (s *MemoryStore) AddParticipant(_ context.Context, competitionID, participantID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.active(competitionID)
	if err != nil {
		return err
	}
	if _, ok := st.members[participantID]; ok {
		return fmt.Errorf("participant %q: %w", participantID, ErrDuplicateParticipant)
	}
	st.members[participantID] = struct{}{}
	st.comp.Roster = append(st.comp.Roster, participantID)
	return nil
}

func (s *MemoryStore) AppendEvent(_ context.Context, e model.EngagementEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.active(e.CompetitionID)
	if err != nil {
		return err
	}
	if _, ok := st.eventIDs[e.EventID]; ok {
		return fmt.Errorf("event %q: %w", e.EventID, ErrExists)
	}
	st.eventIDs[e.EventID] = struct{}{}
	st.events = append(st.events, e)
	return nil
}

func (s *MemoryStore) Events(_ context.Context, competitionID string) ([]model.EngagementEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st, ok := s.byID[competitionID]
	if !ok {
		return nil, fmt.Errorf("competition %q: %w", competitionID, ErrNotFound)
	}
	return slices.Clone(st.events), nil
}

func (s *MemoryStore) Complete(_ context.Context, id string, winners []model.Winner, at time.Time, scored int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.active(id)
	if err != nil {
		return err
	}
	if len(st.events) != scored {
		return fmt.Errorf("competition %q: scored %d of %d events: %w", id, scored, len(st.events), ErrLogAdvanced)
	}
	st.comp.Status = model.StatusCompleted
	st.comp.Winners = slices.Clone(winners)
	st.comp.CompletedAt = at
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// active returns the state of an active competition. Callers hold s.mu.
func (s *MemoryStore) active(id string) (*competitionState, error) {
	st, ok := s.byID[id]
	if !ok {
		return nil, fmt.Errorf("competition %q: %w", id, ErrNotFound)
	}
	if st.comp.Status == model.StatusCompleted {
		return nil, fmt.Errorf("competition %q: %w", id, ErrCompleted)
	}
	return st, nil
}

func cloneCompetition(c model.Competition) model.Competition {
	c.Roster = slices.Clone(c.Roster)
	c.Winners = slices.Clone(c.Winners)
	return c
}

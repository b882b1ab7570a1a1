// Package repository persists competitions, their rosters and their
// engagement event logs.
package repository

import (
	"context"
	"time"

	"github.com/okian/stagepay/internal/domain/model"
)

// Store is the event log, roster provider and completion handler of the
// competition engine. Implementations must be safe for concurrent use.
type Store interface {
	// CreateCompetition persists c. Returns ErrExists if the ID is taken.
	CreateCompetition(ctx context.Context, c model.Competition) error

	// Competition returns the competition with its roster in join order and,
	// once completed, its winners. Returns ErrNotFound if unknown.
	Competition(ctx context.Context, id string) (model.Competition, error)

	// ListCompetitions returns every competition in creation order.
	ListCompetitions(ctx context.Context) ([]model.Competition, error)

	// AddParticipant appends participantID to the roster.
	// Returns ErrNotFound, ErrCompleted or ErrDuplicateParticipant.
	AddParticipant(ctx context.Context, competitionID, participantID string) error

	// AppendEvent appends e to the log of e.CompetitionID. Returns ErrExists
	// if the event ID was already logged for that competition.
	AppendEvent(ctx context.Context, e model.EngagementEvent) error

	// Events returns the log of one competition in append order.
	Events(ctx context.Context, competitionID string) ([]model.EngagementEvent, error)

	// Complete stores winners and flips the competition to completed in one
	// step, provided the log still holds exactly scored events. Returns
	// ErrCompleted if it already was and ErrLogAdvanced if events were
	// appended after scoring.
	Complete(ctx context.Context, id string, winners []model.Winner, at time.Time, scored int) error

	Close() error
}

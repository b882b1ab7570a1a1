package model

import (
	"fmt"
	"math"
	"time"
)

// CompetitionStatus is the lifecycle state of a competition.
type CompetitionStatus string

// Competition states. The only transition is active -> completed.
const (
	StatusActive    CompetitionStatus = "active"
	StatusCompleted CompetitionStatus = "completed"
)

// Competition is a time-boxed contest among roster participants.
type Competition struct {
	ID          string
	Name        string
	Status      CompetitionStatus
	PrizePool   float64
	Roster      []string // join order; also the ranking tie-break order
	Winners     []Winner // set once, on completion
	CreatedAt   time.Time
	CompletedAt time.Time
}

// Winner is one paid rank of a completed competition.
type Winner struct {
	Rank          int     `json:"rank"`
	ParticipantID string  `json:"participant_id"`
	Score         float64 `json:"score"`
	Share         float64 `json:"share"`
	Prize         Money   `json:"prize"`
}

// Money keeps the unrounded amount next to its 2-decimal display value so
// repeated allocations never compound rounding error.
type Money struct {
	Exact   float64 `json:"exact"`
	Rounded float64 `json:"rounded"`
}

// NewMoney wraps an exact amount.
func NewMoney(exact float64) Money {
	return Money{Exact: exact, Rounded: RoundCents(exact)}
}

// RoundCents rounds half away from zero to 2 decimal places.
func RoundCents(v float64) float64 {
	return math.Round(v*100) / 100
}

// Add returns m+o computed on the exact values.
func (m Money) Add(o Money) Money {
	return NewMoney(m.Exact + o.Exact)
}

func (m Money) String() string {
	return fmt.Sprintf("%.2f", m.Rounded)
}

// Package types contains common types used across the application
package types

import (
	"github.com/okian/stagepay/internal/domain/competition"
	"github.com/okian/stagepay/internal/domain/model"
)

// Entry represents one row of a competition's standings
type Entry struct {
	Rank          int     `json:"rank"`
	ParticipantID string  `json:"participant_id"`
	Score         float64 `json:"score"`
}

// Standings is the ranked view of a competition at one point of its log.
type Standings struct {
	CompetitionID string                  `json:"competition_id"`
	Status        model.CompetitionStatus `json:"status"`
	Participants  int                     `json:"participants"`
	Events        int                     `json:"events"`
	Entries       []Entry                 `json:"entries"`
}

// Entries converts a ranking into 1-based rows, keeping at most limit rows
// when limit is positive.
func Entries(r competition.Ranking, limit int) []Entry {
	if limit > 0 {
		r = r.Top(limit)
	}
	out := make([]Entry, len(r))
	for i, s := range r {
		out[i] = Entry{Rank: i + 1, ParticipantID: s.ParticipantID, Score: s.Score}
	}
	return out
}

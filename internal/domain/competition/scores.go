package competition

import (
	"cmp"
	"slices"
	"strings"

	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/validation"
)

// Standing is one participant's aggregate score.
type Standing struct {
	ParticipantID string  `json:"participant_id"`
	Score         float64 `json:"score"`
}

// Ranking is a complete roster ordered by score descending. Equal scores
// keep their relative roster order.
type Ranking []Standing

// Top returns at most n leading entries. n <= 0 returns the whole ranking.
func (r Ranking) Top(n int) Ranking {
	if n <= 0 || n >= len(r) {
		return r
	}
	return r[:n]
}

// Position returns the 1-based rank of participantID, or 0 when absent.
func (r Ranking) Position(participantID string) int {
	for i, s := range r {
		if s.ParticipantID == participantID {
			return i + 1
		}
	}
	return 0
}

// tally counts events per kind, indexed by kindSlot.
type tally [4]uint64

func kindSlot(k model.EventKind) int {
	switch k {
	case model.KindVote:
		return 0
	case model.KindPlay:
		return 1
	case model.KindLike:
		return 2
	case model.KindDownload:
		return 3
	}
	return -1
}

// ComputeScores aggregates weighted events per roster participant and
// returns the full ranking.
//
// Every roster participant appears exactly once, starting from 0. Events for
// participants outside the roster contribute nothing. An event of unknown
// kind rejects the whole call before anything is counted. Scores are built
// from integer per-kind counts, so the result does not depend on event order.
func ComputeScores(roster []string, events []model.EngagementEvent, weights Weights) (Ranking, error) {
	const op = "competition.compute_scores"

	if len(roster) == 0 {
		return nil, validation.New(op, "roster", "must not be empty")
	}
	if err := weights.Validate(); err != nil {
		return nil, err
	}

	index := make(map[string]int, len(roster))
	for i, id := range roster {
		if strings.TrimSpace(id) == "" {
			return nil, validation.Newf(op, "roster", "empty participant id at position %d", i)
		}
		if _, dup := index[id]; dup {
			return nil, validation.Newf(op, "roster", "duplicate participant %q", id)
		}
		index[id] = i
	}

	for i := range events {
		if !events[i].Kind.Valid() {
			return nil, validation.Newf(op, "events", "event %d (%s) has unknown kind %q",
				i, events[i].EventID, string(events[i].Kind))
		}
	}

	tallies := make([]tally, len(roster))
	for i := range events {
		pos, ok := index[events[i].ParticipantID]
		if !ok {
			continue
		}
		tallies[pos][kindSlot(events[i].Kind)]++
	}

	kinds := model.Kinds()
	ranking := make(Ranking, len(roster))
	for i, id := range roster {
		var score float64
		for _, k := range kinds {
			score += float64(tallies[i][kindSlot(k)]) * weights[k]
		}
		ranking[i] = Standing{ParticipantID: id, Score: score}
	}

	slices.SortStableFunc(ranking, func(a, b Standing) int {
		return cmp.Compare(b.Score, a.Score)
	})
	return ranking, nil
}

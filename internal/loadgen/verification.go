package loadgen

import (
	"fmt"

	"github.com/okian/stagepay/internal/domain/competition"
	"github.com/okian/stagepay/internal/domain/types"
)

// maxMismatches caps how many differences Verify reports.
const maxMismatches = 10

// Verify compares served standings rows with the expected ranking. It
// returns one line per differing row, empty when they agree.
func Verify(expected competition.Ranking, got []types.Entry) []string {
	var out []string
	add := func(format string, args ...any) bool {
		out = append(out, fmt.Sprintf(format, args...))
		return len(out) < maxMismatches
	}

	if len(expected) != len(got) {
		add("expected %d rows, got %d", len(expected), len(got))
	}

	n := min(len(expected), len(got))
	for i := 0; i < n; i++ {
		want, have := expected[i], got[i]
		switch {
		case have.Rank != i+1:
			if !add("row %d: rank %d", i+1, have.Rank) {
				return out
			}
		case have.ParticipantID != want.ParticipantID:
			if !add("rank %d: expected %s, got %s", i+1, want.ParticipantID, have.ParticipantID) {
				return out
			}
		case have.Score != want.Score:
			if !add("rank %d (%s): expected score %v, got %v", i+1, want.ParticipantID, want.Score, have.Score) {
				return out
			}
		}
	}
	return out
}

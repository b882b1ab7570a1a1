package loadgen

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/google/uuid"

	"github.com/okian/stagepay/internal/domain/model"
)

// Participants returns n participant IDs in roster order.
func Participants(n int) []string {
	width := len(fmt.Sprint(n))
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("artist-%0*d", width, i+1)
	}
	return out
}

// Generate builds n events spread over roster with random kinds, followed
// by resends of round(n*dupFraction) of them, then shuffles the lot. Every
// resend carries the event ID of an original, so the service must treat it
// as a duplicate.
func Generate(rng *rand.Rand, roster []string, n int, dupFraction float64, start time.Time) []Event {
	if len(roster) == 0 || n <= 0 {
		return nil
	}
	kinds := model.Kinds()
	dups := int(float64(n)*dupFraction + 0.5)

	events := make([]Event, 0, n+dups)
	for i := 0; i < n; i++ {
		events = append(events, Event{
			EventID:       uuid.NewString(),
			ParticipantID: roster[rng.IntN(len(roster))],
			Kind:          string(kinds[rng.IntN(len(kinds))]),
			TS:            start.Add(time.Duration(i) * time.Millisecond).UTC().Format(time.RFC3339Nano),
		})
	}
	for i := 0; i < dups; i++ {
		events = append(events, events[rng.IntN(n)])
	}

	rng.Shuffle(len(events), func(i, j int) { events[i], events[j] = events[j], events[i] })
	return events
}

// toModel converts wire events to domain events for local scoring.
func toModel(events []Event) []model.EngagementEvent {
	out := make([]model.EngagementEvent, len(events))
	for i, e := range events {
		out[i] = model.EngagementEvent{
			EventID:       e.EventID,
			ParticipantID: e.ParticipantID,
			Kind:          model.EventKind(e.Kind),
		}
	}
	return out
}

// Package model contains domain models passed between layers.
package model

import (
	"fmt"
	"strings"
	"time"
)

// EventKind names one kind of engagement a participant can receive.
type EventKind string

// Supported engagement kinds.
const (
	KindVote     EventKind = "vote"
	KindPlay     EventKind = "play"
	KindLike     EventKind = "like"
	KindDownload EventKind = "download"
)

// Kinds lists every supported kind in canonical order. Scoring sums per-kind
// contributions in this order.
func Kinds() []EventKind {
	return []EventKind{KindVote, KindPlay, KindLike, KindDownload}
}

// Valid reports whether k is a supported kind.
func (k EventKind) Valid() bool {
	switch k {
	case KindVote, KindPlay, KindLike, KindDownload:
		return true
	}
	return false
}

// ParseEventKind maps a wire string to an EventKind. Matching is
// case-insensitive; anything outside the supported set is an error.
func ParseEventKind(s string) (EventKind, error) {
	k := EventKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown event kind %q", s)
	}
	return k, nil
}

// EngagementEvent is one observed interaction attributed to a participant
// within a competition.
type EngagementEvent struct {
	EventID       string    // unique id for idempotency
	CompetitionID string    // competition the event was logged against
	ParticipantID string    // roster member receiving the engagement
	Kind          EventKind // vote, play, like or download
	TS            time.Time // informational; scoring ignores it
}

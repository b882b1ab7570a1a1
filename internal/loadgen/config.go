// Package loadgen drives a running stagepay service over HTTP: it opens a
// competition, floods it with random engagement events, waits for ingestion
// to settle and checks the served standings against a locally computed
// ranking.
package loadgen

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/stagepay/internal/domain/competition"
)

// Defaults.
const (
	DefaultBaseURL      = "http://localhost:9080"
	DefaultParticipants = 20
	DefaultEvents       = 10000
	DefaultPrizePool    = 10000
	DefaultTimeout      = 10 * time.Second
	DefaultSettle       = 30 * time.Second
	DefaultPollInterval = 100 * time.Millisecond

	workerMultiplier = 2
)

var (
	// ErrInvalidConfig is returned for unusable run settings.
	ErrInvalidConfig = errors.New("invalid load generator config")
	// ErrNotSettled is returned when the service did not log every accepted
	// event before the settle deadline.
	ErrNotSettled = errors.New("ingestion did not settle")
	// ErrMismatch is returned when served standings differ from the
	// locally computed ranking.
	ErrMismatch = errors.New("standings mismatch")
)

// Config holds settings for one load run.
type Config struct {
	BaseURL      string
	Name         string
	Participants int
	Events       int
	// Duplicates is the fraction of events resent with the same event ID.
	Duplicates   float64
	Workers      int
	PrizePool    float64
	Weights      competition.Weights
	Timeout      time.Duration // per request
	Settle       time.Duration
	PollInterval time.Duration
	Finalize     bool
	Seed         uint64
	Top          int // rows shown in the standings table, 0 for all
}

// DefaultConfig returns a config targeting a local service with the
// reference weights.
func DefaultConfig() Config {
	return Config{
		BaseURL:      DefaultBaseURL,
		Participants: DefaultParticipants,
		Events:       DefaultEvents,
		Workers:      runtime.NumCPU() * workerMultiplier,
		PrizePool:    DefaultPrizePool,
		Weights:      competition.DefaultWeights(),
		Timeout:      DefaultTimeout,
		Settle:       DefaultSettle,
		PollInterval: DefaultPollInterval,
		Top:          10,
	}
}

// Validate checks the config.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Participants < 1:
		return fmt.Errorf("%w: participants must be positive, got %d", ErrInvalidConfig, c.Participants)
	case c.Events < 0:
		return fmt.Errorf("%w: events must not be negative, got %d", ErrInvalidConfig, c.Events)
	case c.Duplicates < 0 || c.Duplicates > 1:
		return fmt.Errorf("%w: duplicates must be within [0,1], got %v", ErrInvalidConfig, c.Duplicates)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive, got %d", ErrInvalidConfig, c.Workers)
	case c.PrizePool <= 0:
		return fmt.Errorf("%w: prize pool must be positive, got %v", ErrInvalidConfig, c.PrizePool)
	case c.Timeout <= 0 || c.Settle <= 0 || c.PollInterval <= 0:
		return fmt.Errorf("%w: timeouts must be positive", ErrInvalidConfig)
	case c.Top < 0:
		return fmt.Errorf("%w: top must not be negative, got %d", ErrInvalidConfig, c.Top)
	}
	if err := c.Weights.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// Event is the wire shape of a submitted engagement event.
type Event struct {
	EventID       string `json:"event_id"`
	ParticipantID string `json:"participant_id"`
	Kind          string `json:"kind"`
	TS            string `json:"ts"`
}

// Stats holds submission counters for one run.
type Stats struct {
	Generated    int
	Accepted     int
	Duplicate    int
	Rejected     int
	Failed       int
	Backpressure int // 429 responses, including ones later retried
	Submit       time.Duration
	Settle       time.Duration
}

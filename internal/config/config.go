// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Load layers a YAML file and the environment on top of those defaults.
// - Structural problems are reported as ErrInvalidConfig; domain rules on
//   weights, shares and splits are enforced when Scorer and Engine are built.
package config

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/okian/stagepay/internal/domain/competition"
	"github.com/okian/stagepay/internal/domain/royalty"
)

// Store drivers.
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat is text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// EventQueueSize bounds the in-memory ingestion queue.
	EventQueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of ingestion workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize bounds the event ID cache; zero keeps every ID.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxStandingsLimit caps GET /competitions/{id}/standings?limit.
	MaxStandingsLimit int `koanf:"max_standings_limit"`

	// StoreDriver selects memory or sqlite; SQLitePath is the database file.
	StoreDriver string `koanf:"store_driver"`
	SQLitePath  string `koanf:"sqlite_path"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`

	ScoreWeights             map[string]float64 `koanf:"score_weights"`
	PrizeShares              []float64          `koanf:"prize_shares"`
	RenormalizeOnShortRoster bool               `koanf:"renormalize_on_short_roster"`

	RoyaltySplit        royalty.Split         `koanf:"royalty_split"`
	Rates               royalty.Rates         `koanf:"rates"`
	LicensingAdjustment royalty.Adjustment    `koanf:"licensing_adjustment"`
	MinimumPayout       float64               `koanf:"minimum_payout"`
	LicensingTiers      map[string]TierConfig `koanf:"licensing_tiers"`
}

// TierConfig is the fee schedule of one licensing tier.
type TierConfig struct {
	MinimumFee float64 `koanf:"minimum_fee"`
	PerUseFee  float64 `koanf:"per_use_fee"`
}

// New creates a Config holding the reference defaults.
func New(_ context.Context) *Config {
	weights := competition.DefaultWeights()
	scoreWeights := make(map[string]float64, len(weights))
	for k, v := range weights {
		scoreWeights[string(k)] = v
	}

	tiers := make(map[string]TierConfig)
	for name, t := range royalty.DefaultTiers() {
		tiers[string(name)] = TierConfig{MinimumFee: t.MinimumFee, PerUseFee: t.PerUseFee}
	}

	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		EventQueueSize:      100_000,
		WorkerCount:         runtime.NumCPU() * 2,
		DedupeSize:          500_000,
		MaxStandingsLimit:   100,
		StoreDriver:         StoreMemory,
		SQLitePath:          "data/stagepay.db",
		ShutdownTimeout:     10 * time.Second,
		ScoreWeights:        scoreWeights,
		PrizeShares:         competition.DefaultShares(),
		RoyaltySplit:        royalty.DefaultSplit(),
		Rates:               royalty.DefaultRates(),
		LicensingAdjustment: royalty.DefaultLicensingAdjustment(),
		MinimumPayout:       1000,
		LicensingTiers:      tiers,
	}
}

// Validate rejects structurally unusable settings.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.EventQueueSize <= 0:
		return fmt.Errorf("%w: queue_size must be positive, got %d", ErrInvalidConfig, c.EventQueueSize)
	case c.WorkerCount <= 0:
		return fmt.Errorf("%w: worker_count must be positive, got %d", ErrInvalidConfig, c.WorkerCount)
	case c.DedupeSize < 0:
		return fmt.Errorf("%w: dedupe_size must not be negative, got %d", ErrInvalidConfig, c.DedupeSize)
	case c.MaxStandingsLimit <= 0:
		return fmt.Errorf("%w: max_standings_limit must be positive, got %d", ErrInvalidConfig, c.MaxStandingsLimit)
	case c.ShutdownTimeout <= 0:
		return fmt.Errorf("%w: shutdown_timeout must be positive", ErrInvalidConfig)
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log_format must be text or json, got %q", ErrInvalidConfig, c.LogFormat)
	}

	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if strings.TrimSpace(c.SQLitePath) == "" {
			return fmt.Errorf("%w: sqlite_path is required for the sqlite store", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: store_driver must be memory or sqlite, got %q", ErrInvalidConfig, c.StoreDriver)
	}
	return nil
}

// Scorer builds the competition scorer from the scoring settings.
func (c *Config) Scorer() (*competition.Scorer, error) {
	weights, err := competition.ParseWeights(c.ScoreWeights)
	if err != nil {
		return nil, err
	}
	return competition.NewScorer(
		competition.WithWeights(weights),
		competition.WithShares(c.PrizeShares),
		competition.WithRenormalize(c.RenormalizeOnShortRoster),
	)
}

// Engine builds the royalty engine from the royalty settings.
func (c *Config) Engine() (*royalty.Engine, error) {
	tiers := make(royalty.Tiers, len(c.LicensingTiers))
	for name, t := range c.LicensingTiers {
		n := royalty.TierName(strings.ToLower(strings.TrimSpace(name)))
		tiers[n] = royalty.Tier{Name: n, MinimumFee: t.MinimumFee, PerUseFee: t.PerUseFee}
	}
	return royalty.NewEngine(
		royalty.WithSplit(c.RoyaltySplit),
		royalty.WithRates(c.Rates),
		royalty.WithProfile(royalty.RevenueLicensing, c.LicensingAdjustment),
		royalty.WithMinimumPayout(c.MinimumPayout),
		royalty.WithTiers(tiers),
	)
}

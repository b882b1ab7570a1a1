package competition

import (
	"math"

	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/validation"
)

// shareTolerance absorbs float noise when checking that shares sum to <= 1.
const shareTolerance = 1e-9

// DefaultShares returns the reference split {0.5, 0.3, 0.2} for ranks 1-3.
func DefaultShares() []float64 {
	return []float64{0.5, 0.3, 0.2}
}

// ValidateShares checks that shares is non-empty, every share is in [0,1]
// and the total does not exceed 1.
func ValidateShares(shares []float64) error {
	const op = "competition.validate_shares"
	if len(shares) == 0 {
		return validation.New(op, "shares", "at least one rank share is required")
	}
	var total float64
	for i, s := range shares {
		if math.IsNaN(s) || s < 0 || s > 1 {
			return validation.Newf(op, "shares", "share for rank %d must be within [0,1], got %v", i+1, s)
		}
		total += s
	}
	if total > 1+shareTolerance {
		return validation.Newf(op, "shares", "shares sum to %v, must not exceed 1", total)
	}
	return nil
}

// Allocation is the prize distribution for the top ranks of a competition.
type Allocation struct {
	Pool    float64
	Winners []model.Winner
	// Distributed is the sum of all winner prizes.
	Distributed model.Money
	// Forfeited is the configured share of the pool that went unpaid because
	// the roster was shorter than the number of shares.
	Forfeited model.Money
}

// AllocateOption tunes AllocatePrizes.
type AllocateOption func(*allocateConfig)

type allocateConfig struct {
	renormalize bool
}

// WithRenormalizeOnShortRoster rescales the shares of the ranks that exist
// so that the full configured share total is paid out when the roster is
// shorter than the share list. Off by default: missing ranks forfeit.
func WithRenormalizeOnShortRoster(on bool) AllocateOption {
	return func(c *allocateConfig) {
		c.renormalize = on
	}
}

// AllocatePrizes pays rank i (0-based) pool*shares[i] for the first
// len(shares) entries of ranked. It has no side effects.
func AllocatePrizes(ranked Ranking, pool float64, shares []float64, opts ...AllocateOption) (Allocation, error) {
	const op = "competition.allocate_prizes"

	if math.IsNaN(pool) || math.IsInf(pool, 0) || pool < 0 {
		return Allocation{}, validation.Newf(op, "pool", "prize pool must be a non-negative number, got %v", pool)
	}
	if err := ValidateShares(shares); err != nil {
		return Allocation{}, err
	}

	var cfg allocateConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	n := min(len(shares), len(ranked))

	var total, used float64
	for i, s := range shares {
		total += s
		if i < n {
			used += s
		}
	}

	scale := 1.0
	if cfg.renormalize && n < len(shares) && used > 0 {
		scale = total / used
	}

	winners := make([]model.Winner, 0, n)
	var distributed float64
	for i := 0; i < n; i++ {
		share := shares[i] * scale
		amount := pool * share
		winners = append(winners, model.Winner{
			Rank:          i + 1,
			ParticipantID: ranked[i].ParticipantID,
			Score:         ranked[i].Score,
			Share:         share,
			Prize:         model.NewMoney(amount),
		})
		distributed += amount
	}

	forfeited := pool*total - distributed
	if forfeited < 0 {
		forfeited = 0
	}

	return Allocation{
		Pool:        pool,
		Winners:     winners,
		Distributed: model.NewMoney(distributed),
		Forfeited:   model.NewMoney(forfeited),
	}, nil
}

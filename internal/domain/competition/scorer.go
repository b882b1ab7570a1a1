package competition

import (
	"github.com/okian/stagepay/internal/domain/model"
)

// Option applies a configuration option to the Scorer.
type Option func(*Scorer)

// WithWeights sets the per-kind event weights.
func WithWeights(w Weights) Option {
	return func(s *Scorer) {
		if w != nil {
			s.weights = w.clone()
		}
	}
}

// WithShares sets the prize share per rank.
func WithShares(shares []float64) Option {
	return func(s *Scorer) {
		if len(shares) > 0 {
			s.shares = append([]float64(nil), shares...)
		}
	}
}

// WithRenormalize controls short-roster handling, see WithRenormalizeOnShortRoster.
func WithRenormalize(on bool) Option {
	return func(s *Scorer) {
		s.renormalize = on
	}
}

// Scorer binds ComputeScores and AllocatePrizes to injected configuration.
// It holds no state between calls.
type Scorer struct {
	weights     Weights
	shares      []float64
	renormalize bool
}

// NewScorer creates a scorer with the reference weights and shares unless
// overridden, and validates the result.
func NewScorer(opts ...Option) (*Scorer, error) {
	s := &Scorer{
		weights: DefaultWeights(),
		shares:  DefaultShares(),
	}

	for _, opt := range opts {
		opt(s)
	}

	if err := s.weights.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateShares(s.shares); err != nil {
		return nil, err
	}
	return s, nil
}

// Score ranks roster by the configured weights.
func (s *Scorer) Score(roster []string, events []model.EngagementEvent) (Ranking, error) {
	return ComputeScores(roster, events, s.weights)
}

// Allocate splits pool across the top ranks using the configured shares.
func (s *Scorer) Allocate(ranked Ranking, pool float64) (Allocation, error) {
	return AllocatePrizes(ranked, pool, s.shares, WithRenormalizeOnShortRoster(s.renormalize))
}

// Weights returns a copy of the configured weights.
func (s *Scorer) Weights() Weights { return s.weights.clone() }

// Shares returns a copy of the configured rank shares.
func (s *Scorer) Shares() []float64 { return append([]float64(nil), s.shares...) }

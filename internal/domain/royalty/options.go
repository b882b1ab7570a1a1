package royalty

import "time"

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithSplit sets the split used when a caller supplies none.
func WithSplit(s Split) Option {
	return func(e *Engine) {
		e.split = s
	}
}

// WithRates sets the per-unit revenue rates.
func WithRates(r Rates) Option {
	return func(e *Engine) {
		e.rates = r
	}
}

// WithProfile sets the split adjustment for one revenue kind.
func WithProfile(kind RevenueKind, adj Adjustment) Option {
	return func(e *Engine) {
		e.profiles[kind] = adj
	}
}

// WithTiers replaces the licensing fee table.
func WithTiers(t Tiers) Option {
	return func(e *Engine) {
		if len(t) > 0 {
			e.tiers = make(Tiers, len(t))
			for k, v := range t {
				e.tiers[k] = v
			}
		}
	}
}

// WithMinimumPayout sets the balance an artist must reach to be paid.
func WithMinimumPayout(amount float64) Option {
	return func(e *Engine) {
		e.minimumPayout = amount
	}
}

// WithClock injects the time source used when callers pass no reference time.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

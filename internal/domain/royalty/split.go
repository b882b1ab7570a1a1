// Package royalty computes artist earnings from streams, subscriptions and
// licensing deals, and guards the split configuration those payouts use.
//
// Functions in this package are pure. The Engine type binds them to injected
// configuration and a clock; it keeps no state between calls.
package royalty

import (
	"math"

	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/validation"
)

// SplitTolerance is how far a split's total may drift from 1.0.
const SplitTolerance = 1e-3

// Split assigns revenue shares to the four parties of a release.
type Split struct {
	Artist   float64 `json:"artist" koanf:"artist"`
	Producer float64 `json:"producer" koanf:"producer"`
	Label    float64 `json:"label" koanf:"label"`
	Platform float64 `json:"platform" koanf:"platform"`
}

// DefaultSplit returns the reference split 70/15/5/10.
func DefaultSplit() Split {
	return Split{Artist: 0.70, Producer: 0.15, Label: 0.05, Platform: 0.10}
}

// Total returns the sum of all four shares.
func (s Split) Total() float64 {
	return s.Artist + s.Producer + s.Label + s.Platform
}

// ValidateSplit is the gate every split passes before it is used or stored:
// each share must be within [0,1] and the total within SplitTolerance of 1.
func ValidateSplit(s Split) error {
	const op = "royalty.validate_split"
	parties := []struct {
		name  string
		value float64
	}{
		{"artist", s.Artist},
		{"producer", s.Producer},
		{"label", s.Label},
		{"platform", s.Platform},
	}
	for _, p := range parties {
		if math.IsNaN(p.value) || p.value < 0 || p.value > 1 {
			return validation.Newf(op, "split."+p.name, "share must be within [0,1], got %v", p.value)
		}
	}
	if total := s.Total(); math.Abs(total-1) > SplitTolerance {
		return validation.Newf(op, "split", "shares sum to %.4f, want 1.0", total)
	}
	return nil
}

// Distribution is revenue divided across all four parties.
type Distribution struct {
	Artist   model.Money `json:"artist"`
	Producer model.Money `json:"producer"`
	Label    model.Money `json:"label"`
	Platform model.Money `json:"platform"`
}

// DistributeRevenue divides totalRevenue by split.
func DistributeRevenue(totalRevenue float64, split Split) (Distribution, error) {
	const op = "royalty.distribute_revenue"
	if err := checkAmount(op, "total_revenue", totalRevenue); err != nil {
		return Distribution{}, err
	}
	if err := ValidateSplit(split); err != nil {
		return Distribution{}, err
	}
	return Distribution{
		Artist:   model.NewMoney(totalRevenue * split.Artist),
		Producer: model.NewMoney(totalRevenue * split.Producer),
		Label:    model.NewMoney(totalRevenue * split.Label),
		Platform: model.NewMoney(totalRevenue * split.Platform),
	}, nil
}

// checkAmount rejects negative, NaN and infinite monetary inputs.
func checkAmount(op, field string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return validation.Newf(op, field, "must be a non-negative number, got %v", v)
	}
	return nil
}

// checkFraction rejects values outside [0,1].
func checkFraction(op, field string, v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return validation.Newf(op, field, "must be within [0,1], got %v", v)
	}
	return nil
}

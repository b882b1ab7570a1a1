package royalty

import (
	"math"

	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/validation"
)

// Reference rates.
const (
	defaultFreeStreamRate    = 0.003
	defaultPremiumStreamRate = 0.010
	defaultSubscriptionShare = 0.30
)

// Rates are the per-unit revenue rates of the platform.
type Rates struct {
	FreeStream    float64 `json:"free_stream" koanf:"free_stream"`
	PremiumStream float64 `json:"premium_stream" koanf:"premium_stream"`
	// SubscriptionShare is the fraction of a subscription fee that flows to
	// the artists played during the period.
	SubscriptionShare float64 `json:"subscription_share" koanf:"subscription_share"`
}

// DefaultRates returns free 0.003, premium 0.010 and a 30% subscription share.
func DefaultRates() Rates {
	return Rates{
		FreeStream:        defaultFreeStreamRate,
		PremiumStream:     defaultPremiumStreamRate,
		SubscriptionShare: defaultSubscriptionShare,
	}
}

// Validate checks that rates are non-negative and the share is a fraction.
func (r Rates) Validate() error {
	const op = "royalty.validate_rates"
	if err := checkAmount(op, "rates.free_stream", r.FreeStream); err != nil {
		return err
	}
	if err := checkAmount(op, "rates.premium_stream", r.PremiumStream); err != nil {
		return err
	}
	return checkFraction(op, "rates.subscription_share", r.SubscriptionShare)
}

// RevenueKind identifies a revenue stream with its own split profile.
type RevenueKind string

// Revenue kinds.
const (
	RevenueStream       RevenueKind = "stream"
	RevenueSubscription RevenueKind = "subscription"
	RevenueLicensing    RevenueKind = "licensing"
)

// Adjustment shifts a base split for one revenue kind. Zero means the base
// split applies verbatim.
type Adjustment struct {
	Artist   float64 `json:"artist" koanf:"artist"`
	Producer float64 `json:"producer" koanf:"producer"`
	Label    float64 `json:"label" koanf:"label"`
	Platform float64 `json:"platform" koanf:"platform"`
}

// DefaultLicensingAdjustment boosts the artist by 10 points and trims the
// platform by 5.
func DefaultLicensingAdjustment() Adjustment {
	return Adjustment{Artist: 0.10, Platform: -0.05}
}

// Adjust applies a to s. A share pushed outside [0,1] by more than
// SplitTolerance is a validation error; rounding noise within the tolerance
// is snapped back into range.
func (s Split) Adjust(a Adjustment) (Split, error) {
	const op = "royalty.adjust_split"
	var (
		out Split
		err error
	)
	if out.Artist, err = adjustShare(op, "artist", s.Artist, a.Artist); err != nil {
		return Split{}, err
	}
	if out.Producer, err = adjustShare(op, "producer", s.Producer, a.Producer); err != nil {
		return Split{}, err
	}
	if out.Label, err = adjustShare(op, "label", s.Label, a.Label); err != nil {
		return Split{}, err
	}
	if out.Platform, err = adjustShare(op, "platform", s.Platform, a.Platform); err != nil {
		return Split{}, err
	}
	return out, nil
}

func adjustShare(op, party string, share, delta float64) (float64, error) {
	v := share + delta
	if math.IsNaN(v) || v < -SplitTolerance || v > 1+SplitTolerance {
		return 0, validation.Newf(op, party, "adjusted share %.4f is outside [0,1]", v)
	}
	return min(max(v, 0), 1), nil
}

// StreamEarning is the artist's take from one stream: the premium or free
// rate times split.Artist.
func StreamEarning(isPremium bool, rates Rates, split Split) (float64, error) {
	if err := rates.Validate(); err != nil {
		return 0, err
	}
	if err := ValidateSplit(split); err != nil {
		return 0, err
	}
	rate := rates.FreeStream
	if isPremium {
		rate = rates.PremiumStream
	}
	return rate * split.Artist, nil
}

// SubscriptionEarning is the slice of a monthly fee attributable to played
// artists. Apportioning it across several artists is the caller's job.
func SubscriptionEarning(monthlyFee, shareFraction float64) (model.Money, error) {
	const op = "royalty.subscription_earning"
	if err := checkAmount(op, "monthly_fee", monthlyFee); err != nil {
		return model.Money{}, err
	}
	if err := checkFraction(op, "subscription_share", shareFraction); err != nil {
		return model.Money{}, err
	}
	return model.NewMoney(monthlyFee * shareFraction), nil
}

// LicensingDistribution is a licensing fee split between artist and platform.
type LicensingDistribution struct {
	Artist   model.Money `json:"artist"`
	Platform model.Money `json:"platform"`
	Total    model.Money `json:"total"`
}

// DistributeLicensingRevenue splits a licensing fee using split shifted by
// the licensing profile adj.
func DistributeLicensingRevenue(fee float64, split Split, adj Adjustment) (LicensingDistribution, error) {
	const op = "royalty.distribute_licensing_revenue"
	if err := checkAmount(op, "fee", fee); err != nil {
		return LicensingDistribution{}, err
	}
	if err := ValidateSplit(split); err != nil {
		return LicensingDistribution{}, err
	}
	eff, err := split.Adjust(adj)
	if err != nil {
		return LicensingDistribution{}, err
	}
	if eff.Artist+eff.Platform > 1+SplitTolerance {
		return LicensingDistribution{}, validation.Newf(op, "licensing_profile",
			"artist and platform shares sum to %.4f after adjustment", eff.Artist+eff.Platform)
	}
	return LicensingDistribution{
		Artist:   model.NewMoney(fee * eff.Artist),
		Platform: model.NewMoney(fee * eff.Platform),
		Total:    model.NewMoney(fee),
	}, nil
}

// ProjectMonthlyEarnings estimates an artist's monthly take across their
// catalogue from average per-track streams and the premium listener mix.
func ProjectMonthlyEarnings(avgMonthlyStreams, premiumFraction float64, trackCount int, rates Rates, split Split) (model.Money, error) {
	const op = "royalty.project_monthly_earnings"
	if err := checkAmount(op, "avg_monthly_streams", avgMonthlyStreams); err != nil {
		return model.Money{}, err
	}
	if err := checkFraction(op, "premium_fraction", premiumFraction); err != nil {
		return model.Money{}, err
	}
	if trackCount < 0 {
		return model.Money{}, validation.Newf(op, "track_count", "must not be negative, got %d", trackCount)
	}
	if err := rates.Validate(); err != nil {
		return model.Money{}, err
	}
	if err := ValidateSplit(split); err != nil {
		return model.Money{}, err
	}

	tracks := float64(trackCount)
	premiumStreams := avgMonthlyStreams * premiumFraction * tracks
	freeStreams := avgMonthlyStreams * (1 - premiumFraction) * tracks
	earnings := premiumStreams*rates.PremiumStream*split.Artist + freeStreams*rates.FreeStream*split.Artist
	return model.NewMoney(earnings), nil
}

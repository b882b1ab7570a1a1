package royalty

import (
	"time"

	"github.com/okian/stagepay/internal/domain/model"
)

const defaultMinimumPayout = 1000

// Engine binds the royalty functions to validated configuration: a default
// split, rates, one split profile per revenue kind, the licensing fee table
// and a clock. All methods are safe for concurrent use.
type Engine struct {
	split         Split
	rates         Rates
	profiles      map[RevenueKind]Adjustment
	tiers         Tiers
	minimumPayout float64
	now           func() time.Time
}

// NewEngine builds an engine from the reference configuration plus opts and
// rejects any invalid setting.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		split: DefaultSplit(),
		rates: DefaultRates(),
		profiles: map[RevenueKind]Adjustment{
			RevenueStream:       {},
			RevenueSubscription: {},
			RevenueLicensing:    DefaultLicensingAdjustment(),
		},
		tiers:         DefaultTiers(),
		minimumPayout: defaultMinimumPayout,
		now:           time.Now,
	}

	for _, opt := range opts {
		opt(e)
	}

	if err := ValidateSplit(e.split); err != nil {
		return nil, err
	}
	streamSplit, err := e.split.Adjust(e.profiles[RevenueStream])
	if err != nil {
		return nil, err
	}
	if err := ValidateSplit(streamSplit); err != nil {
		return nil, err
	}
	if err := e.rates.Validate(); err != nil {
		return nil, err
	}
	if err := checkFraction("royalty.new_engine", "profiles.subscription.artist", e.subscriptionShare()); err != nil {
		return nil, err
	}
	if err := e.tiers.Validate(); err != nil {
		return nil, err
	}
	if err := checkAmount("royalty.new_engine", "minimum_payout", e.minimumPayout); err != nil {
		return nil, err
	}
	if _, err := DistributeLicensingRevenue(0, e.split, e.profiles[RevenueLicensing]); err != nil {
		return nil, err
	}
	return e, nil
}

// DefaultSplit returns the configured fallback split.
func (e *Engine) DefaultSplit() Split { return e.split }

// Rates returns the configured rates.
func (e *Engine) Rates() Rates { return e.rates }

// MinimumPayout returns the configured payout threshold.
func (e *Engine) MinimumPayout() float64 { return e.minimumPayout }

// Profile returns the split adjustment for kind.
func (e *Engine) Profile(kind RevenueKind) Adjustment { return e.profiles[kind] }

// Tiers returns a copy of the licensing fee table.
func (e *Engine) Tiers() Tiers {
	out := make(Tiers, len(e.tiers))
	for k, v := range e.tiers {
		out[k] = v
	}
	return out
}

// ValidateSplit checks split against the split invariants.
func (e *Engine) ValidateSplit(split Split) error {
	return ValidateSplit(split)
}

// StreamEarning returns the artist's per-stream take under the stream profile.
func (e *Engine) StreamEarning(isPremium bool, split Split) (float64, error) {
	if err := ValidateSplit(split); err != nil {
		return 0, err
	}
	eff, err := split.Adjust(e.profiles[RevenueStream])
	if err != nil {
		return 0, err
	}
	return StreamEarning(isPremium, e.rates, eff)
}

// DistributeRevenue divides streaming revenue across all four parties.
func (e *Engine) DistributeRevenue(totalRevenue float64, split Split) (Distribution, error) {
	if err := ValidateSplit(split); err != nil {
		return Distribution{}, err
	}
	eff, err := split.Adjust(e.profiles[RevenueStream])
	if err != nil {
		return Distribution{}, err
	}
	return DistributeRevenue(totalRevenue, eff)
}

// SubscriptionEarning applies the configured subscription share shifted by
// the artist adjustment of the subscription profile.
func (e *Engine) SubscriptionEarning(monthlyFee float64) (model.Money, error) {
	return SubscriptionEarning(monthlyFee, e.subscriptionShare())
}

// subscriptionShare is the only use of the subscription profile: the fee is
// not divided between parties, so only its artist shift applies.
func (e *Engine) subscriptionShare() float64 {
	return e.rates.SubscriptionShare + e.profiles[RevenueSubscription].Artist
}

// DistributeLicensingRevenue splits a licensing fee under the licensing profile.
func (e *Engine) DistributeLicensingRevenue(fee float64, split Split) (LicensingDistribution, error) {
	return DistributeLicensingRevenue(fee, split, e.profiles[RevenueLicensing])
}

// CalculatePayout checks payout eligibility against the configured minimum.
// A zero asOf means now.
func (e *Engine) CalculatePayout(totalRevenue, artistShare float64, asOf time.Time) (Payout, error) {
	return e.CalculatePayoutWithMinimum(totalRevenue, artistShare, e.minimumPayout, asOf)
}

// CalculatePayoutWithMinimum is CalculatePayout with an explicit threshold.
func (e *Engine) CalculatePayoutWithMinimum(totalRevenue, artistShare, minimumPayout float64, asOf time.Time) (Payout, error) {
	return CalculatePayout(totalRevenue, artistShare, minimumPayout, e.asOf(asOf))
}

// GenerateLicensingProposal builds a pending deal. A zero start means now.
func (e *Engine) GenerateLicensingProposal(tier, territory string, durationDays int, start time.Time) (LicensingDeal, error) {
	return GenerateLicensingProposal(e.tiers, tier, territory, durationDays, e.asOf(start))
}

// QuoteLicense prices a number of uses of a tier.
func (e *Engine) QuoteLicense(tier string, uses int) (model.Money, error) {
	return QuoteLicense(e.tiers, tier, uses)
}

// ProjectMonthlyEarnings estimates monthly artist earnings with the
// configured rates and the default split under the stream profile, the same
// split StreamEarning pays out on.
func (e *Engine) ProjectMonthlyEarnings(avgMonthlyStreams, premiumFraction float64, trackCount int) (model.Money, error) {
	eff, err := e.split.Adjust(e.profiles[RevenueStream])
	if err != nil {
		return model.Money{}, err
	}
	return ProjectMonthlyEarnings(avgMonthlyStreams, premiumFraction, trackCount, e.rates, eff)
}

func (e *Engine) asOf(t time.Time) time.Time {
	if t.IsZero() {
		return e.now()
	}
	return t
}

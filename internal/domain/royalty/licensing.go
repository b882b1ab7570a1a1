package royalty

import (
	"math"
	"slices"
	"strings"
	"time"

	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/validation"
)

// TierName identifies a category of commercial use.
type TierName string

// Licensing tiers.
const (
	TierCommercialVideo TierName = "commercial-video"
	TierFilmTheatrical  TierName = "film-theatrical"
	TierPodcast         TierName = "podcast"
	TierRadio           TierName = "radio"
	TierEducation       TierName = "education"
)

// DealStatus is the negotiation state of a licensing deal.
type DealStatus string

// DealPending is the status of every freshly generated proposal.
const DealPending DealStatus = "pending"

// Tier is the fee schedule of one licensing category.
type Tier struct {
	Name       TierName `json:"name"`
	MinimumFee float64  `json:"minimum_fee"`
	PerUseFee  float64  `json:"per_use_fee"`
}

// Tiers is a licensing fee table keyed by tier name.
type Tiers map[TierName]Tier

// DefaultTiers returns the reference fee table.
func DefaultTiers() Tiers {
	return Tiers{
		TierCommercialVideo: {Name: TierCommercialVideo, MinimumFee: 500, PerUseFee: 100},
		TierFilmTheatrical:  {Name: TierFilmTheatrical, MinimumFee: 2500, PerUseFee: 500},
		TierPodcast:         {Name: TierPodcast, MinimumFee: 150, PerUseFee: 25},
		TierRadio:           {Name: TierRadio, MinimumFee: 300, PerUseFee: 50},
		TierEducation:       {Name: TierEducation, MinimumFee: 50, PerUseFee: 10},
	}
}

// Validate checks every tier has non-negative fees and a matching name.
func (t Tiers) Validate() error {
	const op = "royalty.validate_tiers"
	if len(t) == 0 {
		return validation.New(op, "tiers", "at least one licensing tier is required")
	}
	for name, tier := range t {
		if strings.TrimSpace(string(name)) == "" {
			return validation.New(op, "tiers", "tier name must not be empty")
		}
		if tier.Name != name {
			return validation.Newf(op, "tiers", "tier %q is registered under %q", tier.Name, name)
		}
		if math.IsNaN(tier.MinimumFee) || tier.MinimumFee < 0 || math.IsNaN(tier.PerUseFee) || tier.PerUseFee < 0 {
			return validation.Newf(op, "tiers", "tier %q has a negative fee", name)
		}
	}
	return nil
}

// Lookup resolves a tier by name. Unknown names are an error, never a
// fallback to another tier.
func (t Tiers) Lookup(name string) (Tier, error) {
	const op = "royalty.lookup_tier"
	tier, ok := t[TierName(strings.ToLower(strings.TrimSpace(name)))]
	if !ok {
		return Tier{}, validation.Newf(op, "tier", "unknown licensing tier %q", name)
	}
	return tier, nil
}

// Names returns the tier names in sorted order.
func (t Tiers) Names() []TierName {
	names := make([]TierName, 0, len(t))
	for n := range t {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// LicensingDeal is a proposed licence for one tier, territory and term.
type LicensingDeal struct {
	Tier         TierName    `json:"tier"`
	Territory    string      `json:"territory"`
	Fee          model.Money `json:"fee"`
	DurationDays int         `json:"duration_days"`
	StartDate    time.Time   `json:"start_date"`
	EndDate      time.Time   `json:"end_date"`
	Status       DealStatus  `json:"status"`
	Terms        []string    `json:"terms"`
}

// StandardTerms returns the boilerplate attached to every proposal.
func StandardTerms() []string {
	return []string{
		"Non-exclusive licence limited to the stated territory and term",
		"Credit must name the artist and the platform on every use",
		"Usage reports are due within 30 days of each quarter end",
		"Sublicensing requires prior written consent",
		"Fees are payable within 30 days of signature",
	}
}

// GenerateLicensingProposal builds a pending deal at the tier's minimum fee
// running durationDays from start.
func GenerateLicensingProposal(tiers Tiers, tier, territory string, durationDays int, start time.Time) (LicensingDeal, error) {
	const op = "royalty.generate_licensing_proposal"
	t, err := tiers.Lookup(tier)
	if err != nil {
		return LicensingDeal{}, err
	}
	territory = strings.TrimSpace(territory)
	if territory == "" {
		return LicensingDeal{}, validation.New(op, "territory", "must not be empty")
	}
	if durationDays <= 0 {
		return LicensingDeal{}, validation.Newf(op, "duration_days", "must be positive, got %d", durationDays)
	}
	if start.IsZero() {
		return LicensingDeal{}, validation.New(op, "start_date", "a start date is required")
	}

	return LicensingDeal{
		Tier:         t.Name,
		Territory:    territory,
		Fee:          model.NewMoney(t.MinimumFee),
		DurationDays: durationDays,
		StartDate:    start,
		EndDate:      start.AddDate(0, 0, durationDays),
		Status:       DealPending,
		Terms:        StandardTerms(),
	}, nil
}

// QuoteLicense prices uses of a tier: the minimum fee covers the first use,
// each further use adds the per-use increment.
func QuoteLicense(tiers Tiers, tier string, uses int) (model.Money, error) {
	const op = "royalty.quote_license"
	t, err := tiers.Lookup(tier)
	if err != nil {
		return model.Money{}, err
	}
	if uses < 1 {
		return model.Money{}, validation.Newf(op, "uses", "must be at least 1, got %d", uses)
	}
	return model.NewMoney(t.MinimumFee + t.PerUseFee*float64(uses-1)), nil
}

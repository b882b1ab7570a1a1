package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/royalty"
	"github.com/okian/stagepay/pkg/metrics"
)

// RoyaltyEngine is the configured royalty calculator. *royalty.Engine
// satisfies it.
type RoyaltyEngine interface {
	DefaultSplit() royalty.Split
	Tiers() royalty.Tiers
	ValidateSplit(split royalty.Split) error
	StreamEarning(isPremium bool, split royalty.Split) (float64, error)
	DistributeRevenue(totalRevenue float64, split royalty.Split) (royalty.Distribution, error)
	SubscriptionEarning(monthlyFee float64) (model.Money, error)
	DistributeLicensingRevenue(fee float64, split royalty.Split) (royalty.LicensingDistribution, error)
	CalculatePayout(totalRevenue, artistShare float64, asOf time.Time) (royalty.Payout, error)
	CalculatePayoutWithMinimum(totalRevenue, artistShare, minimumPayout float64, asOf time.Time) (royalty.Payout, error)
	GenerateLicensingProposal(tier, territory string, durationDays int, start time.Time) (royalty.LicensingDeal, error)
	QuoteLicense(tier string, uses int) (model.Money, error)
	ProjectMonthlyEarnings(avgMonthlyStreams, premiumFraction float64, trackCount int) (model.Money, error)
}

// RoyaltiesHandler exposes the royalty engine.
type RoyaltiesHandler struct {
	engine RoyaltyEngine
}

// NewRoyaltiesHandler creates a new royalties handler.
func NewRoyaltiesHandler(engine RoyaltyEngine) *RoyaltiesHandler {
	return &RoyaltiesHandler{engine: engine}
}

func (h *RoyaltiesHandler) routes(r chi.Router) {
	r.Get("/licensing-tiers", MetricsMiddleware(h.HandleTiers, "royalty_tiers"))
	r.Post("/splits/validate", MetricsMiddleware(h.HandleValidateSplit, "royalty_validate_split"))
	r.Post("/stream-earnings", MetricsMiddleware(h.HandleStreamEarning, "royalty_stream_earning"))
	r.Post("/distributions", MetricsMiddleware(h.HandleDistribution, "royalty_distribution"))
	r.Post("/subscription-earnings", MetricsMiddleware(h.HandleSubscriptionEarning, "royalty_subscription_earning"))
	r.Post("/licensing-distributions", MetricsMiddleware(h.HandleLicensingDistribution, "royalty_licensing_distribution"))
	r.Post("/payouts", MetricsMiddleware(h.HandlePayout, "royalty_payout"))
	r.Post("/licensing-proposals", MetricsMiddleware(h.HandleLicensingProposal, "royalty_licensing_proposal"))
	r.Post("/licensing-quotes", MetricsMiddleware(h.HandleLicensingQuote, "royalty_licensing_quote"))
	r.Post("/projections", MetricsMiddleware(h.HandleProjection, "royalty_projection"))
}

// splitPayload requires every share. A missing share is a client error,
// never an implicit zero.
type splitPayload struct {
	Artist   *float64 `json:"artist"`
	Producer *float64 `json:"producer"`
	Label    *float64 `json:"label"`
	Platform *float64 `json:"platform"`
}

func (p *splitPayload) toSplit() (royalty.Split, error) {
	switch {
	case p.Artist == nil:
		return royalty.Split{}, missing("split.artist")
	case p.Producer == nil:
		return royalty.Split{}, missing("split.producer")
	case p.Label == nil:
		return royalty.Split{}, missing("split.label")
	case p.Platform == nil:
		return royalty.Split{}, missing("split.platform")
	}
	return royalty.Split{Artist: *p.Artist, Producer: *p.Producer, Label: *p.Label, Platform: *p.Platform}, nil
}

// splitOrDefault uses the engine's configured split when none is sent.
func (h *RoyaltiesHandler) splitOrDefault(p *splitPayload) (royalty.Split, error) {
	if p == nil {
		return h.engine.DefaultSplit(), nil
	}
	return p.toSplit()
}

func missing(field string) error {
	return fmt.Errorf("%w: missing %s", ErrBadRequest, field)
}

func required(field string, v *float64) (float64, error) {
	if v == nil {
		return 0, missing(field)
	}
	return *v, nil
}

func (h *RoyaltiesHandler) respond(w http.ResponseWriter, op, calc string, v any, err error) {
	if err != nil {
		respondError(w, op, err)
		return
	}
	metrics.RecordRoyaltyCalculation(calc)
	writeJSON(w, http.StatusOK, v)
}

// HandleTiers handles GET /royalties/licensing-tiers.
func (h *RoyaltiesHandler) HandleTiers(w http.ResponseWriter, _ *http.Request) {
	tiers := h.engine.Tiers()
	out := make([]royalty.Tier, 0, len(tiers))
	for _, name := range tiers.Names() {
		out = append(out, tiers[name])
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleValidateSplit handles POST /royalties/splits/validate.
func (h *RoyaltiesHandler) HandleValidateSplit(w http.ResponseWriter, r *http.Request) {
	const op = "api.validate_split"

	var req splitPayload
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, op, err)
		return
	}
	split, err := req.toSplit()
	if err != nil {
		respondError(w, op, err)
		return
	}
	err = h.engine.ValidateSplit(split)
	h.respond(w, op, "validate_split", map[string]any{"valid": true, "total": split.Total()}, err)
}

type streamEarningRequest struct {
	IsPremium bool          `json:"is_premium"`
	Split     *splitPayload `json:"split"`
}

// HandleStreamEarning handles POST /royalties/stream-earnings.
func (h *RoyaltiesHandler) HandleStreamEarning(w http.ResponseWriter, r *http.Request) {
	const op = "api.stream_earning"

	var req streamEarningRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, op, err)
		return
	}
	split, err := h.splitOrDefault(req.Split)
	if err != nil {
		respondError(w, op, err)
		return
	}
	earning, err := h.engine.StreamEarning(req.IsPremium, split)
	h.respond(w, op, "stream_earning", map[string]any{"is_premium": req.IsPremium, "earning": earning}, err)
}

type distributionRequest struct {
	TotalRevenue *float64      `json:"total_revenue"`
	Split        *splitPayload `json:"split"`
}

// HandleDistribution handles POST /royalties/distributions.
func (h *RoyaltiesHandler) HandleDistribution(w http.ResponseWriter, r *http.Request) {
	const op = "api.distribute_revenue"

	var req distributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, op, err)
		return
	}
	total, err := required("total_revenue", req.TotalRevenue)
	if err != nil {
		respondError(w, op, err)
		return
	}
	split, err := h.splitOrDefault(req.Split)
	if err != nil {
		respondError(w, op, err)
		return
	}
	d, err := h.engine.DistributeRevenue(total, split)
	h.respond(w, op, "distribute_revenue", d, err)
}

type subscriptionRequest struct {
	MonthlyFee *float64 `json:"monthly_fee"`
}

// HandleSubscriptionEarning handles POST /royalties/subscription-earnings.
func (h *RoyaltiesHandler) HandleSubscriptionEarning(w http.ResponseWriter, r *http.Request) {
	const op = "api.subscription_earning"

	var req subscriptionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, op, err)
		return
	}
	fee, err := required("monthly_fee", req.MonthlyFee)
	if err != nil {
		respondError(w, op, err)
		return
	}
	m, err := h.engine.SubscriptionEarning(fee)
	h.respond(w, op, "subscription_earning", map[string]any{"earning": m}, err)
}

type licensingDistributionRequest struct {
	Fee   *float64      `json:"fee"`
	Split *splitPayload `json:"split"`
}

// HandleLicensingDistribution handles POST /royalties/licensing-distributions.
func (h *RoyaltiesHandler) HandleLicensingDistribution(w http.ResponseWriter, r *http.Request) {
	const op = "api.distribute_licensing_revenue"

	var req licensingDistributionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, op, err)
		return
	}
	fee, err := required("fee", req.Fee)
	if err != nil {
		respondError(w, op, err)
		return
	}
	split, err := h.splitOrDefault(req.Split)
	if err != nil {
		respondError(w, op, err)
		return
	}
	d, err := h.engine.DistributeLicensingRevenue(fee, split)
	h.respond(w, op, "distribute_licensing_revenue", d, err)
}

type payoutRequest struct {
	TotalRevenue  *float64 `json:"total_revenue"`
	ArtistShare   *float64 `json:"artist_share"`
	MinimumPayout *float64 `json:"minimum_payout"`
	AsOf          string   `json:"as_of"`
}

// HandlePayout handles POST /royalties/payouts. Without minimum_payout the
// configured threshold applies; without as_of the current time does.
func (h *RoyaltiesHandler) HandlePayout(w http.ResponseWriter, r *http.Request) {
	const op = "api.calculate_payout"

	var req payoutRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, op, err)
		return
	}
	total, err := required("total_revenue", req.TotalRevenue)
	if err != nil {
		respondError(w, op, err)
		return
	}
	share, err := required("artist_share", req.ArtistShare)
	if err != nil {
		respondError(w, op, err)
		return
	}
	asOf, err := parseTime("as_of", req.AsOf)
	if err != nil {
		respondError(w, op, err)
		return
	}

	var p royalty.Payout
	if req.MinimumPayout != nil {
		p, err = h.engine.CalculatePayoutWithMinimum(total, share, *req.MinimumPayout, asOf)
	} else {
		p, err = h.engine.CalculatePayout(total, share, asOf)
	}
	h.respond(w, op, "calculate_payout", p, err)
}

type proposalRequest struct {
	Tier         string `json:"tier"`
	Territory    string `json:"territory"`
	DurationDays int    `json:"duration_days"`
	StartDate    string `json:"start_date"`
}

// HandleLicensingProposal handles POST /royalties/licensing-proposals.
func (h *RoyaltiesHandler) HandleLicensingProposal(w http.ResponseWriter, r *http.Request) {
	const op = "api.licensing_proposal"

	var req proposalRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, op, err)
		return
	}
	start, err := parseTime("start_date", req.StartDate)
	if err != nil {
		respondError(w, op, err)
		return
	}
	deal, err := h.engine.GenerateLicensingProposal(req.Tier, req.Territory, req.DurationDays, start)
	h.respond(w, op, "licensing_proposal", deal, err)
}

type quoteRequest struct {
	Tier string `json:"tier"`
	Uses *int   `json:"uses"`
}

// HandleLicensingQuote handles POST /royalties/licensing-quotes.
func (h *RoyaltiesHandler) HandleLicensingQuote(w http.ResponseWriter, r *http.Request) {
	const op = "api.licensing_quote"

	var req quoteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, op, err)
		return
	}
	if req.Uses == nil {
		respondError(w, op, missing("uses"))
		return
	}
	q, err := h.engine.QuoteLicense(req.Tier, *req.Uses)
	h.respond(w, op, "licensing_quote", map[string]any{"tier": req.Tier, "uses": *req.Uses, "quote": q}, err)
}

type projectionRequest struct {
	AvgMonthlyStreams *float64 `json:"avg_monthly_streams"`
	PremiumFraction   *float64 `json:"premium_fraction"`
	TrackCount        int      `json:"track_count"`
}

// HandleProjection handles POST /royalties/projections.
func (h *RoyaltiesHandler) HandleProjection(w http.ResponseWriter, r *http.Request) {
	const op = "api.project_earnings"

	var req projectionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, op, err)
		return
	}
	streams, err := required("avg_monthly_streams", req.AvgMonthlyStreams)
	if err != nil {
		respondError(w, op, err)
		return
	}
	premium, err := required("premium_fraction", req.PremiumFraction)
	if err != nil {
		respondError(w, op, err)
		return
	}
	p, err := h.engine.ProjectMonthlyEarnings(streams, premium, req.TrackCount)
	h.respond(w, op, "project_earnings", map[string]any{"projection": p}, err)
}

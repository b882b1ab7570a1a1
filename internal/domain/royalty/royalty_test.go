package royalty_test

import (
	"math"
	"testing"
	"time"

	"github.com/okian/stagepay/internal/domain/royalty"
	"github.com/okian/stagepay/internal/domain/validation"
	. "github.com/smartystreets/goconvey/convey"
)

func TestValidateSplit(t *testing.T) {
	Convey("Given the reference split 70/15/5/10", t, func() {
		split := royalty.Split{Artist: 0.7, Producer: 0.15, Label: 0.05, Platform: 0.10}

		Convey("Then it is valid", func() {
			So(royalty.ValidateSplit(split), ShouldBeNil)
			So(royalty.ValidateSplit(royalty.DefaultSplit()), ShouldBeNil)
		})
	})

	Convey("Given a split that sums to 0.95", t, func() {
		split := royalty.Split{Artist: 0.7, Producer: 0.15, Label: 0.05, Platform: 0.05}

		Convey("Then it is rejected", func() {
			err := royalty.ValidateSplit(split)
			So(validation.Is(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "0.9500")
		})
	})

	Convey("Given a split within the 1e-3 tolerance", t, func() {
		split := royalty.Split{Artist: 0.7005, Producer: 0.15, Label: 0.05, Platform: 0.10}
		So(royalty.ValidateSplit(split), ShouldBeNil)
	})

	Convey("Given splits with out-of-range shares", t, func() {
		Convey("A negative share is rejected even if the total is 1", func() {
			err := royalty.ValidateSplit(royalty.Split{Artist: 1.1, Producer: -0.1})
			So(validation.Is(err), ShouldBeTrue)
		})

		Convey("A NaN share is rejected", func() {
			err := royalty.ValidateSplit(royalty.Split{Artist: math.NaN(), Producer: 1})
			So(validation.Is(err), ShouldBeTrue)
			ve, _ := validation.As(err)
			So(ve.Field, ShouldEqual, "split.artist")
		})
	})
}

func TestStreamEarning(t *testing.T) {
	rates := royalty.Rates{PremiumStream: 0.010, FreeStream: 0.003, SubscriptionShare: 0.3}
	split := royalty.DefaultSplit()

	Convey("Given premium and free rates and a 70% artist share", t, func() {
		Convey("When a premium stream is played", func() {
			got, err := royalty.StreamEarning(true, rates, split)

			Convey("Then the artist earns 0.010 x 0.7", func() {
				So(err, ShouldBeNil)
				So(got, ShouldAlmostEqual, 0.007, 1e-12)
			})
		})

		Convey("When a free stream is played", func() {
			got, err := royalty.StreamEarning(false, rates, split)

			Convey("Then the artist earns 0.003 x 0.7", func() {
				So(err, ShouldBeNil)
				So(got, ShouldAlmostEqual, 0.0021, 1e-12)
			})
		})

		Convey("When the split is invalid", func() {
			_, err := royalty.StreamEarning(true, rates, royalty.Split{Artist: 0.5})

			Convey("Then a validation error is returned", func() {
				So(validation.Is(err), ShouldBeTrue)
			})
		})

		Convey("When a rate is negative", func() {
			_, err := royalty.StreamEarning(true, royalty.Rates{PremiumStream: -1}, split)
			So(validation.Is(err), ShouldBeTrue)
		})
	})
}

func TestDistributeRevenue(t *testing.T) {
	Convey("Given 1000 of revenue and the reference split", t, func() {
		d, err := royalty.DistributeRevenue(1000, royalty.DefaultSplit())

		Convey("Then every party receives its share", func() {
			So(err, ShouldBeNil)
			So(d.Artist.Rounded, ShouldEqual, 700)
			So(d.Producer.Rounded, ShouldEqual, 150)
			So(d.Label.Rounded, ShouldEqual, 50)
			So(d.Platform.Rounded, ShouldEqual, 100)
		})

		Convey("And the parts add back up to the total", func() {
			sum := d.Artist.Add(d.Producer).Add(d.Label).Add(d.Platform)
			So(sum.Exact, ShouldAlmostEqual, 1000, 1e-9)
		})
	})

	Convey("Given negative revenue", t, func() {
		_, err := royalty.DistributeRevenue(-5, royalty.DefaultSplit())
		So(validation.Is(err), ShouldBeTrue)
	})

	Convey("Given an invalid split", t, func() {
		_, err := royalty.DistributeRevenue(5, royalty.Split{Artist: 0.2})
		So(validation.Is(err), ShouldBeTrue)
	})
}

func TestSubscriptionEarning(t *testing.T) {
	Convey("Given a 9.99 monthly fee and a 30% share", t, func() {
		got, err := royalty.SubscriptionEarning(9.99, 0.30)

		Convey("Then 30% flows to played artists", func() {
			So(err, ShouldBeNil)
			So(got.Exact, ShouldAlmostEqual, 2.997, 1e-12)
			So(got.Rounded, ShouldEqual, 3.00)
		})
	})

	Convey("Given a share above one", t, func() {
		_, err := royalty.SubscriptionEarning(10, 1.2)
		So(validation.Is(err), ShouldBeTrue)
	})

	Convey("Given a negative fee", t, func() {
		_, err := royalty.SubscriptionEarning(-10, 0.3)
		So(validation.Is(err), ShouldBeTrue)
	})
}

func TestDistributeLicensingRevenue(t *testing.T) {
	Convey("Given a 10000 licensing fee and the reference split", t, func() {
		d, err := royalty.DistributeLicensingRevenue(10000, royalty.DefaultSplit(), royalty.DefaultLicensingAdjustment())

		Convey("Then the artist share is boosted and the platform share trimmed", func() {
			So(err, ShouldBeNil)
			So(d.Artist.Exact, ShouldAlmostEqual, 8000, 1e-6)
			So(d.Artist.Rounded, ShouldEqual, 8000)
			So(d.Platform.Exact, ShouldAlmostEqual, 500, 1e-6)
			So(d.Total.Exact, ShouldEqual, 10000)
		})
	})

	Convey("Given a zero adjustment", t, func() {
		d, err := royalty.DistributeLicensingRevenue(100, royalty.DefaultSplit(), royalty.Adjustment{})

		Convey("Then the base split applies", func() {
			So(err, ShouldBeNil)
			So(d.Artist.Exact, ShouldAlmostEqual, 70, 1e-9)
			So(d.Platform.Exact, ShouldAlmostEqual, 10, 1e-9)
		})
	})

	Convey("Given an adjustment that would pay out more than the fee", t, func() {
		_, err := royalty.DistributeLicensingRevenue(100, royalty.DefaultSplit(), royalty.Adjustment{Artist: 0.3, Platform: 0.1})
		So(validation.Is(err), ShouldBeTrue)
	})

	Convey("Given an adjustment driving a share below zero", t, func() {
		_, err := royalty.DefaultSplit().Adjust(royalty.Adjustment{Platform: -0.5, Artist: 0.2})

		Convey("Then it is rejected rather than clamped", func() {
			So(validation.Is(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "platform")
		})
	})

	Convey("Given an adjustment driving a share above one", t, func() {
		_, err := royalty.DefaultSplit().Adjust(royalty.Adjustment{Artist: 0.5})
		So(validation.Is(err), ShouldBeTrue)
		So(err.Error(), ShouldContainSubstring, "artist")
	})

	Convey("Given an adjustment off by rounding noise", t, func() {
		s, err := royalty.DefaultSplit().Adjust(royalty.Adjustment{Label: -0.0500001, Artist: 0.0500001})

		Convey("Then the share is snapped into range", func() {
			So(err, ShouldBeNil)
			So(s.Label, ShouldEqual, 0)
			So(s.Artist, ShouldAlmostEqual, 0.75, 1e-6)
		})
	})

	Convey("Given a licensing profile that overdraws the platform", t, func() {
		_, err := royalty.DistributeLicensingRevenue(100, royalty.DefaultSplit(), royalty.Adjustment{Platform: -0.2})
		So(validation.Is(err), ShouldBeTrue)
	})
}

func TestCalculatePayout(t *testing.T) {
	Convey("Given 50000 of revenue, a 70% share and a 1000 minimum on 2026-01-15", t, func() {
		asOf := time.Date(2026, time.January, 15, 9, 30, 0, 0, time.UTC)
		p, err := royalty.CalculatePayout(50000, 0.7, 1000, asOf)

		Convey("Then 35000 is payable on 2026-02-05", func() {
			So(err, ShouldBeNil)
			So(p.Amount.Rounded, ShouldEqual, 35000)
			So(p.Payable, ShouldBeTrue)
			So(p.MinimumPayout, ShouldEqual, 1000)
			So(p.NextPayoutDate, ShouldEqual, time.Date(2026, time.February, 5, 0, 0, 0, 0, time.UTC))
		})
	})

	Convey("Given a balance below the minimum", t, func() {
		p, err := royalty.CalculatePayout(1000, 0.7, 1000, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

		So(err, ShouldBeNil)
		So(p.Payable, ShouldBeFalse)
		So(p.Amount.Exact, ShouldAlmostEqual, 700, 1e-9)
	})

	Convey("Given a balance exactly at the minimum", t, func() {
		p, err := royalty.CalculatePayout(2000, 0.5, 1000, time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC))

		So(err, ShouldBeNil)
		So(p.Payable, ShouldBeTrue)
	})

	Convey("Given a December reference date", t, func() {
		p, err := royalty.CalculatePayout(10, 1, 0, time.Date(2026, time.December, 31, 23, 59, 0, 0, time.UTC))

		Convey("Then the next payout rolls over to January", func() {
			So(err, ShouldBeNil)
			So(p.NextPayoutDate, ShouldEqual, time.Date(2027, time.January, 5, 0, 0, 0, 0, time.UTC))
		})
	})

	Convey("Given a reference date in a non-UTC location", t, func() {
		loc := time.FixedZone("UTC+9", 9*60*60)
		next := royalty.NextPayoutDate(time.Date(2026, time.March, 31, 23, 0, 0, 0, loc))

		Convey("Then the calendar of that location is used", func() {
			So(next.Equal(time.Date(2026, time.April, 5, 0, 0, 0, 0, loc)), ShouldBeTrue)
		})
	})

	Convey("Given invalid inputs", t, func() {
		now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

		_, err := royalty.CalculatePayout(-1, 0.7, 1000, now)
		So(validation.Is(err), ShouldBeTrue)
		_, err = royalty.CalculatePayout(1, 1.7, 1000, now)
		So(validation.Is(err), ShouldBeTrue)
		_, err = royalty.CalculatePayout(1, 0.7, -3, now)
		So(validation.Is(err), ShouldBeTrue)
		_, err = royalty.CalculatePayout(1, 0.7, 3, time.Time{})
		So(validation.Is(err), ShouldBeTrue)
	})
}

func TestLicensingProposal(t *testing.T) {
	tiers := royalty.DefaultTiers()
	start := time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)

	Convey("Given the podcast tier for 90 days in the EU", t, func() {
		deal, err := royalty.GenerateLicensingProposal(tiers, "podcast", " EU ", 90, start)

		Convey("Then a pending deal at the minimum fee is built", func() {
			So(err, ShouldBeNil)
			So(deal.Tier, ShouldEqual, royalty.TierPodcast)
			So(deal.Territory, ShouldEqual, "EU")
			So(deal.Fee.Rounded, ShouldEqual, 150)
			So(deal.Status, ShouldEqual, royalty.DealPending)
			So(deal.StartDate, ShouldEqual, start)
			So(deal.EndDate, ShouldEqual, time.Date(2026, time.May, 30, 0, 0, 0, 0, time.UTC))
			So(deal.Terms, ShouldResemble, royalty.StandardTerms())
		})

		Convey("And generating it again yields the same deal", func() {
			again, err := royalty.GenerateLicensingProposal(tiers, "podcast", "EU", 90, start)
			So(err, ShouldBeNil)
			So(again, ShouldResemble, deal)
		})
	})

	Convey("Given an unknown tier", t, func() {
		_, err := royalty.GenerateLicensingProposal(tiers, "billboard", "US", 30, start)

		Convey("Then it is rejected instead of falling back to another tier", func() {
			So(validation.Is(err), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "billboard")
		})
	})

	Convey("Given invalid terms", t, func() {
		_, err := royalty.GenerateLicensingProposal(tiers, "radio", "", 30, start)
		So(validation.Is(err), ShouldBeTrue)
		_, err = royalty.GenerateLicensingProposal(tiers, "radio", "US", 0, start)
		So(validation.Is(err), ShouldBeTrue)
		_, err = royalty.GenerateLicensingProposal(tiers, "radio", "US", 30, time.Time{})
		So(validation.Is(err), ShouldBeTrue)
	})

	Convey("Given a quote for several uses", t, func() {
		q, err := royalty.QuoteLicense(tiers, "Commercial-Video", 4)

		Convey("Then the per-use increment is added after the first use", func() {
			So(err, ShouldBeNil)
			So(q.Rounded, ShouldEqual, 800)
		})

		Convey("And zero uses are rejected", func() {
			_, err := royalty.QuoteLicense(tiers, "radio", 0)
			So(validation.Is(err), ShouldBeTrue)
		})
	})

	Convey("Given the tier table", t, func() {
		So(tiers.Validate(), ShouldBeNil)
		So(tiers.Names(), ShouldResemble, []royalty.TierName{
			royalty.TierCommercialVideo, royalty.TierEducation, royalty.TierFilmTheatrical,
			royalty.TierPodcast, royalty.TierRadio,
		})
		bad := royalty.Tiers{royalty.TierRadio: {Name: royalty.TierPodcast}}
		So(validation.Is(bad.Validate()), ShouldBeTrue)
	})
}

func TestProjectMonthlyEarnings(t *testing.T) {
	Convey("Given 10000 streams per track, 40% premium and 5 tracks", t, func() {
		got, err := royalty.ProjectMonthlyEarnings(10000, 0.4, 5, royalty.DefaultRates(), royalty.DefaultSplit())

		Convey("Then premium and free streams are priced separately", func() {
			// premium: 20000 * 0.010 * 0.7 = 140; free: 30000 * 0.003 * 0.7 = 63
			So(err, ShouldBeNil)
			So(got.Exact, ShouldAlmostEqual, 203, 1e-9)
		})
	})

	Convey("Given zero tracks", t, func() {
		got, err := royalty.ProjectMonthlyEarnings(10000, 0.4, 0, royalty.DefaultRates(), royalty.DefaultSplit())
		So(err, ShouldBeNil)
		So(got.Exact, ShouldEqual, 0)
	})

	Convey("Given invalid inputs", t, func() {
		_, err := royalty.ProjectMonthlyEarnings(-1, 0.4, 1, royalty.DefaultRates(), royalty.DefaultSplit())
		So(validation.Is(err), ShouldBeTrue)
		_, err = royalty.ProjectMonthlyEarnings(1, 1.4, 1, royalty.DefaultRates(), royalty.DefaultSplit())
		So(validation.Is(err), ShouldBeTrue)
		_, err = royalty.ProjectMonthlyEarnings(1, 0.4, -1, royalty.DefaultRates(), royalty.DefaultSplit())
		So(validation.Is(err), ShouldBeTrue)
	})
}

package royalty

import (
	"time"

	"github.com/okian/stagepay/internal/domain/model"
	"github.com/okian/stagepay/internal/domain/validation"
)

// payoutDay is the day of the month payouts are issued.
const payoutDay = 5

// Payout is the eligibility verdict for one artist balance. Computing it
// moves no money.
type Payout struct {
	Payable        bool        `json:"payable"`
	Amount         model.Money `json:"amount"`
	MinimumPayout  float64     `json:"minimum_payout"`
	NextPayoutDate time.Time   `json:"next_payout_date"`
}

// NextPayoutDate returns the 5th of the calendar month after asOf, at
// midnight in asOf's location.
func NextPayoutDate(asOf time.Time) time.Time {
	y, m, _ := asOf.Date()
	// time.Date normalizes month 13 into January of the next year.
	return time.Date(y, m+1, payoutDay, 0, 0, 0, 0, asOf.Location())
}

// CalculatePayout computes the artist's amount and whether it clears the
// minimum payout threshold as of the given instant.
func CalculatePayout(totalRevenue, artistShare, minimumPayout float64, asOf time.Time) (Payout, error) {
	const op = "royalty.calculate_payout"
	if err := checkAmount(op, "total_revenue", totalRevenue); err != nil {
		return Payout{}, err
	}
	if err := checkFraction(op, "artist_share", artistShare); err != nil {
		return Payout{}, err
	}
	if err := checkAmount(op, "minimum_payout", minimumPayout); err != nil {
		return Payout{}, err
	}
	if asOf.IsZero() {
		return Payout{}, validation.New(op, "as_of", "a reference time is required")
	}

	amount := totalRevenue * artistShare
	return Payout{
		Payable:        amount >= minimumPayout,
		Amount:         model.NewMoney(amount),
		MinimumPayout:  minimumPayout,
		NextPayoutDate: NextPayoutDate(asOf),
	}, nil
}

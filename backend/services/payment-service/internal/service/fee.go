package service

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// FeeSchedule prices a stay per started minute, clamped to [Minimum, Maximum].
type FeeSchedule struct {
	RatePerMinute decimal.Decimal
	Minimum       decimal.Decimal
	Maximum       decimal.Decimal
}

// DefaultFeeSchedule charges 0.50 per minute with a 1.00 floor and a 10.00 flat cap.
func DefaultFeeSchedule() FeeSchedule {
	return FeeSchedule{
		RatePerMinute: decimal.RequireFromString("0.5"),
		Minimum:       decimal.NewFromInt(1),
		Maximum:       decimal.NewFromInt(10),
	}
}

// Fee returns the amount owed for a stay that began at entry, evaluated at now.
// Whole minutes are counted (floored), so entry times in the future still yield Minimum.
func (f FeeSchedule) Fee(entry, now time.Time) decimal.Decimal {
	minutes := math.Floor(now.Sub(entry).Minutes())
	fee := decimal.NewFromFloat(minutes).Mul(f.RatePerMinute)
	if fee.LessThan(f.Minimum) {
		fee = f.Minimum
	}
	if fee.GreaterThan(f.Maximum) {
		fee = f.Maximum
	}
	return fee.Round(2)
}

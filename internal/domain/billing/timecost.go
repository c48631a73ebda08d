// Package billing computes what a venue session owes: metered table time,
// line-item orders and at most one promotional discount. Every function here
// is pure; the caller reads the clock once and passes "now" in.
package billing

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	// GracePeriodMinutes of occupancy are free when a first-hour rate applies.
	GracePeriodMinutes = 15
	// FirstHourMinutes is covered by the first-hour rate.
	FirstHourMinutes = 60
)

var minutesPerHour = decimal.NewFromInt(60)

// TimeCost converts elapsed minutes into a billable amount.
//
// Without a first-hour rate the whole duration is metered at hourlyRate.
// With one, the first GracePeriodMinutes are free, anything up to
// FirstHourMinutes costs exactly firstHourRate, and the overage is metered at
// hourlyRate. Metered amounts are rounded up to whole currency units.
// Negative minutes are not rejected.
func TimeCost(minutes int64, hourlyRate decimal.Decimal, firstHourRate *decimal.Decimal) decimal.Decimal {
	if firstHourRate == nil {
		return meter(minutes, hourlyRate)
	}

	switch {
	case minutes <= GracePeriodMinutes:
		return decimal.Zero
	case minutes <= FirstHourMinutes:
		return *firstHourRate
	default:
		return firstHourRate.Add(meter(minutes-FirstHourMinutes, hourlyRate))
	}
}

// meter multiplies before dividing so whole-hour multiples stay exact.
func meter(minutes int64, hourlyRate decimal.Decimal) decimal.Decimal {
	return decimal.NewFromInt(minutes).Mul(hourlyRate).Div(minutesPerHour).Ceil()
}

// ElapsedMinutes counts completed minutes between start and end.
func ElapsedMinutes(start, end time.Time) int64 {
	return int64(end.Sub(start) / time.Minute)
}

// MinutesToHours expresses a minute count as fractional hours.
func MinutesToHours(minutes int64) decimal.Decimal {
	return decimal.NewFromInt(minutes).Div(minutesPerHour)
}

package pricing

import (
	"math"
	"time"

	"github.com/Domenick1991/rentwheels/internal/domain"
)

// Policy tunes the quote. A zero TestAmountMinor disables the test override.
type Policy struct {
	MinBillableHours int
	TestAmountMinor  int64
}

func DefaultPolicy() Policy {
	return Policy{MinBillableHours: 1}
}

type Quote struct {
	Hours       int   `json:"hours"`
	AmountMinor int64 `json:"amount_minor"`
	// OriginalAmountMinor is the rate-derived amount, kept when a test amount replaced it.
	OriginalAmountMinor int64 `json:"original_amount_minor"`
	TestMode            bool  `json:"test_mode"`
}

// BillableHours rounds the interval up to whole hours, floored at minHours.
func BillableHours(pickup, ret time.Time, minHours int) int {
	hours := int(math.Ceil(ret.Sub(pickup).Hours()))
	if hours < minHours {
		hours = minHours
	}
	return hours
}

// Calculate derives billable hours and amount. It fails only when return is not after pickup.
func Calculate(pickup, ret time.Time, hourlyRateMinor int64, p Policy) (Quote, error) {
	if !ret.After(pickup) {
		return Quote{}, domain.Validationf("return time must be after pickup time")
	}
	hours := BillableHours(pickup, ret, p.MinBillableHours)
	amount := int64(hours) * hourlyRateMinor

	q := Quote{Hours: hours, AmountMinor: amount, OriginalAmountMinor: amount}
	if p.TestAmountMinor > 0 {
		q.AmountMinor = p.TestAmountMinor
		q.TestMode = true
	}
	return q, nil
}

// RefundFor applies the tiered cancellation policy:
// under 24h to pickup refunds 50%, under 48h 75%, otherwise 100%.
func RefundFor(hoursToPickup float64, totalMinor int64) domain.RefundInfo {
	percent := 100
	switch {
	case hoursToPickup < 24:
		percent = 50
	case hoursToPickup < 48:
		percent = 75
	}
	return domain.RefundInfo{
		Percent:        percent,
		AmountMinor:    percentOf(totalMinor, percent),
		ProcessingTime: domain.RefundProcessingTime,
	}
}

// percentOf rounds half-up to the nearest minor unit, i.e. two decimals of the major unit.
func percentOf(amountMinor int64, percent int) int64 {
	return (amountMinor*int64(percent) + 50) / 100
}

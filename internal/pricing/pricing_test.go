package pricing

import (
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/rentwheels/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalculate(t *testing.T) {
	pickup := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	testCases := []struct {
		name          string
		ret           time.Time
		rate          int64
		expectedHours int
		expectedTotal int64
	}{
		{name: "whole hours", ret: pickup.Add(3 * time.Hour), rate: 100, expectedHours: 3, expectedTotal: 300},
		{name: "ceiling", ret: pickup.Add(3*time.Hour + 30*time.Minute), rate: 100, expectedHours: 4, expectedTotal: 400},
		{name: "one minute over", ret: pickup.Add(5*time.Hour + time.Minute), rate: 250, expectedHours: 6, expectedTotal: 1500},
		{name: "minimum one hour", ret: pickup.Add(10 * time.Minute), rate: 100, expectedHours: 1, expectedTotal: 100},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			q, err := Calculate(pickup, tc.ret, tc.rate, DefaultPolicy())
			require.NoError(t, err)
			assert.Equal(t, tc.expectedHours, q.Hours)
			assert.Equal(t, tc.expectedTotal, q.AmountMinor)
			assert.Equal(t, tc.expectedTotal, q.OriginalAmountMinor)
			assert.False(t, q.TestMode)
		})
	}
}

func TestCalculate_Deterministic(t *testing.T) {
	pickup := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	a, errA := Calculate(pickup, pickup.Add(7*time.Hour), 120, DefaultPolicy())
	b, errB := Calculate(pickup, pickup.Add(7*time.Hour), 120, DefaultPolicy())
	require.NoError(t, errA)
	require.NoError(t, errB)
	assert.Equal(t, a, b)
}

func TestCalculate_TestAmountOverride(t *testing.T) {
	pickup := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	q, err := Calculate(pickup, pickup.Add(4*time.Hour), 100, Policy{MinBillableHours: 1, TestAmountMinor: 100})
	require.NoError(t, err)
	assert.Equal(t, 4, q.Hours)
	assert.Equal(t, int64(100), q.AmountMinor)
	assert.Equal(t, int64(400), q.OriginalAmountMinor)
	assert.True(t, q.TestMode)
}

func TestCalculate_InvalidInterval(t *testing.T) {
	pickup := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	for _, ret := range []time.Time{pickup, pickup.Add(-time.Hour)} {
		_, err := Calculate(pickup, ret, 100, DefaultPolicy())
		assert.True(t, errors.Is(err, domain.ErrValidation))
	}
}

func TestRefundFor(t *testing.T) {
	testCases := []struct {
		hours           float64
		expectedPercent int
		expectedAmount  int64
	}{
		{hours: 1, expectedPercent: 50, expectedAmount: 500},
		{hours: 23.9, expectedPercent: 50, expectedAmount: 500},
		{hours: 24, expectedPercent: 75, expectedAmount: 750},
		{hours: 30, expectedPercent: 75, expectedAmount: 750},
		{hours: 48, expectedPercent: 100, expectedAmount: 1000},
		{hours: 72, expectedPercent: 100, expectedAmount: 1000},
	}

	for _, tc := range testCases {
		r := RefundFor(tc.hours, 1000)
		assert.Equal(t, tc.expectedPercent, r.Percent, "hours=%v", tc.hours)
		assert.Equal(t, tc.expectedAmount, r.AmountMinor, "hours=%v", tc.hours)
		assert.Equal(t, domain.RefundProcessingTime, r.ProcessingTime)
	}
}

func TestRefundFor_RoundsHalfUp(t *testing.T) {
	// 75% of 0.01 major units is 0.0075, which rounds to 0.01.
	assert.Equal(t, int64(1), RefundFor(30, 1).AmountMinor)
	// 50% of 0.03 is 0.015, which rounds up to 0.02.
	assert.Equal(t, int64(2), RefundFor(1, 3).AmountMinor)
	// 75% of 12.34 is 9.255, which rounds up to 9.26.
	assert.Equal(t, int64(926), RefundFor(30, 1234).AmountMinor)
}

package pricing

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestWeeklyInstallment(t *testing.T) {
	tests := []struct {
		name       string
		principal  decimal.Decimal
		marginRate decimal.Decimal
		tenorWeeks int
		expected   decimal.Decimal
	}{
		{
			// margin = 1,000,000 * 0.18 * 10/52 = 34,615.38
			// total  = 1,034,615.38; / 10 = 103,461.54
			name:       "1M at 18% over 10 weeks",
			principal:  decimal.NewFromInt(1_000_000),
			marginRate: decimal.NewFromInt(18),
			tenorWeeks: 10,
			expected:   decimal.NewFromFloat(103_461.54),
		},
		{
			// margin = 5,000,000 * 0.18 * 20/52 = 346,153.85
			// total  = 5,346,153.85; / 20 = 267,307.69
			name:       "5M at 18% over 20 weeks",
			principal:  decimal.NewFromInt(5_000_000),
			marginRate: decimal.NewFromInt(18),
			tenorWeeks: 20,
			expected:   decimal.NewFromFloat(267_307.69),
		},
		{
			name:       "zero margin rate divides principal evenly",
			principal:  decimal.NewFromInt(1_000_000),
			marginRate: decimal.Zero,
			tenorWeeks: 10,
			expected:   decimal.NewFromInt(100_000),
		},
		{
			name:       "non-positive tenor yields zero",
			principal:  decimal.NewFromInt(1_000_000),
			marginRate: decimal.NewFromInt(18),
			tenorWeeks: 0,
			expected:   decimal.Zero,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := WeeklyInstallment(tt.principal, tt.marginRate, tt.tenorWeeks)
			assert.True(t, got.Equal(tt.expected), "got %s, want %s", got, tt.expected)
		})
	}
}

func TestWeeklyInstallment_TotalRepaymentCoversPrincipal(t *testing.T) {
	// Margin is non-negative, so tenor * weekly must cover the principal
	// within one rounding unit per installment.
	cases := []struct {
		principal  int64
		rate       int64
		tenorWeeks int
	}{
		{1_000_000, 18, 10},
		{5_000_000, 18, 20},
		{2_500_000, 24, 40},
		{750_000, 12, 12},
		{1_000_000, 0, 10},
	}

	for _, c := range cases {
		principal := decimal.NewFromInt(c.principal)
		weekly := WeeklyInstallment(principal, decimal.NewFromInt(c.rate), c.tenorWeeks)
		total := weekly.Mul(decimal.NewFromInt(int64(c.tenorWeeks)))

		tolerance := decimal.NewFromFloat(0.01).Mul(decimal.NewFromInt(int64(c.tenorWeeks)))
		assert.True(t, total.GreaterThanOrEqual(principal.Sub(tolerance)),
			"principal=%d rate=%d tenor=%d: total %s does not cover principal",
			c.principal, c.rate, c.tenorWeeks, total)
	}
}

func TestTotalMargin(t *testing.T) {
	margin := TotalMargin(decimal.NewFromInt(5_000_000), decimal.NewFromInt(18), 20)
	assert.True(t, margin.Round(2).Equal(decimal.NewFromFloat(346_153.85)), "got %s", margin)
}

func TestEntryPrincipal(t *testing.T) {
	got := EntryPrincipal(decimal.NewFromInt(5_000_000), 20)
	assert.True(t, got.Equal(decimal.NewFromInt(250_000)), "got %s", got)

	assert.True(t, EntryPrincipal(decimal.NewFromInt(5_000_000), 0).IsZero())
}

func TestDueDate(t *testing.T) {
	anchor := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) // a Monday

	assert.Equal(t, anchor, DueDate(anchor, 1))
	assert.Equal(t, anchor.AddDate(0, 0, 7), DueDate(anchor, 2))
	// Entry #20 falls 19 weeks after the anchor.
	assert.Equal(t, time.Date(2024, 5, 13, 0, 0, 0, 0, time.UTC), DueDate(anchor, 20))
}

func TestTransactionID(t *testing.T) {
	assert.Equal(t, "INV-WLID-000123-01", TransactionID("INV", "WLID-000123", 1))
	assert.Equal(t, "INV-WLID-000123-07", TransactionID("INV", "WLID-000123", 7))
	assert.Equal(t, "INV-WLID-000123-20", TransactionID("INV", "WLID-000123", 20))
}

func TestNextLoanID(t *testing.T) {
	tests := []struct {
		name       string
		currentMax string
		expected   string
	}{
		{"empty table starts at one", "", "WLID-000001"},
		{"increments trailing integer", "WLID-000041", "WLID-000042"},
		{"unparsable suffix falls back to zero", "WLID-LEGACY", "WLID-000001"},
		{"missing prefix still parses the number", "000099", "WLID-000100"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, NextLoanID("WLID-", tt.currentMax))
		})
	}
}

func TestValidateDSR(t *testing.T) {
	weekly := decimal.NewFromInt(250_000)
	maxDSR := decimal.NewFromInt(70)

	t.Run("within ceiling passes", func(t *testing.T) {
		result := ValidateDSR(weekly, decimal.NewFromInt(2_000_000), maxDSR, 4)
		assert.True(t, result.CalculatedDSR.Equal(decimal.NewFromInt(50)), "got %s", result.CalculatedDSR)
		assert.True(t, result.Passed)
	})

	t.Run("above ceiling fails but is advisory", func(t *testing.T) {
		result := ValidateDSR(weekly, decimal.NewFromInt(1_250_000), maxDSR, 4)
		assert.True(t, result.CalculatedDSR.Equal(decimal.NewFromInt(80)), "got %s", result.CalculatedDSR)
		assert.False(t, result.Passed)
	})

	t.Run("non-positive income never passes", func(t *testing.T) {
		result := ValidateDSR(weekly, decimal.Zero, maxDSR, 4)
		assert.True(t, result.CalculatedDSR.IsZero())
		assert.False(t, result.Passed)
	})
}

func TestOverdueDays(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, 0, OverdueDays(now.AddDate(0, 0, 3), now))
	assert.Equal(t, 5, OverdueDays(now.AddDate(0, 0, -5), now))
	assert.Equal(t, 0, OverdueDays(now, now))
}

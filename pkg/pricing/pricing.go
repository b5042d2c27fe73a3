package pricing

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

var (
	hundred      = decimal.NewFromInt(100)
	weeksPerYear = decimal.NewFromInt(52)
)

// TotalMargin computes the flat margin over the whole tenor.
// Formula: principal * (annualMarginRatePercent/100) * (tenorWeeks/52)
func TotalMargin(principal, annualMarginRatePercent decimal.Decimal, tenorWeeks int) decimal.Decimal {
	weeks := decimal.NewFromInt(int64(tenorWeeks))
	return principal.Mul(annualMarginRatePercent).Div(hundred).Mul(weeks).Div(weeksPerYear)
}

// WeeklyInstallment computes the flat-rate weekly installment amount.
// Formula: (principal + totalMargin) / tenorWeeks, rounded to 2 decimal places.
// The margin is computed once on the original principal and pro-rated by
// weeks-over-52; this is flat pricing, not reducing-balance amortization.
// Returns zero for a non-positive tenor; callers reject that input upfront.
func WeeklyInstallment(principal, annualMarginRatePercent decimal.Decimal, tenorWeeks int) decimal.Decimal {
	if tenorWeeks <= 0 {
		return decimal.Zero
	}
	total := principal.Add(TotalMargin(principal, annualMarginRatePercent, tenorWeeks))
	return total.Div(decimal.NewFromInt(int64(tenorWeeks))).Round(2)
}

// EntryPrincipal computes the flat per-entry principal component: the same
// value repeated for every entry. The last entry may drift by up to one
// rounding unit; no remainder correction is applied.
func EntryPrincipal(principal decimal.Decimal, tenorWeeks int) decimal.Decimal {
	if tenorWeeks <= 0 {
		return decimal.Zero
	}
	return principal.Div(decimal.NewFromInt(int64(tenorWeeks))).Round(2)
}

// DueDate returns the scheduled due date for a 1-based sequence number.
// Entry #1 falls on the anchor date itself, each following entry 7 days later.
func DueDate(anchor time.Time, sequenceNo int) time.Time {
	return anchor.AddDate(0, 0, 7*(sequenceNo-1))
}

// TransactionID renders the deterministic installment reference:
// prefix + "-" + loan id + "-" + zero-padded sequence number.
func TransactionID(prefix, loanID string, sequenceNo int) string {
	return fmt.Sprintf("%s-%s-%02d", prefix, loanID, sequenceNo)
}

// NextLoanID derives the next human-readable loan id from the current maximum.
// The prefix is stripped, the trailing integer parsed (0 if absent or
// unparsable), incremented, and re-rendered as prefix + zero-padded counter.
// Uniqueness is enforced by the store, not here.
func NextLoanID(prefix, currentMax string) string {
	n := 0
	if currentMax != "" {
		raw := strings.TrimPrefix(currentMax, prefix)
		if parsed, err := strconv.Atoi(raw); err == nil {
			n = parsed
		}
	}
	return fmt.Sprintf("%s%06d", prefix, n+1)
}

// DSRResult is the advisory outcome of the debt-service-ratio check. A failing
// result never blocks the application; the approver retains override
// authority.
type DSRResult struct {
	CalculatedDSR decimal.Decimal `json:"calculated_dsr"`
	MaxDSRPercent decimal.Decimal `json:"max_dsr_percent"`
	Passed        bool            `json:"passed"`
}

// ValidateDSR computes the debt service ratio from the weekly installment.
// The monthly equivalent uses a fixed weeks-per-month approximation (4 in the
// observed configuration), not calendar months.
func ValidateDSR(weeklyInstallment, declaredMonthlyIncome, maxDSRPercent decimal.Decimal, weeksPerMonth int) DSRResult {
	result := DSRResult{MaxDSRPercent: maxDSRPercent}
	if declaredMonthlyIncome.LessThanOrEqual(decimal.Zero) {
		return result
	}

	monthly := weeklyInstallment.Mul(decimal.NewFromInt(int64(weeksPerMonth)))
	result.CalculatedDSR = monthly.Div(declaredMonthlyIncome).Mul(hundred).Round(2)
	result.Passed = result.CalculatedDSR.LessThanOrEqual(maxDSRPercent)
	return result
}

// OverdueDays returns how many whole days past due a date is, clamped at 0
// for dates in the future.
func OverdueDays(dueDate, now time.Time) int {
	days := int(now.Sub(dueDate).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}

package service

import (
	"time"

	"github.com/segyhp/microcredit-engine/internal/domain"
	"github.com/segyhp/microcredit-engine/pkg/pricing"

	"github.com/shopspring/decimal"
)

// DeriveRepaymentStatus computes the per-loan repayment view from its
// schedule. Precedence: fully paid wins over everything, then an overdue
// earliest-unpaid entry marks the loan defaulted, otherwise it is ongoing.
// Callers only invoke this for loans whose schedule has been generated.
func DeriveRepaymentStatus(loan *domain.LoanApplication, entries []*domain.InstallmentScheduleEntry, now time.Time) *domain.RepaymentProgress {
	progress := &domain.RepaymentProgress{
		LoanID:            loan.LoanID,
		TenorWeeks:        loan.TenorWeeks,
		WeeklyInstallment: reportedWeekly(loan, entries),
		Status:            domain.RepaymentOngoing,
	}

	var nextUnpaid *domain.InstallmentScheduleEntry
	for _, entry := range entries {
		if entry.IsPaid() {
			progress.PaidCount++
			continue
		}
		if nextUnpaid == nil || entry.DueDate.Before(nextUnpaid.DueDate) {
			nextUnpaid = entry
		}
	}

	if loan.TenorWeeks > 0 && progress.PaidCount >= loan.TenorWeeks {
		progress.Status = domain.RepaymentPaidOff
		return progress
	}

	if nextUnpaid != nil {
		due := nextUnpaid.DueDate
		progress.NextDueDate = &due
		progress.NextSequenceNo = nextUnpaid.SequenceNo
		progress.NextAmount = nextUnpaid.Amount()

		if due.Before(now) {
			progress.Status = domain.RepaymentDefaulted
		}
	}

	return progress
}

// reportedWeekly prefers the true average of the scheduled amounts; the
// pricing formula is only the pre-approval fallback.
func reportedWeekly(loan *domain.LoanApplication, entries []*domain.InstallmentScheduleEntry) decimal.Decimal {
	if len(entries) == 0 || loan.TenorWeeks <= 0 {
		return pricing.WeeklyInstallment(loan.Principal, loan.MarginRate, loan.TenorWeeks)
	}

	total := decimal.Zero
	for _, entry := range entries {
		total = total.Add(entry.Amount())
	}
	return total.Div(decimal.NewFromInt(int64(loan.TenorWeeks))).Round(2)
}

package service

import (
	"time"

	"github.com/segyhp/microcredit-engine/internal/domain"
	"github.com/segyhp/microcredit-engine/pkg/pricing"

	"github.com/google/uuid"
)

// GenerateSchedule produces the full set of installment entries for an
// approved loan: one entry per tenor week, due dates 7 days apart anchored on
// the process date, flat principal split with the margin as the remainder of
// the weekly installment. The caller persists the batch atomically together
// with the approval itself.
func GenerateSchedule(loan *domain.LoanApplication, txnPrefix string, anchor time.Time) []*domain.InstallmentScheduleEntry {
	weekly := pricing.WeeklyInstallment(loan.Principal, loan.MarginRate, loan.TenorWeeks)
	entryPrincipal := pricing.EntryPrincipal(loan.Principal, loan.TenorWeeks)
	entryMargin := weekly.Sub(entryPrincipal)

	if loan.ProcessDate != nil {
		anchor = *loan.ProcessDate
	}

	entries := make([]*domain.InstallmentScheduleEntry, 0, loan.TenorWeeks)
	for seq := 1; seq <= loan.TenorWeeks; seq++ {
		entries = append(entries, &domain.InstallmentScheduleEntry{
			ID:            uuid.New(),
			TransactionID: pricing.TransactionID(txnPrefix, loan.LoanID, seq),
			LoanID:        loan.LoanID,
			SequenceNo:    seq,
			DueDate:       pricing.DueDate(anchor, seq),
			Principal:     entryPrincipal,
			Margin:        entryMargin,
			PaymentDate:   nil,
			VisitStatus:   domain.VisitStatusNotVisited,
			CreatedAt:     anchor,
		})
	}

	return entries
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Visit statuses for collector field visits.
const (
	VisitStatusVisited    = "VISITED"
	VisitStatusNotVisited = "NOT_VISITED"
)

// Repayment classifications derived from a loan's schedule.
const (
	RepaymentOngoing   = "ONGOING"
	RepaymentPaidOff   = "PAID_OFF"
	RepaymentDefaulted = "DEFAULTED"
)

// InstallmentScheduleEntry is one scheduled weekly payment (jadwal angsuran).
// TransactionID is deterministic: prefix + parent loan id + zero-padded
// sequence number.
type InstallmentScheduleEntry struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	TransactionID string          `json:"transaction_id" db:"transaction_id"`
	LoanID        string          `json:"loan_id" db:"loan_id"`
	SequenceNo    int             `json:"sequence_no" db:"sequence_no"`
	DueDate       time.Time       `json:"due_date" db:"due_date"`
	Principal     decimal.Decimal `json:"principal" db:"principal"`
	Margin        decimal.Decimal `json:"margin" db:"margin"`
	PaymentDate   *time.Time      `json:"payment_date" db:"payment_date"`
	Note          string          `json:"note" db:"note"`
	VisitStatus   string          `json:"visit_status" db:"visit_status"`
	ProofFileRef  *string         `json:"proof_file_ref" db:"proof_file_ref"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// IsPaid reports whether the installment has been collected.
func (e *InstallmentScheduleEntry) IsPaid() bool {
	return e.PaymentDate != nil
}

// Amount is the total due for the entry.
func (e *InstallmentScheduleEntry) Amount() decimal.Decimal {
	return e.Principal.Add(e.Margin)
}

// RepaymentProgress is the derived per-loan repayment view.
type RepaymentProgress struct {
	LoanID            string          `json:"loan_id"`
	PaidCount         int             `json:"paid_count"`
	TenorWeeks        int             `json:"tenor_weeks"`
	NextDueDate       *time.Time      `json:"next_due_date,omitempty"`
	NextSequenceNo    int             `json:"next_sequence_no,omitempty"`
	NextAmount        decimal.Decimal `json:"next_amount"`
	WeeklyInstallment decimal.Decimal `json:"weekly_installment"`
	Status            string          `json:"status"`
}

type RecordPaymentRequest struct {
	// Zero means "earliest unpaid entry".
	SequenceNo   int        `json:"sequence_no"`
	PaymentDate  *time.Time `json:"payment_date"`
	Note         string     `json:"note"`
	Visited      bool       `json:"visited"`
	ProofFileRef *string    `json:"proof_file_ref"`
}

type RecordPaymentResponse struct {
	Entry    *InstallmentScheduleEntry `json:"entry"`
	Progress *RepaymentProgress        `json:"progress"`
}

type ScheduleResponse struct {
	LoanID   string                      `json:"loan_id"`
	Schedule []*InstallmentScheduleEntry `json:"schedule"`
}

package repository

import (
	"context"
	"time"

	"github.com/segyhp/microcredit-engine/internal/domain"
)

// LoanRepository defines the interface for loan application data operations
type LoanRepository interface {
	// Create allocates the next loan id and inserts the application together
	// with its family records, all inside one transaction
	Create(ctx context.Context, loan *domain.LoanApplication, family []domain.FamilyMember) error

	// Update rewrites the application row and replaces the family records
	// (delete-then-reinsert) inside one transaction
	Update(ctx context.Context, loan *domain.LoanApplication, family []domain.FamilyMember) error

	// GetByLoanID retrieves a loan by its human-readable id
	GetByLoanID(ctx context.Context, loanID string) (*domain.LoanApplication, error)

	// Transition flips sub-status with a guard on the current value; a failed
	// guard surfaces as a conflict, never a silent overwrite
	Transition(ctx context.Context, loanID, fromSub, toSub, status, actor, desc string, processDate *time.Time) error

	// Approve performs the guarded PENDING -> APPROVED flip and bulk-inserts
	// the schedule entries in the same transaction
	Approve(ctx context.Context, loan *domain.LoanApplication, entries []*domain.InstallmentScheduleEntry) error

	// Correct rewrites an approved-but-unsettled application, replaces its
	// family records and soft-deletes its schedule en masse, all in one
	// transaction; the loan drops back to PENDING for re-approval
	Correct(ctx context.Context, loan *domain.LoanApplication, family []domain.FamilyMember) error

	// ListActive returns all loans counted in the portfolio
	ListActive(ctx context.Context) ([]*domain.LoanApplication, error)

	// GetFamilyByLoanID returns the dependent records for a loan
	GetFamilyByLoanID(ctx context.Context, loanID string) ([]domain.FamilyMember, error)
}

// ScheduleRepository defines the interface for installment schedule operations
type ScheduleRepository interface {
	// GetByLoanID retrieves the schedule ordered by sequence number
	GetByLoanID(ctx context.Context, loanID string) ([]*domain.InstallmentScheduleEntry, error)

	// ListByLoanIDs retrieves entries for a set of loans in one query
	ListByLoanIDs(ctx context.Context, loanIDs []string) ([]*domain.InstallmentScheduleEntry, error)

	// RecordPayment writes the payment fields of an unpaid entry; paid entries
	// are immutable apart from note and visit status
	RecordPayment(ctx context.Context, entry *domain.InstallmentScheduleEntry) error

	// UpdateNoteAndVisit edits the only mutable fields of a paid entry
	UpdateNoteAndVisit(ctx context.Context, transactionID, note, visitStatus string) error

	// SoftDeleteByLoanID retires a loan's entries en masse on pre-settlement
	// correction
	SoftDeleteByLoanID(ctx context.Context, loanID string) error
}

// ProductRepository defines the interface for product reference data
type ProductRepository interface {
	// GetByCode retrieves a credit product by its code
	GetByCode(ctx context.Context, code string) (*domain.Product, error)
}

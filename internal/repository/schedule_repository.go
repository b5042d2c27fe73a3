package repository

import (
	"context"
	"time"

	"github.com/segyhp/microcredit-engine/internal/domain"
	customError "github.com/segyhp/microcredit-engine/pkg/errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type scheduleRepository struct {
	db *sqlx.DB
}

func NewScheduleRepository(db *sqlx.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

const entryColumns = `
	id, transaction_id, loan_id, sequence_no, due_date, principal, margin,
	payment_date, note, visit_status, proof_file_ref, created_at
`

func (r *scheduleRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.InstallmentScheduleEntry, error) {
	query := `
		SELECT ` + entryColumns + `
		FROM installment_schedule
		WHERE loan_id = $1 AND deleted_at IS NULL
		ORDER BY sequence_no
	`

	var entries []*domain.InstallmentScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, loanID); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *scheduleRepository) ListByLoanIDs(ctx context.Context, loanIDs []string) ([]*domain.InstallmentScheduleEntry, error) {
	if len(loanIDs) == 0 {
		return nil, nil
	}

	query := `
		SELECT ` + entryColumns + `
		FROM installment_schedule
		WHERE loan_id = ANY($1) AND deleted_at IS NULL
		ORDER BY loan_id, sequence_no
	`

	var entries []*domain.InstallmentScheduleEntry
	if err := r.db.SelectContext(ctx, &entries, query, pq.Array(loanIDs)); err != nil {
		return nil, err
	}

	return entries, nil
}

func (r *scheduleRepository) RecordPayment(ctx context.Context, entry *domain.InstallmentScheduleEntry) error {
	// The payment_date IS NULL guard keeps paid entries immutable.
	query := `
		UPDATE installment_schedule
		SET payment_date = $2, note = $3, visit_status = $4, proof_file_ref = $5
		WHERE transaction_id = $1 AND payment_date IS NULL AND deleted_at IS NULL
	`

	result, err := r.db.ExecContext(ctx, query,
		entry.TransactionID,
		entry.PaymentDate,
		entry.Note,
		entry.VisitStatus,
		entry.ProofFileRef,
	)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return customError.WrapEntryAlreadyPaid(entry.TransactionID)
	}

	return nil
}

func (r *scheduleRepository) UpdateNoteAndVisit(ctx context.Context, transactionID, note, visitStatus string) error {
	query := `
		UPDATE installment_schedule
		SET note = $2, visit_status = $3
		WHERE transaction_id = $1 AND deleted_at IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, transactionID, note, visitStatus)
	return err
}

func (r *scheduleRepository) SoftDeleteByLoanID(ctx context.Context, loanID string) error {
	query := `
		UPDATE installment_schedule
		SET deleted_at = $2
		WHERE loan_id = $1 AND deleted_at IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, loanID, time.Now())
	return err
}

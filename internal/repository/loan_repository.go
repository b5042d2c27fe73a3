package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/segyhp/microcredit-engine/internal/domain"
	customError "github.com/segyhp/microcredit-engine/pkg/errors"
	"github.com/segyhp/microcredit-engine/pkg/pricing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type loanRepository struct {
	db     *sqlx.DB
	prefix string
}

func NewLoanRepository(db *sqlx.DB, loanIDPrefix string) LoanRepository {
	return &loanRepository{db: db, prefix: loanIDPrefix}
}

const loanColumns = `
	id, loan_id, borrower_name, declared_income, product_code, loan_type_code,
	principal, tenor_weeks, margin_rate, admin_fee_pct, handling_fee_pct,
	membership_fee, stamp_duty, early_settle, purpose, status, sub_status,
	process_date, process_desc, calculated_dsr, dsr_passed, created_by,
	approved_by, created_at, updated_at
`

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func (r *loanRepository) Create(ctx context.Context, loan *domain.LoanApplication, family []domain.FamilyMember) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Best-effort sequential id: max-scan inside the insert transaction bounds
	// the race window; the unique constraint catches the rest.
	var currentMax string
	err = tx.GetContext(ctx, &currentMax,
		`SELECT loan_id FROM loan_applications ORDER BY loan_id DESC LIMIT 1`)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return err
	}
	loan.LoanID = pricing.NextLoanID(r.prefix, currentMax)

	query := `
		INSERT INTO loan_applications (` + loanColumns + `)
		VALUES (:id, :loan_id, :borrower_name, :declared_income, :product_code,
			:loan_type_code, :principal, :tenor_weeks, :margin_rate,
			:admin_fee_pct, :handling_fee_pct, :membership_fee, :stamp_duty,
			:early_settle, :purpose, :status, :sub_status, :process_date,
			:process_desc, :calculated_dsr, :dsr_passed, :created_by,
			:approved_by, :created_at, :updated_at)
	`
	if _, err = tx.NamedExecContext(ctx, query, loan); err != nil {
		if isUniqueViolation(err) {
			return customError.WrapLoanIDCollision(loan.LoanID)
		}
		return err
	}

	if err = insertFamily(ctx, tx, loan.LoanID, family); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *loanRepository) Update(ctx context.Context, loan *domain.LoanApplication, family []domain.FamilyMember) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := `
		UPDATE loan_applications
		SET borrower_name = :borrower_name, declared_income = :declared_income,
			product_code = :product_code, loan_type_code = :loan_type_code,
			principal = :principal, tenor_weeks = :tenor_weeks,
			margin_rate = :margin_rate, admin_fee_pct = :admin_fee_pct,
			handling_fee_pct = :handling_fee_pct, membership_fee = :membership_fee,
			stamp_duty = :stamp_duty, early_settle = :early_settle,
			purpose = :purpose, sub_status = :sub_status,
			calculated_dsr = :calculated_dsr, dsr_passed = :dsr_passed,
			updated_at = :updated_at
		WHERE loan_id = :loan_id
	`
	result, err := tx.NamedExecContext(ctx, query, loan)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return sql.ErrNoRows
	}

	// Replace-all: the family set is small and always fully supplied.
	if _, err = tx.ExecContext(ctx,
		`DELETE FROM loan_family_members WHERE loan_id = $1`, loan.LoanID); err != nil {
		return err
	}
	if err = insertFamily(ctx, tx, loan.LoanID, family); err != nil {
		return err
	}

	return tx.Commit()
}

func insertFamily(ctx context.Context, tx *sqlx.Tx, loanID string, family []domain.FamilyMember) error {
	query := `
		INSERT INTO loan_family_members (id, loan_id, name, relationship, birth_date)
		VALUES ($1, $2, $3, $4, $5)
	`
	for i := range family {
		if family[i].ID == uuid.Nil {
			family[i].ID = uuid.New()
		}
		family[i].LoanID = loanID
		_, err := tx.ExecContext(ctx, query,
			family[i].ID,
			family[i].LoanID,
			family[i].Name,
			family[i].Relationship,
			family[i].BirthDate,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *loanRepository) Correct(ctx context.Context, loan *domain.LoanApplication, family []domain.FamilyMember) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.NamedExecContext(ctx, `
		UPDATE loan_applications
		SET borrower_name = :borrower_name, declared_income = :declared_income,
			product_code = :product_code, loan_type_code = :loan_type_code,
			principal = :principal, tenor_weeks = :tenor_weeks,
			margin_rate = :margin_rate, admin_fee_pct = :admin_fee_pct,
			handling_fee_pct = :handling_fee_pct, membership_fee = :membership_fee,
			stamp_duty = :stamp_duty, early_settle = :early_settle,
			purpose = :purpose, sub_status = :sub_status,
			calculated_dsr = :calculated_dsr, dsr_passed = :dsr_passed,
			updated_at = :updated_at
		WHERE loan_id = :loan_id AND sub_status = 'APPROVED'
	`, loan)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return r.transitionConflict(ctx, loan.LoanID, domain.SubStatusApproved)
	}

	if _, err = tx.ExecContext(ctx,
		`DELETE FROM loan_family_members WHERE loan_id = $1`, loan.LoanID); err != nil {
		return err
	}
	if err = insertFamily(ctx, tx, loan.LoanID, family); err != nil {
		return err
	}

	// The correction cascades: the stale schedule is retired wholesale, never
	// entry by entry.
	if _, err = tx.ExecContext(ctx, `
		UPDATE installment_schedule
		SET deleted_at = $2
		WHERE loan_id = $1 AND deleted_at IS NULL
	`, loan.LoanID, time.Now()); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *loanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.LoanApplication, error) {
	query := `SELECT ` + loanColumns + ` FROM loan_applications WHERE loan_id = $1`

	var loan domain.LoanApplication
	if err := r.db.GetContext(ctx, &loan, query, loanID); err != nil {
		return nil, err
	}

	return &loan, nil
}

func (r *loanRepository) Transition(ctx context.Context, loanID, fromSub, toSub, status, actor, desc string, processDate *time.Time) error {
	query := `
		UPDATE loan_applications
		SET sub_status = $3, status = $4, approved_by = $5, process_desc = $6,
			process_date = COALESCE($7, process_date), updated_at = $8
		WHERE loan_id = $1 AND sub_status = $2
	`

	result, err := r.db.ExecContext(ctx, query,
		loanID, fromSub, toSub, status, actor, desc, processDate, time.Now())
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return r.transitionConflict(ctx, loanID, fromSub)
	}

	return nil
}

func (r *loanRepository) Approve(ctx context.Context, loan *domain.LoanApplication, entries []*domain.InstallmentScheduleEntry) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Status-check-then-transition guard: only one approval attempt can flip
	// the row out of PENDING.
	result, err := tx.ExecContext(ctx, `
		UPDATE loan_applications
		SET sub_status = $2, process_date = $3, process_desc = $4,
			approved_by = $5, updated_at = $6
		WHERE loan_id = $1 AND sub_status = $7
	`, loan.LoanID, domain.SubStatusApproved, loan.ProcessDate, loan.ProcessDesc,
		loan.ApprovedBy, time.Now(), domain.SubStatusPending)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return r.transitionConflict(ctx, loan.LoanID, domain.SubStatusPending)
	}

	query := `
		INSERT INTO installment_schedule
			(id, transaction_id, loan_id, sequence_no, due_date, principal,
			 margin, payment_date, note, visit_status, proof_file_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	for _, entry := range entries {
		_, err = tx.ExecContext(ctx, query,
			entry.ID,
			entry.TransactionID,
			entry.LoanID,
			entry.SequenceNo,
			entry.DueDate,
			entry.Principal,
			entry.Margin,
			entry.PaymentDate,
			entry.Note,
			entry.VisitStatus,
			entry.ProofFileRef,
			entry.CreatedAt,
		)
		if err != nil {
			// Rollback leaves the loan PENDING so the approval is retriable.
			return customError.WrapIntegrityError(loan.LoanID, err)
		}
	}

	return tx.Commit()
}

// transitionConflict distinguishes a missing loan from a lost guard race.
func (r *loanRepository) transitionConflict(ctx context.Context, loanID, required string) error {
	var current string
	err := r.db.GetContext(ctx, &current,
		`SELECT sub_status FROM loan_applications WHERE loan_id = $1`, loanID)
	if errors.Is(err, sql.ErrNoRows) {
		return customError.WrapLoanNotFound(loanID)
	}
	if err != nil {
		return err
	}
	return customError.WrapInvalidTransition(loanID, required, current)
}

func (r *loanRepository) ListActive(ctx context.Context) ([]*domain.LoanApplication, error) {
	query := `SELECT ` + loanColumns + ` FROM loan_applications WHERE status = $1 ORDER BY loan_id`

	var loans []*domain.LoanApplication
	if err := r.db.SelectContext(ctx, &loans, query, domain.LoanStatusActive); err != nil {
		return nil, err
	}

	return loans, nil
}

func (r *loanRepository) GetFamilyByLoanID(ctx context.Context, loanID string) ([]domain.FamilyMember, error) {
	query := `
		SELECT id, loan_id, name, relationship, birth_date
		FROM loan_family_members
		WHERE loan_id = $1
		ORDER BY name
	`

	var family []domain.FamilyMember
	if err := r.db.SelectContext(ctx, &family, query, loanID); err != nil {
		return nil, err
	}

	return family, nil
}

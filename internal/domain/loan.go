package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Loan statuses. Status tracks whether the contract still counts toward the
// active portfolio; SubStatus tracks the origination/servicing lifecycle.
const (
	LoanStatusActive   = "active"
	LoanStatusInactive = "inactive"
)

const (
	SubStatusDraft     = "DRAFT"
	SubStatusPending   = "PENDING"
	SubStatusApproved  = "APPROVED"
	SubStatusRejected  = "REJECTED"
	SubStatusCancelled = "CANCELLED"
	SubStatusSettled   = "SETTLED"
)

// LoanApplication represents one credit application/contract (dapem).
type LoanApplication struct {
	ID             uuid.UUID           `json:"id" db:"id"`
	LoanID         string              `json:"loan_id" db:"loan_id"`
	BorrowerName   string              `json:"borrower_name" db:"borrower_name"`
	DeclaredIncome decimal.Decimal     `json:"declared_income" db:"declared_income"`
	ProductCode    string              `json:"product_code" db:"product_code"`
	LoanTypeCode   string              `json:"loan_type_code" db:"loan_type_code"`
	Principal      decimal.Decimal     `json:"principal" db:"principal"`
	TenorWeeks     int                 `json:"tenor_weeks" db:"tenor_weeks"`
	MarginRate     decimal.Decimal     `json:"margin_rate" db:"margin_rate"`
	AdminFeePct    decimal.Decimal     `json:"admin_fee_pct" db:"admin_fee_pct"`
	HandlingFeePct decimal.Decimal     `json:"handling_fee_pct" db:"handling_fee_pct"`
	MembershipFee  decimal.Decimal     `json:"membership_fee" db:"membership_fee"`
	StampDuty      decimal.Decimal     `json:"stamp_duty" db:"stamp_duty"`
	EarlySettle    decimal.NullDecimal `json:"early_settle" db:"early_settle"`
	Purpose        string              `json:"purpose" db:"purpose"`
	Status         string              `json:"status" db:"status"`
	SubStatus      string              `json:"sub_status" db:"sub_status"`
	ProcessDate    *time.Time          `json:"process_date" db:"process_date"`
	ProcessDesc    string              `json:"process_desc" db:"process_desc"`
	CalculatedDSR  decimal.Decimal     `json:"calculated_dsr" db:"calculated_dsr"`
	DSRPassed      bool                `json:"dsr_passed" db:"dsr_passed"`
	CreatedBy      string              `json:"created_by" db:"created_by"`
	ApprovedBy     string              `json:"approved_by" db:"approved_by"`
	CreatedAt      time.Time           `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at" db:"updated_at"`
}

// IsTerminal reports whether the sub-status forbids any further schedule
// mutation.
func (l *LoanApplication) IsTerminal() bool {
	switch l.SubStatus {
	case SubStatusSettled, SubStatusRejected, SubStatusCancelled:
		return true
	}
	return false
}

// FamilyMember is a dependent record attached to an application. The full set
// is always supplied by the caller and replaced wholesale on edit.
type FamilyMember struct {
	ID           uuid.UUID `json:"id" db:"id"`
	LoanID       string    `json:"loan_id" db:"loan_id"`
	Name         string    `json:"name" db:"name"`
	Relationship string    `json:"relationship" db:"relationship"`
	BirthDate    time.Time `json:"birth_date" db:"birth_date"`
}

// Product is underwriting reference data for a credit product.
type Product struct {
	Code          string          `json:"code" db:"code"`
	Name          string          `json:"name" db:"name"`
	MaxDSRPercent decimal.Decimal `json:"max_dsr_percent" db:"max_dsr_percent"`
}

// DTOs for requests and responses

type FamilyMemberRequest struct {
	Name         string    `json:"name" validate:"required"`
	Relationship string    `json:"relationship" validate:"required"`
	BirthDate    time.Time `json:"birth_date"`
}

type CreateLoanRequest struct {
	BorrowerName   string                `json:"borrower_name" validate:"required"`
	DeclaredIncome decimal.Decimal       `json:"declared_income" validate:"required"`
	ProductCode    string                `json:"product_code" validate:"required"`
	LoanTypeCode   string                `json:"loan_type_code" validate:"required"`
	Principal      decimal.Decimal       `json:"principal" validate:"required"`
	TenorWeeks     int                   `json:"tenor_weeks" validate:"required,gt=0"`
	MarginRate     decimal.Decimal       `json:"margin_rate"`
	AdminFeePct    decimal.Decimal       `json:"admin_fee_pct"`
	HandlingFeePct decimal.Decimal       `json:"handling_fee_pct"`
	MembershipFee  decimal.Decimal       `json:"membership_fee"`
	StampDuty      decimal.Decimal       `json:"stamp_duty"`
	Purpose        string                `json:"purpose"`
	Family         []FamilyMemberRequest `json:"family" validate:"dive"`
	CreatedBy      string                `json:"created_by" validate:"required"`
}

type UpdateLoanRequest struct {
	BorrowerName   string                `json:"borrower_name" validate:"required"`
	DeclaredIncome decimal.Decimal       `json:"declared_income" validate:"required"`
	ProductCode    string                `json:"product_code" validate:"required"`
	LoanTypeCode   string                `json:"loan_type_code" validate:"required"`
	Principal      decimal.Decimal       `json:"principal" validate:"required"`
	TenorWeeks     int                   `json:"tenor_weeks" validate:"required,gt=0"`
	MarginRate     decimal.Decimal       `json:"margin_rate"`
	AdminFeePct    decimal.Decimal       `json:"admin_fee_pct"`
	HandlingFeePct decimal.Decimal       `json:"handling_fee_pct"`
	MembershipFee  decimal.Decimal       `json:"membership_fee"`
	StampDuty      decimal.Decimal       `json:"stamp_duty"`
	Purpose        string                `json:"purpose"`
	Family         []FamilyMemberRequest `json:"family" validate:"dive"`
}

type SimulateLoanRequest struct {
	Principal      decimal.Decimal `json:"principal" validate:"required"`
	TenorWeeks     int             `json:"tenor_weeks" validate:"required,gt=0"`
	MarginRate     decimal.Decimal `json:"margin_rate"`
	DeclaredIncome decimal.Decimal `json:"declared_income" validate:"required"`
	ProductCode    string          `json:"product_code" validate:"required"`
}

type SimulateLoanResponse struct {
	WeeklyInstallment decimal.Decimal `json:"weekly_installment"`
	TotalMargin       decimal.Decimal `json:"total_margin"`
	TotalRepayment    decimal.Decimal `json:"total_repayment"`
	CalculatedDSR     decimal.Decimal `json:"calculated_dsr"`
	DSRPassed         bool            `json:"dsr_passed"`
	MaxDSRPercent     decimal.Decimal `json:"max_dsr_percent"`
}

type TransitionRequest struct {
	Actor       string `json:"actor" validate:"required"`
	Description string `json:"description"`
}

type CreateLoanResponse struct {
	Loan *LoanApplication `json:"loan"`
	// Advisory only: a failing DSR never blocks the save.
	DSRWarning string `json:"dsr_warning,omitempty"`
}

type ApproveLoanResponse struct {
	Loan     *LoanApplication           `json:"loan"`
	Schedule []*InstallmentScheduleEntry `json:"schedule"`
}

package errors

import (
	"errors"
	"fmt"
)

// Domain errors
var (
	ErrLoanNotFound       = errors.New("loan not found")
	ErrEntryNotFound      = errors.New("installment entry not found")
	ErrLoanIDCollision    = errors.New("loan id already taken")
	ErrInvalidTransition  = errors.New("loan is not in the required sub-status")
	ErrEntryAlreadyPaid   = errors.New("installment entry is already paid")
	ErrScheduleIncomplete = errors.New("schedule batch could not be written")
	ErrLoanTerminal       = errors.New("loan sub-status is terminal")
)

// BusinessError represents a business logic error
type BusinessError struct {
	Code    string
	Message string
	Err     error
}

func (e *BusinessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

// NewBusinessError creates a new business error
func NewBusinessError(code, message string, err error) *BusinessError {
	return &BusinessError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Error codes
const (
	ErrCodeValidation    = "VALIDATION_ERROR"
	ErrCodeConflict      = "CONFLICT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeIntegrity     = "INTEGRITY_ERROR"
	ErrCodeDatabaseError = "DATABASE_ERROR"
	ErrCodeCacheError    = "CACHE_ERROR"
)

// CodeOf extracts the business error code, or DATABASE_ERROR for untyped
// failures.
func CodeOf(err error) string {
	var be *BusinessError
	if errors.As(err, &be) {
		return be.Code
	}
	return ErrCodeDatabaseError
}

// Wrap common errors with business context
func WrapValidation(message string) *BusinessError {
	return NewBusinessError(ErrCodeValidation, message, nil)
}

func WrapLoanNotFound(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Loan with ID %s not found", loanID),
		ErrLoanNotFound,
	)
}

func WrapEntryNotFound(loanID string, sequenceNo int) *BusinessError {
	return NewBusinessError(
		ErrCodeNotFound,
		fmt.Sprintf("Installment %d for loan %s not found", sequenceNo, loanID),
		ErrEntryNotFound,
	)
}

func WrapLoanIDCollision(loanID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConflict,
		fmt.Sprintf("Loan ID %s was taken by a concurrent writer, retry with a fresh id", loanID),
		ErrLoanIDCollision,
	)
}

func WrapInvalidTransition(loanID, required, actual string) *BusinessError {
	return NewBusinessError(
		ErrCodeConflict,
		fmt.Sprintf("Loan %s must be %s to proceed, found %s", loanID, required, actual),
		ErrInvalidTransition,
	)
}

func WrapEntryAlreadyPaid(transactionID string) *BusinessError {
	return NewBusinessError(
		ErrCodeConflict,
		fmt.Sprintf("Installment %s is already paid; only note and visit status may change", transactionID),
		ErrEntryAlreadyPaid,
	)
}

func WrapLoanTerminal(loanID, subStatus string) *BusinessError {
	return NewBusinessError(
		ErrCodeConflict,
		fmt.Sprintf("Loan %s is %s, no further schedule mutation allowed", loanID, subStatus),
		ErrLoanTerminal,
	)
}

func WrapIntegrityError(loanID string, err error) *BusinessError {
	return NewBusinessError(
		ErrCodeIntegrity,
		fmt.Sprintf("Schedule batch for loan %s rolled back, loan left pre-approval", loanID),
		errors.Join(ErrScheduleIncomplete, err),
	)
}

func WrapDatabaseError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeDatabaseError,
		"database operation failed",
		err,
	)
}

func WrapCacheError(err error) *BusinessError {
	return NewBusinessError(
		ErrCodeCacheError,
		"Cache operation failed",
		err,
	)
}

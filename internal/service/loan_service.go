package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/segyhp/microcredit-engine/internal/config"
	"github.com/segyhp/microcredit-engine/internal/domain"
	"github.com/segyhp/microcredit-engine/internal/repository"
	customError "github.com/segyhp/microcredit-engine/pkg/errors"
	"github.com/segyhp/microcredit-engine/pkg/pricing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

type LoanService struct {
	loanRepo     repository.LoanRepository
	scheduleRepo repository.ScheduleRepository
	productRepo  repository.ProductRepository
	redis        *redis.Client
	config       *config.Config
	now          func() time.Time
}

func NewLoanService(
	loanRepo repository.LoanRepository,
	scheduleRepo repository.ScheduleRepository,
	productRepo repository.ProductRepository,
	redis *redis.Client,
	config *config.Config,
) *LoanService {
	return &LoanService{
		loanRepo:     loanRepo,
		scheduleRepo: scheduleRepo,
		productRepo:  productRepo,
		redis:        redis,
		config:       config,
		now:          time.Now,
	}
}

// validateTerms rejects unpriceable inputs before any persistence attempt.
func validateTerms(principal decimal.Decimal, tenorWeeks int, marginRate decimal.Decimal) error {
	if principal.LessThanOrEqual(decimal.Zero) {
		return customError.WrapValidation("principal must be greater than zero")
	}
	if tenorWeeks <= 0 {
		return customError.WrapValidation("tenor must be greater than zero weeks")
	}
	if marginRate.IsNegative() {
		return customError.WrapValidation("margin rate must not be negative")
	}
	return nil
}

func (s *LoanService) getProduct(ctx context.Context, code string) (*domain.Product, error) {
	product, err := s.productRepo.GetByCode(ctx, code)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapValidation(fmt.Sprintf("unknown product %q", code))
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return product, nil
}

// Simulate prices an application without persisting anything: weekly
// installment plus the advisory DSR check against the product ceiling.
func (s *LoanService) Simulate(ctx context.Context, request *domain.SimulateLoanRequest) (*domain.SimulateLoanResponse, error) {
	if err := validateTerms(request.Principal, request.TenorWeeks, request.MarginRate); err != nil {
		return nil, err
	}

	product, err := s.getProduct(ctx, request.ProductCode)
	if err != nil {
		return nil, err
	}

	weekly := pricing.WeeklyInstallment(request.Principal, request.MarginRate, request.TenorWeeks)
	margin := pricing.TotalMargin(request.Principal, request.MarginRate, request.TenorWeeks)
	dsr := pricing.ValidateDSR(weekly, request.DeclaredIncome, product.MaxDSRPercent, s.config.Business.WeeksPerMonth)

	return &domain.SimulateLoanResponse{
		WeeklyInstallment: weekly,
		TotalMargin:       margin.Round(2),
		TotalRepayment:    request.Principal.Add(margin).Round(2),
		CalculatedDSR:     dsr.CalculatedDSR,
		DSRPassed:         dsr.Passed,
		MaxDSRPercent:     dsr.MaxDSRPercent,
	}, nil
}

// Create stores a new DRAFT application. The loan id is allocated inside the
// insert transaction; an id collision comes back as a retryable conflict.
func (s *LoanService) Create(ctx context.Context, request *domain.CreateLoanRequest) (*domain.CreateLoanResponse, error) {
	if err := validateTerms(request.Principal, request.TenorWeeks, request.MarginRate); err != nil {
		return nil, err
	}

	product, err := s.getProduct(ctx, request.ProductCode)
	if err != nil {
		return nil, err
	}

	weekly := pricing.WeeklyInstallment(request.Principal, request.MarginRate, request.TenorWeeks)
	dsr := pricing.ValidateDSR(weekly, request.DeclaredIncome, product.MaxDSRPercent, s.config.Business.WeeksPerMonth)

	now := s.now()
	loan := &domain.LoanApplication{
		ID:             uuid.New(),
		BorrowerName:   request.BorrowerName,
		DeclaredIncome: request.DeclaredIncome,
		ProductCode:    request.ProductCode,
		LoanTypeCode:   request.LoanTypeCode,
		Principal:      request.Principal,
		TenorWeeks:     request.TenorWeeks,
		MarginRate:     request.MarginRate,
		AdminFeePct:    request.AdminFeePct,
		HandlingFeePct: request.HandlingFeePct,
		MembershipFee:  request.MembershipFee,
		StampDuty:      request.StampDuty,
		Purpose:        request.Purpose,
		Status:         domain.LoanStatusActive,
		SubStatus:      domain.SubStatusDraft,
		CalculatedDSR:  dsr.CalculatedDSR,
		DSRPassed:      dsr.Passed,
		CreatedBy:      request.CreatedBy,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if err := s.loanRepo.Create(ctx, loan, familyFromRequests(request.Family)); err != nil {
		return nil, wrapRepoError(err)
	}

	response := &domain.CreateLoanResponse{Loan: loan}
	if !dsr.Passed {
		// Advisory only: the approver keeps override authority.
		response.DSRWarning = fmt.Sprintf(
			"calculated DSR %s%% exceeds product maximum %s%%",
			dsr.CalculatedDSR, product.MaxDSRPercent)
	}
	return response, nil
}

// Update edits an application before settlement. Pre-approval edits rewrite
// the row in place; editing an approved loan is a correction that retires the
// schedule and drops the loan back to PENDING for re-approval.
func (s *LoanService) Update(ctx context.Context, loanID string, request *domain.UpdateLoanRequest) (*domain.LoanApplication, error) {
	if err := validateTerms(request.Principal, request.TenorWeeks, request.MarginRate); err != nil {
		return nil, err
	}

	loan, err := s.get(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.IsTerminal() {
		return nil, customError.WrapLoanTerminal(loanID, loan.SubStatus)
	}

	product, err := s.getProduct(ctx, request.ProductCode)
	if err != nil {
		return nil, err
	}

	weekly := pricing.WeeklyInstallment(request.Principal, request.MarginRate, request.TenorWeeks)
	dsr := pricing.ValidateDSR(weekly, request.DeclaredIncome, product.MaxDSRPercent, s.config.Business.WeeksPerMonth)

	loan.BorrowerName = request.BorrowerName
	loan.DeclaredIncome = request.DeclaredIncome
	loan.ProductCode = request.ProductCode
	loan.LoanTypeCode = request.LoanTypeCode
	loan.Principal = request.Principal
	loan.TenorWeeks = request.TenorWeeks
	loan.MarginRate = request.MarginRate
	loan.AdminFeePct = request.AdminFeePct
	loan.HandlingFeePct = request.HandlingFeePct
	loan.MembershipFee = request.MembershipFee
	loan.StampDuty = request.StampDuty
	loan.Purpose = request.Purpose
	loan.CalculatedDSR = dsr.CalculatedDSR
	loan.DSRPassed = dsr.Passed
	loan.UpdatedAt = s.now()

	if loan.SubStatus == domain.SubStatusApproved {
		loan.SubStatus = domain.SubStatusPending
		if err := s.loanRepo.Correct(ctx, loan, familyFromRequests(request.Family)); err != nil {
			return nil, wrapRepoError(err)
		}
		s.invalidateReportCache(ctx)
		return loan, nil
	}

	if err := s.loanRepo.Update(ctx, loan, familyFromRequests(request.Family)); err != nil {
		return nil, wrapRepoError(err)
	}
	return loan, nil
}

// Submit moves a draft to the approval queue.
func (s *LoanService) Submit(ctx context.Context, loanID string, request *domain.TransitionRequest) error {
	err := s.loanRepo.Transition(ctx, loanID,
		domain.SubStatusDraft, domain.SubStatusPending,
		domain.LoanStatusActive, request.Actor, request.Description, nil)
	return wrapRepoError(err)
}

// Approve flips a PENDING loan to APPROVED and generates its schedule in the
// same transaction. A lost race against a concurrent approval surfaces as a
// conflict; a mid-batch insert failure rolls the whole approval back.
func (s *LoanService) Approve(ctx context.Context, loanID string, request *domain.TransitionRequest) (*domain.ApproveLoanResponse, error) {
	loan, err := s.get(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.SubStatus != domain.SubStatusPending {
		return nil, customError.WrapInvalidTransition(loanID, domain.SubStatusPending, loan.SubStatus)
	}
	if err := validateTerms(loan.Principal, loan.TenorWeeks, loan.MarginRate); err != nil {
		return nil, err
	}

	processDate := s.now()
	loan.ProcessDate = &processDate
	loan.ProcessDesc = request.Description
	loan.ApprovedBy = request.Actor
	loan.SubStatus = domain.SubStatusApproved

	entries := GenerateSchedule(loan, s.config.Business.TxnIDPrefix, processDate)

	if err := s.loanRepo.Approve(ctx, loan, entries); err != nil {
		return nil, wrapRepoError(err)
	}

	s.invalidateReportCache(ctx)

	return &domain.ApproveLoanResponse{Loan: loan, Schedule: entries}, nil
}

// Reject declines a pending application.
func (s *LoanService) Reject(ctx context.Context, loanID string, request *domain.TransitionRequest) error {
	processDate := s.now()
	err := s.loanRepo.Transition(ctx, loanID,
		domain.SubStatusPending, domain.SubStatusRejected,
		domain.LoanStatusInactive, request.Actor, request.Description, &processDate)
	return wrapRepoError(err)
}

// Cancel withdraws an application before approval.
func (s *LoanService) Cancel(ctx context.Context, loanID string, request *domain.TransitionRequest) error {
	loan, err := s.get(ctx, loanID)
	if err != nil {
		return err
	}
	if loan.SubStatus != domain.SubStatusDraft && loan.SubStatus != domain.SubStatusPending {
		return customError.WrapInvalidTransition(loanID, domain.SubStatusPending, loan.SubStatus)
	}

	processDate := s.now()
	err = s.loanRepo.Transition(ctx, loanID,
		loan.SubStatus, domain.SubStatusCancelled,
		domain.LoanStatusInactive, request.Actor, request.Description, &processDate)
	return wrapRepoError(err)
}

// RecordPayment applies one payment event to a schedule entry: the earliest
// unpaid entry unless a sequence number is given. A paid entry only accepts
// note and visit-status edits. Full repayment settles the loan.
func (s *LoanService) RecordPayment(ctx context.Context, loanID string, request *domain.RecordPaymentRequest) (*domain.RecordPaymentResponse, error) {
	loan, err := s.get(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.IsTerminal() {
		return nil, customError.WrapLoanTerminal(loanID, loan.SubStatus)
	}
	if loan.SubStatus != domain.SubStatusApproved {
		return nil, customError.WrapInvalidTransition(loanID, domain.SubStatusApproved, loan.SubStatus)
	}

	entries, err := s.scheduleRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	entry := selectEntry(entries, request.SequenceNo)
	if entry == nil {
		return nil, customError.WrapEntryNotFound(loanID, request.SequenceNo)
	}

	visitStatus := domain.VisitStatusNotVisited
	if request.Visited {
		visitStatus = domain.VisitStatusVisited
	}

	if entry.IsPaid() {
		if request.PaymentDate != nil {
			return nil, customError.WrapEntryAlreadyPaid(entry.TransactionID)
		}
		entry.Note = request.Note
		entry.VisitStatus = visitStatus
		if err := s.scheduleRepo.UpdateNoteAndVisit(ctx, entry.TransactionID, entry.Note, entry.VisitStatus); err != nil {
			return nil, customError.WrapDatabaseError(err)
		}
		return &domain.RecordPaymentResponse{
			Entry:    entry,
			Progress: DeriveRepaymentStatus(loan, entries, s.now()),
		}, nil
	}

	paymentDate := s.now()
	if request.PaymentDate != nil {
		paymentDate = *request.PaymentDate
	}
	entry.PaymentDate = &paymentDate
	entry.Note = request.Note
	entry.VisitStatus = visitStatus
	entry.ProofFileRef = request.ProofFileRef

	if err := s.scheduleRepo.RecordPayment(ctx, entry); err != nil {
		return nil, wrapRepoError(err)
	}

	progress := DeriveRepaymentStatus(loan, entries, s.now())
	if progress.Status == domain.RepaymentPaidOff {
		err := s.loanRepo.Transition(ctx, loanID,
			domain.SubStatusApproved, domain.SubStatusSettled,
			domain.LoanStatusInactive, loan.ApprovedBy, "fully repaid", nil)
		if err != nil {
			return nil, wrapRepoError(err)
		}
	}

	s.invalidateReportCache(ctx)

	return &domain.RecordPaymentResponse{Entry: entry, Progress: progress}, nil
}

// Get returns the application with its family records.
func (s *LoanService) Get(ctx context.Context, loanID string) (*domain.LoanApplication, []domain.FamilyMember, error) {
	loan, err := s.get(ctx, loanID)
	if err != nil {
		return nil, nil, err
	}

	family, err := s.loanRepo.GetFamilyByLoanID(ctx, loanID)
	if err != nil {
		return nil, nil, customError.WrapDatabaseError(err)
	}

	return loan, family, nil
}

// GetSchedule returns the installment schedule for a loan.
func (s *LoanService) GetSchedule(ctx context.Context, loanID string) (*domain.ScheduleResponse, error) {
	if _, err := s.get(ctx, loanID); err != nil {
		return nil, err
	}

	entries, err := s.scheduleRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	return &domain.ScheduleResponse{LoanID: loanID, Schedule: entries}, nil
}

// Status derives the repayment progress for a loan whose schedule exists.
func (s *LoanService) Status(ctx context.Context, loanID string) (*domain.RepaymentProgress, error) {
	loan, err := s.get(ctx, loanID)
	if err != nil {
		return nil, err
	}

	entries, err := s.scheduleRepo.GetByLoanID(ctx, loanID)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	if len(entries) == 0 {
		return nil, customError.WrapValidation(
			fmt.Sprintf("loan %s has no schedule yet, approve it first", loanID))
	}

	return DeriveRepaymentStatus(loan, entries, s.now()), nil
}

func (s *LoanService) get(ctx context.Context, loanID string) (*domain.LoanApplication, error) {
	loan, err := s.loanRepo.GetByLoanID(ctx, loanID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, customError.WrapLoanNotFound(loanID)
	}
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}
	return loan, nil
}

// invalidateReportCache drops the cached dashboard snapshot after a write.
// The dashboard tolerates staleness, so a cache failure is only logged
// upstream, never propagated.
func (s *LoanService) invalidateReportCache(ctx context.Context) {
	if s.redis == nil {
		return
	}
	_ = s.redis.Del(ctx, portfolioCacheKey).Err()
}

func selectEntry(entries []*domain.InstallmentScheduleEntry, sequenceNo int) *domain.InstallmentScheduleEntry {
	if sequenceNo > 0 {
		for _, entry := range entries {
			if entry.SequenceNo == sequenceNo {
				return entry
			}
		}
		return nil
	}

	for _, entry := range entries {
		if !entry.IsPaid() {
			return entry
		}
	}
	return nil
}

func familyFromRequests(requests []domain.FamilyMemberRequest) []domain.FamilyMember {
	family := make([]domain.FamilyMember, 0, len(requests))
	for _, r := range requests {
		family = append(family, domain.FamilyMember{
			ID:           uuid.New(),
			Name:         r.Name,
			Relationship: r.Relationship,
			BirthDate:    r.BirthDate,
		})
	}
	return family
}

// wrapRepoError keeps repository-typed failures intact and wraps the rest.
func wrapRepoError(err error) error {
	if err == nil {
		return nil
	}
	var be *customError.BusinessError
	if errors.As(err, &be) {
		return err
	}
	return customError.WrapDatabaseError(err)
}

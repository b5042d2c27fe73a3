package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/segyhp/microcredit-engine/internal/config"
	"github.com/segyhp/microcredit-engine/internal/domain"
	customError "github.com/segyhp/microcredit-engine/pkg/errors"
	"github.com/segyhp/microcredit-engine/tests/mocks"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 3, 9, 0, 0, 0, time.UTC)

func testConfig() *config.Config {
	return &config.Config{
		Business: config.BusinessConfig{
			LoanIDPrefix:     "WLID-",
			TxnIDPrefix:      "INV",
			NPLThresholdDays: 90,
			WeeksPerMonth:    4,
			TopOverdueLimit:  5,
			ReportCacheTTL:   5 * time.Minute,
			ChartPalette:     "#4e73df,#1cc88a,#36b9cc",
		},
	}
}

func newTestLoanService(
	loanRepo *mocks.MockLoanRepository,
	scheduleRepo *mocks.MockScheduleRepository,
	productRepo *mocks.MockProductRepository,
) *LoanService {
	return &LoanService{
		loanRepo:     loanRepo,
		scheduleRepo: scheduleRepo,
		productRepo:  productRepo,
		config:       testConfig(),
		now:          func() time.Time { return testNow },
	}
}

func pendingLoanFixture() *domain.LoanApplication {
	return &domain.LoanApplication{
		LoanID:         "WLID-000042",
		BorrowerName:   "Siti Rahma",
		DeclaredIncome: decimal.NewFromInt(2_000_000),
		ProductCode:    "MIKRO-A",
		Principal:      decimal.NewFromInt(5_000_000),
		TenorWeeks:     20,
		MarginRate:     decimal.NewFromInt(18),
		Status:         domain.LoanStatusActive,
		SubStatus:      domain.SubStatusPending,
	}
}

func TestCreate(t *testing.T) {
	product := &domain.Product{Code: "MIKRO-A", Name: "Mikro Mingguan A", MaxDSRPercent: decimal.NewFromInt(70)}

	t.Run("success stores a draft with advisory DSR", func(t *testing.T) {
		mockLoanRepo := &mocks.MockLoanRepository{}
		mockScheduleRepo := &mocks.MockScheduleRepository{}
		mockProductRepo := &mocks.MockProductRepository{}
		svc := newTestLoanService(mockLoanRepo, mockScheduleRepo, mockProductRepo)

		mockProductRepo.On("GetByCode", mock.Anything, "MIKRO-A").Return(product, nil)
		mockLoanRepo.On("Create", mock.Anything, mock.MatchedBy(func(loan *domain.LoanApplication) bool {
			return loan.SubStatus == domain.SubStatusDraft && loan.Status == domain.LoanStatusActive
		}), mock.Anything).Return(nil)

		result, err := svc.Create(context.Background(), &domain.CreateLoanRequest{
			BorrowerName:   "Siti Rahma",
			DeclaredIncome: decimal.NewFromInt(2_000_000),
			ProductCode:    "MIKRO-A",
			LoanTypeCode:   "WEEKLY",
			Principal:      decimal.NewFromInt(1_000_000),
			TenorWeeks:     10,
			MarginRate:     decimal.NewFromInt(18),
			CreatedBy:      "teller-01",
		})

		require.NoError(t, err)
		// weekly 103,461.54 * 4 / 2,000,000 = 20.69%
		assert.True(t, result.Loan.CalculatedDSR.Equal(decimal.NewFromFloat(20.69)),
			"got %s", result.Loan.CalculatedDSR)
		assert.True(t, result.Loan.DSRPassed)
		assert.Empty(t, result.DSRWarning)
		mockLoanRepo.AssertExpectations(t)
	})

	t.Run("failing DSR warns but never blocks", func(t *testing.T) {
		mockLoanRepo := &mocks.MockLoanRepository{}
		mockScheduleRepo := &mocks.MockScheduleRepository{}
		mockProductRepo := &mocks.MockProductRepository{}
		svc := newTestLoanService(mockLoanRepo, mockScheduleRepo, mockProductRepo)

		mockProductRepo.On("GetByCode", mock.Anything, "MIKRO-A").Return(product, nil)
		mockLoanRepo.On("Create", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		result, err := svc.Create(context.Background(), &domain.CreateLoanRequest{
			BorrowerName:   "Siti Rahma",
			DeclaredIncome: decimal.NewFromInt(500_000),
			ProductCode:    "MIKRO-A",
			LoanTypeCode:   "WEEKLY",
			Principal:      decimal.NewFromInt(1_000_000),
			TenorWeeks:     10,
			MarginRate:     decimal.NewFromInt(18),
			CreatedBy:      "teller-01",
		})

		require.NoError(t, err)
		assert.False(t, result.Loan.DSRPassed)
		assert.NotEmpty(t, result.DSRWarning)
		mockLoanRepo.AssertExpectations(t)
	})

	t.Run("non-positive principal is rejected before persistence", func(t *testing.T) {
		mockLoanRepo := &mocks.MockLoanRepository{}
		mockScheduleRepo := &mocks.MockScheduleRepository{}
		mockProductRepo := &mocks.MockProductRepository{}
		svc := newTestLoanService(mockLoanRepo, mockScheduleRepo, mockProductRepo)

		_, err := svc.Create(context.Background(), &domain.CreateLoanRequest{
			BorrowerName:   "Siti Rahma",
			DeclaredIncome: decimal.NewFromInt(2_000_000),
			ProductCode:    "MIKRO-A",
			Principal:      decimal.Zero,
			TenorWeeks:     10,
			MarginRate:     decimal.NewFromInt(18),
		})

		require.Error(t, err)
		assert.Equal(t, customError.ErrCodeValidation, customError.CodeOf(err))
		mockLoanRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
		mockProductRepo.AssertNotCalled(t, "GetByCode", mock.Anything, mock.Anything)
	})
}

func TestApprove(t *testing.T) {
	t.Run("success generates the full schedule in one batch", func(t *testing.T) {
		mockLoanRepo := &mocks.MockLoanRepository{}
		mockScheduleRepo := &mocks.MockScheduleRepository{}
		mockProductRepo := &mocks.MockProductRepository{}
		svc := newTestLoanService(mockLoanRepo, mockScheduleRepo, mockProductRepo)

		loan := pendingLoanFixture()
		mockLoanRepo.On("GetByLoanID", mock.Anything, "WLID-000042").Return(loan, nil)
		mockLoanRepo.On("Approve", mock.Anything, mock.MatchedBy(func(l *domain.LoanApplication) bool {
			return l.SubStatus == domain.SubStatusApproved && l.ProcessDate != nil
		}), mock.MatchedBy(func(entries []*domain.InstallmentScheduleEntry) bool {
			return len(entries) == 20
		})).Return(nil)

		result, err := svc.Approve(context.Background(), "WLID-000042", &domain.TransitionRequest{
			Actor:       "approver-01",
			Description: "verified in the field",
		})

		require.NoError(t, err)
		require.Len(t, result.Schedule, 20)
		assert.Equal(t, domain.SubStatusApproved, result.Loan.SubStatus)
		assert.Equal(t, "approver-01", result.Loan.ApprovedBy)
		require.NotNil(t, result.Loan.ProcessDate)
		assert.Equal(t, testNow, *result.Loan.ProcessDate)
		assert.Equal(t, testNow, result.Schedule[0].DueDate)
		mockLoanRepo.AssertExpectations(t)
	})

	t.Run("double approval surfaces as a conflict", func(t *testing.T) {
		mockLoanRepo := &mocks.MockLoanRepository{}
		mockScheduleRepo := &mocks.MockScheduleRepository{}
		mockProductRepo := &mocks.MockProductRepository{}
		svc := newTestLoanService(mockLoanRepo, mockScheduleRepo, mockProductRepo)

		loan := pendingLoanFixture()
		loan.SubStatus = domain.SubStatusApproved
		mockLoanRepo.On("GetByLoanID", mock.Anything, "WLID-000042").Return(loan, nil)

		_, err := svc.Approve(context.Background(), "WLID-000042", &domain.TransitionRequest{Actor: "approver-02"})

		require.Error(t, err)
		assert.Equal(t, customError.ErrCodeConflict, customError.CodeOf(err))
		mockLoanRepo.AssertNotCalled(t, "Approve", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("unknown loan is not found", func(t *testing.T) {
		mockLoanRepo := &mocks.MockLoanRepository{}
		mockScheduleRepo := &mocks.MockScheduleRepository{}
		mockProductRepo := &mocks.MockProductRepository{}
		svc := newTestLoanService(mockLoanRepo, mockScheduleRepo, mockProductRepo)

		mockLoanRepo.On("GetByLoanID", mock.Anything, "WLID-999999").Return(nil, sql.ErrNoRows)

		_, err := svc.Approve(context.Background(), "WLID-999999", &domain.TransitionRequest{Actor: "approver-01"})

		require.Error(t, err)
		assert.Equal(t, customError.ErrCodeNotFound, customError.CodeOf(err))
	})
}

func TestRecordPayment(t *testing.T) {
	paymentDate := testNow.AddDate(0, 0, -1)

	approvedLoan := func(tenor int) *domain.LoanApplication {
		loan := pendingLoanFixture()
		loan.SubStatus = domain.SubStatusApproved
		loan.TenorWeeks = tenor
		return loan
	}

	t.Run("pays the earliest unpaid entry", func(t *testing.T) {
		mockLoanRepo := &mocks.MockLoanRepository{}
		mockScheduleRepo := &mocks.MockScheduleRepository{}
		mockProductRepo := &mocks.MockProductRepository{}
		svc := newTestLoanService(mockLoanRepo, mockScheduleRepo, mockProductRepo)

		loan := approvedLoan(4)
		entries := []*domain.InstallmentScheduleEntry{
			entryFixture(1, testNow.AddDate(0, 0, -14), true),
			entryFixture(2, testNow.AddDate(0, 0, -7), false),
			entryFixture(3, testNow, false),
			entryFixture(4, testNow.AddDate(0, 0, 7), false),
		}
		mockLoanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
		mockScheduleRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(entries, nil)
		mockScheduleRepo.On("RecordPayment", mock.Anything, mock.MatchedBy(func(e *domain.InstallmentScheduleEntry) bool {
			return e.SequenceNo == 2 && e.PaymentDate != nil
		})).Return(nil)

		result, err := svc.RecordPayment(context.Background(), loan.LoanID, &domain.RecordPaymentRequest{
			PaymentDate: &paymentDate,
			Note:        "collected at kiosk",
			Visited:     true,
		})

		require.NoError(t, err)
		assert.Equal(t, 2, result.Entry.SequenceNo)
		assert.Equal(t, domain.VisitStatusVisited, result.Entry.VisitStatus)
		assert.Equal(t, 2, result.Progress.PaidCount)
		mockScheduleRepo.AssertExpectations(t)
	})

	t.Run("final payment settles the loan", func(t *testing.T) {
		mockLoanRepo := &mocks.MockLoanRepository{}
		mockScheduleRepo := &mocks.MockScheduleRepository{}
		mockProductRepo := &mocks.MockProductRepository{}
		svc := newTestLoanService(mockLoanRepo, mockScheduleRepo, mockProductRepo)

		loan := approvedLoan(2)
		entries := []*domain.InstallmentScheduleEntry{
			entryFixture(1, testNow.AddDate(0, 0, -7), true),
			entryFixture(2, testNow, false),
		}
		mockLoanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
		mockScheduleRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(entries, nil)
		mockScheduleRepo.On("RecordPayment", mock.Anything, mock.Anything).Return(nil)
		mockLoanRepo.On("Transition", mock.Anything, loan.LoanID,
			domain.SubStatusApproved, domain.SubStatusSettled,
			domain.LoanStatusInactive, mock.Anything, mock.Anything, mock.Anything).Return(nil)

		result, err := svc.RecordPayment(context.Background(), loan.LoanID, &domain.RecordPaymentRequest{})

		require.NoError(t, err)
		assert.Equal(t, domain.RepaymentPaidOff, result.Progress.Status)
		mockLoanRepo.AssertExpectations(t)
	})

	t.Run("paid entries only accept note and visit edits", func(t *testing.T) {
		mockLoanRepo := &mocks.MockLoanRepository{}
		mockScheduleRepo := &mocks.MockScheduleRepository{}
		mockProductRepo := &mocks.MockProductRepository{}
		svc := newTestLoanService(mockLoanRepo, mockScheduleRepo, mockProductRepo)

		loan := approvedLoan(4)
		entries := []*domain.InstallmentScheduleEntry{
			entryFixture(1, testNow.AddDate(0, 0, -7), true),
			entryFixture(2, testNow, false),
		}
		mockLoanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)
		mockScheduleRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(entries, nil)

		// Re-dating a paid entry is a conflict.
		_, err := svc.RecordPayment(context.Background(), loan.LoanID, &domain.RecordPaymentRequest{
			SequenceNo:  1,
			PaymentDate: &paymentDate,
		})
		require.Error(t, err)
		assert.Equal(t, customError.ErrCodeConflict, customError.CodeOf(err))

		// A note/visit edit goes through.
		mockScheduleRepo.On("UpdateNoteAndVisit", mock.Anything, entries[0].TransactionID,
			"borrower visited", domain.VisitStatusVisited).Return(nil)

		result, err := svc.RecordPayment(context.Background(), loan.LoanID, &domain.RecordPaymentRequest{
			SequenceNo: 1,
			Note:       "borrower visited",
			Visited:    true,
		})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Entry.SequenceNo)
		mockScheduleRepo.AssertExpectations(t)
	})

	t.Run("settled loans reject further payment events", func(t *testing.T) {
		mockLoanRepo := &mocks.MockLoanRepository{}
		mockScheduleRepo := &mocks.MockScheduleRepository{}
		mockProductRepo := &mocks.MockProductRepository{}
		svc := newTestLoanService(mockLoanRepo, mockScheduleRepo, mockProductRepo)

		loan := pendingLoanFixture()
		loan.SubStatus = domain.SubStatusSettled
		mockLoanRepo.On("GetByLoanID", mock.Anything, loan.LoanID).Return(loan, nil)

		_, err := svc.RecordPayment(context.Background(), loan.LoanID, &domain.RecordPaymentRequest{})

		require.Error(t, err)
		assert.Equal(t, customError.ErrCodeConflict, customError.CodeOf(err))
		mockScheduleRepo.AssertNotCalled(t, "RecordPayment", mock.Anything, mock.Anything)
	})
}

func TestSimulate(t *testing.T) {
	product := &domain.Product{Code: "MIKRO-A", MaxDSRPercent: decimal.NewFromInt(70)}

	mockLoanRepo := &mocks.MockLoanRepository{}
	mockScheduleRepo := &mocks.MockScheduleRepository{}
	mockProductRepo := &mocks.MockProductRepository{}
	svc := newTestLoanService(mockLoanRepo, mockScheduleRepo, mockProductRepo)

	mockProductRepo.On("GetByCode", mock.Anything, "MIKRO-A").Return(product, nil)

	result, err := svc.Simulate(context.Background(), &domain.SimulateLoanRequest{
		Principal:      decimal.NewFromInt(5_000_000),
		TenorWeeks:     20,
		MarginRate:     decimal.NewFromInt(18),
		DeclaredIncome: decimal.NewFromInt(4_000_000),
		ProductCode:    "MIKRO-A",
	})

	require.NoError(t, err)
	assert.True(t, result.WeeklyInstallment.Equal(decimal.NewFromFloat(267_307.69)),
		"got %s", result.WeeklyInstallment)
	assert.True(t, result.TotalMargin.Equal(decimal.NewFromFloat(346_153.85)),
		"got %s", result.TotalMargin)
	// 267,307.69 * 4 / 4,000,000 = 26.73%
	assert.True(t, result.CalculatedDSR.Equal(decimal.NewFromFloat(26.73)),
		"got %s", result.CalculatedDSR)
	assert.True(t, result.DSRPassed)
}

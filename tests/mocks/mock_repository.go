package mocks

import (
	"context"
	"time"

	"github.com/segyhp/microcredit-engine/internal/domain"

	"github.com/stretchr/testify/mock"
)

// MockLoanRepository is a mock implementation of repository.LoanRepository
type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *domain.LoanApplication, family []domain.FamilyMember) error {
	args := m.Called(ctx, loan, family)
	return args.Error(0)
}

func (m *MockLoanRepository) Update(ctx context.Context, loan *domain.LoanApplication, family []domain.FamilyMember) error {
	args := m.Called(ctx, loan, family)
	return args.Error(0)
}

func (m *MockLoanRepository) GetByLoanID(ctx context.Context, loanID string) (*domain.LoanApplication, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoanApplication), args.Error(1)
}

func (m *MockLoanRepository) Transition(ctx context.Context, loanID, fromSub, toSub, status, actor, desc string, processDate *time.Time) error {
	args := m.Called(ctx, loanID, fromSub, toSub, status, actor, desc, processDate)
	return args.Error(0)
}

func (m *MockLoanRepository) Approve(ctx context.Context, loan *domain.LoanApplication, entries []*domain.InstallmentScheduleEntry) error {
	args := m.Called(ctx, loan, entries)
	return args.Error(0)
}

func (m *MockLoanRepository) Correct(ctx context.Context, loan *domain.LoanApplication, family []domain.FamilyMember) error {
	args := m.Called(ctx, loan, family)
	return args.Error(0)
}

func (m *MockLoanRepository) ListActive(ctx context.Context) ([]*domain.LoanApplication, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.LoanApplication), args.Error(1)
}

func (m *MockLoanRepository) GetFamilyByLoanID(ctx context.Context, loanID string) ([]domain.FamilyMember, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.FamilyMember), args.Error(1)
}

// MockScheduleRepository is a mock implementation of repository.ScheduleRepository
type MockScheduleRepository struct {
	mock.Mock
}

func (m *MockScheduleRepository) GetByLoanID(ctx context.Context, loanID string) ([]*domain.InstallmentScheduleEntry, error) {
	args := m.Called(ctx, loanID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentScheduleEntry), args.Error(1)
}

func (m *MockScheduleRepository) ListByLoanIDs(ctx context.Context, loanIDs []string) ([]*domain.InstallmentScheduleEntry, error) {
	args := m.Called(ctx, loanIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.InstallmentScheduleEntry), args.Error(1)
}

func (m *MockScheduleRepository) RecordPayment(ctx context.Context, entry *domain.InstallmentScheduleEntry) error {
	args := m.Called(ctx, entry)
	return args.Error(0)
}

func (m *MockScheduleRepository) UpdateNoteAndVisit(ctx context.Context, transactionID, note, visitStatus string) error {
	args := m.Called(ctx, transactionID, note, visitStatus)
	return args.Error(0)
}

func (m *MockScheduleRepository) SoftDeleteByLoanID(ctx context.Context, loanID string) error {
	args := m.Called(ctx, loanID)
	return args.Error(0)
}

// MockProductRepository is a mock implementation of repository.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetByCode(ctx context.Context, code string) (*domain.Product, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Product), args.Error(1)
}

package service

import (
	"context"
	"encoding/json"
	"log"
	"sort"
	"time"

	"github.com/segyhp/microcredit-engine/internal/config"
	"github.com/segyhp/microcredit-engine/internal/domain"
	"github.com/segyhp/microcredit-engine/internal/repository"
	customError "github.com/segyhp/microcredit-engine/pkg/errors"
	"github.com/segyhp/microcredit-engine/pkg/pricing"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

const portfolioCacheKey = "report:portfolio"

type ReportService struct {
	loanRepo     repository.LoanRepository
	scheduleRepo repository.ScheduleRepository
	redis        *redis.Client
	config       *config.Config
	now          func() time.Time
}

func NewReportService(
	loanRepo repository.LoanRepository,
	scheduleRepo repository.ScheduleRepository,
	redis *redis.Client,
	config *config.Config,
) *ReportService {
	return &ReportService{
		loanRepo:     loanRepo,
		scheduleRepo: scheduleRepo,
		redis:        redis,
		config:       config,
		now:          time.Now,
	}
}

// Portfolio returns the dashboard aggregation. A short-lived redis snapshot
// absorbs repeated dashboard hits; the report itself is always computed from
// current loan and schedule rows, never from incremental state.
func (s *ReportService) Portfolio(ctx context.Context) (*domain.PortfolioReport, error) {
	if s.redis != nil {
		if cached, err := s.redis.Get(ctx, portfolioCacheKey).Bytes(); err == nil {
			var report domain.PortfolioReport
			if err := json.Unmarshal(cached, &report); err == nil {
				return &report, nil
			}
		}
	}

	report, err := s.Refresh(ctx)
	if err != nil {
		return nil, err
	}

	return report, nil
}

// Refresh computes the report from the store and rewrites the cache snapshot.
func (s *ReportService) Refresh(ctx context.Context) (*domain.PortfolioReport, error) {
	loans, err := s.loanRepo.ListActive(ctx)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	loanIDs := make([]string, 0, len(loans))
	for _, loan := range loans {
		loanIDs = append(loanIDs, loan.LoanID)
	}

	entries, err := s.scheduleRepo.ListByLoanIDs(ctx, loanIDs)
	if err != nil {
		return nil, customError.WrapDatabaseError(err)
	}

	entriesByLoan := make(map[string][]*domain.InstallmentScheduleEntry, len(loans))
	for _, entry := range entries {
		entriesByLoan[entry.LoanID] = append(entriesByLoan[entry.LoanID], entry)
	}

	report := aggregatePortfolio(loans, entriesByLoan, s.now(),
		s.config.Business.NPLThresholdDays,
		s.config.Business.TopOverdueLimit,
		s.config.Palette())

	if s.redis != nil {
		if payload, err := json.Marshal(report); err == nil {
			if err := s.redis.Set(ctx, portfolioCacheKey, payload, s.config.Business.ReportCacheTTL).Err(); err != nil {
				log.Printf("portfolio cache write failed: %v", customError.WrapCacheError(err))
			}
		}
	}

	return report, nil
}

// aggregatePortfolio is the read-side risk computation over the active book.
func aggregatePortfolio(
	loans []*domain.LoanApplication,
	entriesByLoan map[string][]*domain.InstallmentScheduleEntry,
	now time.Time,
	nplThresholdDays, topOverdueLimit int,
	palette []string,
) *domain.PortfolioReport {
	report := &domain.PortfolioReport{
		Aging: []domain.AgingBucket{
			{Label: domain.AgingBucketCurrent},
			{Label: domain.AgingBucket30},
			{Label: domain.AgingBucket90},
			{Label: domain.AgingBucketNPL},
		},
		GeneratedAt: now,
	}

	productIndex := make(map[string]int)
	var overdueCandidates []domain.OverdueAccount

	for _, loan := range loans {
		entries := entriesByLoan[loan.LoanID]

		paidSum := decimal.Zero
		maxOverdueDays := 0
		var nextUnpaid *domain.InstallmentScheduleEntry
		for _, entry := range entries {
			if entry.IsPaid() {
				paidSum = paidSum.Add(entry.Amount())
				continue
			}
			if days := pricing.OverdueDays(entry.DueDate, now); days > maxOverdueDays {
				maxOverdueDays = days
			}
			if nextUnpaid == nil || entry.DueDate.Before(nextUnpaid.DueDate) {
				nextUnpaid = entry
			}
		}

		// Outstanding is principal minus cash collected, not an amortized
		// balance; margin accrual is not tracked separately.
		outstanding := loan.Principal.Sub(paidSum)

		report.KPI.ActiveLoans++
		report.KPI.TotalPlafon = report.KPI.TotalPlafon.Add(loan.Principal)
		report.KPI.TotalBilled = report.KPI.TotalBilled.Add(paidSum)

		bucket := bucketFor(maxOverdueDays, nplThresholdDays)
		report.Aging[bucket].LoanCount++
		report.Aging[bucket].Outstanding = report.Aging[bucket].Outstanding.Add(outstanding)

		if maxOverdueDays > nplThresholdDays {
			report.KPI.NominalNPL = report.KPI.NominalNPL.Add(loan.Principal)
		}

		if maxOverdueDays > 0 && nextUnpaid != nil {
			overdueCandidates = append(overdueCandidates, domain.OverdueAccount{
				LoanID:         loan.LoanID,
				BorrowerName:   loan.BorrowerName,
				OverdueDays:    maxOverdueDays,
				NextSequenceNo: nextUnpaid.SequenceNo,
				NextAmount:     nextUnpaid.Amount(),
			})
		}

		idx, ok := productIndex[loan.ProductCode]
		if !ok {
			idx = len(report.ProductDistribution)
			productIndex[loan.ProductCode] = idx
			report.ProductDistribution = append(report.ProductDistribution, domain.ProductSlice{
				ProductCode: loan.ProductCode,
				Color:       palette[idx%len(palette)],
			})
		}
		report.ProductDistribution[idx].TotalPlafon =
			report.ProductDistribution[idx].TotalPlafon.Add(loan.Principal)
	}

	totalOutstanding := report.KPI.TotalPlafon.Sub(report.KPI.TotalBilled)
	if totalOutstanding.IsNegative() {
		totalOutstanding = decimal.Zero
	}
	report.KPI.TotalOutstanding = totalOutstanding

	if totalOutstanding.IsPositive() {
		report.KPI.NPLRate = report.KPI.NominalNPL.
			Div(totalOutstanding).
			Mul(decimal.NewFromInt(100)).
			Round(2)
	}

	sort.SliceStable(overdueCandidates, func(i, j int) bool {
		if overdueCandidates[i].OverdueDays != overdueCandidates[j].OverdueDays {
			return overdueCandidates[i].OverdueDays > overdueCandidates[j].OverdueDays
		}
		return overdueCandidates[i].LoanID < overdueCandidates[j].LoanID
	})
	if len(overdueCandidates) > topOverdueLimit {
		overdueCandidates = overdueCandidates[:topOverdueLimit]
	}
	report.TopOverdue = overdueCandidates

	return report
}

// bucketFor maps overdue days to an index into the fixed aging buckets.
func bucketFor(overdueDays, nplThresholdDays int) int {
	switch {
	case overdueDays == 0:
		return 0
	case overdueDays <= 30:
		return 1
	case overdueDays <= nplThresholdDays:
		return 2
	default:
		return 3
	}
}

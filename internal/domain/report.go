package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Aging bucket labels, ordered from current to non-performing.
const (
	AgingBucketCurrent = "current"
	AgingBucket30      = "1-30"
	AgingBucket90      = "31-90"
	AgingBucketNPL     = ">90"
)

// PortfolioKPI carries the headline portfolio totals.
type PortfolioKPI struct {
	ActiveLoans      int             `json:"active_loans"`
	TotalPlafon      decimal.Decimal `json:"total_plafon"`
	TotalBilled      decimal.Decimal `json:"total_billed"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
	NominalNPL       decimal.Decimal `json:"nominal_npl"`
	NPLRate          decimal.Decimal `json:"npl_rate"`
}

// AgingBucket groups loans by how many days their most-overdue unpaid
// installment has been outstanding.
type AgingBucket struct {
	Label       string          `json:"label"`
	LoanCount   int             `json:"loan_count"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// ProductSlice is one segment of the product distribution chart.
type ProductSlice struct {
	ProductCode string          `json:"product_code"`
	TotalPlafon decimal.Decimal `json:"total_plafon"`
	Color       string          `json:"color"`
}

// OverdueAccount is a collector follow-up row.
type OverdueAccount struct {
	LoanID         string          `json:"loan_id"`
	BorrowerName   string          `json:"borrower_name"`
	OverdueDays    int             `json:"overdue_days"`
	NextSequenceNo int             `json:"next_sequence_no"`
	NextAmount     decimal.Decimal `json:"next_amount"`
}

// PortfolioReport is the full dashboard payload, computed fresh from current
// loan and schedule data.
type PortfolioReport struct {
	KPI                 PortfolioKPI     `json:"kpi"`
	Aging               []AgingBucket    `json:"aging"`
	ProductDistribution []ProductSlice   `json:"product_distribution"`
	TopOverdue          []OverdueAccount `json:"top_overdue"`
	GeneratedAt         time.Time        `json:"generated_at"`
}

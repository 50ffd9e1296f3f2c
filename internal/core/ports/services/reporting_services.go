package services

import (
	"context"

	"github.com/SscSPs/cbs_ledger/internal/core/domain"
)

// ReportingService derives financial statements from current ledger state.
type ReportingService interface {
	GetTrialBalance(ctx context.Context) (*domain.TrialBalanceReport, error)

	GetBalanceSheet(ctx context.Context) (*domain.BalanceSheetReport, error)

	// GetLoanAgingReport buckets outstanding loans by days overdue. Empty buckets are omitted.
	GetLoanAgingReport(ctx context.Context) ([]domain.LoanAgingBucket, error)
}

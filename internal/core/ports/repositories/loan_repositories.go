package repositories

import (
	"context"

	"github.com/SscSPs/cbs_ledger/internal/core/domain"
)

// LoanRepositoryFacade stores loan terms keyed by loan account.
type LoanRepositoryFacade interface {
	// SaveLoan inserts or replaces the loan recorded against loan.AccountID.
	SaveLoan(ctx context.Context, loan domain.Loan) error

	FindLoanByAccountID(ctx context.Context, accountID string) (*domain.Loan, error)

	ListLoans(ctx context.Context) ([]domain.Loan, error)
}

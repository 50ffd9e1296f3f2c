package services

import (
	"context"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	"github.com/SscSPs/cbs_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// AccountReaderSvc defines read operations for account data
type AccountReaderSvc interface {
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)

	// ListAccounts retrieves a page of accounts ordered by id.
	ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error)

	// GetAccountHistory returns entries touching the account, newest first, with
	// an opaque token for the next page.
	GetAccountHistory(ctx context.Context, accountID string, params dto.AccountHistoryParams) (*dto.AccountHistoryResponse, error)
}

// AccountWriterSvc defines write operations for account data
type AccountWriterSvc interface {
	CreateAccount(ctx context.Context, req dto.CreateAccountRequest) (*domain.Account, error)

	// DeleteAccount removes an account that has no children and no entry lines.
	DeleteAccount(ctx context.Context, accountID string) error
}

// AccountCalculatorSvc defines calculation operations for account data
type AccountCalculatorSvc interface {
	// GetAccountBalance returns the current balance, or the balance at the end of
	// asOf's day when asOf is set.
	GetAccountBalance(ctx context.Context, accountID string, asOf *time.Time) (decimal.Decimal, error)
}

// AccountSvcFacade combines all account-related service interfaces
type AccountSvcFacade interface {
	AccountReaderSvc
	AccountWriterSvc
	AccountCalculatorSvc
}

package repositories

import (
	"context"

	"github.com/SscSPs/cbs_ledger/internal/core/domain"
)

// AccountReader defines read operations for account data
type AccountReader interface {
	// FindAccountByID retrieves a specific account. Returns apperrors.ErrNotFound if absent.
	FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error)

	// FindAccountsByIDs retrieves the accounts that exist among accountIDs.
	// Missing ids are simply absent from the returned map.
	FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error)

	// ListAccounts retrieves a page of accounts ordered by id.
	ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error)

	// ListAllAccounts retrieves every account, used by report aggregation.
	ListAllAccounts(ctx context.Context) ([]domain.Account, error)

	HasChildren(ctx context.Context, accountID string) (bool, error)

	// HasTransactions reports whether any entry line references the account.
	HasTransactions(ctx context.Context, accountID string) (bool, error)
}

// AccountWriter defines write operations for account data
type AccountWriter interface {
	// CreateAccount persists a new account. Returns apperrors.ErrDuplicate if the id is taken.
	CreateAccount(ctx context.Context, account domain.Account) error

	// SaveAccount writes the account's balance if the stored version still equals
	// expectedVersion, and bumps the stored version by one. A mismatch returns a
	// *apperrors.VersionConflictError.
	SaveAccount(ctx context.Context, account domain.Account, expectedVersion int64) error

	// DeleteAccount removes an account. Returns *apperrors.AccountHasDependentsError
	// when children or entry lines still reference it.
	DeleteAccount(ctx context.Context, accountID string) error
}

// AccountRepositoryFacade combines all account-related repository interfaces
type AccountRepositoryFacade interface {
	AccountReader
	AccountWriter
}

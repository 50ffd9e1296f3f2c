package memory

import (
	"context"
	"fmt"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
)

func (r *repo) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	defer r.rlock()()
	acc, ok := r.account(accountID)
	if !ok {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return &acc, nil
}

func (r *repo) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	defer r.rlock()()
	found := make(map[string]domain.Account, len(accountIDs))
	for _, id := range accountIDs {
		if acc, ok := r.account(id); ok {
			found[id] = acc
		}
	}
	return found, nil
}

func (r *repo) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	defer r.rlock()()
	all := r.allAccounts()
	if offset >= len(all) {
		return []domain.Account{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

func (r *repo) ListAllAccounts(ctx context.Context) ([]domain.Account, error) {
	defer r.rlock()()
	return r.allAccounts(), nil
}

func (r *repo) HasChildren(ctx context.Context, accountID string) (bool, error) {
	defer r.rlock()()
	for _, acc := range r.allAccounts() {
		if acc.ParentAccountID == accountID {
			return true, nil
		}
	}
	return false, nil
}

func (r *repo) HasTransactions(ctx context.Context, accountID string) (bool, error) {
	defer r.rlock()()
	for _, e := range r.allEntries() {
		if e.Touches(accountID) {
			return true, nil
		}
	}
	return false, nil
}

func (r *repo) CreateAccount(ctx context.Context, account domain.Account) error {
	defer r.lock()()
	if _, ok := r.account(account.AccountID); ok {
		return fmt.Errorf("%w: account with ID %s already exists", apperrors.ErrDuplicate, account.AccountID)
	}
	if account.Version == 0 {
		account.Version = 1
	}
	r.putAccount(account)
	return nil
}

func (r *repo) SaveAccount(ctx context.Context, account domain.Account, expectedVersion int64) error {
	defer r.lock()()
	current, ok := r.account(account.AccountID)
	if !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, account.AccountID)
	}
	if current.Version != expectedVersion {
		return &apperrors.VersionConflictError{AccountID: account.AccountID}
	}
	account.Version = expectedVersion + 1
	r.putAccount(account)
	return nil
}

func (r *repo) DeleteAccount(ctx context.Context, accountID string) error {
	defer r.lock()()
	if r.tx != nil {
		// Deletes are never part of a posting.
		return fmt.Errorf("%w: account deletion inside a unit of work", apperrors.ErrValidation)
	}
	if _, ok := r.s.accounts[accountID]; !ok {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	for _, acc := range r.s.accounts {
		if acc.ParentAccountID == accountID {
			return &apperrors.AccountHasDependentsError{AccountID: accountID, Reason: "it has child accounts"}
		}
	}
	for _, e := range r.s.entries {
		if e.Touches(accountID) {
			return &apperrors.AccountHasDependentsError{AccountID: accountID, Reason: "it has posted transactions"}
		}
	}
	delete(r.s.accounts, accountID)
	delete(r.s.loans, accountID)
	return nil
}

func (r *repo) putAccount(account domain.Account) {
	if r.tx != nil {
		r.tx.accounts[account.AccountID] = account
		return
	}
	r.s.accounts[account.AccountID] = account
}

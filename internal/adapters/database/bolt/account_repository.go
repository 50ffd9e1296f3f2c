package bolt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	bolt "go.etcd.io/bbolt"
)

func getAccount(tx *bolt.Tx, accountID string) (*domain.Account, error) {
	data := tx.Bucket([]byte(bucketAccounts)).Get([]byte(accountID))
	if data == nil {
		return nil, nil
	}
	var acc domain.Account
	if err := json.Unmarshal(data, &acc); err != nil {
		return nil, fmt.Errorf("failed to decode account %s: %w", accountID, err)
	}
	return &acc, nil
}

func (r *repo) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	var found *domain.Account
	err := r.view(func(tx *bolt.Tx) error {
		acc, err := getAccount(tx, accountID)
		found = acc
		return err
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return found, nil
}

func (r *repo) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	found := make(map[string]domain.Account, len(accountIDs))
	err := r.view(func(tx *bolt.Tx) error {
		for _, id := range accountIDs {
			acc, err := getAccount(tx, id)
			if err != nil {
				return err
			}
			if acc != nil {
				found[id] = *acc
			}
		}
		return nil
	})
	return found, err
}

// ListAccounts walks the bucket in key order, which is account id order.
func (r *repo) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	accounts := []domain.Account{}
	err := r.view(func(tx *bolt.Tx) error {
		skipped := 0
		return tx.Bucket([]byte(bucketAccounts)).ForEach(func(k, v []byte) error {
			if skipped < offset {
				skipped++
				return nil
			}
			if limit > 0 && len(accounts) >= limit {
				return nil
			}
			var acc domain.Account
			if err := json.Unmarshal(v, &acc); err != nil {
				return fmt.Errorf("failed to decode account %s: %w", k, err)
			}
			accounts = append(accounts, acc)
			return nil
		})
	})
	return accounts, err
}

func (r *repo) ListAllAccounts(ctx context.Context) ([]domain.Account, error) {
	return r.ListAccounts(ctx, 0, 0)
}

func (r *repo) HasChildren(ctx context.Context, accountID string) (bool, error) {
	var has bool
	err := r.view(func(tx *bolt.Tx) error {
		var err error
		has, err = hasChildren(tx, accountID)
		return err
	})
	return has, err
}

func (r *repo) HasTransactions(ctx context.Context, accountID string) (bool, error) {
	var has bool
	err := r.view(func(tx *bolt.Tx) error {
		has = hasEntries(tx, accountID)
		return nil
	})
	return has, err
}

func hasChildren(tx *bolt.Tx, accountID string) (bool, error) {
	var has bool
	err := tx.Bucket([]byte(bucketAccounts)).ForEach(func(k, v []byte) error {
		var acc domain.Account
		if err := json.Unmarshal(v, &acc); err != nil {
			return fmt.Errorf("failed to decode account %s: %w", k, err)
		}
		if acc.ParentAccountID == accountID {
			has = true
			return errStopIteration
		}
		return nil
	})
	if err == errStopIteration {
		err = nil
	}
	return has, err
}

func hasEntries(tx *bolt.Tx, accountID string) bool {
	found := forEachAccountEntry(tx, accountID, func(int64) error {
		return errStopIteration
	})
	return found == errStopIteration
}

func (r *repo) CreateAccount(ctx context.Context, account domain.Account) error {
	return r.update(func(tx *bolt.Tx) error {
		existing, err := getAccount(tx, account.AccountID)
		if err != nil {
			return err
		}
		if existing != nil {
			return fmt.Errorf("%w: account with ID %s already exists", apperrors.ErrDuplicate, account.AccountID)
		}
		if account.Version == 0 {
			account.Version = 1
		}
		return putJSON(tx.Bucket([]byte(bucketAccounts)), []byte(account.AccountID), account)
	})
}

func (r *repo) SaveAccount(ctx context.Context, account domain.Account, expectedVersion int64) error {
	return r.update(func(tx *bolt.Tx) error {
		current, err := getAccount(tx, account.AccountID)
		if err != nil {
			return err
		}
		if current == nil {
			return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, account.AccountID)
		}
		if current.Version != expectedVersion {
			return &apperrors.VersionConflictError{AccountID: account.AccountID}
		}
		account.Version = expectedVersion + 1
		return putJSON(tx.Bucket([]byte(bucketAccounts)), []byte(account.AccountID), account)
	})
}

// DeleteAccount checks dependents in the same write transaction as the delete.
func (r *repo) DeleteAccount(ctx context.Context, accountID string) error {
	return r.update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketAccounts))
		if b.Get([]byte(accountID)) == nil {
			return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
		}
		children, err := hasChildren(tx, accountID)
		if err != nil {
			return err
		}
		if children {
			return &apperrors.AccountHasDependentsError{AccountID: accountID, Reason: "it has child accounts"}
		}
		if hasEntries(tx, accountID) {
			return &apperrors.AccountHasDependentsError{AccountID: accountID, Reason: "it has posted transactions"}
		}
		if err := tx.Bucket([]byte(bucketLoans)).Delete([]byte(accountID)); err != nil {
			return err
		}
		return b.Delete([]byte(accountID))
	})
}

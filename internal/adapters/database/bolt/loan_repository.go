package bolt

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	bolt "go.etcd.io/bbolt"
)

func (r *repo) SaveLoan(ctx context.Context, loan domain.Loan) error {
	return r.update(func(tx *bolt.Tx) error {
		return putJSON(tx.Bucket([]byte(bucketLoans)), []byte(loan.AccountID), loan)
	})
}

func (r *repo) FindLoanByAccountID(ctx context.Context, accountID string) (*domain.Loan, error) {
	var found *domain.Loan
	err := r.view(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(bucketLoans)).Get([]byte(accountID))
		if data == nil {
			return nil
		}
		var l domain.Loan
		if err := json.Unmarshal(data, &l); err != nil {
			return fmt.Errorf("failed to decode loan %s: %w", accountID, err)
		}
		found = &l
		return nil
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: loan for account %s", apperrors.ErrNotFound, accountID)
	}
	return found, nil
}

func (r *repo) ListLoans(ctx context.Context) ([]domain.Loan, error) {
	loans := []domain.Loan{}
	err := r.view(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(bucketLoans)).ForEach(func(k, v []byte) error {
			var l domain.Loan
			if err := json.Unmarshal(v, &l); err != nil {
				return fmt.Errorf("failed to decode loan %s: %w", k, err)
			}
			loans = append(loans, l)
			return nil
		})
	})
	return loans, err
}

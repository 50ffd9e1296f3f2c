package memory

import (
	"context"
	"fmt"
	"sort"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
)

func (r *repo) SaveLoan(ctx context.Context, loan domain.Loan) error {
	defer r.lock()()
	if r.tx != nil {
		r.tx.loans[loan.AccountID] = loan
		return nil
	}
	r.s.loans[loan.AccountID] = loan
	return nil
}

func (r *repo) FindLoanByAccountID(ctx context.Context, accountID string) (*domain.Loan, error) {
	defer r.rlock()()
	if r.tx != nil {
		if l, ok := r.tx.loans[accountID]; ok {
			return &l, nil
		}
	}
	l, ok := r.s.loans[accountID]
	if !ok {
		return nil, fmt.Errorf("%w: loan for account %s", apperrors.ErrNotFound, accountID)
	}
	return &l, nil
}

func (r *repo) ListLoans(ctx context.Context) ([]domain.Loan, error) {
	defer r.rlock()()
	merged := make(map[string]domain.Loan, len(r.s.loans))
	for id, l := range r.s.loans {
		merged[id] = l
	}
	if r.tx != nil {
		for id, l := range r.tx.loans {
			merged[id] = l
		}
	}
	loans := make([]domain.Loan, 0, len(merged))
	for _, l := range merged {
		loans = append(loans, l)
	}
	sort.Slice(loans, func(i, j int) bool { return loans[i].AccountID < loans[j].AccountID })
	return loans, nil
}

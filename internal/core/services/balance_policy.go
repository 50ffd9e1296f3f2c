package services

import (
	"fmt"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// BalanceDelta returns the change a line makes to an account balance of the given type.
// Debit-normal types grow by debit minus credit, credit-normal types by credit minus debit.
func BalanceDelta(accountType domain.AccountType, debit, credit decimal.Decimal) (decimal.Decimal, error) {
	//exhaustive:enforce
	switch accountType {
	case domain.Asset, domain.Expense:
		return debit.Sub(credit), nil
	case domain.Liability, domain.Equity, domain.Income:
		return credit.Sub(debit), nil
	}
	return decimal.Zero, fmt.Errorf("%w: no balance policy for account type %q", apperrors.ErrValidation, accountType)
}

// NormalizeBalance expresses a stored balance with debits positive, as used by
// the trial balance and balance sheet.
func NormalizeBalance(accountType domain.AccountType, balance decimal.Decimal) (decimal.Decimal, error) {
	//exhaustive:enforce
	switch accountType {
	case domain.Asset, domain.Expense:
		return balance, nil
	case domain.Liability, domain.Equity, domain.Income:
		return balance.Neg(), nil
	}
	return decimal.Zero, fmt.Errorf("%w: no balance policy for account type %q", apperrors.ErrValidation, accountType)
}

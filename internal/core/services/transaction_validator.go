package services

import (
	"fmt"
	"strings"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// ValidateTransaction checks the shape and arithmetic of a proposed transaction
// and returns its normalized lines. It has no side effects.
//
// Checks run in order: non-empty entries, per-line amounts, then debit/credit balance.
func ValidateTransaction(req domain.PostingRequest) ([]domain.EntryLine, error) {
	if strings.TrimSpace(req.IdempotencyKey) == "" {
		return nil, apperrors.NewValidationError("idempotencyKey", "is required")
	}
	if len(req.Entries) == 0 {
		return nil, apperrors.NewValidationError("entries", "at least one entry line is required")
	}

	lines := make([]domain.EntryLine, 0, len(req.Entries))
	for i, e := range req.Entries {
		field := fmt.Sprintf("entries[%d]", i)
		accountID := strings.TrimSpace(e.AccountID)
		if accountID == "" {
			return nil, apperrors.NewValidationError(field+".accountID", "is required")
		}
		if e.Debit.IsNegative() || e.Credit.IsNegative() {
			return nil, apperrors.NewValidationError(field, "debit and credit must not be negative")
		}
		if e.Debit.IsPositive() && e.Credit.IsPositive() {
			return nil, apperrors.NewValidationError(field, "a line cannot carry both a debit and a credit")
		}
		if e.Debit.IsZero() && e.Credit.IsZero() {
			return nil, apperrors.NewValidationError(field, "a line must carry a debit or a credit")
		}
		lines = append(lines, domain.EntryLine{AccountID: accountID, Debit: e.Debit, Credit: e.Credit})
	}

	debits, credits := decimal.Zero, decimal.Zero
	for _, l := range lines {
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	if !debits.Equal(credits) {
		return nil, &apperrors.UnbalancedTransactionError{Debits: debits, Credits: credits}
	}
	return lines, nil
}

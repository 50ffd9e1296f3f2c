package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
)

// reversalService derives compensating transactions and posts them through the engine.
type reversalService struct {
	engine *ledgerService
}

func newReversalService(engine *ledgerService) *reversalService {
	return &reversalService{engine: engine}
}

// Reverse posts an entry that swaps debit and credit on every line of the original.
// The original flips to REVERSED in the same commit, so of two concurrent
// reversals only one can succeed.
func (r *reversalService) Reverse(ctx context.Context, transactionID int64, reversalKey string) (*domain.JournalEntry, error) {
	logger := r.engine.GetLogger(ctx).With(slog.Int64("transaction_id", transactionID))

	original, err := r.engine.GetTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	if original.Status == domain.Reversed {
		logger.Warn("Transaction already reversed")
		return nil, &apperrors.TransactionAlreadyReversedError{ID: transactionID}
	}
	if original.ReversalOf != nil {
		logger.Warn("Attempt to reverse a reversal entry", slog.Int64("reversal_of", *original.ReversalOf))
		return nil, fmt.Errorf("%w: transaction %d is itself a reversal", apperrors.ErrConflict, transactionID)
	}

	req := BuildReversalRequest(original, reversalKey)
	req.TransactionDate = r.engine.now().UTC().Truncate(oneDay)

	reversal, err := r.engine.post(ctx, req, &original.EntryID)
	if err != nil {
		var already *apperrors.TransactionAlreadyReversedError
		if errors.As(err, &already) {
			logger.Warn("Lost race to reverse transaction")
		}
		return nil, err
	}

	logger.Info("Transaction reversed", slog.Int64("reversal_id", reversal.EntryID))
	return reversal, nil
}

// BuildReversalRequest swaps debit and credit on every line of original. The
// swapped lines stay balanced because both totals simply trade places.
func BuildReversalRequest(original *domain.JournalEntry, reversalKey string) domain.PostingRequest {
	entries := make([]domain.EntryRequest, len(original.Lines))
	for i, l := range original.Lines {
		entries[i] = domain.EntryRequest{
			AccountID: l.AccountID,
			Debit:     l.Credit,
			Credit:    l.Debit,
		}
	}
	return domain.PostingRequest{
		IdempotencyKey:  reversalKey,
		Description:     fmt.Sprintf("Reversal of transaction #%d", original.EntryID),
		TransactionDate: original.TransactionDate,
		Entries:         entries,
	}
}

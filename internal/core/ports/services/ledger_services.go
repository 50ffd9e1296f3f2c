package services

import (
	"context"

	"github.com/SscSPs/cbs_ledger/internal/core/domain"
)

// LedgerPoster posts and reverses balanced transactions.
type LedgerPoster interface {
	// PostTransaction validates, locks, applies and atomically commits a transaction.
	PostTransaction(ctx context.Context, req domain.PostingRequest) (*domain.JournalEntry, error)

	// ReverseTransaction posts the compensating entry of transactionID and marks
	// the original REVERSED in the same commit.
	ReverseTransaction(ctx context.Context, transactionID int64, reversalKey string) (*domain.JournalEntry, error)
}

// LedgerReader reads committed journal entries.
type LedgerReader interface {
	GetTransaction(ctx context.Context, transactionID int64) (*domain.JournalEntry, error)
}

// LedgerSvcFacade combines all ledger-engine service interfaces
type LedgerSvcFacade interface {
	LedgerPoster
	LedgerReader
}

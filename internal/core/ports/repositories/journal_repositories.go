package repositories

import (
	"context"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/core/domain"
)

// EntryCursor positions keyset pagination over entries ordered by
// transaction date then id, newest first.
type EntryCursor struct {
	TransactionDate time.Time
	EntryID         int64
}

// JournalReader defines read operations for journal data
type JournalReader interface {
	// FindEntryByID returns apperrors.ErrNotFound if absent.
	FindEntryByID(ctx context.Context, entryID int64) (*domain.JournalEntry, error)

	// FindEntryByIdempotencyKey returns apperrors.ErrNotFound if the key was never used.
	FindEntryByIdempotencyKey(ctx context.Context, key string) (*domain.JournalEntry, error)

	// ListEntriesByAccount returns up to limit entries touching accountID that sort
	// strictly after the cursor, newest first. A nil cursor starts at the newest entry.
	ListEntriesByAccount(ctx context.Context, accountID string, limit int, after *EntryCursor) ([]domain.JournalEntry, error)

	// SumAccountMovements totals the debits and credits posted to accountID by
	// entries dated on or before asOf.
	SumAccountMovements(ctx context.Context, accountID string, asOf time.Time) (domain.AccountMovements, error)
}

// JournalWriter defines write operations for journal data
type JournalWriter interface {
	// InsertEntryIfAbsent persists the entry and its lines, assigning ids.
	// The idempotency key is the uniqueness guard: a used key returns a
	// *apperrors.DuplicateIdempotencyKeyError and nothing is written.
	InsertEntryIfAbsent(ctx context.Context, entry domain.JournalEntry) (*domain.JournalEntry, error)

	// MarkEntryReversed flips a POSTED entry to REVERSED. An entry that is already
	// reversed returns *apperrors.TransactionAlreadyReversedError.
	MarkEntryReversed(ctx context.Context, entryID int64) error
}

// JournalRepositoryFacade combines all journal-related repository interfaces
type JournalRepositoryFacade interface {
	JournalReader
	JournalWriter
}

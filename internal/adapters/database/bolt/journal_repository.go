package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
	bolt "go.etcd.io/bbolt"
)

var errStopIteration = errors.New("stop iteration")

func getEntry(tx *bolt.Tx, entryID int64) (*domain.JournalEntry, error) {
	data := tx.Bucket([]byte(bucketEntries)).Get(itob(entryID))
	if data == nil {
		return nil, nil
	}
	var e domain.JournalEntry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode journal entry %d: %w", entryID, err)
	}
	return &e, nil
}

func (r *repo) FindEntryByID(ctx context.Context, entryID int64) (*domain.JournalEntry, error) {
	var found *domain.JournalEntry
	err := r.view(func(tx *bolt.Tx) error {
		e, err := getEntry(tx, entryID)
		found = e
		return err
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: journal entry %d", apperrors.ErrNotFound, entryID)
	}
	return found, nil
}

func (r *repo) FindEntryByIdempotencyKey(ctx context.Context, key string) (*domain.JournalEntry, error) {
	var found *domain.JournalEntry
	err := r.view(func(tx *bolt.Tx) error {
		id := tx.Bucket([]byte(bucketIdempotency)).Get([]byte(key))
		if id == nil {
			return nil
		}
		e, err := getEntry(tx, btoi(id))
		found = e
		return err
	})
	if err != nil {
		return nil, err
	}
	if found == nil {
		return nil, fmt.Errorf("%w: idempotency key %s", apperrors.ErrNotFound, key)
	}
	return found, nil
}

func (r *repo) ListEntriesByAccount(ctx context.Context, accountID string, limit int, after *portsrepo.EntryCursor) ([]domain.JournalEntry, error) {
	entries := []domain.JournalEntry{}
	err := r.view(func(tx *bolt.Tx) error {
		return forEachAccountEntry(tx, accountID, func(entryID int64) error {
			e, err := getEntry(tx, entryID)
			if err != nil || e == nil {
				return err
			}
			if after != nil && !olderThan(*e, *after) {
				return nil
			}
			entries = append(entries, *e)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(entries, func(i, j int) bool {
		return olderThan(entries[j], portsrepo.EntryCursor{TransactionDate: entries[i].TransactionDate, EntryID: entries[i].EntryID})
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func olderThan(e domain.JournalEntry, c portsrepo.EntryCursor) bool {
	if !e.TransactionDate.Equal(c.TransactionDate) {
		return e.TransactionDate.Before(c.TransactionDate)
	}
	return e.EntryID < c.EntryID
}

func (r *repo) SumAccountMovements(ctx context.Context, accountID string, asOf time.Time) (domain.AccountMovements, error) {
	m := domain.AccountMovements{Debits: decimal.Zero, Credits: decimal.Zero}
	err := r.view(func(tx *bolt.Tx) error {
		return forEachAccountEntry(tx, accountID, func(entryID int64) error {
			e, err := getEntry(tx, entryID)
			if err != nil || e == nil {
				return err
			}
			if e.TransactionDate.After(asOf) {
				return nil
			}
			for _, l := range e.Lines {
				if l.AccountID == accountID {
					m.Debits = m.Debits.Add(l.Debit)
					m.Credits = m.Credits.Add(l.Credit)
				}
			}
			return nil
		})
	})
	return m, err
}

func (r *repo) InsertEntryIfAbsent(ctx context.Context, entry domain.JournalEntry) (*domain.JournalEntry, error) {
	e := entry.Clone()
	err := r.update(func(tx *bolt.Tx) error {
		keys := tx.Bucket([]byte(bucketIdempotency))
		if existing := keys.Get([]byte(e.IdempotencyKey)); existing != nil {
			return &apperrors.DuplicateIdempotencyKeyError{Key: e.IdempotencyKey, ExistingID: btoi(existing)}
		}

		entries := tx.Bucket([]byte(bucketEntries))
		seq, err := entries.NextSequence()
		if err != nil {
			return err
		}
		e.EntryID = int64(seq)

		lines := tx.Bucket([]byte(bucketLines))
		index := tx.Bucket([]byte(bucketAccountEntries))
		for i := range e.Lines {
			lineSeq, err := lines.NextSequence()
			if err != nil {
				return err
			}
			e.Lines[i].LineID = int64(lineSeq)
			if err := index.Put(accountEntryKey(e.Lines[i].AccountID, e.EntryID), nil); err != nil {
				return err
			}
		}

		if err := putJSON(entries, itob(e.EntryID), e); err != nil {
			return err
		}
		return keys.Put([]byte(e.IdempotencyKey), itob(e.EntryID))
	})
	if err != nil {
		return nil, err
	}
	return &e, nil
}

func (r *repo) MarkEntryReversed(ctx context.Context, entryID int64) error {
	return r.update(func(tx *bolt.Tx) error {
		e, err := getEntry(tx, entryID)
		if err != nil {
			return err
		}
		if e == nil {
			return &apperrors.TransactionNotFoundError{ID: entryID}
		}
		if e.Status == domain.Reversed {
			return &apperrors.TransactionAlreadyReversedError{ID: entryID}
		}
		e.Status = domain.Reversed
		return putJSON(tx.Bucket([]byte(bucketEntries)), itob(entryID), e)
	})
}

package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	"github.com/shopspring/decimal"
)

func (r *repo) FindEntryByID(ctx context.Context, entryID int64) (*domain.JournalEntry, error) {
	defer r.rlock()()
	e, ok := r.entry(entryID)
	if !ok {
		return nil, fmt.Errorf("%w: journal entry %d", apperrors.ErrNotFound, entryID)
	}
	c := e.Clone()
	return &c, nil
}

func (r *repo) FindEntryByIdempotencyKey(ctx context.Context, key string) (*domain.JournalEntry, error) {
	defer r.rlock()()
	id, ok := r.entryIDForKey(key)
	if !ok {
		return nil, fmt.Errorf("%w: idempotency key %s", apperrors.ErrNotFound, key)
	}
	e, _ := r.entry(id)
	c := e.Clone()
	return &c, nil
}

func (r *repo) ListEntriesByAccount(ctx context.Context, accountID string, limit int, after *portsrepo.EntryCursor) ([]domain.JournalEntry, error) {
	defer r.rlock()()
	var matched []domain.JournalEntry
	for _, e := range r.allEntries() {
		if !e.Touches(accountID) {
			continue
		}
		if after != nil && !before(e, *after) {
			continue
		}
		matched = append(matched, e.Clone())
	}
	sort.Slice(matched, func(i, j int) bool {
		return before(matched[j], portsrepo.EntryCursor{TransactionDate: matched[i].TransactionDate, EntryID: matched[i].EntryID})
	})
	if limit > 0 && len(matched) > limit {
		matched = matched[:limit]
	}
	if matched == nil {
		return []domain.JournalEntry{}, nil
	}
	return matched, nil
}

// before reports whether e sorts after the cursor in newest-first order.
func before(e domain.JournalEntry, c portsrepo.EntryCursor) bool {
	if !e.TransactionDate.Equal(c.TransactionDate) {
		return e.TransactionDate.Before(c.TransactionDate)
	}
	return e.EntryID < c.EntryID
}

func (r *repo) SumAccountMovements(ctx context.Context, accountID string, asOf time.Time) (domain.AccountMovements, error) {
	defer r.rlock()()
	m := domain.AccountMovements{Debits: decimal.Zero, Credits: decimal.Zero}
	for _, e := range r.allEntries() {
		if e.TransactionDate.After(asOf) {
			continue
		}
		for _, l := range e.Lines {
			if l.AccountID == accountID {
				m.Debits = m.Debits.Add(l.Debit)
				m.Credits = m.Credits.Add(l.Credit)
			}
		}
	}
	return m, nil
}

func (r *repo) InsertEntryIfAbsent(ctx context.Context, entry domain.JournalEntry) (*domain.JournalEntry, error) {
	defer r.lock()()
	if id, ok := r.entryIDForKey(entry.IdempotencyKey); ok {
		return nil, &apperrors.DuplicateIdempotencyKeyError{Key: entry.IdempotencyKey, ExistingID: id}
	}

	e := entry.Clone()
	if r.tx != nil {
		r.tx.nextEntryID++
		e.EntryID = r.tx.nextEntryID
		for i := range e.Lines {
			r.tx.nextLineID++
			e.Lines[i].LineID = r.tx.nextLineID
		}
		r.tx.entries[e.EntryID] = e
		r.tx.byKey[e.IdempotencyKey] = e.EntryID
	} else {
		r.s.nextEntryID++
		e.EntryID = r.s.nextEntryID
		for i := range e.Lines {
			r.s.nextLineID++
			e.Lines[i].LineID = r.s.nextLineID
		}
		r.s.entries[e.EntryID] = e
		r.s.byKey[e.IdempotencyKey] = e.EntryID
	}
	out := e.Clone()
	return &out, nil
}

func (r *repo) MarkEntryReversed(ctx context.Context, entryID int64) error {
	defer r.lock()()
	e, ok := r.entry(entryID)
	if !ok {
		return &apperrors.TransactionNotFoundError{ID: entryID}
	}
	if e.Status == domain.Reversed {
		return &apperrors.TransactionAlreadyReversedError{ID: entryID}
	}
	e.Status = domain.Reversed
	if r.tx != nil {
		r.tx.entries[entryID] = e
	} else {
		r.s.entries[entryID] = e
	}
	return nil
}

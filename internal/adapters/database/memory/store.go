// Package memory is an in-process ledger store. It backs tests and
// single-node deployments started with STORAGE_DRIVER=memory.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
)

// Store holds all ledger state behind one mutex.
type Store struct {
	mu          sync.RWMutex
	accounts    map[string]domain.Account
	entries     map[int64]domain.JournalEntry
	byKey       map[string]int64
	loans       map[string]domain.Loan
	nextEntryID int64
	nextLineID  int64
}

func NewStore() *Store {
	return &Store{
		accounts: make(map[string]domain.Account),
		entries:  make(map[int64]domain.JournalEntry),
		byKey:    make(map[string]int64),
		loans:    make(map[string]domain.Loan),
	}
}

// overlay stages writes made inside RunInTx until fn returns.
type overlay struct {
	accounts    map[string]domain.Account
	entries     map[int64]domain.JournalEntry
	byKey       map[string]int64
	loans       map[string]domain.Loan
	nextEntryID int64
	nextLineID  int64
}

// repo serves all three repository contracts. A nil tx reads and writes the
// store directly under its mutex. A non-nil tx runs while RunInTx already
// holds the write lock.
type repo struct {
	s  *Store
	tx *overlay
}

var (
	_ portsrepo.AccountRepositoryFacade = (*repo)(nil)
	_ portsrepo.JournalRepositoryFacade = (*repo)(nil)
	_ portsrepo.LoanRepositoryFacade    = (*repo)(nil)
	_ portsrepo.UnitOfWork              = (*Store)(nil)
)

// NewRepositoryProvider exposes the store through the repository ports.
func NewRepositoryProvider(s *Store) portsrepo.RepositoryProvider {
	r := &repo{s: s}
	return portsrepo.RepositoryProvider{
		AccountRepo: r,
		JournalRepo: r,
		LoanRepo:    r,
		UnitOfWork:  s,
	}
}

// RunInTx applies every write fn makes through tx, or none of them.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	ov := &overlay{
		accounts:    make(map[string]domain.Account),
		entries:     make(map[int64]domain.JournalEntry),
		byKey:       make(map[string]int64),
		loans:       make(map[string]domain.Loan),
		nextEntryID: s.nextEntryID,
		nextLineID:  s.nextLineID,
	}
	r := &repo{s: s, tx: ov}
	if err := fn(ctx, portsrepo.TxStores{Accounts: r, Journals: r, Loans: r}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	for id, acc := range ov.accounts {
		s.accounts[id] = acc
	}
	for id, e := range ov.entries {
		s.entries[id] = e
	}
	for k, id := range ov.byKey {
		s.byKey[k] = id
	}
	for id, l := range ov.loans {
		s.loans[id] = l
	}
	s.nextEntryID = ov.nextEntryID
	s.nextLineID = ov.nextLineID
	return nil
}

func (r *repo) rlock() func() {
	if r.tx != nil {
		return func() {}
	}
	r.s.mu.RLock()
	return r.s.mu.RUnlock
}

func (r *repo) lock() func() {
	if r.tx != nil {
		return func() {}
	}
	r.s.mu.Lock()
	return r.s.mu.Unlock
}

func (r *repo) account(id string) (domain.Account, bool) {
	if r.tx != nil {
		if acc, ok := r.tx.accounts[id]; ok {
			return acc, true
		}
	}
	acc, ok := r.s.accounts[id]
	return acc, ok
}

func (r *repo) entry(id int64) (domain.JournalEntry, bool) {
	if r.tx != nil {
		if e, ok := r.tx.entries[id]; ok {
			return e, true
		}
	}
	e, ok := r.s.entries[id]
	return e, ok
}

func (r *repo) entryIDForKey(key string) (int64, bool) {
	if r.tx != nil {
		if id, ok := r.tx.byKey[key]; ok {
			return id, true
		}
	}
	id, ok := r.s.byKey[key]
	return id, ok
}

// allEntries merges committed and staged entries.
func (r *repo) allEntries() []domain.JournalEntry {
	out := make([]domain.JournalEntry, 0, len(r.s.entries))
	for id, e := range r.s.entries {
		if r.tx != nil {
			if staged, ok := r.tx.entries[id]; ok {
				e = staged
			}
		}
		out = append(out, e)
	}
	if r.tx != nil {
		for id, e := range r.tx.entries {
			if _, ok := r.s.entries[id]; !ok {
				out = append(out, e)
			}
		}
	}
	return out
}

func (r *repo) allAccounts() []domain.Account {
	out := make([]domain.Account, 0, len(r.s.accounts))
	for id, acc := range r.s.accounts {
		if r.tx != nil {
			if staged, ok := r.tx.accounts[id]; ok {
				acc = staged
			}
		}
		out = append(out, acc)
	}
	if r.tx != nil {
		for id, acc := range r.tx.accounts {
			if _, ok := r.s.accounts[id]; !ok {
				out = append(out, acc)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out
}

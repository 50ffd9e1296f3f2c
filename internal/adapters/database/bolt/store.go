// Package bolt persists the ledger in a single bbolt file.
package bolt

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	bolt "go.etcd.io/bbolt"
)

// Bucket names.
const (
	bucketAccounts       = "accounts"
	bucketEntries        = "entries"
	bucketLines          = "entry_lines"
	bucketIdempotency    = "idempotency_keys"
	bucketAccountEntries = "account_entries"
	bucketLoans          = "loans"
)

var allBuckets = []string{bucketAccounts, bucketEntries, bucketLines, bucketIdempotency, bucketAccountEntries, bucketLoans}

// Store wraps the bbolt database.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the database at path and initializes buckets.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// repo implements the repository ports. With tx set it joins a running unit of work.
type repo struct {
	db *bolt.DB
	tx *bolt.Tx
}

var (
	_ portsrepo.AccountRepositoryFacade = (*repo)(nil)
	_ portsrepo.JournalRepositoryFacade = (*repo)(nil)
	_ portsrepo.LoanRepositoryFacade    = (*repo)(nil)
	_ portsrepo.UnitOfWork              = (*Store)(nil)
)

func NewRepositoryProvider(s *Store) portsrepo.RepositoryProvider {
	r := &repo{db: s.db}
	return portsrepo.RepositoryProvider{
		AccountRepo: r,
		JournalRepo: r,
		LoanRepo:    r,
		UnitOfWork:  s,
	}
}

// RunInTx runs fn inside one read-write bbolt transaction.
func (s *Store) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.TxStores) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := s.db.Update(func(btx *bolt.Tx) error {
		r := &repo{db: s.db, tx: btx}
		if err := fn(ctx, portsrepo.TxStores{Accounts: r, Journals: r, Loans: r}); err != nil {
			return err
		}
		return ctx.Err()
	})
	return mapBoltError(err)
}

func (r *repo) view(fn func(tx *bolt.Tx) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return mapBoltError(r.db.View(fn))
}

func (r *repo) update(fn func(tx *bolt.Tx) error) error {
	if r.tx != nil {
		return fn(r.tx)
	}
	return mapBoltError(r.db.Update(fn))
}

func mapBoltError(err error) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) || errors.Is(err, bolt.ErrTimeout) {
		return fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
	}
	return err
}

func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

func btoi(b []byte) int64 {
	return int64(binary.BigEndian.Uint64(b))
}

// accountEntryKey indexes an entry under an account: accountID, a NUL separator, then the entry id.
func accountEntryKey(accountID string, entryID int64) []byte {
	return append(accountEntryPrefix(accountID), itob(entryID)...)
}

func accountEntryPrefix(accountID string) []byte {
	return append([]byte(accountID), 0)
}

// forEachAccountEntry calls fn with each entry id indexed under accountID.
func forEachAccountEntry(tx *bolt.Tx, accountID string, fn func(entryID int64) error) error {
	prefix := accountEntryPrefix(accountID)
	c := tx.Bucket([]byte(bucketAccountEntries)).Cursor()
	for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
		if err := fn(btoi(k[len(prefix):])); err != nil {
			return err
		}
	}
	return nil
}

func putJSON(b *bolt.Bucket, key []byte, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}
	return b.Put(key, data)
}

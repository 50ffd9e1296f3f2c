// Package locking provides AccountLockCoordinator implementations: an
// in-process one for a single node and a Redis one for several.
package locking

import (
	"context"
	"errors"
	"sync"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/ports/locking"
	"golang.org/x/sync/semaphore"
)

// LocalCoordinator locks accounts within one process. Each account gets a
// weight-1 semaphore so acquisition can be abandoned when ctx ends.
type LocalCoordinator struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	sem  *semaphore.Weighted
	refs int
}

func NewLocalCoordinator() *LocalCoordinator {
	return &LocalCoordinator{locks: make(map[string]*accountLock)}
}

var _ locking.AccountLockCoordinator = (*LocalCoordinator)(nil)

func (c *LocalCoordinator) ref(id string) *accountLock {
	c.mu.Lock()
	defer c.mu.Unlock()
	l, ok := c.locks[id]
	if !ok {
		l = &accountLock{sem: semaphore.NewWeighted(1)}
		c.locks[id] = l
	}
	l.refs++
	return l
}

// unref drops the entry once no posting holds or waits on it.
func (c *LocalCoordinator) unref(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	l := c.locks[id]
	l.refs--
	if l.refs == 0 {
		delete(c.locks, id)
	}
}

func (c *LocalCoordinator) Acquire(ctx context.Context, accountIDs []string) (func(), error) {
	ids := locking.OrderedIDs(accountIDs)
	held := make([]*accountLock, 0, len(ids))

	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].sem.Release(1)
			c.unref(ids[i])
		}
		held = held[:0]
	}

	for _, id := range ids {
		l := c.ref(id)
		if err := l.sem.Acquire(ctx, 1); err != nil {
			c.unref(id)
			release()
			if errors.Is(err, context.DeadlineExceeded) {
				return nil, &apperrors.LockTimeoutError{AccountIDs: ids}
			}
			return nil, err
		}
		held = append(held, l)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

package locking

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/ports/locking"
	"github.com/go-redsync/redsync/v4"
	"github.com/go-redsync/redsync/v4/redis/goredis/v9"
	goredislib "github.com/redis/go-redis/v9"
)

const lockKeyPrefix = "ledger:account:"

// RedisLockOptions configures lock behavior.
type RedisLockOptions struct {
	// Expiry bounds how long a crashed holder can keep an account locked.
	Expiry time.Duration

	// Tries is the number of attempts per account before giving up.
	Tries int

	RetryDelay time.Duration

	// UnlockTimeout bounds release calls, which run even after the posting's ctx ended.
	UnlockTimeout time.Duration
}

func DefaultRedisLockOptions() RedisLockOptions {
	return RedisLockOptions{
		Expiry:        10 * time.Second,
		Tries:         64,
		RetryDelay:    50 * time.Millisecond,
		UnlockTimeout: 2 * time.Second,
	}
}

// RedisCoordinator locks accounts across processes with redsync mutexes.
type RedisCoordinator struct {
	rs     *redsync.Redsync
	opts   RedisLockOptions
	logger *slog.Logger
}

func NewRedisCoordinator(client goredislib.UniversalClient, opts RedisLockOptions, logger *slog.Logger) *RedisCoordinator {
	return &RedisCoordinator{
		rs:     redsync.New(goredis.NewPool(client)),
		opts:   opts,
		logger: logger,
	}
}

var _ locking.AccountLockCoordinator = (*RedisCoordinator)(nil)

func (c *RedisCoordinator) Acquire(ctx context.Context, accountIDs []string) (func(), error) {
	ids := locking.OrderedIDs(accountIDs)
	held := make([]*redsync.Mutex, 0, len(ids))

	release := func() {
		unlockCtx, cancel := context.WithTimeout(context.Background(), c.opts.UnlockTimeout)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			if ok, err := held[i].UnlockContext(unlockCtx); err != nil || !ok {
				// The lock expires on its own; a later CAS check catches any overlap.
				c.logger.Warn("Failed to release account lock", slog.String("key", held[i].Name()), slog.Any("error", err))
			}
		}
		held = held[:0]
	}

	for _, id := range ids {
		m := c.rs.NewMutex(lockKeyPrefix+id,
			redsync.WithExpiry(c.opts.Expiry),
			redsync.WithTries(c.opts.Tries),
			redsync.WithRetryDelay(c.opts.RetryDelay),
		)
		if err := m.LockContext(ctx); err != nil {
			release()
			if isContention(err) {
				return nil, &apperrors.LockTimeoutError{AccountIDs: ids}
			}
			if errors.Is(err, context.Canceled) {
				return nil, err
			}
			return nil, errors.Join(apperrors.ErrStoreUnavailable, err)
		}
		held = append(held, m)
	}

	var once sync.Once
	return func() { once.Do(release) }, nil
}

// isContention reports whether err means another holder kept the lock until
// tries or the deadline ran out.
func isContention(err error) bool {
	if errors.Is(err, redsync.ErrFailed) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var taken *redsync.ErrTaken
	var nodeTaken *redsync.ErrNodeTaken
	return errors.As(err, &taken) || errors.As(err, &nodeTaken)
}

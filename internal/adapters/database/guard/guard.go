// Package guard puts a circuit breaker in front of the ledger store so a failing
// database is reported as unavailable instead of piling up slow calls.
package guard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	"github.com/sony/gobreaker"
)

// Config holds circuit breaker configuration
type Config struct {
	ConsecutiveFailures uint32        // Consecutive failures to trigger open state
	OpenTimeout         time.Duration // Time spent open before a half-open probe
	MaxRequests         uint32        // Max requests in half-open state
}

func DefaultConfig() Config {
	return Config{ConsecutiveFailures: 5, OpenTimeout: 30 * time.Second, MaxRequests: 1}
}

// Breaker wraps sony/gobreaker for store calls.
type Breaker struct {
	cb *gobreaker.CircuitBreaker
}

func NewBreaker(name string, cfg Config, logger *slog.Logger) *Breaker {
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = DefaultConfig().ConsecutiveFailures
	}
	settings := gobreaker.Settings{
		Name:        "store-" + name,
		MaxRequests: cfg.MaxRequests,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= cfg.ConsecutiveFailures
		},
		IsSuccessful: func(err error) bool {
			return !isInfrastructureFailure(err)
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()))
		},
	}
	return &Breaker{cb: gobreaker.NewCircuitBreaker(settings)}
}

// State returns the breaker state name: closed, half-open or open.
func (b *Breaker) State() string {
	return b.cb.State().String()
}

// isInfrastructureFailure reports whether err says something about store health.
// Domain rejections and caller cancellation do not.
func isInfrastructureFailure(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	for _, target := range []error{
		apperrors.ErrNotFound,
		apperrors.ErrValidation,
		apperrors.ErrDuplicate,
		apperrors.ErrConflict,
		apperrors.ErrUnbalanced,
		apperrors.ErrMultiCurrency,
		apperrors.ErrInvalidHierarchy,
		apperrors.ErrVersionConflict,
		apperrors.ErrLockTimeout,
	} {
		if errors.Is(err, target) {
			return false
		}
	}
	return true
}

func execute[T any](b *Breaker, fn func() (T, error)) (T, error) {
	var zero T
	result, err := b.cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, fmt.Errorf("%w: %v", apperrors.ErrStoreUnavailable, err)
		}
		return zero, err
	}
	return result.(T), nil
}

func run(b *Breaker, fn func() error) error {
	_, err := execute(b, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// Wrap returns repos with every call routed through b. Repositories handed to
// a unit of work callback are not wrapped again; the whole RunInTx call counts once.
func Wrap(repos portsrepo.RepositoryProvider, b *Breaker) portsrepo.RepositoryProvider {
	return portsrepo.RepositoryProvider{
		AccountRepo: &accountRepo{next: repos.AccountRepo, b: b},
		JournalRepo: &journalRepo{next: repos.JournalRepo, b: b},
		LoanRepo:    &loanRepo{next: repos.LoanRepo, b: b},
		UnitOfWork:  &unitOfWork{next: repos.UnitOfWork, b: b},
	}
}

type unitOfWork struct {
	next portsrepo.UnitOfWork
	b    *Breaker
}

func (u *unitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.TxStores) error) error {
	return run(u.b, func() error { return u.next.RunInTx(ctx, fn) })
}

type accountRepo struct {
	next portsrepo.AccountRepositoryFacade
	b    *Breaker
}

var _ portsrepo.AccountRepositoryFacade = (*accountRepo)(nil)

func (r *accountRepo) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	return execute(r.b, func() (*domain.Account, error) { return r.next.FindAccountByID(ctx, accountID) })
}

func (r *accountRepo) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	return execute(r.b, func() (map[string]domain.Account, error) { return r.next.FindAccountsByIDs(ctx, accountIDs) })
}

func (r *accountRepo) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	return execute(r.b, func() ([]domain.Account, error) { return r.next.ListAccounts(ctx, limit, offset) })
}

func (r *accountRepo) ListAllAccounts(ctx context.Context) ([]domain.Account, error) {
	return execute(r.b, func() ([]domain.Account, error) { return r.next.ListAllAccounts(ctx) })
}

func (r *accountRepo) HasChildren(ctx context.Context, accountID string) (bool, error) {
	return execute(r.b, func() (bool, error) { return r.next.HasChildren(ctx, accountID) })
}

func (r *accountRepo) HasTransactions(ctx context.Context, accountID string) (bool, error) {
	return execute(r.b, func() (bool, error) { return r.next.HasTransactions(ctx, accountID) })
}

func (r *accountRepo) CreateAccount(ctx context.Context, account domain.Account) error {
	return run(r.b, func() error { return r.next.CreateAccount(ctx, account) })
}

func (r *accountRepo) SaveAccount(ctx context.Context, account domain.Account, expectedVersion int64) error {
	return run(r.b, func() error { return r.next.SaveAccount(ctx, account, expectedVersion) })
}

func (r *accountRepo) DeleteAccount(ctx context.Context, accountID string) error {
	return run(r.b, func() error { return r.next.DeleteAccount(ctx, accountID) })
}

type journalRepo struct {
	next portsrepo.JournalRepositoryFacade
	b    *Breaker
}

var _ portsrepo.JournalRepositoryFacade = (*journalRepo)(nil)

func (r *journalRepo) FindEntryByID(ctx context.Context, entryID int64) (*domain.JournalEntry, error) {
	return execute(r.b, func() (*domain.JournalEntry, error) { return r.next.FindEntryByID(ctx, entryID) })
}

func (r *journalRepo) FindEntryByIdempotencyKey(ctx context.Context, key string) (*domain.JournalEntry, error) {
	return execute(r.b, func() (*domain.JournalEntry, error) { return r.next.FindEntryByIdempotencyKey(ctx, key) })
}

func (r *journalRepo) ListEntriesByAccount(ctx context.Context, accountID string, limit int, after *portsrepo.EntryCursor) ([]domain.JournalEntry, error) {
	return execute(r.b, func() ([]domain.JournalEntry, error) {
		return r.next.ListEntriesByAccount(ctx, accountID, limit, after)
	})
}

func (r *journalRepo) SumAccountMovements(ctx context.Context, accountID string, asOf time.Time) (domain.AccountMovements, error) {
	return execute(r.b, func() (domain.AccountMovements, error) { return r.next.SumAccountMovements(ctx, accountID, asOf) })
}

func (r *journalRepo) InsertEntryIfAbsent(ctx context.Context, entry domain.JournalEntry) (*domain.JournalEntry, error) {
	return execute(r.b, func() (*domain.JournalEntry, error) { return r.next.InsertEntryIfAbsent(ctx, entry) })
}

func (r *journalRepo) MarkEntryReversed(ctx context.Context, entryID int64) error {
	return run(r.b, func() error { return r.next.MarkEntryReversed(ctx, entryID) })
}

type loanRepo struct {
	next portsrepo.LoanRepositoryFacade
	b    *Breaker
}

var _ portsrepo.LoanRepositoryFacade = (*loanRepo)(nil)

func (r *loanRepo) SaveLoan(ctx context.Context, loan domain.Loan) error {
	return run(r.b, func() error { return r.next.SaveLoan(ctx, loan) })
}

func (r *loanRepo) FindLoanByAccountID(ctx context.Context, accountID string) (*domain.Loan, error) {
	return execute(r.b, func() (*domain.Loan, error) { return r.next.FindLoanByAccountID(ctx, accountID) })
}

func (r *loanRepo) ListLoans(ctx context.Context) ([]domain.Loan, error) {
	return execute(r.b, func() ([]domain.Loan, error) { return r.next.ListLoans(ctx) })
}

package services

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	"github.com/SscSPs/cbs_ledger/internal/core/ports/locking"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/cbs_ledger/internal/core/ports/services"
	"github.com/SscSPs/cbs_ledger/internal/utils/backoff"
)

const oneDay = 24 * time.Hour

// LedgerConfig bounds the work a single posting may do.
type LedgerConfig struct {
	// MaxAttempts caps both version-conflict retries and transient store retries.
	MaxAttempts int
	PostTimeout time.Duration
	// LockTimeout bounds the wait for account locks within one attempt.
	LockTimeout    time.Duration
	RetryBaseDelay time.Duration
	RetryMaxDelay  time.Duration
}

// DefaultLedgerConfig returns the limits used when none are configured.
func DefaultLedgerConfig() LedgerConfig {
	return LedgerConfig{
		MaxAttempts:    5,
		PostTimeout:    10 * time.Second,
		LockTimeout:    5 * time.Second,
		RetryBaseDelay: 10 * time.Millisecond,
		RetryMaxDelay:  500 * time.Millisecond,
	}
}

// ledgerService is the posting engine. It is the only component that mutates account balances.
type ledgerService struct {
	BaseService
	accountRepo portsrepo.AccountRepositoryFacade
	journalRepo portsrepo.JournalRepositoryFacade
	uow         portsrepo.UnitOfWork
	locks       locking.AccountLockCoordinator
	reversals   *reversalService
	cfg         LedgerConfig
	now         func() time.Time
	sleep       func(ctx context.Context, d time.Duration) error
}

// LedgerServiceOption is a functional option for configuring the ledger service
type LedgerServiceOption func(*ledgerService)

func WithLedgerConfig(cfg LedgerConfig) LedgerServiceOption {
	return func(s *ledgerService) {
		if cfg.MaxAttempts < 1 {
			cfg.MaxAttempts = 1
		}
		s.cfg = cfg
	}
}

// WithLedgerClock overrides the clock used for postedAt timestamps.
func WithLedgerClock(now func() time.Time) LedgerServiceOption {
	return func(s *ledgerService) {
		s.now = now
	}
}

// NewLedgerService creates the posting engine over the given stores and lock coordinator.
func NewLedgerService(repos portsrepo.RepositoryProvider, locks locking.AccountLockCoordinator, options ...LedgerServiceOption) portssvc.LedgerSvcFacade {
	svc := &ledgerService{
		accountRepo: repos.AccountRepo,
		journalRepo: repos.JournalRepo,
		uow:         repos.UnitOfWork,
		locks:       locks,
		cfg:         DefaultLedgerConfig(),
		now:         time.Now,
		sleep:       backoff.SleepWithContext,
	}
	for _, option := range options {
		option(svc)
	}
	svc.reversals = newReversalService(svc)
	return svc
}

var _ portssvc.LedgerSvcFacade = (*ledgerService)(nil)

// PostTransaction posts a balanced transaction exactly once per idempotency key.
func (s *ledgerService) PostTransaction(ctx context.Context, req domain.PostingRequest) (*domain.JournalEntry, error) {
	return s.post(ctx, req, nil)
}

// ReverseTransaction posts the compensating entry for transactionID.
func (s *ledgerService) ReverseTransaction(ctx context.Context, transactionID int64, reversalKey string) (*domain.JournalEntry, error) {
	return s.reversals.Reverse(ctx, transactionID, reversalKey)
}

// GetTransaction retrieves a committed entry by id.
func (s *ledgerService) GetTransaction(ctx context.Context, transactionID int64) (*domain.JournalEntry, error) {
	entry, err := retryStore(ctx, s, "find_entry", func() (*domain.JournalEntry, error) {
		return s.journalRepo.FindEntryByID(ctx, transactionID)
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, &apperrors.TransactionNotFoundError{ID: transactionID}
		}
		s.LogError(ctx, err, "Failed to find transaction", slog.Int64("transaction_id", transactionID))
		return nil, err
	}
	return entry, nil
}

// post runs one posting to a terminal state. reversalOf, when set, names the
// entry that must flip to REVERSED in the same commit.
func (s *ledgerService) post(ctx context.Context, req domain.PostingRequest, reversalOf *int64) (*domain.JournalEntry, error) {
	if s.cfg.PostTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.PostTimeout)
		defer cancel()
	}
	logger := s.GetLogger(ctx).With(slog.String("idempotency_key", req.IdempotencyKey))

	attempt := domain.NewPostingAttempt(req.IdempotencyKey)
	entry, err := s.runPosting(ctx, attempt, req, reversalOf)
	if err != nil {
		_ = attempt.Advance(domain.StateFailed)
		if isDomainError(err) {
			logger.Warn("Transaction rejected", slog.String("error", err.Error()), slog.String("state", string(attempt.State)))
		} else {
			logger.Error("Transaction posting failed", slog.String("error", err.Error()), slog.String("state", string(attempt.State)))
		}
		return nil, err
	}

	logger.Info("Transaction posted", slog.Int64("transaction_id", entry.EntryID), slog.Int("lines", len(entry.Lines)))
	return entry, nil
}

func (s *ledgerService) runPosting(ctx context.Context, attempt *domain.PostingAttempt, req domain.PostingRequest, reversalOf *int64) (*domain.JournalEntry, error) {
	// Fast path only; InsertEntryIfAbsent is the authoritative guard.
	if req.IdempotencyKey != "" {
		existing, err := retryStore(ctx, s, "find_by_idempotency_key", func() (*domain.JournalEntry, error) {
			return s.journalRepo.FindEntryByIdempotencyKey(ctx, req.IdempotencyKey)
		})
		if err == nil {
			return nil, &apperrors.DuplicateIdempotencyKeyError{Key: req.IdempotencyKey, ExistingID: existing.EntryID}
		}
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, err
		}
	}
	if err := s.advance(ctx, attempt, domain.StateIdempotencyChecked); err != nil {
		return nil, err
	}

	lines, err := ValidateTransaction(req)
	if err != nil {
		return nil, err
	}
	if err := s.advance(ctx, attempt, domain.StateValidated); err != nil {
		return nil, err
	}

	accountIDs := make([]string, len(lines))
	for i, l := range lines {
		accountIDs[i] = l.AccountID
	}
	ids := locking.OrderedIDs(accountIDs)

	var lastErr error
	for try := 1; try <= s.cfg.MaxAttempts; try++ {
		entry, err := s.commitOnce(ctx, attempt, req, lines, ids, reversalOf)
		if err == nil {
			return entry, nil
		}
		if !errors.Is(err, apperrors.ErrVersionConflict) && !errors.Is(err, apperrors.ErrStoreUnavailable) {
			return nil, err
		}
		lastErr = err

		s.LogDebug(ctx, "Retrying posting", slog.Int("attempt", try), slog.String("reason", err.Error()))
		if attempt.State != domain.StateValidated {
			if aerr := s.advance(ctx, attempt, domain.StateValidated); aerr != nil {
				return nil, aerr
			}
		}
		if try < s.cfg.MaxAttempts {
			if serr := s.sleep(ctx, backoff.ExponentialWithJitter(s.cfg.RetryBaseDelay, try-1, s.cfg.RetryMaxDelay)); serr != nil {
				return nil, lastErr
			}
		}
	}

	var conflict *apperrors.VersionConflictError
	if errors.As(lastErr, &conflict) {
		return nil, &apperrors.VersionConflictError{AccountID: conflict.AccountID, Attempts: s.cfg.MaxAttempts}
	}
	return nil, lastErr
}

// commitOnce fetches, locks, applies and persists once. Locks are released on return.
func (s *ledgerService) commitOnce(ctx context.Context, attempt *domain.PostingAttempt, req domain.PostingRequest, lines []domain.EntryLine, ids []string, reversalOf *int64) (*domain.JournalEntry, error) {
	if _, err := s.loadAccounts(ctx, ids); err != nil {
		return nil, err
	}

	lockCtx := ctx
	if s.cfg.LockTimeout > 0 {
		var cancel context.CancelFunc
		lockCtx, cancel = context.WithTimeout(ctx, s.cfg.LockTimeout)
		defer cancel()
	}
	release, err := s.locks.Acquire(lockCtx, ids)
	if err != nil {
		return nil, err
	}
	defer release()
	if err := s.advance(ctx, attempt, domain.StateLocked); err != nil {
		return nil, err
	}

	// Re-read under the locks so the snapshot reflects every earlier posting.
	accounts, err := s.loadAccounts(ctx, ids)
	if err != nil {
		return nil, err
	}
	expected := make(map[string]int64, len(accounts))
	for id, acc := range accounts {
		expected[id] = acc.Version
	}
	for _, l := range lines {
		acc := accounts[l.AccountID]
		delta, err := BalanceDelta(acc.AccountType, l.Debit, l.Credit)
		if err != nil {
			return nil, err
		}
		acc.Balance = acc.Balance.Add(delta)
		accounts[l.AccountID] = acc
	}
	if err := s.advance(ctx, attempt, domain.StateApplied); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	entry := domain.JournalEntry{
		IdempotencyKey:  req.IdempotencyKey,
		Description:     req.Description,
		TransactionDate: req.TransactionDate,
		PostedAt:        now,
		Status:          domain.Posted,
		ReversalOf:      reversalOf,
		Lines:           lines,
	}
	if entry.TransactionDate.IsZero() {
		entry.TransactionDate = now.Truncate(oneDay)
	}

	var committed *domain.JournalEntry
	err = s.uow.RunInTx(ctx, func(ctx context.Context, tx portsrepo.TxStores) error {
		for _, id := range ids {
			acc := accounts[id]
			acc.UpdatedAt = now
			if err := tx.Accounts.SaveAccount(ctx, acc, expected[id]); err != nil {
				return err
			}
		}
		inserted, err := tx.Journals.InsertEntryIfAbsent(ctx, entry)
		if err != nil {
			return err
		}
		if reversalOf != nil {
			if err := tx.Journals.MarkEntryReversed(ctx, *reversalOf); err != nil {
				return err
			}
		}
		committed = inserted
		return s.advance(ctx, attempt, domain.StatePersisted)
	})
	if err != nil {
		return nil, err
	}
	if err := s.advance(ctx, attempt, domain.StateCommitted); err != nil {
		return nil, err
	}
	return committed, nil
}

// loadAccounts fetches ids and enforces existence and the single-currency rule.
func (s *ledgerService) loadAccounts(ctx context.Context, ids []string) (map[string]domain.Account, error) {
	accounts, err := retryStore(ctx, s, "find_accounts", func() (map[string]domain.Account, error) {
		return s.accountRepo.FindAccountsByIDs(ctx, ids)
	})
	if err != nil {
		return nil, err
	}

	var missing []string
	currencies := make(map[string]struct{})
	for _, id := range ids {
		acc, ok := accounts[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		currencies[acc.CurrencyCode] = struct{}{}
	}
	if len(missing) > 0 {
		return nil, &apperrors.AccountNotFoundError{Missing: missing}
	}
	if len(currencies) > 1 {
		found := make([]string, 0, len(currencies))
		for c := range currencies {
			found = append(found, c)
		}
		sort.Strings(found)
		return nil, &apperrors.MultiCurrencyError{Currencies: found}
	}
	return accounts, nil
}

func (s *ledgerService) advance(ctx context.Context, attempt *domain.PostingAttempt, next domain.PostingState) error {
	from := attempt.State
	if err := attempt.Advance(next); err != nil {
		return err
	}
	s.LogDebug(ctx, "Posting state changed", slog.String("from", string(from)), slog.String("to", string(next)))
	return nil
}

// retryStore retries fn while it reports the store as unavailable.
func retryStore[T any](ctx context.Context, s *ledgerService, op string, fn func() (T, error)) (T, error) {
	for try := 1; ; try++ {
		v, err := fn()
		if err == nil || !errors.Is(err, apperrors.ErrStoreUnavailable) || try >= s.cfg.MaxAttempts {
			return v, err
		}
		s.LogWarn(ctx, err, "Transient store failure", slog.String("operation", op), slog.Int("attempt", try))
		if serr := s.sleep(ctx, backoff.ExponentialWithJitter(s.cfg.RetryBaseDelay, try-1, s.cfg.RetryMaxDelay)); serr != nil {
			return v, err
		}
	}
}

// isDomainError reports whether err is an expected rejection rather than an infrastructure failure.
func isDomainError(err error) bool {
	for _, target := range []error{
		apperrors.ErrValidation,
		apperrors.ErrUnbalanced,
		apperrors.ErrNotFound,
		apperrors.ErrMultiCurrency,
		apperrors.ErrDuplicate,
		apperrors.ErrConflict,
		apperrors.ErrVersionConflict,
		apperrors.ErrLockTimeout,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

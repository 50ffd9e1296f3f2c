package apperrors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates that a requested resource could not be found.
var ErrNotFound = errors.New("resource not found")

// ErrValidation indicates that input data failed validation checks.
var ErrValidation = errors.New("validation error")

// ErrDuplicate indicates that an attempt was made to create a resource that already exists.
var ErrDuplicate = errors.New("resource already exists")

// ErrConflict indicates the request conflicts with the current state of a resource.
var ErrConflict = errors.New("conflict with current state")

var (
	ErrUnbalanced       = errors.New("transaction is unbalanced")
	ErrMultiCurrency    = errors.New("accounts span more than one currency")
	ErrInvalidHierarchy = errors.New("invalid account hierarchy")
	ErrVersionConflict  = errors.New("account version conflict")
	ErrLockTimeout      = errors.New("timed out acquiring account locks")

	// ErrStoreUnavailable is returned once transient storage failures exhaust their retries.
	ErrStoreUnavailable = errors.New("ledger store unavailable")
)

// ValidationError reports a malformed request.
type ValidationError struct {
	Field   string
	Message string
}

func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }

// UnbalancedTransactionError carries both sides of a transaction whose totals differ.
type UnbalancedTransactionError struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

func (e *UnbalancedTransactionError) Error() string {
	return fmt.Sprintf("transaction is unbalanced: debits=%s credits=%s", e.Debits.String(), e.Credits.String())
}

func (e *UnbalancedTransactionError) Unwrap() error { return ErrUnbalanced }

// AccountNotFoundError lists every referenced account id that does not exist.
type AccountNotFoundError struct {
	Missing []string
}

func (e *AccountNotFoundError) Error() string {
	return "accounts not found: " + strings.Join(e.Missing, ", ")
}

func (e *AccountNotFoundError) Unwrap() error { return ErrNotFound }

type MultiCurrencyError struct {
	Currencies []string
}

func (e *MultiCurrencyError) Error() string {
	return "all accounts in a transaction must share one currency, found: " + strings.Join(e.Currencies, ", ")
}

func (e *MultiCurrencyError) Unwrap() error { return ErrMultiCurrency }

// DuplicateIdempotencyKeyError is returned when a key has already been used by a committed entry.
// ExistingID is zero when the duplicate was detected by the store guard and the prior entry was not loaded.
type DuplicateIdempotencyKeyError struct {
	Key        string
	ExistingID int64
}

func (e *DuplicateIdempotencyKeyError) Error() string {
	if e.ExistingID == 0 {
		return fmt.Sprintf("idempotency key %q already used", e.Key)
	}
	return fmt.Sprintf("idempotency key %q already used by transaction %d", e.Key, e.ExistingID)
}

func (e *DuplicateIdempotencyKeyError) Unwrap() error { return ErrDuplicate }

type TransactionNotFoundError struct {
	ID int64
}

func (e *TransactionNotFoundError) Error() string {
	return fmt.Sprintf("transaction %d not found", e.ID)
}

func (e *TransactionNotFoundError) Unwrap() error { return ErrNotFound }

type TransactionAlreadyReversedError struct {
	ID int64
}

func (e *TransactionAlreadyReversedError) Error() string {
	return fmt.Sprintf("transaction %d is already reversed", e.ID)
}

func (e *TransactionAlreadyReversedError) Unwrap() error { return ErrConflict }

// AccountHasDependentsError blocks deletion of an account that still has children or entry lines.
type AccountHasDependentsError struct {
	AccountID string
	Reason    string
}

func (e *AccountHasDependentsError) Error() string {
	return fmt.Sprintf("account %s cannot be deleted: %s", e.AccountID, e.Reason)
}

func (e *AccountHasDependentsError) Unwrap() error { return ErrConflict }

type AccountAlreadyExistsError struct {
	AccountID string
}

func (e *AccountAlreadyExistsError) Error() string {
	return fmt.Sprintf("account %s already exists", e.AccountID)
}

func (e *AccountAlreadyExistsError) Unwrap() error { return ErrDuplicate }

type InvalidAccountHierarchyError struct {
	AccountID string
	ParentID  string
	Message   string
}

func (e *InvalidAccountHierarchyError) Error() string {
	return fmt.Sprintf("account %s cannot be placed under %s: %s", e.AccountID, e.ParentID, e.Message)
}

func (e *InvalidAccountHierarchyError) Unwrap() error { return ErrInvalidHierarchy }

// VersionConflictError is returned when optimistic concurrency retries are exhausted.
type VersionConflictError struct {
	AccountID string
	Attempts  int
}

func (e *VersionConflictError) Error() string {
	if e.Attempts == 0 {
		return fmt.Sprintf("account %s was modified concurrently", e.AccountID)
	}
	return fmt.Sprintf("account %s was modified concurrently, gave up after %d attempts", e.AccountID, e.Attempts)
}

func (e *VersionConflictError) Unwrap() error { return ErrVersionConflict }

type LockTimeoutError struct {
	AccountIDs []string
}

func (e *LockTimeoutError) Error() string {
	return "timed out acquiring locks for accounts: " + strings.Join(e.AccountIDs, ", ")
}

func (e *LockTimeoutError) Unwrap() error { return ErrLockTimeout }

// IsRetryable reports whether err is a transient failure the caller may retry with the same idempotency key.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict) || errors.Is(err, ErrLockTimeout) || errors.Is(err, ErrStoreUnavailable)
}

package pgsql

import (
	"context"
	"errors"
	"fmt"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes the repositories translate.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// DBTX is satisfied by both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// BaseRepository provides common functionality for all repositories.
// Tx is set when the repository is bound to a unit of work.
type BaseRepository struct {
	Pool *pgxpool.Pool
	Tx   pgx.Tx
}

// DB returns the transaction when bound to one, the pool otherwise.
func (r *BaseRepository) DB() DBTX {
	if r.Tx != nil {
		return r.Tx
	}
	return r.Pool
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, mapPgError(err, "begin transaction")
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return mapPgError(err, "commit transaction")
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

// withTx runs fn in the bound transaction, or in a fresh one committed on success.
func (r *BaseRepository) withTx(ctx context.Context, fn func(db DBTX) error) error {
	if r.Tx != nil {
		return fn(r.Tx)
	}
	tx, err := r.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = r.Rollback(ctx, tx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return r.Commit(ctx, tx)
}

// mapPgError turns driver failures into apperrors sentinels where one applies.
// Domain errors already produced by a repository pass through unchanged.
func mapPgError(err error, op string) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			return fmt.Errorf("%w: %s: %s", apperrors.ErrDuplicate, op, pgErr.Detail)
		case pgSerializationFailure, pgDeadlockDetected:
			return fmt.Errorf("%w: %s: %s", apperrors.ErrStoreUnavailable, op, pgErr.Message)
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	if pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return fmt.Errorf("%w: %s: %v", apperrors.ErrStoreUnavailable, op, err)
	}
	return fmt.Errorf("failed to %s: %w", op, err)
}

func isPgCode(err error, code string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == code
}

// unitOfWork binds fresh repositories to one database transaction per call.
type unitOfWork struct {
	BaseRepository
}

var _ portsrepo.UnitOfWork = (*unitOfWork)(nil)

func (u *unitOfWork) RunInTx(ctx context.Context, fn func(ctx context.Context, tx portsrepo.TxStores) error) error {
	tx, err := u.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = u.Rollback(ctx, tx) }()

	base := BaseRepository{Pool: u.Pool, Tx: tx}
	stores := portsrepo.TxStores{
		Accounts: &PgxAccountRepository{BaseRepository: base},
		Journals: &PgxJournalRepository{BaseRepository: base},
		Loans:    &PgxLoanRepository{BaseRepository: base},
	}
	if err := fn(ctx, stores); err != nil {
		return err
	}
	return u.Commit(ctx, tx)
}

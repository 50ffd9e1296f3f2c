package pgsql

import (
	"context"
	"fmt"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/cbs_ledger/internal/models"
	"github.com/SscSPs/cbs_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
)

const accountColumns = `account_id, name, account_type, currency_code, parent_account_id, balance, version, created_at, updated_at`

type PgxAccountRepository struct {
	BaseRepository
}

// Ensure PgxAccountRepository implements portsrepo.AccountRepositoryFacade
var _ portsrepo.AccountRepositoryFacade = (*PgxAccountRepository)(nil)

func (r *PgxAccountRepository) queryAccounts(ctx context.Context, query string, args ...any) ([]domain.Account, error) {
	rows, err := r.DB().Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err, "query accounts")
	}
	modelAccounts, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Account])
	if err != nil {
		return nil, mapPgError(err, "scan accounts")
	}
	accounts := make([]domain.Account, len(modelAccounts))
	for i, m := range modelAccounts {
		accounts[i] = mapping.ToDomainAccount(m)
	}
	return accounts, nil
}

// FindAccountByID retrieves an account by its ID.
func (r *PgxAccountRepository) FindAccountByID(ctx context.Context, accountID string) (*domain.Account, error) {
	accounts, err := r.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_id = $1;`, accountID)
	if err != nil {
		return nil, err
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return &accounts[0], nil
}

// FindAccountsByIDs retrieves the accounts present among accountIDs.
func (r *PgxAccountRepository) FindAccountsByIDs(ctx context.Context, accountIDs []string) (map[string]domain.Account, error) {
	accounts, err := r.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts WHERE account_id = ANY($1);`, accountIDs)
	if err != nil {
		return nil, err
	}
	found := make(map[string]domain.Account, len(accounts))
	for _, acc := range accounts {
		found[acc.AccountID] = acc
	}
	return found, nil
}

func (r *PgxAccountRepository) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	return r.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY account_id LIMIT $1 OFFSET $2;`, limit, offset)
}

func (r *PgxAccountRepository) ListAllAccounts(ctx context.Context) ([]domain.Account, error) {
	return r.queryAccounts(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY account_id;`)
}

func (r *PgxAccountRepository) exists(ctx context.Context, query string, args ...any) (bool, error) {
	var found bool
	if err := r.DB().QueryRow(ctx, query, args...).Scan(&found); err != nil {
		return false, mapPgError(err, "check existence")
	}
	return found, nil
}

func (r *PgxAccountRepository) HasChildren(ctx context.Context, accountID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM accounts WHERE parent_account_id = $1);`, accountID)
}

func (r *PgxAccountRepository) HasTransactions(ctx context.Context, accountID string) (bool, error) {
	return r.exists(ctx, `SELECT EXISTS (SELECT 1 FROM entry_lines WHERE account_id = $1);`, accountID)
}

// CreateAccount inserts a new account at version 1.
func (r *PgxAccountRepository) CreateAccount(ctx context.Context, account domain.Account) error {
	m := mapping.ToModelAccount(account)
	if m.Version == 0 {
		m.Version = 1
	}

	query := `
		INSERT INTO accounts (account_id, name, account_type, currency_code, parent_account_id, balance, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9);
	`
	_, err := r.DB().Exec(ctx, query,
		m.AccountID,
		m.Name,
		m.AccountType,
		m.CurrencyCode,
		m.ParentAccountID,
		m.Balance,
		m.Version,
		m.CreatedAt,
		m.UpdatedAt,
	)
	if err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return &apperrors.InvalidAccountHierarchyError{AccountID: m.AccountID, ParentID: m.ParentAccountID.String, Message: "parent account does not exist"}
		}
		if isPgCode(err, pgUniqueViolation) {
			return fmt.Errorf("%w: account with ID %s already exists", apperrors.ErrDuplicate, m.AccountID)
		}
		return mapPgError(err, "save account "+m.AccountID)
	}
	return nil
}

// SaveAccount is a compare-and-swap on the version column.
func (r *PgxAccountRepository) SaveAccount(ctx context.Context, account domain.Account, expectedVersion int64) error {
	query := `
		UPDATE accounts
		SET balance = $2, updated_at = $3, version = version + 1
		WHERE account_id = $1 AND version = $4;
	`
	tag, err := r.DB().Exec(ctx, query, account.AccountID, account.Balance, account.UpdatedAt, expectedVersion)
	if err != nil {
		return mapPgError(err, "update account "+account.AccountID)
	}
	if tag.RowsAffected() == 0 {
		return &apperrors.VersionConflictError{AccountID: account.AccountID}
	}
	return nil
}

// DeleteAccount relies on foreign keys to refuse accounts that are still referenced.
func (r *PgxAccountRepository) DeleteAccount(ctx context.Context, accountID string) error {
	tag, err := r.DB().Exec(ctx, `DELETE FROM accounts WHERE account_id = $1;`, accountID)
	if err != nil {
		if isPgCode(err, pgForeignKeyViolation) {
			return &apperrors.AccountHasDependentsError{AccountID: accountID, Reason: "it is still referenced"}
		}
		return mapPgError(err, "delete account "+accountID)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: account %s", apperrors.ErrNotFound, accountID)
	}
	return nil
}

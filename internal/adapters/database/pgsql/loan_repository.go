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

const loanColumns = `account_id, reference, borrower, principal, disbursed_at, due_date`

type PgxLoanRepository struct {
	BaseRepository
}

var _ portsrepo.LoanRepositoryFacade = (*PgxLoanRepository)(nil)

// SaveLoan upserts on the loan account.
func (r *PgxLoanRepository) SaveLoan(ctx context.Context, loan domain.Loan) error {
	m := mapping.ToModelLoan(loan)
	query := `
		INSERT INTO loans (account_id, reference, borrower, principal, disbursed_at, due_date)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (account_id) DO UPDATE
		SET reference = EXCLUDED.reference,
		    borrower = EXCLUDED.borrower,
		    principal = EXCLUDED.principal,
		    disbursed_at = EXCLUDED.disbursed_at,
		    due_date = EXCLUDED.due_date;
	`
	if _, err := r.DB().Exec(ctx, query, m.AccountID, m.Reference, m.Borrower, m.Principal, m.DisbursedAt, m.DueDate); err != nil {
		return mapPgError(err, "save loan "+m.AccountID)
	}
	return nil
}

func (r *PgxLoanRepository) queryLoans(ctx context.Context, query string, args ...any) ([]domain.Loan, error) {
	rows, err := r.DB().Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err, "query loans")
	}
	modelLoans, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.Loan])
	if err != nil {
		return nil, mapPgError(err, "scan loans")
	}
	loans := make([]domain.Loan, len(modelLoans))
	for i, m := range modelLoans {
		loans[i] = mapping.ToDomainLoan(m)
	}
	return loans, nil
}

func (r *PgxLoanRepository) FindLoanByAccountID(ctx context.Context, accountID string) (*domain.Loan, error) {
	loans, err := r.queryLoans(ctx, `SELECT `+loanColumns+` FROM loans WHERE account_id = $1;`, accountID)
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return nil, fmt.Errorf("%w: loan for account %s", apperrors.ErrNotFound, accountID)
	}
	return &loans[0], nil
}

func (r *PgxLoanRepository) ListLoans(ctx context.Context) ([]domain.Loan, error) {
	return r.queryLoans(ctx, `SELECT `+loanColumns+` FROM loans ORDER BY account_id;`)
}

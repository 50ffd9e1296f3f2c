package pgsql

import (
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	"github.com/jackc/pgx/v5/pgxpool"
)

func NewRepositoryProvider(dbPool *pgxpool.Pool) portsrepo.RepositoryProvider {
	base := BaseRepository{Pool: dbPool}
	return portsrepo.RepositoryProvider{
		AccountRepo: &PgxAccountRepository{BaseRepository: base},
		JournalRepo: &PgxJournalRepository{BaseRepository: base},
		LoanRepo:    &PgxLoanRepository{BaseRepository: base},
		UnitOfWork:  &unitOfWork{BaseRepository: base},
	}
}

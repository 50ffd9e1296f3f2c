package repositories

import (
	"context"
)

// TxStores holds repositories bound to a single unit of work.
type TxStores struct {
	Accounts AccountRepositoryFacade
	Journals JournalRepositoryFacade
	Loans    LoanRepositoryFacade
}

// UnitOfWork runs fn atomically. Every write made through the TxStores passed
// to fn commits together when fn returns nil and is discarded otherwise.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, tx TxStores) error) error
}

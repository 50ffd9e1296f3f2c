//go:build integration

package pgsql

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/cbs_ledger/pkg/database"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRepositories(t *testing.T) portsrepo.RepositoryProvider {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("ledger"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, container.Terminate(ctx)) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	_, err = database.RunMigrations(slog.Default(), dsn, "file://../../../../migrations", database.MigrateUp)
	require.NoError(t, err)

	pool, err := database.NewPgxPool(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	return NewRepositoryProvider(pool)
}

func TestIntegration_Repositories(t *testing.T) {
	repos := setupRepositories(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, acc := range []domain.Account{
		{AccountID: "cash", Name: "Cash", AccountType: domain.Asset, CurrencyCode: "KES", Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now},
		{AccountID: "loan-receivable", Name: "Loan Receivable", AccountType: domain.Asset, CurrencyCode: "KES", Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now},
	} {
		require.NoError(t, repos.AccountRepo.CreateAccount(ctx, acc))
	}
	assert.ErrorIs(t, repos.AccountRepo.CreateAccount(ctx, domain.Account{AccountID: "cash", Name: "dup", AccountType: domain.Asset, CurrencyCode: "KES"}), apperrors.ErrDuplicate)

	entry := domain.JournalEntry{
		IdempotencyKey:  "int-1",
		Description:     "disbursement",
		TransactionDate: now.Truncate(24 * time.Hour),
		PostedAt:        now,
		Status:          domain.Posted,
		Lines: []domain.EntryLine{
			{AccountID: "loan-receivable", Debit: decimal.NewFromInt(500), Credit: decimal.Zero},
			{AccountID: "cash", Debit: decimal.Zero, Credit: decimal.NewFromInt(500)},
		},
	}

	var committed *domain.JournalEntry
	err := repos.UnitOfWork.RunInTx(ctx, func(ctx context.Context, tx portsrepo.TxStores) error {
		accounts, err := tx.Accounts.FindAccountsByIDs(ctx, []string{"cash", "loan-receivable"})
		if err != nil {
			return err
		}
		for id, delta := range map[string]int64{"cash": -500, "loan-receivable": 500} {
			acc := accounts[id]
			acc.Balance = acc.Balance.Add(decimal.NewFromInt(delta))
			if err := tx.Accounts.SaveAccount(ctx, acc, acc.Version); err != nil {
				return err
			}
		}
		committed, err = tx.Journals.InsertEntryIfAbsent(ctx, entry)
		return err
	})
	require.NoError(t, err)
	require.NotZero(t, committed.EntryID)
	assert.NotZero(t, committed.Lines[0].LineID)

	cash, err := repos.AccountRepo.FindAccountByID(ctx, "cash")
	require.NoError(t, err)
	assert.True(t, cash.Balance.Equal(decimal.NewFromInt(-500)))
	assert.Equal(t, int64(2), cash.Version)

	// Stale version loses and rolls back everything.
	err = repos.UnitOfWork.RunInTx(ctx, func(ctx context.Context, tx portsrepo.TxStores) error {
		return tx.Accounts.SaveAccount(ctx, *cash, 1)
	})
	assert.ErrorIs(t, err, apperrors.ErrVersionConflict)

	_, err = repos.JournalRepo.InsertEntryIfAbsent(ctx, entry)
	var dup *apperrors.DuplicateIdempotencyKeyError
	require.True(t, errors.As(err, &dup))
	assert.Equal(t, committed.EntryID, dup.ExistingID)

	found, err := repos.JournalRepo.FindEntryByIdempotencyKey(ctx, "int-1")
	require.NoError(t, err)
	assert.Len(t, found.Lines, 2)

	history, err := repos.JournalRepo.ListEntriesByAccount(ctx, "cash", 10, nil)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	m, err := repos.JournalRepo.SumAccountMovements(ctx, "cash", now)
	require.NoError(t, err)
	assert.True(t, m.Credits.Equal(decimal.NewFromInt(500)))

	require.NoError(t, repos.JournalRepo.MarkEntryReversed(ctx, committed.EntryID))
	assert.ErrorIs(t, repos.JournalRepo.MarkEntryReversed(ctx, committed.EntryID), apperrors.ErrConflict)

	var deps *apperrors.AccountHasDependentsError
	assert.True(t, errors.As(repos.AccountRepo.DeleteAccount(ctx, "cash"), &deps))

	due := now.AddDate(0, 1, 0).Truncate(24 * time.Hour)
	require.NoError(t, repos.LoanRepo.SaveLoan(ctx, domain.Loan{AccountID: "loan-receivable", Reference: "L-1", Principal: decimal.NewFromInt(500), DisbursedAt: now.Truncate(24 * time.Hour), DueDate: &due}))
	loan, err := repos.LoanRepo.FindLoanByAccountID(ctx, "loan-receivable")
	require.NoError(t, err)
	assert.Equal(t, "L-1", loan.Reference)
}

func TestIntegration_ConcurrentInsertSameKey(t *testing.T) {
	repos := setupRepositories(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, repos.AccountRepo.CreateAccount(ctx, domain.Account{AccountID: "a", Name: "A", AccountType: domain.Asset, CurrencyCode: "KES", Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}))
	require.NoError(t, repos.AccountRepo.CreateAccount(ctx, domain.Account{AccountID: "b", Name: "B", AccountType: domain.Asset, CurrencyCode: "KES", Balance: decimal.Zero, CreatedAt: now, UpdatedAt: now}))

	entry := domain.JournalEntry{
		IdempotencyKey:  "race",
		TransactionDate: now,
		PostedAt:        now,
		Status:          domain.Posted,
		Lines: []domain.EntryLine{
			{AccountID: "a", Debit: decimal.NewFromInt(1), Credit: decimal.Zero},
			{AccountID: "b", Debit: decimal.Zero, Credit: decimal.NewFromInt(1)},
		},
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	successes := 0
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := repos.JournalRepo.InsertEntryIfAbsent(ctx, entry); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, successes)
}

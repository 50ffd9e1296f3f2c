package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/cbs_ledger/internal/adapters/locking"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/cbs_ledger/internal/core/ports/services"
	"github.com/SscSPs/cbs_ledger/internal/core/services"
	"github.com/SscSPs/cbs_ledger/internal/dto"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLedgerConfig() services.LedgerConfig {
	cfg := services.DefaultLedgerConfig()
	cfg.MaxAttempts = 3
	cfg.RetryBaseDelay = time.Millisecond
	cfg.RetryMaxDelay = 5 * time.Millisecond
	return cfg
}

func containerOptions(accountClock func() time.Time) services.ContainerOptions {
	clock := fixedClock(testNow)
	return services.ContainerOptions{
		Ledger:    []services.LedgerServiceOption{services.WithLedgerConfig(testLedgerConfig()), services.WithLedgerClock(clock)},
		Account:   []services.AccountServiceOption{services.WithAccountClock(accountClock)},
		Reporting: []services.ReportingServiceOption{services.WithReportingClock(clock)},
		Loan:      []services.LoanServiceOption{services.WithLoanClock(clock)},
	}
}

func newServicesOver(repos portsrepo.RepositoryProvider) *portssvc.ServiceContainer {
	return services.NewServiceContainer(repos, locking.NewLocalCoordinator(), containerOptions(fixedClock(testNow)))
}

// newTestLedger wires every service over a fresh in-memory store with local locks.
func newTestLedger() (portsrepo.RepositoryProvider, *portssvc.ServiceContainer) {
	repos := memory.NewRepositoryProvider(memory.NewStore())
	return repos, newServicesOver(repos)
}

func createAccounts(t *testing.T, svc portssvc.AccountWriterSvc, reqs ...dto.CreateAccountRequest) {
	t.Helper()
	for _, req := range reqs {
		_, err := svc.CreateAccount(context.Background(), req)
		require.NoError(t, err, "create %s", req.AccountID)
	}
}

func account(id, name string, accountType domain.AccountType) dto.CreateAccountRequest {
	return dto.CreateAccountRequest{AccountID: id, Name: name, AccountType: accountType, CurrencyCode: "KES"}
}

func usdAccount() dto.CreateAccountRequest {
	return dto.CreateAccountRequest{AccountID: "USD-CASH", Name: "Cash USD", AccountType: domain.Asset, CurrencyCode: "USD"}
}

// standardChart is a small lending chart used across the tests.
func standardChart() []dto.CreateAccountRequest {
	return []dto.CreateAccountRequest{
		account("CASH", "Cash at Bank", domain.Asset),
		account("LOAN-001", "Loan Receivable 001", domain.Asset),
		account("CAPITAL", "Share Capital", domain.Equity),
		account("DEPOSITS", "Customer Deposits", domain.Liability),
		account("INTEREST", "Interest Income", domain.Income),
		account("BAD-DEBT", "Bad Debt Expense", domain.Expense),
	}
}

func transfer(key, debitAcc, creditAcc, amount string) domain.PostingRequest {
	amt := dec(amount)
	return domain.PostingRequest{
		IdempotencyKey: key,
		Entries: []domain.EntryRequest{
			{AccountID: debitAcc, Debit: amt, Credit: decimal.Zero},
			{AccountID: creditAcc, Debit: decimal.Zero, Credit: amt},
		},
	}
}

func balanceOf(t *testing.T, repos portsrepo.RepositoryProvider, accountID string) decimal.Decimal {
	t.Helper()
	acc, err := repos.AccountRepo.FindAccountByID(context.Background(), accountID)
	require.NoError(t, err)
	return acc.Balance
}

package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/adapters/database/memory"
	"github.com/SscSPs/cbs_ledger/internal/adapters/locking"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	"github.com/SscSPs/cbs_ledger/internal/core/services"
	"github.com/SscSPs/cbs_ledger/internal/dto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportingService_TrialBalance(t *testing.T) {
	ctx := context.Background()
	_, svc := newTestLedger()
	createAccounts(t, svc.Account, standardChart()...)

	for _, req := range []struct{ key, debit, credit, amount string }{
		{"capital", "CASH", "CAPITAL", "1000"},
		{"deposit", "CASH", "DEPOSITS", "300"},
		{"disburse", "LOAN-001", "CASH", "400"},
		{"interest", "CASH", "INTEREST", "45.50"},
		{"write-off", "BAD-DEBT", "LOAN-001", "20"},
	} {
		_, err := svc.Ledger.PostTransaction(ctx, transfer(req.key, req.debit, req.credit, req.amount))
		require.NoError(t, err, req.key)
	}

	report, err := svc.Reporting.GetTrialBalance(ctx)
	require.NoError(t, err)

	assert.True(t, report.IsBalanced)
	assert.Equal(t, testNow, report.GeneratedAt)
	assert.True(t, report.TotalDebits.Equal(dec("1345.50")), report.TotalDebits.String())
	assert.True(t, report.TotalDebits.Equal(report.TotalCredits))

	require.Len(t, report.AccountBalances, len(domain.AccountTypes))
	want := map[domain.AccountType]struct{ debit, credit string }{
		domain.Asset:     {"1325.50", "0"},
		domain.Liability: {"0", "300"},
		domain.Equity:    {"0", "1000"},
		domain.Income:    {"0", "45.50"},
		domain.Expense:   {"20", "0"},
	}
	for i, row := range report.AccountBalances {
		assert.Equal(t, domain.AccountTypes[i], row.AccountType)
		w := want[row.AccountType]
		assert.True(t, row.Debit.Equal(dec(w.debit)), "%s debit %s", row.AccountType, row.Debit)
		assert.True(t, row.Credit.Equal(dec(w.credit)), "%s credit %s", row.AccountType, row.Credit)
	}
}

func TestReportingService_TrialBalanceEmptyLedger(t *testing.T) {
	_, svc := newTestLedger()

	report, err := svc.Reporting.GetTrialBalance(context.Background())
	require.NoError(t, err)
	assert.True(t, report.IsBalanced)
	assert.True(t, report.TotalDebits.IsZero())
	assert.Len(t, report.AccountBalances, len(domain.AccountTypes))
}

func TestReportingService_TrialBalanceFlagsCorruptedBalances(t *testing.T) {
	ctx := context.Background()
	repos, svc := newTestLedger()
	createAccounts(t, svc.Account, standardChart()...)

	// A balance written outside the engine has no matching credit.
	cash, err := repos.AccountRepo.FindAccountByID(ctx, "CASH")
	require.NoError(t, err)
	cash.Balance = dec("5")
	require.NoError(t, repos.AccountRepo.SaveAccount(ctx, *cash, cash.Version))

	report, err := svc.Reporting.GetTrialBalance(ctx)
	require.NoError(t, err)
	assert.False(t, report.IsBalanced)
}

func TestReportingService_BalanceSheetCarriesCurrentEarnings(t *testing.T) {
	ctx := context.Background()
	_, svc := newTestLedger()
	createAccounts(t, svc.Account, standardChart()...)

	for _, req := range []struct{ key, debit, credit, amount string }{
		{"capital", "CASH", "CAPITAL", "1000"},
		{"deposit", "CASH", "DEPOSITS", "250"},
		{"interest", "CASH", "INTEREST", "200"},
		{"write-off", "BAD-DEBT", "CASH", "50"},
	} {
		_, err := svc.Ledger.PostTransaction(ctx, transfer(req.key, req.debit, req.credit, req.amount))
		require.NoError(t, err, req.key)
	}

	sheet, err := svc.Reporting.GetBalanceSheet(ctx)
	require.NoError(t, err)

	assert.True(t, sheet.IsBalanced)
	assert.Equal(t, testNow, sheet.GeneratedAt)
	assert.True(t, sheet.TotalAssets.Equal(dec("1400")), sheet.TotalAssets.String())
	assert.True(t, sheet.TotalLiabilities.Equal(dec("250")))
	assert.True(t, sheet.TotalEquity.Equal(dec("1150")))
	assert.True(t, sheet.PostedEquity.Equal(dec("1000")), sheet.PostedEquity.String())
	assert.True(t, sheet.CurrentEarnings.Equal(dec("150")), sheet.CurrentEarnings.String())
	// Without the earnings line the sheet's own accounts differ by exactly the earnings.
	assert.True(t, sheet.TotalAssets.Sub(sheet.TotalLiabilities.Add(sheet.PostedEquity)).Equal(sheet.CurrentEarnings))

	require.Len(t, sheet.Equity, 2)
	assert.Equal(t, "CAPITAL", sheet.Equity[0].AccountID)
	earnings := sheet.Equity[1]
	assert.Equal(t, services.CurrentEarningsAccountID, earnings.AccountID)
	assert.Equal(t, services.CurrentEarningsName, earnings.Name)
	assert.True(t, earnings.Amount.Equal(dec("150")))

	// Income and expense accounts never appear as lines of their own.
	for _, line := range append(append(sheet.Assets, sheet.Liabilities...), sheet.Equity...) {
		assert.NotEqual(t, "INTEREST", line.AccountID)
		assert.NotEqual(t, "BAD-DEBT", line.AccountID)
	}
}

func TestReportingService_BalanceSheetWithoutEarnings(t *testing.T) {
	ctx := context.Background()
	_, svc := newTestLedger()
	createAccounts(t, svc.Account, standardChart()...)
	_, err := svc.Ledger.PostTransaction(ctx, transfer("capital", "CASH", "CAPITAL", "10"))
	require.NoError(t, err)

	sheet, err := svc.Reporting.GetBalanceSheet(ctx)
	require.NoError(t, err)
	assert.True(t, sheet.IsBalanced)
	require.Len(t, sheet.Equity, 1)
	assert.Equal(t, "CAPITAL", sheet.Equity[0].AccountID)
	assert.NotNil(t, sheet.Liabilities)
	assert.True(t, sheet.CurrentEarnings.IsZero())
	assert.True(t, sheet.PostedEquity.Equal(sheet.TotalEquity))
}

func TestReportingService_LoanAgingBuckets(t *testing.T) {
	ctx := context.Background()
	accountsCreated := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	repos := memory.NewRepositoryProvider(memory.NewStore())
	svc := services.NewServiceContainer(repos, locking.NewLocalCoordinator(), containerOptions(fixedClock(accountsCreated)))

	createAccounts(t, svc.Account,
		account("CASH", "Cash at Bank", domain.Asset),
		account("CAPITAL", "Share Capital", domain.Equity),
		account("LOAN-A", "Loan A", domain.Asset),
		account("LOAN-B", "Loan B", domain.Asset),
		account("LOAN-C", "Loan C", domain.Asset),
		account("LOAN-D", "Staff Receivable D", domain.Asset),
		account("LOAN-E", "Loan E", domain.Asset),
		account("EQUIPMENT", "Equipment", domain.Asset),
	)
	_, err := svc.Ledger.PostTransaction(ctx, transfer("capital", "CASH", "CAPITAL", "100000"))
	require.NoError(t, err)

	disburse := func(ref, loanAccount, principal, due string) {
		req := dto.DisburseLoanRequest{Reference: ref, LoanAccountID: loanAccount, CashAccountID: "CASH", Principal: dec(principal)}
		if due != "" {
			req.DueDate = strPtr(due)
		}
		_, err := svc.Loan.DisburseLoan(ctx, req)
		require.NoError(t, err, ref)
	}
	disburse("A", "LOAN-A", "1000", "2026-03-20")
	disburse("B", "LOAN-B", "2000", "2026-01-25")
	disburse("C", "LOAN-C", "3000", "2025-11-01")
	disburse("E", "LOAN-E", "500", "2025-12-01")

	// LOAN-D has no loan record and falls back to creation date plus the default term.
	_, err = svc.Ledger.PostTransaction(ctx, transfer("staff-advance", "LOAN-D", "CASH", "700"))
	require.NoError(t, err)
	// Non-loan assets are ignored even when positive.
	_, err = svc.Ledger.PostTransaction(ctx, transfer("equipment", "EQUIPMENT", "CASH", "900"))
	require.NoError(t, err)
	// A fully repaid loan drops out of the report.
	_, err = svc.Loan.RecordRepayment(ctx, dto.LoanRepaymentRequest{Reference: "E-1", LoanAccountID: "LOAN-E", CashAccountID: "CASH", Principal: dec("500"), Interest: dec("0")})
	require.NoError(t, err)

	buckets, err := svc.Reporting.GetLoanAgingReport(ctx)
	require.NoError(t, err)
	require.Len(t, buckets, 3)

	assert.Equal(t, "Current (0–29 days)", buckets[0].Label)
	assert.Equal(t, 1, buckets[0].Count)
	assert.Equal(t, "LOAN-A", buckets[0].Loans[0].AccountID)
	assert.Equal(t, 0, buckets[0].Loans[0].DaysOverdue)

	assert.Equal(t, "30–59 days", buckets[1].Label)
	require.Equal(t, 2, buckets[1].Count)
	assert.Equal(t, "LOAN-B", buckets[1].Loans[0].AccountID)
	assert.Equal(t, 44, buckets[1].Loans[0].DaysOverdue)
	assert.Equal(t, "LOAN-D", buckets[1].Loans[1].AccountID)
	assert.Equal(t, 38, buckets[1].Loans[1].DaysOverdue)
	assert.Equal(t, time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC), buckets[1].Loans[1].DueDate)
	assert.True(t, buckets[1].TotalOutstanding.Equal(dec("2700")))

	assert.Equal(t, "90+ days", buckets[2].Label)
	assert.Equal(t, "LOAN-C", buckets[2].Loans[0].AccountID)
	assert.Equal(t, 129, buckets[2].Loans[0].DaysOverdue)
	assert.True(t, buckets[2].TotalOutstanding.Equal(dec("3000")))
}

func TestReportingService_LoanAgingBucketBoundaries(t *testing.T) {
	tests := []struct {
		name        string
		daysOverdue int
		wantLabel   string
	}{
		{"not yet due", -5, "Current (0–29 days)"},
		{"due today", 0, "Current (0–29 days)"},
		{"last current day", 29, "Current (0–29 days)"},
		{"first day past 30", 30, "30–59 days"},
		{"last day before 60", 59, "30–59 days"},
		{"first day past 60", 60, "60–89 days"},
		{"last day before 90", 89, "60–89 days"},
		{"first day past 90", 90, "90+ days"},
		{"long overdue", 400, "90+ days"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			_, svc := newTestLedger()
			createAccounts(t, svc.Account,
				account("CASH", "Cash at Bank", domain.Asset),
				account("CAPITAL", "Share Capital", domain.Equity),
				account("LOAN-X", "Loan X", domain.Asset),
			)
			_, err := svc.Ledger.PostTransaction(ctx, transfer("capital", "CASH", "CAPITAL", "1000"))
			require.NoError(t, err)

			due := testNow.AddDate(0, 0, -tc.daysOverdue).Format("2006-01-02")
			_, err = svc.Loan.DisburseLoan(ctx, dto.DisburseLoanRequest{
				Reference: "X", LoanAccountID: "LOAN-X", CashAccountID: "CASH", Principal: dec("250"), DueDate: strPtr(due),
			})
			require.NoError(t, err)

			buckets, err := svc.Reporting.GetLoanAgingReport(ctx)
			require.NoError(t, err)
			require.Len(t, buckets, 1)
			assert.Equal(t, tc.wantLabel, buckets[0].Label)
			require.Len(t, buckets[0].Loans, 1)
			assert.Equal(t, max(tc.daysOverdue, 0), buckets[0].Loans[0].DaysOverdue)
			assert.True(t, buckets[0].TotalOutstanding.Equal(dec("250")))
		})
	}
}

func TestReportingService_PropagatesStoreErrors(t *testing.T) {
	ctx := context.Background()
	storeDown := errors.New("connection refused")
	accounts := new(MockAccountRepository)
	accounts.On("ListAllAccounts", ctx).Return(nil, storeDown)

	reports := services.NewReportingService(accounts, nil)

	_, err := reports.GetTrialBalance(ctx)
	assert.ErrorIs(t, err, storeDown)
	_, err = reports.GetBalanceSheet(ctx)
	assert.ErrorIs(t, err, storeDown)
	_, err = reports.GetLoanAgingReport(ctx)
	assert.ErrorIs(t, err, storeDown)
}

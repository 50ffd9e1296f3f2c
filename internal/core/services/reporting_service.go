package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/cbs_ledger/internal/core/ports/services"
	"github.com/shopspring/decimal"
)

// Account id and name of the synthetic equity line carrying unclosed income less expense.
const (
	CurrentEarningsAccountID = "current-earnings"
	CurrentEarningsName      = "Current Earnings"
)

type agingBucket struct {
	label   string
	maxDays int // inclusive; the last bucket has no upper bound
}

var agingBuckets = []agingBucket{
	{label: "Current (0–29 days)", maxDays: 29},
	{label: "30–59 days", maxDays: 59},
	{label: "60–89 days", maxDays: 89},
	{label: "90+ days", maxDays: -1},
}

// reportingService implements the ReportingService interface
type reportingService struct {
	BaseService
	accountRepo portsrepo.AccountReader
	loanRepo    portsrepo.LoanRepositoryFacade
	now         func() time.Time
}

// ReportingServiceOption is a functional option for configuring the reporting service
type ReportingServiceOption func(*reportingService)

// WithReportingClock overrides the clock used for generatedAt and days-overdue.
func WithReportingClock(now func() time.Time) ReportingServiceOption {
	return func(s *reportingService) {
		s.now = now
	}
}

// NewReportingService creates a new reporting service with the provided options
func NewReportingService(accountRepo portsrepo.AccountReader, loanRepo portsrepo.LoanRepositoryFacade, options ...ReportingServiceOption) portssvc.ReportingService {
	svc := &reportingService{
		accountRepo: accountRepo,
		loanRepo:    loanRepo,
		now:         time.Now,
	}

	for _, option := range options {
		option(svc)
	}

	return svc
}

var _ portssvc.ReportingService = (*reportingService)(nil)

func (s *reportingService) allAccounts(ctx context.Context) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAllAccounts(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to load accounts for report")
		return nil, fmt.Errorf("failed to load accounts: %w", err)
	}
	return accounts, nil
}

// GetTrialBalance sums balances per account type and splits the debit-positive
// totals into debit and credit columns.
func (s *reportingService) GetTrialBalance(ctx context.Context) (*domain.TrialBalanceReport, error) {
	accounts, err := s.allAccounts(ctx)
	if err != nil {
		return nil, err
	}

	sums := make(map[domain.AccountType]decimal.Decimal, len(domain.AccountTypes))
	for _, acc := range accounts {
		sums[acc.AccountType] = sums[acc.AccountType].Add(acc.Balance)
	}

	report := &domain.TrialBalanceReport{
		AccountBalances: make([]domain.TrialBalanceRow, 0, len(domain.AccountTypes)),
		TotalDebits:     decimal.Zero,
		TotalCredits:    decimal.Zero,
		GeneratedAt:     s.now().UTC(),
	}
	for _, accountType := range domain.AccountTypes {
		balance := sums[accountType]
		normalized, err := NormalizeBalance(accountType, balance)
		if err != nil {
			return nil, err
		}
		row := domain.TrialBalanceRow{AccountType: accountType, Balance: balance, Debit: decimal.Zero, Credit: decimal.Zero}
		if normalized.IsNegative() {
			row.Credit = normalized.Abs()
		} else {
			row.Debit = normalized
		}
		report.TotalDebits = report.TotalDebits.Add(row.Debit)
		report.TotalCredits = report.TotalCredits.Add(row.Credit)
		report.AccountBalances = append(report.AccountBalances, row)
	}
	report.IsBalanced = report.TotalDebits.Equal(report.TotalCredits)

	if !report.IsBalanced {
		s.GetLogger(ctx).Error("Trial balance does not balance",
			slog.String("total_debits", report.TotalDebits.String()),
			slog.String("total_credits", report.TotalCredits.String()))
	}
	s.LogInfo(ctx, "Trial balance report generated", slog.Int("account_count", len(accounts)))
	return report, nil
}

// GetBalanceSheet lists asset, liability and equity accounts at their stored
// balance, credit-normal accounts included without negation. Income less expense
// that has not been closed to equity is not an account of the sheet's three types;
// it is added as a synthetic current earnings line so the sheet balances between
// closes. PostedEquity and CurrentEarnings keep the two parts of TotalEquity apart.
func (s *reportingService) GetBalanceSheet(ctx context.Context) (*domain.BalanceSheetReport, error) {
	accounts, err := s.allAccounts(ctx)
	if err != nil {
		return nil, err
	}

	report := &domain.BalanceSheetReport{
		Assets:           []domain.AccountAmount{},
		Liabilities:      []domain.AccountAmount{},
		Equity:           []domain.AccountAmount{},
		TotalAssets:      decimal.Zero,
		TotalLiabilities: decimal.Zero,
		TotalEquity:      decimal.Zero,
		PostedEquity:     decimal.Zero,
		CurrentEarnings:  decimal.Zero,
		GeneratedAt:      s.now().UTC(),
	}
	// Debit-positive sum over every account that appears on the sheet.
	normalizedTotal := decimal.Zero
	earnings := decimal.Zero

	for _, acc := range accounts {
		line := domain.AccountAmount{AccountID: acc.AccountID, Name: acc.Name, Amount: acc.Balance}
		//exhaustive:enforce
		switch acc.AccountType {
		case domain.Asset:
			report.Assets = append(report.Assets, line)
			report.TotalAssets = report.TotalAssets.Add(acc.Balance)
		case domain.Liability:
			report.Liabilities = append(report.Liabilities, line)
			report.TotalLiabilities = report.TotalLiabilities.Add(acc.Balance)
		case domain.Equity:
			report.Equity = append(report.Equity, line)
			report.TotalEquity = report.TotalEquity.Add(acc.Balance)
		case domain.Income:
			earnings = earnings.Add(acc.Balance)
			continue
		case domain.Expense:
			earnings = earnings.Sub(acc.Balance)
			continue
		}
		normalized, err := NormalizeBalance(acc.AccountType, acc.Balance)
		if err != nil {
			return nil, err
		}
		normalizedTotal = normalizedTotal.Add(normalized)
	}

	report.PostedEquity = report.TotalEquity
	report.CurrentEarnings = earnings
	if !earnings.IsZero() {
		report.Equity = append(report.Equity, domain.AccountAmount{
			AccountID: CurrentEarningsAccountID,
			Name:      CurrentEarningsName,
			Amount:    earnings,
		})
		report.TotalEquity = report.TotalEquity.Add(earnings)
		normalizedTotal = normalizedTotal.Sub(earnings)
	}

	report.IsBalanced = normalizedTotal.IsZero() &&
		report.TotalAssets.Equal(report.TotalLiabilities.Add(report.TotalEquity))

	s.LogInfo(ctx, "Balance sheet report generated",
		slog.String("total_assets", report.TotalAssets.String()),
		slog.Bool("is_balanced", report.IsBalanced))
	return report, nil
}

// GetLoanAgingReport buckets outstanding loan accounts by days past their due date.
func (s *reportingService) GetLoanAgingReport(ctx context.Context) ([]domain.LoanAgingBucket, error) {
	accounts, err := s.allAccounts(ctx)
	if err != nil {
		return nil, err
	}
	loans, err := s.loanRepo.ListLoans(ctx)
	if err != nil {
		s.LogError(ctx, err, "Failed to load loans for aging report")
		return nil, fmt.Errorf("failed to load loans: %w", err)
	}
	loansByAccount := make(map[string]domain.Loan, len(loans))
	for _, l := range loans {
		loansByAccount[l.AccountID] = l
	}

	today := s.now().UTC().Truncate(oneDay)
	members := make([][]domain.LoanAgingMember, len(agingBuckets))

	for _, acc := range accounts {
		if acc.AccountType != domain.Asset || !acc.Balance.IsPositive() {
			continue
		}
		loan, recorded := loansByAccount[acc.AccountID]
		if !recorded && !acc.LooksLikeLoan() {
			continue
		}

		dueDate := acc.CreatedAt.Add(domain.DefaultLoanTerm)
		if recorded && loan.DueDate != nil {
			dueDate = *loan.DueDate
		}
		dueDate = dueDate.UTC().Truncate(oneDay)

		daysOverdue := int(today.Sub(dueDate) / oneDay)
		if daysOverdue < 0 {
			daysOverdue = 0
		}
		idx := bucketIndex(daysOverdue)
		members[idx] = append(members[idx], domain.LoanAgingMember{
			AccountID:   acc.AccountID,
			Name:        acc.Name,
			Outstanding: acc.Balance,
			DueDate:     dueDate,
			DaysOverdue: daysOverdue,
		})
	}

	buckets := make([]domain.LoanAgingBucket, 0, len(agingBuckets))
	for i, b := range agingBuckets {
		if len(members[i]) == 0 {
			continue
		}
		sort.Slice(members[i], func(a, c int) bool {
			return members[i][a].AccountID < members[i][c].AccountID
		})
		total := decimal.Zero
		for _, m := range members[i] {
			total = total.Add(m.Outstanding)
		}
		buckets = append(buckets, domain.LoanAgingBucket{
			Label:            b.label,
			Count:            len(members[i]),
			TotalOutstanding: total,
			Loans:            members[i],
		})
	}

	s.LogInfo(ctx, "Loan aging report generated", slog.Int("bucket_count", len(buckets)))
	return buckets, nil
}

func bucketIndex(daysOverdue int) int {
	for i, b := range agingBuckets {
		if b.maxDays < 0 || daysOverdue <= b.maxDays {
			return i
		}
	}
	return len(agingBuckets) - 1
}

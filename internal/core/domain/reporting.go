package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TrialBalanceRow holds the normalized total for one account type.
type TrialBalanceRow struct {
	AccountType AccountType     `json:"accountType"`
	Balance     decimal.Decimal `json:"balance"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

type TrialBalanceReport struct {
	AccountBalances []TrialBalanceRow `json:"accountBalances"`
	TotalDebits     decimal.Decimal   `json:"totalDebits"`
	TotalCredits    decimal.Decimal   `json:"totalCredits"`
	IsBalanced      bool              `json:"isBalanced"`
	GeneratedAt     time.Time         `json:"generatedAt"`
}

// AccountAmount represents an account with its amount for financial reports.
type AccountAmount struct {
	AccountID string          `json:"accountID"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// BalanceSheetReport presents assets at their debit-normal balance and
// liabilities and equity at their credit-normal balance.
type BalanceSheetReport struct {
	Assets           []AccountAmount `json:"assets"`
	Liabilities      []AccountAmount `json:"liabilities"`
	Equity           []AccountAmount `json:"equity"`
	TotalAssets      decimal.Decimal `json:"totalAssets"`
	TotalLiabilities decimal.Decimal `json:"totalLiabilities"`
	TotalEquity      decimal.Decimal `json:"totalEquity"`
	// PostedEquity sums equity accounts only; TotalEquity adds CurrentEarnings.
	PostedEquity    decimal.Decimal `json:"postedEquity"`
	CurrentEarnings decimal.Decimal `json:"currentEarnings"`
	IsBalanced      bool            `json:"isBalanced"`
	GeneratedAt     time.Time       `json:"generatedAt"`
}

// LoanAgingMember is one outstanding loan inside an aging bucket.
type LoanAgingMember struct {
	AccountID   string          `json:"accountID"`
	Name        string          `json:"name"`
	Outstanding decimal.Decimal `json:"outstanding"`
	DueDate     time.Time       `json:"dueDate"`
	DaysOverdue int             `json:"daysOverdue"`
}

type LoanAgingBucket struct {
	Label            string            `json:"label"`
	Count            int               `json:"count"`
	TotalOutstanding decimal.Decimal   `json:"totalOutstanding"`
	Loans            []LoanAgingMember `json:"loans"`
}

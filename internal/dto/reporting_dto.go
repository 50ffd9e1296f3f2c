package dto

import (
	"time"

	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

// TrialBalanceRowResponse represents a row in the trial balance report response
type TrialBalanceRowResponse struct {
	AccountType string          `json:"accountType"`
	Balance     decimal.Decimal `json:"balance"`
	Debit       decimal.Decimal `json:"debit"`
	Credit      decimal.Decimal `json:"credit"`
}

// TrialBalanceResponse represents the trial balance report response
type TrialBalanceResponse struct {
	GeneratedAt     time.Time                 `json:"generatedAt"`
	AccountBalances []TrialBalanceRowResponse `json:"accountBalances"`
	TotalDebits     decimal.Decimal           `json:"totalDebits"`
	TotalCredits    decimal.Decimal           `json:"totalCredits"`
	IsBalanced      bool                      `json:"isBalanced"`
}

// AccountAmountResponse represents an account with its amount in a financial report
type AccountAmountResponse struct {
	AccountID string          `json:"accountID"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// BalanceSheetResponse represents the balance sheet report response
type BalanceSheetResponse struct {
	GeneratedAt      time.Time               `json:"generatedAt"`
	Assets           []AccountAmountResponse `json:"assets"`
	Liabilities      []AccountAmountResponse `json:"liabilities"`
	Equity           []AccountAmountResponse `json:"equity"`
	TotalAssets      decimal.Decimal         `json:"totalAssets"`
	TotalLiabilities decimal.Decimal         `json:"totalLiabilities"`
	TotalEquity      decimal.Decimal         `json:"totalEquity"`
	PostedEquity     decimal.Decimal         `json:"postedEquity"`
	CurrentEarnings  decimal.Decimal         `json:"currentEarnings"`
	IsBalanced       bool                    `json:"isBalanced"`
}

type LoanAgingMemberResponse struct {
	AccountID   string          `json:"accountID"`
	Name        string          `json:"name"`
	Outstanding decimal.Decimal `json:"outstanding"`
	DueDate     string          `json:"dueDate"`
	DaysOverdue int             `json:"daysOverdue"`
}

type LoanAgingBucketResponse struct {
	Label            string                    `json:"label"`
	Count            int                       `json:"count"`
	TotalOutstanding decimal.Decimal           `json:"totalOutstanding"`
	Loans            []LoanAgingMemberResponse `json:"loans"`
}

// ToTrialBalanceResponse converts a domain.TrialBalanceReport to its response DTO.
func ToTrialBalanceResponse(r *domain.TrialBalanceReport) TrialBalanceResponse {
	rows := make([]TrialBalanceRowResponse, len(r.AccountBalances))
	for i, row := range r.AccountBalances {
		rows[i] = TrialBalanceRowResponse{
			AccountType: string(row.AccountType),
			Balance:     row.Balance,
			Debit:       row.Debit,
			Credit:      row.Credit,
		}
	}
	return TrialBalanceResponse{
		GeneratedAt:     r.GeneratedAt,
		AccountBalances: rows,
		TotalDebits:     r.TotalDebits,
		TotalCredits:    r.TotalCredits,
		IsBalanced:      r.IsBalanced,
	}
}

func toAccountAmountResponses(amounts []domain.AccountAmount) []AccountAmountResponse {
	res := make([]AccountAmountResponse, len(amounts))
	for i, a := range amounts {
		res[i] = AccountAmountResponse{AccountID: a.AccountID, Name: a.Name, Amount: a.Amount}
	}
	return res
}

// ToBalanceSheetResponse converts a domain.BalanceSheetReport to its response DTO.
func ToBalanceSheetResponse(r *domain.BalanceSheetReport) BalanceSheetResponse {
	return BalanceSheetResponse{
		GeneratedAt:      r.GeneratedAt,
		Assets:           toAccountAmountResponses(r.Assets),
		Liabilities:      toAccountAmountResponses(r.Liabilities),
		Equity:           toAccountAmountResponses(r.Equity),
		TotalAssets:      r.TotalAssets,
		TotalLiabilities: r.TotalLiabilities,
		TotalEquity:      r.TotalEquity,
		PostedEquity:     r.PostedEquity,
		CurrentEarnings:  r.CurrentEarnings,
		IsBalanced:       r.IsBalanced,
	}
}

// ToLoanAgingResponse converts aging buckets to their response DTOs.
func ToLoanAgingResponse(buckets []domain.LoanAgingBucket) []LoanAgingBucketResponse {
	res := make([]LoanAgingBucketResponse, len(buckets))
	for i, b := range buckets {
		members := make([]LoanAgingMemberResponse, len(b.Loans))
		for j, m := range b.Loans {
			members[j] = LoanAgingMemberResponse{
				AccountID:   m.AccountID,
				Name:        m.Name,
				Outstanding: m.Outstanding,
				DueDate:     m.DueDate.Format(dateLayout),
				DaysOverdue: m.DaysOverdue,
			}
		}
		res[i] = LoanAgingBucketResponse{
			Label:            b.Label,
			Count:            b.Count,
			TotalOutstanding: b.TotalOutstanding,
			Loans:            members,
		}
	}
	return res
}

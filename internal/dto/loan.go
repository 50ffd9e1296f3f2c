package dto

import (
	"github.com/shopspring/decimal"
)

// DisburseLoanRequest moves principal from cash into a loan account.
type DisburseLoanRequest struct {
	Reference     string          `json:"reference" binding:"required,max=100"`
	LoanAccountID string          `json:"loanAccountID" binding:"required"`
	CashAccountID string          `json:"cashAccountID" binding:"required"`
	Borrower      string          `json:"borrower" binding:"max=255"`
	Principal     decimal.Decimal `json:"principal" binding:"decimal_gt0"`
	DueDate       *string         `json:"dueDate" binding:"omitempty,datetime=2006-01-02"`
}

// LoanRepaymentRequest records cash received against principal and interest.
type LoanRepaymentRequest struct {
	Reference             string          `json:"reference" binding:"required,max=100"`
	LoanAccountID         string          `json:"loanAccountID" binding:"required"`
	CashAccountID         string          `json:"cashAccountID" binding:"required"`
	InterestIncomeAccount string          `json:"interestIncomeAccountID"`
	Principal             decimal.Decimal `json:"principal" binding:"decimal_gte0"`
	Interest              decimal.Decimal `json:"interest" binding:"decimal_gte0"`
}

// LoanWriteOffRequest charges an uncollectable balance to bad-debt expense.
type LoanWriteOffRequest struct {
	Reference          string          `json:"reference" binding:"required,max=100"`
	LoanAccountID      string          `json:"loanAccountID" binding:"required"`
	BadDebtExpenseAcct string          `json:"badDebtExpenseAccountID" binding:"required"`
	Amount             decimal.Decimal `json:"amount" binding:"decimal_gt0"`
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultLoanTerm is applied when a loan has no recorded due date.
const DefaultLoanTerm = 30 * 24 * time.Hour

// Loan records the terms of a disbursed loan. The outstanding amount is the
// balance of the loan account itself.
type Loan struct {
	AccountID   string          `json:"accountID"`
	Reference   string          `json:"reference"`
	Borrower    string          `json:"borrower"`
	Principal   decimal.Decimal `json:"principal"`
	DisbursedAt time.Time       `json:"disbursedAt"`
	DueDate     *time.Time      `json:"dueDate,omitempty"`
}

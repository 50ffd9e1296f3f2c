package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// Account is the row shape of the accounts table.
type Account struct {
	AccountID       string          `db:"account_id"`
	Name            string          `db:"name"`
	AccountType     string          `db:"account_type"`
	CurrencyCode    string          `db:"currency_code"`
	ParentAccountID sql.NullString  `db:"parent_account_id"` // Nullable
	Balance         decimal.Decimal `db:"balance"`
	Version         int64           `db:"version"`
	AuditFields
}

// AuditFields holds the row timestamps shared by mutable tables.
type AuditFields struct {
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Loan is the row shape of the loans table.
type Loan struct {
	AccountID   string          `db:"account_id"`
	Reference   string          `db:"reference"`
	Borrower    string          `db:"borrower"`
	Principal   decimal.Decimal `db:"principal"`
	DisbursedAt time.Time       `db:"disbursed_at"`
	DueDate     sql.NullTime    `db:"due_date"` // Nullable
}

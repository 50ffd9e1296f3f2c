package models

import (
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// JournalEntry is the row shape of the journal_entries table.
type JournalEntry struct {
	EntryID         int64         `db:"entry_id"`
	IdempotencyKey  string        `db:"idempotency_key"`
	Description     string        `db:"description"`
	TransactionDate time.Time     `db:"transaction_date"`
	PostedAt        time.Time     `db:"posted_at"`
	Status          string        `db:"status"`
	ReversalOf      sql.NullInt64 `db:"reversal_of"` // Nullable
}

// EntryLine is the row shape of the entry_lines table.
type EntryLine struct {
	LineID    int64           `db:"line_id"`
	EntryID   int64           `db:"entry_id"`
	LineNo    int             `db:"line_no"`
	AccountID string          `db:"account_id"`
	Debit     decimal.Decimal `db:"debit"`
	Credit    decimal.Decimal `db:"credit"`
}

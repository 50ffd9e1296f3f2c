package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// JournalStatus indicates the state of a journal entry.
type JournalStatus string

const (
	Posted   JournalStatus = "POSTED"
	Reversed JournalStatus = "REVERSED"
)

// JournalEntry is the immutable record of one posted transaction.
// Only Status may change after persist, and only from Posted to Reversed.
type JournalEntry struct {
	EntryID         int64         `json:"id"`
	IdempotencyKey  string        `json:"idempotencyKey"`
	Description     string        `json:"description"`
	TransactionDate time.Time     `json:"transactionDate"`
	PostedAt        time.Time     `json:"postedAt"`
	Status          JournalStatus `json:"status"`
	ReversalOf      *int64        `json:"reversalOf,omitempty"`
	Lines           []EntryLine   `json:"lines"`
}

// EntryLine is a single debit or credit against one account. Exactly one of
// Debit and Credit is nonzero.
type EntryLine struct {
	LineID    int64           `json:"id"`
	AccountID string          `json:"accountID"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// Totals returns the summed debits and credits of the entry.
func (e JournalEntry) Totals() (debits, credits decimal.Decimal) {
	debits, credits = decimal.Zero, decimal.Zero
	for _, l := range e.Lines {
		debits = debits.Add(l.Debit)
		credits = credits.Add(l.Credit)
	}
	return debits, credits
}

// AccountIDs returns the distinct account ids referenced by the entry in line order.
func (e JournalEntry) AccountIDs() []string {
	seen := make(map[string]struct{}, len(e.Lines))
	ids := make([]string, 0, len(e.Lines))
	for _, l := range e.Lines {
		if _, ok := seen[l.AccountID]; ok {
			continue
		}
		seen[l.AccountID] = struct{}{}
		ids = append(ids, l.AccountID)
	}
	return ids
}

// Touches reports whether any line references accountID.
func (e JournalEntry) Touches(accountID string) bool {
	for _, l := range e.Lines {
		if l.AccountID == accountID {
			return true
		}
	}
	return false
}

// Clone returns a deep copy so stores never share line slices with callers.
func (e JournalEntry) Clone() JournalEntry {
	c := e
	c.Lines = append([]EntryLine(nil), e.Lines...)
	if e.ReversalOf != nil {
		id := *e.ReversalOf
		c.ReversalOf = &id
	}
	return c
}

// EntryRequest is one proposed line of a transaction.
type EntryRequest struct {
	AccountID string
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// PostingRequest is a proposed transaction handed to the ledger engine.
type PostingRequest struct {
	IdempotencyKey  string
	Description     string
	TransactionDate time.Time
	Entries         []EntryRequest
}

// AccountMovements holds the summed debits and credits applied to one account.
type AccountMovements struct {
	Debits  decimal.Decimal
	Credits decimal.Decimal
}

package mapping

import (
	"database/sql"

	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	"github.com/SscSPs/cbs_ledger/internal/models"
)

// ToModelJournalEntry converts a domain JournalEntry header to a model JournalEntry.
// Lines are mapped separately with ToModelEntryLines.
func ToModelJournalEntry(d domain.JournalEntry) models.JournalEntry {
	m := models.JournalEntry{
		EntryID:         d.EntryID,
		IdempotencyKey:  d.IdempotencyKey,
		Description:     d.Description,
		TransactionDate: d.TransactionDate,
		PostedAt:        d.PostedAt,
		Status:          string(d.Status),
	}
	if d.ReversalOf != nil {
		m.ReversalOf = sql.NullInt64{Int64: *d.ReversalOf, Valid: true}
	}
	return m
}

// ToDomainJournalEntry converts a model JournalEntry and its lines to a domain JournalEntry
func ToDomainJournalEntry(m models.JournalEntry, lines []models.EntryLine) domain.JournalEntry {
	d := domain.JournalEntry{
		EntryID:         m.EntryID,
		IdempotencyKey:  m.IdempotencyKey,
		Description:     m.Description,
		TransactionDate: m.TransactionDate,
		PostedAt:        m.PostedAt,
		Status:          domain.JournalStatus(m.Status),
		Lines:           make([]domain.EntryLine, len(lines)),
	}
	if m.ReversalOf.Valid {
		id := m.ReversalOf.Int64
		d.ReversalOf = &id
	}
	for i, l := range lines {
		d.Lines[i] = domain.EntryLine{
			LineID:    l.LineID,
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
		}
	}
	return d
}

// ToModelEntryLines converts domain lines to model lines numbered in order.
func ToModelEntryLines(entryID int64, lines []domain.EntryLine) []models.EntryLine {
	out := make([]models.EntryLine, len(lines))
	for i, l := range lines {
		out[i] = models.EntryLine{
			EntryID:   entryID,
			LineNo:    i + 1,
			AccountID: l.AccountID,
			Debit:     l.Debit,
			Credit:    l.Credit,
		}
	}
	return out
}

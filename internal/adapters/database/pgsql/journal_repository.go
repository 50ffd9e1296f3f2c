package pgsql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	"github.com/SscSPs/cbs_ledger/internal/models"
	"github.com/SscSPs/cbs_ledger/internal/utils/mapping"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const entryColumns = `e.entry_id, e.idempotency_key, e.description, e.transaction_date, e.posted_at, e.status, e.reversal_of`

type PgxJournalRepository struct {
	BaseRepository
}

// Ensure PgxJournalRepository implements portsrepo.JournalRepositoryFacade
var _ portsrepo.JournalRepositoryFacade = (*PgxJournalRepository)(nil)

// queryEntries loads entry headers, then their lines in one round trip.
func (r *PgxJournalRepository) queryEntries(ctx context.Context, query string, args ...any) ([]domain.JournalEntry, error) {
	rows, err := r.DB().Query(ctx, query, args...)
	if err != nil {
		return nil, mapPgError(err, "query journal entries")
	}
	headers, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.JournalEntry])
	if err != nil {
		return nil, mapPgError(err, "scan journal entries")
	}
	if len(headers) == 0 {
		return []domain.JournalEntry{}, nil
	}

	ids := make([]int64, len(headers))
	for i, h := range headers {
		ids[i] = h.EntryID
	}
	lineRows, err := r.DB().Query(ctx, `
		SELECT line_id, entry_id, line_no, account_id, debit, credit
		FROM entry_lines
		WHERE entry_id = ANY($1)
		ORDER BY entry_id, line_no;
	`, ids)
	if err != nil {
		return nil, mapPgError(err, "query entry lines")
	}
	lines, err := pgx.CollectRows(lineRows, pgx.RowToStructByName[models.EntryLine])
	if err != nil {
		return nil, mapPgError(err, "scan entry lines")
	}
	linesByEntry := make(map[int64][]models.EntryLine, len(headers))
	for _, l := range lines {
		linesByEntry[l.EntryID] = append(linesByEntry[l.EntryID], l)
	}

	entries := make([]domain.JournalEntry, len(headers))
	for i, h := range headers {
		entries[i] = mapping.ToDomainJournalEntry(h, linesByEntry[h.EntryID])
	}
	return entries, nil
}

func (r *PgxJournalRepository) findOne(ctx context.Context, query string, arg any, notFound string) (*domain.JournalEntry, error) {
	entries, err := r.queryEntries(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotFound, notFound)
	}
	return &entries[0], nil
}

func (r *PgxJournalRepository) FindEntryByID(ctx context.Context, entryID int64) (*domain.JournalEntry, error) {
	return r.findOne(ctx, `SELECT `+entryColumns+` FROM journal_entries e WHERE e.entry_id = $1;`, entryID,
		fmt.Sprintf("journal entry %d", entryID))
}

func (r *PgxJournalRepository) FindEntryByIdempotencyKey(ctx context.Context, key string) (*domain.JournalEntry, error) {
	return r.findOne(ctx, `SELECT `+entryColumns+` FROM journal_entries e WHERE e.idempotency_key = $1;`, key,
		"idempotency key "+key)
}

// ListEntriesByAccount pages newest first on (transaction_date, entry_id).
func (r *PgxJournalRepository) ListEntriesByAccount(ctx context.Context, accountID string, limit int, after *portsrepo.EntryCursor) ([]domain.JournalEntry, error) {
	if after == nil {
		return r.queryEntries(ctx, `
			SELECT `+entryColumns+`
			FROM journal_entries e
			WHERE EXISTS (SELECT 1 FROM entry_lines l WHERE l.entry_id = e.entry_id AND l.account_id = $1)
			ORDER BY e.transaction_date DESC, e.entry_id DESC
			LIMIT $2;
		`, accountID, limit)
	}
	return r.queryEntries(ctx, `
		SELECT `+entryColumns+`
		FROM journal_entries e
		WHERE EXISTS (SELECT 1 FROM entry_lines l WHERE l.entry_id = e.entry_id AND l.account_id = $1)
		  AND (e.transaction_date, e.entry_id) < ($2::date, $3::bigint)
		ORDER BY e.transaction_date DESC, e.entry_id DESC
		LIMIT $4;
	`, accountID, after.TransactionDate, after.EntryID, limit)
}

func (r *PgxJournalRepository) SumAccountMovements(ctx context.Context, accountID string, asOf time.Time) (domain.AccountMovements, error) {
	query := `
		SELECT COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
		FROM entry_lines l
		JOIN journal_entries e ON e.entry_id = l.entry_id
		WHERE l.account_id = $1 AND e.transaction_date <= $2::date;
	`
	var debits, credits decimal.Decimal
	if err := r.DB().QueryRow(ctx, query, accountID, asOf).Scan(&debits, &credits); err != nil {
		return domain.AccountMovements{}, mapPgError(err, "sum account movements")
	}
	return domain.AccountMovements{Debits: debits, Credits: credits}, nil
}

// InsertEntryIfAbsent writes the header and lines together. The unique index on
// idempotency_key decides races: the loser inserts nothing.
func (r *PgxJournalRepository) InsertEntryIfAbsent(ctx context.Context, entry domain.JournalEntry) (*domain.JournalEntry, error) {
	out := entry.Clone()
	header := mapping.ToModelJournalEntry(entry)

	err := r.withTx(ctx, func(db DBTX) error {
		err := db.QueryRow(ctx, `
			INSERT INTO journal_entries (idempotency_key, description, transaction_date, posted_at, status, reversal_of)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (idempotency_key) DO NOTHING
			RETURNING entry_id;
		`,
			header.IdempotencyKey,
			header.Description,
			header.TransactionDate,
			header.PostedAt,
			header.Status,
			header.ReversalOf,
		).Scan(&out.EntryID)
		if errors.Is(err, pgx.ErrNoRows) {
			var existingID int64
			if lookupErr := db.QueryRow(ctx, `SELECT entry_id FROM journal_entries WHERE idempotency_key = $1;`, header.IdempotencyKey).Scan(&existingID); lookupErr != nil {
				return mapPgError(lookupErr, "find existing idempotency key")
			}
			return &apperrors.DuplicateIdempotencyKeyError{Key: header.IdempotencyKey, ExistingID: existingID}
		}
		if err != nil {
			return mapPgError(err, "insert journal entry")
		}

		batch := &pgx.Batch{}
		for i, l := range mapping.ToModelEntryLines(out.EntryID, out.Lines) {
			batch.Queue(`
				INSERT INTO entry_lines (entry_id, line_no, account_id, debit, credit)
				VALUES ($1, $2, $3, $4, $5)
				RETURNING line_id;
			`, l.EntryID, l.LineNo, l.AccountID, l.Debit, l.Credit).QueryRow(func(row pgx.Row) error {
				return row.Scan(&out.Lines[i].LineID)
			})
		}
		// Close surfaces the first failed statement in the batch.
		if err := db.SendBatch(ctx, batch).Close(); err != nil {
			return mapPgError(err, fmt.Sprintf("insert lines for journal entry %d", out.EntryID))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// MarkEntryReversed is conditional on the entry still being POSTED.
func (r *PgxJournalRepository) MarkEntryReversed(ctx context.Context, entryID int64) error {
	tag, err := r.DB().Exec(ctx, `
		UPDATE journal_entries SET status = $2 WHERE entry_id = $1 AND status = $3;
	`, entryID, string(domain.Reversed), string(domain.Posted))
	if err != nil {
		return mapPgError(err, fmt.Sprintf("reverse journal entry %d", entryID))
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := r.DB().QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM journal_entries WHERE entry_id = $1);`, entryID).Scan(&exists); err != nil {
		return mapPgError(err, "check journal entry")
	}
	if !exists {
		return &apperrors.TransactionNotFoundError{ID: entryID}
	}
	return &apperrors.TransactionAlreadyReversedError{ID: entryID}
}

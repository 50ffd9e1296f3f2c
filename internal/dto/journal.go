package dto

import (
	"time"

	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// EntryLineRequest is one proposed debit or credit.
type EntryLineRequest struct {
	AccountID string          `json:"accountID" binding:"required"`
	Debit     decimal.Decimal `json:"debit" binding:"decimal_gte0"`
	Credit    decimal.Decimal `json:"credit" binding:"decimal_gte0"`
}

// PostTransactionRequest defines the payload for posting a transaction.
// Balance and currency rules are enforced by the ledger, not the binding.
type PostTransactionRequest struct {
	IdempotencyKey  string             `json:"idempotencyKey" binding:"required,max=128"`
	Description     string             `json:"description" binding:"max=500"`
	TransactionDate *string            `json:"transactionDate" binding:"omitempty,datetime=2006-01-02"`
	Entries         []EntryLineRequest `json:"entries" binding:"required,min=1,dive"`
}

// ToPostingRequest converts the payload into the ledger's posting request.
// A missing transaction date defaults to today in UTC.
func (r PostTransactionRequest) ToPostingRequest(now time.Time) (domain.PostingRequest, error) {
	txDate := now.UTC().Truncate(24 * time.Hour)
	if r.TransactionDate != nil {
		parsed, err := time.Parse(dateLayout, *r.TransactionDate)
		if err != nil {
			return domain.PostingRequest{}, err
		}
		txDate = parsed
	}

	entries := make([]domain.EntryRequest, len(r.Entries))
	for i, e := range r.Entries {
		entries[i] = domain.EntryRequest{AccountID: e.AccountID, Debit: e.Debit, Credit: e.Credit}
	}
	return domain.PostingRequest{
		IdempotencyKey:  r.IdempotencyKey,
		Description:     r.Description,
		TransactionDate: txDate,
		Entries:         entries,
	}, nil
}

// ReverseTransactionRequest carries the idempotency key of the reversal posting.
type ReverseTransactionRequest struct {
	IdempotencyKey string `json:"idempotencyKey" binding:"required,max=128"`
}

// EntryLineResponse defines the data returned for one entry line.
type EntryLineResponse struct {
	LineID    int64           `json:"id"`
	AccountID string          `json:"accountID"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// TransactionResponse defines the data returned for a journal entry.
type TransactionResponse struct {
	ID              int64               `json:"id"`
	IdempotencyKey  string              `json:"idempotencyKey"`
	Description     string              `json:"description"`
	TransactionDate string              `json:"transactionDate"`
	PostedAt        time.Time           `json:"postedAt"`
	Status          string              `json:"status"`
	ReversalOf      *int64              `json:"reversalOf,omitempty"`
	TotalAmount     decimal.Decimal     `json:"totalAmount"`
	Entries         []EntryLineResponse `json:"entries"`
}

// ToTransactionResponse converts a domain.JournalEntry to TransactionResponse DTO.
func ToTransactionResponse(e *domain.JournalEntry) TransactionResponse {
	lines := make([]EntryLineResponse, len(e.Lines))
	for i, l := range e.Lines {
		lines[i] = EntryLineResponse{LineID: l.LineID, AccountID: l.AccountID, Debit: l.Debit, Credit: l.Credit}
	}
	debits, _ := e.Totals()
	return TransactionResponse{
		ID:              e.EntryID,
		IdempotencyKey:  e.IdempotencyKey,
		Description:     e.Description,
		TransactionDate: e.TransactionDate.Format(dateLayout),
		PostedAt:        e.PostedAt,
		Status:          string(e.Status),
		ReversalOf:      e.ReversalOf,
		TotalAmount:     debits,
		Entries:         lines,
	}
}

// ToTransactionResponses converts a slice of domain.JournalEntry to []TransactionResponse.
func ToTransactionResponses(entries []domain.JournalEntry) []TransactionResponse {
	responses := make([]TransactionResponse, len(entries))
	for i := range entries {
		responses[i] = ToTransactionResponse(&entries[i])
	}
	return responses
}

package services

import (
	"context"

	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	"github.com/SscSPs/cbs_ledger/internal/dto"
)

// LoanSvcFacade posts the standard lending transactions through the ledger.
type LoanSvcFacade interface {
	DisburseLoan(ctx context.Context, req dto.DisburseLoanRequest) (*domain.JournalEntry, error)
	RecordRepayment(ctx context.Context, req dto.LoanRepaymentRequest) (*domain.JournalEntry, error)
	WriteOffLoan(ctx context.Context, req dto.LoanWriteOffRequest) (*domain.JournalEntry, error)
}

package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/cbs_ledger/internal/core/ports/services"
	"github.com/SscSPs/cbs_ledger/internal/dto"
	"github.com/shopspring/decimal"
)

// loanService composes the lending postings out of plain ledger transactions.
type loanService struct {
	BaseService
	ledger   portssvc.LedgerPoster
	loanRepo portsrepo.LoanRepositoryFacade
	now      func() time.Time
}

// LoanServiceOption is a functional option for configuring the loan service
type LoanServiceOption func(*loanService)

func WithLoanClock(now func() time.Time) LoanServiceOption {
	return func(s *loanService) {
		s.now = now
	}
}

func NewLoanService(ledger portssvc.LedgerPoster, loanRepo portsrepo.LoanRepositoryFacade, options ...LoanServiceOption) portssvc.LoanSvcFacade {
	svc := &loanService{
		ledger:   ledger,
		loanRepo: loanRepo,
		now:      time.Now,
	}
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.LoanSvcFacade = (*loanService)(nil)

// DisburseLoan debits the loan account and credits cash, then records the loan terms.
func (s *loanService) DisburseLoan(ctx context.Context, req dto.DisburseLoanRequest) (*domain.JournalEntry, error) {
	if strings.TrimSpace(req.Reference) == "" {
		return nil, apperrors.NewValidationError("reference", "is required")
	}
	if !req.Principal.IsPositive() {
		return nil, apperrors.NewValidationError("principal", "must be greater than zero")
	}

	var dueDate *time.Time
	if req.DueDate != nil && *req.DueDate != "" {
		d, err := time.Parse("2006-01-02", *req.DueDate)
		if err != nil {
			return nil, apperrors.NewValidationError("dueDate", "must be formatted as YYYY-MM-DD")
		}
		dueDate = &d
	}

	today := s.now().UTC().Truncate(oneDay)
	entry, err := s.ledger.PostTransaction(ctx, domain.PostingRequest{
		IdempotencyKey:  req.Reference + "-disbursement",
		Description:     "Loan disbursement - Principal",
		TransactionDate: today,
		Entries: []domain.EntryRequest{
			{AccountID: req.LoanAccountID, Debit: req.Principal, Credit: decimal.Zero},
			{AccountID: req.CashAccountID, Debit: decimal.Zero, Credit: req.Principal},
		},
	})
	if err != nil {
		return nil, err
	}

	loan := domain.Loan{
		AccountID:   req.LoanAccountID,
		Reference:   req.Reference,
		Borrower:    req.Borrower,
		Principal:   req.Principal,
		DisbursedAt: today,
		DueDate:     dueDate,
	}
	// The posting is already committed; aging falls back to the default term if this fails.
	if err := s.loanRepo.SaveLoan(ctx, loan); err != nil {
		s.LogError(ctx, err, "Failed to record loan terms",
			slog.String("loan_account_id", req.LoanAccountID),
			slog.Int64("transaction_id", entry.EntryID))
	}

	s.LogInfo(ctx, "Loan disbursed",
		slog.String("reference", req.Reference),
		slog.String("loan_account_id", req.LoanAccountID),
		slog.String("principal", req.Principal.String()))
	return entry, nil
}

// RecordRepayment debits cash with principal plus interest, crediting the loan
// and interest income. Zero-amount legs are left out.
func (s *loanService) RecordRepayment(ctx context.Context, req dto.LoanRepaymentRequest) (*domain.JournalEntry, error) {
	if strings.TrimSpace(req.Reference) == "" {
		return nil, apperrors.NewValidationError("reference", "is required")
	}
	if req.Principal.IsNegative() || req.Interest.IsNegative() {
		return nil, apperrors.NewValidationError("amount", "principal and interest must not be negative")
	}
	total := req.Principal.Add(req.Interest)
	if !total.IsPositive() {
		return nil, apperrors.NewValidationError("amount", "repayment must be greater than zero")
	}
	if req.Interest.IsPositive() && strings.TrimSpace(req.InterestIncomeAccount) == "" {
		return nil, apperrors.NewValidationError("interestIncomeAccountID", "is required when interest is paid")
	}

	entries := []domain.EntryRequest{{AccountID: req.CashAccountID, Debit: total, Credit: decimal.Zero}}
	if req.Principal.IsPositive() {
		entries = append(entries, domain.EntryRequest{AccountID: req.LoanAccountID, Debit: decimal.Zero, Credit: req.Principal})
	}
	if req.Interest.IsPositive() {
		entries = append(entries, domain.EntryRequest{AccountID: req.InterestIncomeAccount, Debit: decimal.Zero, Credit: req.Interest})
	}

	entry, err := s.ledger.PostTransaction(ctx, domain.PostingRequest{
		IdempotencyKey:  req.Reference + "-repayment",
		Description:     "Loan repayment",
		TransactionDate: s.now().UTC().Truncate(oneDay),
		Entries:         entries,
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Loan repayment recorded",
		slog.String("reference", req.Reference),
		slog.String("principal", req.Principal.String()),
		slog.String("interest", req.Interest.String()))
	return entry, nil
}

// WriteOffLoan moves an uncollectable amount from the loan account to bad-debt expense.
func (s *loanService) WriteOffLoan(ctx context.Context, req dto.LoanWriteOffRequest) (*domain.JournalEntry, error) {
	if strings.TrimSpace(req.Reference) == "" {
		return nil, apperrors.NewValidationError("reference", "is required")
	}
	if !req.Amount.IsPositive() {
		return nil, apperrors.NewValidationError("amount", "must be greater than zero")
	}

	entry, err := s.ledger.PostTransaction(ctx, domain.PostingRequest{
		IdempotencyKey:  req.Reference + "-writeoff",
		Description:     "Loan write-off",
		TransactionDate: s.now().UTC().Truncate(oneDay),
		Entries: []domain.EntryRequest{
			{AccountID: req.BadDebtExpenseAcct, Debit: req.Amount, Credit: decimal.Zero},
			{AccountID: req.LoanAccountID, Debit: decimal.Zero, Credit: req.Amount},
		},
	})
	if err != nil {
		return nil, err
	}

	s.LogInfo(ctx, "Loan written off",
		slog.String("reference", req.Reference),
		slog.String("loan_account_id", req.LoanAccountID),
		slog.String("amount", req.Amount.String()))
	return entry, nil
}

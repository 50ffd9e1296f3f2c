package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/Rhymond/go-money"
	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	portsrepo "github.com/SscSPs/cbs_ledger/internal/core/ports/repositories"
	portssvc "github.com/SscSPs/cbs_ledger/internal/core/ports/services"
	"github.com/SscSPs/cbs_ledger/internal/dto"
	"github.com/SscSPs/cbs_ledger/internal/utils/pagination"
	"github.com/shopspring/decimal"
)

// DefaultSupportedCurrencies are the currencies accepted when none are configured.
var DefaultSupportedCurrencies = []string{"KES", "UGX", "USD"}

type accountService struct {
	BaseService
	accountRepo         portsrepo.AccountRepositoryFacade
	journalRepo         portsrepo.JournalRepositoryFacade
	supportedCurrencies map[string]struct{}
	now                 func() time.Time
}

// AccountServiceOption is a functional option for configuring the account service
type AccountServiceOption func(*accountService)

// WithSupportedCurrencies restricts account currencies to codes. Every code must be a known ISO 4217 currency.
func WithSupportedCurrencies(codes []string) AccountServiceOption {
	return func(s *accountService) {
		s.supportedCurrencies = make(map[string]struct{}, len(codes))
		for _, c := range codes {
			s.supportedCurrencies[strings.ToUpper(strings.TrimSpace(c))] = struct{}{}
		}
	}
}

func WithAccountClock(now func() time.Time) AccountServiceOption {
	return func(s *accountService) {
		s.now = now
	}
}

func NewAccountService(accountRepo portsrepo.AccountRepositoryFacade, journalRepo portsrepo.JournalRepositoryFacade, options ...AccountServiceOption) portssvc.AccountSvcFacade {
	svc := &accountService{
		accountRepo: accountRepo,
		journalRepo: journalRepo,
		now:         time.Now,
	}
	WithSupportedCurrencies(DefaultSupportedCurrencies)(svc)
	for _, option := range options {
		option(svc)
	}
	return svc
}

var _ portssvc.AccountSvcFacade = (*accountService)(nil)

func (s *accountService) CreateAccount(ctx context.Context, req dto.CreateAccountRequest) (*domain.Account, error) {
	logger := s.GetLogger(ctx)

	account := domain.Account{
		AccountID:    strings.TrimSpace(req.AccountID),
		Name:         strings.TrimSpace(req.Name),
		AccountType:  req.AccountType,
		CurrencyCode: strings.ToUpper(strings.TrimSpace(req.CurrencyCode)),
		Balance:      decimal.Zero,
		Version:      1,
	}
	if err := s.validateNewAccount(account); err != nil {
		return nil, err
	}

	if req.ParentAccountID != nil && strings.TrimSpace(*req.ParentAccountID) != "" {
		account.ParentAccountID = strings.TrimSpace(*req.ParentAccountID)
		if err := s.validateParent(ctx, account); err != nil {
			return nil, err
		}
	}

	now := s.now().UTC()
	account.CreatedAt = now
	account.UpdatedAt = now

	if err := s.accountRepo.CreateAccount(ctx, account); err != nil {
		if errors.Is(err, apperrors.ErrDuplicate) {
			logger.Warn("Account already exists", slog.String("account_id", account.AccountID))
			return nil, &apperrors.AccountAlreadyExistsError{AccountID: account.AccountID}
		}
		s.LogError(ctx, err, "Failed to save account in repository", slog.String("account_id", account.AccountID))
		return nil, err
	}

	logger.Info("Account created", slog.String("account_id", account.AccountID), slog.String("account_type", string(account.AccountType)))
	return &account, nil
}

func (s *accountService) validateNewAccount(account domain.Account) error {
	if account.AccountID == "" {
		return apperrors.NewValidationError("accountID", "is required")
	}
	if account.Name == "" {
		return apperrors.NewValidationError("name", "is required")
	}
	if !account.AccountType.IsValid() {
		return apperrors.NewValidationError("accountType", fmt.Sprintf("unknown account type %q", account.AccountType))
	}
	if account.CurrencyCode == "" {
		return apperrors.NewValidationError("currencyCode", "is required")
	}
	if money.GetCurrency(account.CurrencyCode) == nil {
		return apperrors.NewValidationError("currencyCode", fmt.Sprintf("%s is not an ISO 4217 currency", account.CurrencyCode))
	}
	if _, ok := s.supportedCurrencies[account.CurrencyCode]; !ok {
		return apperrors.NewValidationError("currencyCode", fmt.Sprintf("currency %s is not supported", account.CurrencyCode))
	}
	return nil
}

// validateParent requires the parent to exist and share the child's type.
func (s *accountService) validateParent(ctx context.Context, account domain.Account) error {
	if account.ParentAccountID == account.AccountID {
		return &apperrors.InvalidAccountHierarchyError{AccountID: account.AccountID, ParentID: account.ParentAccountID, Message: "an account cannot be its own parent"}
	}
	parent, err := s.accountRepo.FindAccountByID(ctx, account.ParentAccountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &apperrors.InvalidAccountHierarchyError{AccountID: account.AccountID, ParentID: account.ParentAccountID, Message: "parent account does not exist"}
		}
		return err
	}
	if parent.AccountType != account.AccountType {
		return &apperrors.InvalidAccountHierarchyError{
			AccountID: account.AccountID,
			ParentID:  parent.AccountID,
			Message:   fmt.Sprintf("parent is %s but child is %s", parent.AccountType, account.AccountType),
		}
	}
	return nil
}

func (s *accountService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	account, err := s.accountRepo.FindAccountByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, &apperrors.AccountNotFoundError{Missing: []string{accountID}}
		}
		s.LogError(ctx, err, "Failed to find account by ID in repository", slog.String("account_id", accountID))
		return nil, err
	}
	return account, nil
}

// ListAccounts retrieves a page of accounts ordered by id.
func (s *accountService) ListAccounts(ctx context.Context, limit int, offset int) ([]domain.Account, error) {
	accounts, err := s.accountRepo.ListAccounts(ctx, limit, offset)
	if err != nil {
		s.LogError(ctx, err, "Failed to list accounts from repository", slog.Int("limit", limit), slog.Int("offset", offset))
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	if accounts == nil {
		return []domain.Account{}, nil
	}
	return accounts, nil
}

// DeleteAccount removes an account once nothing depends on it.
func (s *accountService) DeleteAccount(ctx context.Context, accountID string) error {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return err
	}

	hasChildren, err := s.accountRepo.HasChildren(ctx, accountID)
	if err != nil {
		return err
	}
	if hasChildren {
		return &apperrors.AccountHasDependentsError{AccountID: accountID, Reason: "it has child accounts"}
	}
	hasTransactions, err := s.accountRepo.HasTransactions(ctx, accountID)
	if err != nil {
		return err
	}
	if hasTransactions {
		return &apperrors.AccountHasDependentsError{AccountID: accountID, Reason: "it has posted transactions"}
	}

	if err := s.accountRepo.DeleteAccount(ctx, accountID); err != nil {
		s.LogError(ctx, err, "Failed to delete account", slog.String("account_id", accountID))
		return err
	}
	s.LogInfo(ctx, "Account deleted", slog.String("account_id", accountID))
	return nil
}

// GetAccountBalance returns the stored balance, or recomputes it from entry
// lines dated on or before asOf.
func (s *accountService) GetAccountBalance(ctx context.Context, accountID string, asOf *time.Time) (decimal.Decimal, error) {
	account, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	if asOf == nil {
		return account.Balance, nil
	}

	movements, err := s.journalRepo.SumAccountMovements(ctx, accountID, asOf.UTC().Truncate(oneDay))
	if err != nil {
		s.LogError(ctx, err, "Failed to sum account movements", slog.String("account_id", accountID))
		return decimal.Zero, err
	}
	return BalanceDelta(account.AccountType, movements.Debits, movements.Credits)
}

// GetAccountHistory lists entries touching the account, newest first.
func (s *accountService) GetAccountHistory(ctx context.Context, accountID string, params dto.AccountHistoryParams) (*dto.AccountHistoryResponse, error) {
	if _, err := s.GetAccount(ctx, accountID); err != nil {
		return nil, err
	}

	limit := params.Limit
	if limit <= 0 {
		limit = 20
	}

	var cursor *portsrepo.EntryCursor
	if params.NextToken != nil && *params.NextToken != "" {
		date, id, err := pagination.DecodeToken(*params.NextToken)
		if err != nil {
			return nil, apperrors.NewValidationError("nextToken", err.Error())
		}
		cursor = &portsrepo.EntryCursor{TransactionDate: date, EntryID: id}
	}

	entries, err := s.journalRepo.ListEntriesByAccount(ctx, accountID, limit+1, cursor)
	if err != nil {
		s.LogError(ctx, err, "Failed to list account history", slog.String("account_id", accountID))
		return nil, err
	}

	var nextToken *string
	if len(entries) > limit {
		entries = entries[:limit]
		last := entries[len(entries)-1]
		token := pagination.EncodeToken(last.TransactionDate, last.EntryID)
		nextToken = &token
	}

	return &dto.AccountHistoryResponse{
		AccountID:    accountID,
		Transactions: dto.ToTransactionResponses(entries),
		NextToken:    nextToken,
	}, nil
}

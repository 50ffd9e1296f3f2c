package handlers_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/SscSPs/cbs_ledger/internal/core/domain"
	portssvc "github.com/SscSPs/cbs_ledger/internal/core/ports/services"
	"github.com/SscSPs/cbs_ledger/internal/dto"
	"github.com/SscSPs/cbs_ledger/internal/handlers"
	"github.com/SscSPs/cbs_ledger/internal/middleware"
	"github.com/SscSPs/cbs_ledger/internal/platform/config"
	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

type HandlersTestSuite struct {
	suite.Suite
	router        *gin.Engine
	jwtSecret     string
	accountSvc    *MockAccountService
	ledgerSvc     *MockLedgerService
	loanSvc       *MockLoanService
	reportingSvc  *MockReportingService
	authorization string
}

func (suite *HandlersTestSuite) generateTestToken(subject string) string {
	claims := jwt.RegisteredClaims{
		Issuer:    "cbs-ledger-test",
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(1 * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(suite.jwtSecret))
	if err != nil {
		suite.FailNow("Failed to sign test token", err.Error())
	}
	return signed
}

func (suite *HandlersTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	suite.jwtSecret = "test-secret-key-that-is-long-enough"
	suite.accountSvc = new(MockAccountService)
	suite.ledgerSvc = new(MockLedgerService)
	suite.loanSvc = new(MockLoanService)
	suite.reportingSvc = new(MockReportingService)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	suite.router = gin.New()
	suite.router.Use(middleware.StructuredLoggingMiddleware(logger))

	cfg := &config.Config{JWTSecret: suite.jwtSecret, IsProduction: true}
	container := &portssvc.ServiceContainer{
		Account:   suite.accountSvc,
		Ledger:    suite.ledgerSvc,
		Loan:      suite.loanSvc,
		Reporting: suite.reportingSvc,
	}
	handlers.RegisterRoutes(suite.router, cfg, container, func() string { return "closed" })
	suite.authorization = "Bearer " + suite.generateTestToken("loan-origination")
}

func (suite *HandlersTestSuite) TearDownTest() {
	suite.accountSvc.AssertExpectations(suite.T())
	suite.ledgerSvc.AssertExpectations(suite.T())
	suite.loanSvc.AssertExpectations(suite.T())
	suite.reportingSvc.AssertExpectations(suite.T())
}

func (suite *HandlersTestSuite) do(method, url string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req, _ := http.NewRequest(method, url, reader)
	req.Header.Set("Authorization", suite.authorization)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *HandlersTestSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func sampleEntry(id int64) *domain.JournalEntry {
	return &domain.JournalEntry{
		EntryID:         id,
		IdempotencyKey:  "loan-001",
		Description:     "Loan disbursement",
		TransactionDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
		PostedAt:        time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC),
		Status:          domain.Posted,
		Lines: []domain.EntryLine{
			{LineID: 1, AccountID: "LOAN-001", Debit: decimal.NewFromInt(100), Credit: decimal.Zero},
			{LineID: 2, AccountID: "CASH", Debit: decimal.Zero, Credit: decimal.NewFromInt(100)},
		},
	}
}

// --- Health and auth ---

func (suite *HandlersTestSuite) TestHealth_IsPublic() {
	req, _ := http.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)

	suite.Equal(http.StatusOK, w.Code)
	body := suite.decode(w)
	suite.Equal("OK", body["status"])
	suite.Equal("closed", body["store"])
}

func (suite *HandlersTestSuite) TestAPI_RequiresBearerToken() {
	suite.authorization = ""
	w := suite.do(http.MethodGet, "/api/v1/accounts/CASH", nil)
	suite.Equal(http.StatusUnauthorized, w.Code)
	suite.accountSvc.AssertNotCalled(suite.T(), "GetAccount", mock.Anything, mock.Anything)
}

// --- Accounts ---

func (suite *HandlersTestSuite) TestCreateAccount_Success() {
	req := dto.CreateAccountRequest{AccountID: "CASH", Name: "Cash", AccountType: domain.Asset, CurrencyCode: "KES"}
	created := &domain.Account{AccountID: "CASH", Name: "Cash", AccountType: domain.Asset, CurrencyCode: "KES", Balance: decimal.Zero, Version: 1}
	suite.accountSvc.On("CreateAccount", mock.Anything, req).Return(created, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/accounts", req)

	suite.Equal(http.StatusCreated, w.Code)
	body := suite.decode(w)
	suite.Equal("CASH", body["accountID"])
	suite.Equal("ASSET", body["accountType"])
	suite.Equal("0", body["balance"])
}

func (suite *HandlersTestSuite) TestCreateAccount_BindingErrors() {
	w := suite.do(http.MethodPost, "/api/v1/accounts", map[string]any{"accountID": "CASH", "name": "Cash", "accountType": "CASHFLOW", "currencyCode": "KES"})
	suite.Equal(http.StatusBadRequest, w.Code)

	w = suite.do(http.MethodPost, "/api/v1/accounts", map[string]any{"name": "Cash"})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestCreateAccount_Conflicts() {
	suite.accountSvc.On("CreateAccount", mock.Anything, mock.Anything).
		Return(nil, &apperrors.AccountAlreadyExistsError{AccountID: "CASH"}).Once()

	w := suite.do(http.MethodPost, "/api/v1/accounts", dto.CreateAccountRequest{AccountID: "CASH", Name: "Cash", AccountType: domain.Asset, CurrencyCode: "KES"})
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlersTestSuite) TestCreateAccount_InvalidHierarchy() {
	parent := "REVENUE"
	suite.accountSvc.On("CreateAccount", mock.Anything, mock.Anything).
		Return(nil, &apperrors.InvalidAccountHierarchyError{AccountID: "CASH", ParentID: parent, Message: "type mismatch"}).Once()

	w := suite.do(http.MethodPost, "/api/v1/accounts", dto.CreateAccountRequest{AccountID: "CASH", Name: "Cash", AccountType: domain.Asset, CurrencyCode: "KES", ParentAccountID: &parent})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestGetAccount_NotFound() {
	suite.accountSvc.On("GetAccount", mock.Anything, "NOPE").
		Return(nil, &apperrors.AccountNotFoundError{Missing: []string{"NOPE"}}).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts/NOPE", nil)

	suite.Equal(http.StatusNotFound, w.Code)
	body := suite.decode(w)
	suite.Equal([]any{"NOPE"}, body["missingAccounts"])
}

func (suite *HandlersTestSuite) TestListAccounts_PassesPaging() {
	suite.accountSvc.On("ListAccounts", mock.Anything, 5, 10).Return([]domain.Account{{AccountID: "CASH"}}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts?limit=5&offset=10", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.ListAccountsResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Accounts, 1)
	suite.Equal(5, resp.Limit)
}

func (suite *HandlersTestSuite) TestDeleteAccount_HasDependents() {
	suite.accountSvc.On("DeleteAccount", mock.Anything, "CASH").
		Return(&apperrors.AccountHasDependentsError{AccountID: "CASH", Reason: "it has posted transactions"}).Once()

	w := suite.do(http.MethodDelete, "/api/v1/accounts/CASH", nil)
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlersTestSuite) TestDeleteAccount_NoContent() {
	suite.accountSvc.On("DeleteAccount", mock.Anything, "CASH").Return(nil).Once()

	w := suite.do(http.MethodDelete, "/api/v1/accounts/CASH", nil)
	suite.Equal(http.StatusNoContent, w.Code)
}

func (suite *HandlersTestSuite) TestGetAccountBalance_AsOf() {
	want := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	suite.accountSvc.On("GetAccountBalance", mock.Anything, "CASH", mock.MatchedBy(func(asOf *time.Time) bool {
		return asOf != nil && asOf.Equal(want)
	})).Return(decimal.RequireFromString("250.50"), nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts/CASH/balance?asOf=2024-03-31", nil)

	suite.Equal(http.StatusOK, w.Code)
	body := suite.decode(w)
	suite.Equal("250.5", body["balance"])
	suite.Equal("2024-03-31", body["asOf"])
}

func (suite *HandlersTestSuite) TestGetAccountBalance_Current() {
	suite.accountSvc.On("GetAccountBalance", mock.Anything, "CASH", (*time.Time)(nil)).Return(decimal.NewFromInt(7), nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts/CASH/balance", nil)

	suite.Equal(http.StatusOK, w.Code)
	suite.NotContains(suite.decode(w), "asOf")
}

func (suite *HandlersTestSuite) TestGetAccountBalance_BadDate() {
	w := suite.do(http.MethodGet, "/api/v1/accounts/CASH/balance?asOf=31-03-2024", nil)
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("asOf", suite.decode(w)["field"])
}

func (suite *HandlersTestSuite) TestGetAccountHistory_PassesToken() {
	token := "abc"
	next := "def"
	suite.accountSvc.On("GetAccountHistory", mock.Anything, "CASH", mock.MatchedBy(func(p dto.AccountHistoryParams) bool {
		return p.Limit == 2 && p.NextToken != nil && *p.NextToken == token
	})).Return(&dto.AccountHistoryResponse{
		AccountID:    "CASH",
		Transactions: dto.ToTransactionResponses([]domain.JournalEntry{*sampleEntry(3)}),
		NextToken:    &next,
	}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/accounts/CASH/transactions?limit=2&nextToken=abc", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.AccountHistoryResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Len(resp.Transactions, 1)
	suite.Equal(next, *resp.NextToken)
}

// --- Transactions ---

func (suite *HandlersTestSuite) TestPostTransaction_Success() {
	suite.ledgerSvc.On("PostTransaction", mock.Anything, mock.MatchedBy(func(r domain.PostingRequest) bool {
		return r.IdempotencyKey == "loan-001" &&
			len(r.Entries) == 2 &&
			r.Entries[0].Debit.Equal(decimal.NewFromInt(100)) &&
			r.TransactionDate.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	})).Return(sampleEntry(1), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/transactions", map[string]any{
		"idempotencyKey":  "loan-001",
		"description":     "Loan disbursement",
		"transactionDate": "2024-03-01",
		"entries": []map[string]any{
			{"accountID": "LOAN-001", "debit": 100},
			{"accountID": "CASH", "credit": "100"},
		},
	})

	suite.Equal(http.StatusCreated, w.Code)
	body := suite.decode(w)
	suite.Equal(float64(1), body["id"])
	suite.Equal("POSTED", body["status"])
	suite.Equal("100", body["totalAmount"])
	suite.Equal("2024-03-01", body["transactionDate"])
}

func (suite *HandlersTestSuite) TestPostTransaction_Unbalanced() {
	suite.ledgerSvc.On("PostTransaction", mock.Anything, mock.Anything).
		Return(nil, &apperrors.UnbalancedTransactionError{Debits: decimal.NewFromInt(150), Credits: decimal.NewFromInt(100)}).Once()

	w := suite.do(http.MethodPost, "/api/v1/transactions", map[string]any{
		"idempotencyKey": "bad-1",
		"entries": []map[string]any{
			{"accountID": "LOAN-001", "debit": 150},
			{"accountID": "CASH", "credit": 100},
		},
	})

	suite.Equal(http.StatusBadRequest, w.Code)
	body := suite.decode(w)
	suite.Equal("150", body["debits"])
	suite.Equal("100", body["credits"])
}

func (suite *HandlersTestSuite) TestPostTransaction_RejectsNegativeAmounts() {
	w := suite.do(http.MethodPost, "/api/v1/transactions", map[string]any{
		"idempotencyKey": "neg-1",
		"entries": []map[string]any{
			{"accountID": "LOAN-001", "debit": -5},
			{"accountID": "CASH", "credit": -5},
		},
	})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestPostTransaction_RequiresEntries() {
	w := suite.do(http.MethodPost, "/api/v1/transactions", map[string]any{"idempotencyKey": "empty-1", "entries": []any{}})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestPostTransaction_ErrorStatuses() {
	tests := []struct {
		name      string
		err       error
		status    int
		retryable bool
	}{
		{"duplicate key", &apperrors.DuplicateIdempotencyKeyError{Key: "k", ExistingID: 9}, http.StatusConflict, false},
		{"multi currency", &apperrors.MultiCurrencyError{Currencies: []string{"KES", "USD"}}, http.StatusBadRequest, false},
		{"missing account", &apperrors.AccountNotFoundError{Missing: []string{"X"}}, http.StatusNotFound, false},
		{"version conflict", &apperrors.VersionConflictError{AccountID: "CASH", Attempts: 5}, http.StatusConflict, true},
		{"lock timeout", &apperrors.LockTimeoutError{AccountIDs: []string{"CASH"}}, http.StatusServiceUnavailable, true},
		{"store down", apperrors.ErrStoreUnavailable, http.StatusServiceUnavailable, true},
		{"unexpected", errors.New("boom"), http.StatusInternalServerError, false},
	}
	for _, tt := range tests {
		suite.Run(tt.name, func() {
			suite.ledgerSvc.On("PostTransaction", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			w := suite.do(http.MethodPost, "/api/v1/transactions", map[string]any{
				"idempotencyKey": "k",
				"entries":        []map[string]any{{"accountID": "CASH", "debit": 1}, {"accountID": "LOAN", "credit": 1}},
			})

			suite.Equal(tt.status, w.Code)
			body := suite.decode(w)
			if tt.retryable {
				suite.Equal(true, body["retryable"])
			} else {
				suite.NotContains(body, "retryable")
			}
			if tt.status == http.StatusInternalServerError {
				suite.Equal("Failed to post transaction", body["error"])
			}
		})
	}
}

func (suite *HandlersTestSuite) TestGetTransaction() {
	suite.ledgerSvc.On("GetTransaction", mock.Anything, int64(42)).Return(sampleEntry(42), nil).Once()
	suite.ledgerSvc.On("GetTransaction", mock.Anything, int64(43)).Return(nil, &apperrors.TransactionNotFoundError{ID: 43}).Once()

	suite.Equal(http.StatusOK, suite.do(http.MethodGet, "/api/v1/transactions/42", nil).Code)
	suite.Equal(http.StatusNotFound, suite.do(http.MethodGet, "/api/v1/transactions/43", nil).Code)
	suite.Equal(http.StatusBadRequest, suite.do(http.MethodGet, "/api/v1/transactions/abc", nil).Code)
}

func (suite *HandlersTestSuite) TestReverseTransaction() {
	reversal := sampleEntry(2)
	original := int64(1)
	reversal.ReversalOf = &original
	suite.ledgerSvc.On("ReverseTransaction", mock.Anything, int64(1), "rev-1").Return(reversal, nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/transactions/1/reverse", dto.ReverseTransactionRequest{IdempotencyKey: "rev-1"})

	suite.Equal(http.StatusCreated, w.Code)
	suite.Equal(float64(1), suite.decode(w)["reversalOf"])
}

func (suite *HandlersTestSuite) TestReverseTransaction_AlreadyReversed() {
	suite.ledgerSvc.On("ReverseTransaction", mock.Anything, int64(1), "rev-2").
		Return(nil, &apperrors.TransactionAlreadyReversedError{ID: 1}).Once()

	w := suite.do(http.MethodPost, "/api/v1/transactions/1/reverse", dto.ReverseTransactionRequest{IdempotencyKey: "rev-2"})
	suite.Equal(http.StatusConflict, w.Code)
}

func (suite *HandlersTestSuite) TestReverseTransaction_RequiresKey() {
	w := suite.do(http.MethodPost, "/api/v1/transactions/1/reverse", map[string]any{})
	suite.Equal(http.StatusBadRequest, w.Code)
}

// --- Loans ---

func (suite *HandlersTestSuite) TestDisburseLoan() {
	suite.loanSvc.On("DisburseLoan", mock.Anything, mock.MatchedBy(func(r dto.DisburseLoanRequest) bool {
		return r.Reference == "L-1" && r.Principal.Equal(decimal.NewFromInt(100))
	})).Return(sampleEntry(1), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/loans/disbursements", map[string]any{
		"reference": "L-1", "loanAccountID": "LOAN-001", "cashAccountID": "CASH", "principal": 100,
	})
	suite.Equal(http.StatusCreated, w.Code)
}

func (suite *HandlersTestSuite) TestDisburseLoan_RejectsZeroPrincipal() {
	w := suite.do(http.MethodPost, "/api/v1/loans/disbursements", map[string]any{
		"reference": "L-1", "loanAccountID": "LOAN-001", "cashAccountID": "CASH", "principal": 0,
	})
	suite.Equal(http.StatusBadRequest, w.Code)
}

func (suite *HandlersTestSuite) TestRecordRepayment_ValidationFromService() {
	suite.loanSvc.On("RecordRepayment", mock.Anything, mock.Anything).
		Return(nil, apperrors.NewValidationError("interestIncomeAccountID", "is required when interest is charged")).Once()

	w := suite.do(http.MethodPost, "/api/v1/loans/repayments", map[string]any{
		"reference": "L-1", "loanAccountID": "LOAN-001", "cashAccountID": "CASH", "principal": 50, "interest": 5,
	})
	suite.Equal(http.StatusBadRequest, w.Code)
	suite.Equal("interestIncomeAccountID", suite.decode(w)["field"])
}

func (suite *HandlersTestSuite) TestWriteOffLoan() {
	suite.loanSvc.On("WriteOffLoan", mock.Anything, mock.Anything).Return(sampleEntry(5), nil).Once()

	w := suite.do(http.MethodPost, "/api/v1/loans/write-offs", map[string]any{
		"reference": "L-1", "loanAccountID": "LOAN-001", "badDebtExpenseAccountID": "BAD-DEBT", "amount": "25.00",
	})
	suite.Equal(http.StatusCreated, w.Code)
}

// --- Reports ---

func (suite *HandlersTestSuite) TestTrialBalance() {
	suite.reportingSvc.On("GetTrialBalance", mock.Anything).Return(&domain.TrialBalanceReport{
		AccountBalances: []domain.TrialBalanceRow{
			{AccountType: domain.Asset, Balance: decimal.NewFromInt(100), Debit: decimal.NewFromInt(100), Credit: decimal.Zero},
			{AccountType: domain.Liability, Balance: decimal.NewFromInt(-100), Debit: decimal.Zero, Credit: decimal.NewFromInt(100)},
		},
		TotalDebits:  decimal.NewFromInt(100),
		TotalCredits: decimal.NewFromInt(100),
		IsBalanced:   true,
	}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/reports/trial-balance", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp dto.TrialBalanceResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.True(resp.IsBalanced)
	suite.Len(resp.AccountBalances, 2)
}

func (suite *HandlersTestSuite) TestBalanceSheet_StoreUnavailable() {
	suite.reportingSvc.On("GetBalanceSheet", mock.Anything).Return(nil, apperrors.ErrStoreUnavailable).Once()

	w := suite.do(http.MethodGet, "/api/v1/reports/balance-sheet", nil)
	suite.Equal(http.StatusServiceUnavailable, w.Code)
}

func (suite *HandlersTestSuite) TestLoanAging() {
	suite.reportingSvc.On("GetLoanAgingReport", mock.Anything).Return([]domain.LoanAgingBucket{{
		Label:            "30-59 days",
		Count:            1,
		TotalOutstanding: decimal.NewFromInt(80),
		Loans: []domain.LoanAgingMember{{
			AccountID: "LOAN-001", Name: "Loan 1", Outstanding: decimal.NewFromInt(80),
			DueDate: time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC), DaysOverdue: 35,
		}},
	}}, nil).Once()

	w := suite.do(http.MethodGet, "/api/v1/reports/loan-aging", nil)

	suite.Equal(http.StatusOK, w.Code)
	var resp []dto.LoanAgingBucketResponse
	suite.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	suite.Require().Len(resp, 1)
	suite.Equal("2024-01-31", resp[0].Loans[0].DueDate)
}

func TestHandlers(t *testing.T) {
	suite.Run(t, new(HandlersTestSuite))
}

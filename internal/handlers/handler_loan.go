package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/cbs_ledger/internal/core/ports/services"
	"github.com/SscSPs/cbs_ledger/internal/dto"
	"github.com/SscSPs/cbs_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

type loanHandler struct {
	loanService portssvc.LoanSvcFacade
}

func newLoanHandler(ls portssvc.LoanSvcFacade) *loanHandler {
	return &loanHandler{loanService: ls}
}

func registerLoanRoutes(rg *gin.RouterGroup, loanService portssvc.LoanSvcFacade) {
	h := newLoanHandler(loanService)

	loans := rg.Group("/loans")
	{
		loans.POST("/disbursements", h.disburse)
		loans.POST("/repayments", h.repay)
		loans.POST("/write-offs", h.writeOff)
	}
}

// disburse godoc
// @Summary Disburse a loan
// @Description Debits the loan account and credits cash. The reference doubles as the idempotency key.
// @Tags loans
// @Accept  json
// @Produce  json
// @Param   disbursement body dto.DisburseLoanRequest true "Disbursement details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 409 {object} map[string]string "Reference already used"
// @Failure 503 {object} map[string]string "Ledger unavailable"
// @Failure 500 {object} map[string]string "Failed to disburse loan"
// @Security BearerAuth
// @Router /loans/disbursements [post]
func (h *loanHandler) disburse(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.DisburseLoanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "request format")
		return
	}
	logger = logger.With(slog.String("reference", req.Reference), slog.String("loan_account_id", req.LoanAccountID))

	entry, err := h.loanService.DisburseLoan(c.Request.Context(), req)
	if err != nil {
		respondWithError(c, logger, err, "Failed to disburse loan")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(entry))
}

// repay godoc
// @Summary Record a loan repayment
// @Description Debits cash, credits principal to the loan account and interest to income
// @Tags loans
// @Accept  json
// @Produce  json
// @Param   repayment body dto.LoanRepaymentRequest true "Repayment details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 409 {object} map[string]string "Reference already used"
// @Failure 503 {object} map[string]string "Ledger unavailable"
// @Failure 500 {object} map[string]string "Failed to record repayment"
// @Security BearerAuth
// @Router /loans/repayments [post]
func (h *loanHandler) repay(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.LoanRepaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "request format")
		return
	}
	logger = logger.With(slog.String("reference", req.Reference), slog.String("loan_account_id", req.LoanAccountID))

	entry, err := h.loanService.RecordRepayment(c.Request.Context(), req)
	if err != nil {
		respondWithError(c, logger, err, "Failed to record repayment")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(entry))
}

// writeOff godoc
// @Summary Write off a loan
// @Description Debits bad-debt expense and credits the loan account
// @Tags loans
// @Accept  json
// @Produce  json
// @Param   writeOff body dto.LoanWriteOffRequest true "Write-off details"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 404 {object} map[string]string "Account not found"
// @Failure 409 {object} map[string]string "Reference already used"
// @Failure 503 {object} map[string]string "Ledger unavailable"
// @Failure 500 {object} map[string]string "Failed to write off loan"
// @Security BearerAuth
// @Router /loans/write-offs [post]
func (h *loanHandler) writeOff(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.LoanWriteOffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "request format")
		return
	}
	logger = logger.With(slog.String("reference", req.Reference), slog.String("loan_account_id", req.LoanAccountID))

	entry, err := h.loanService.WriteOffLoan(c.Request.Context(), req)
	if err != nil {
		respondWithError(c, logger, err, "Failed to write off loan")
		return
	}
	c.JSON(http.StatusCreated, dto.ToTransactionResponse(entry))
}

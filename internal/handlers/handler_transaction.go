package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	portssvc "github.com/SscSPs/cbs_ledger/internal/core/ports/services"
	"github.com/SscSPs/cbs_ledger/internal/dto"
	"github.com/SscSPs/cbs_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// transactionHandler exposes the ledger engine.
type transactionHandler struct {
	ledgerService portssvc.LedgerSvcFacade
	now           func() time.Time
}

func newTransactionHandler(ls portssvc.LedgerSvcFacade) *transactionHandler {
	return &transactionHandler{ledgerService: ls, now: time.Now}
}

func registerTransactionRoutes(rg *gin.RouterGroup, ledgerService portssvc.LedgerSvcFacade) {
	h := newTransactionHandler(ledgerService)

	transactions := rg.Group("/transactions")
	{
		transactions.POST("", h.postTransaction)
		transactions.GET("/:id", h.getTransaction)
		transactions.POST("/:id/reverse", h.reverseTransaction)
	}
}

// postTransaction godoc
// @Summary Post a transaction
// @Description Posts a balanced set of debit and credit lines. Each idempotency key can be committed once.
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   transaction body dto.PostTransactionRequest true "Transaction to post"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid, unbalanced or multi-currency transaction"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Referenced account not found"
// @Failure 409 {object} map[string]string "Idempotency key already used or concurrent modification"
// @Failure 503 {object} map[string]string "Locks or store unavailable, retry with the same key"
// @Failure 500 {object} map[string]string "Failed to post transaction"
// @Security BearerAuth
// @Router /transactions [post]
func (h *transactionHandler) postTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.PostTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "request format")
		return
	}

	logger = logger.With(slog.String("idempotency_key", req.IdempotencyKey))
	posting, err := req.ToPostingRequest(h.now())
	if err != nil {
		respondWithError(c, logger, apperrors.NewValidationError("transactionDate", "invalid date format, use YYYY-MM-DD"), "Failed to post transaction")
		return
	}

	entry, err := h.ledgerService.PostTransaction(c.Request.Context(), posting)
	if err != nil {
		respondWithError(c, logger, err, "Failed to post transaction")
		return
	}

	c.JSON(http.StatusCreated, dto.ToTransactionResponse(entry))
}

// getTransaction godoc
// @Summary Get a transaction by ID
// @Tags transactions
// @Produce  json
// @Param   id path int true "Transaction ID"
// @Success 200 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid transaction ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 500 {object} map[string]string "Failed to retrieve transaction"
// @Security BearerAuth
// @Router /transactions/{id} [get]
func (h *transactionHandler) getTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	id, ok := parseTransactionID(c, logger)
	if !ok {
		return
	}

	entry, err := h.ledgerService.GetTransaction(c.Request.Context(), id)
	if err != nil {
		respondWithError(c, logger, err, "Failed to retrieve transaction")
		return
	}

	c.JSON(http.StatusOK, dto.ToTransactionResponse(entry))
}

// reverseTransaction godoc
// @Summary Reverse a transaction
// @Description Posts a compensating entry and marks the original REVERSED
// @Tags transactions
// @Accept  json
// @Produce  json
// @Param   id path int true "Transaction ID to reverse"
// @Param   reversal body dto.ReverseTransactionRequest true "Idempotency key for the reversal"
// @Success 201 {object} dto.TransactionResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Transaction not found"
// @Failure 409 {object} map[string]string "Already reversed, is itself a reversal, or key already used"
// @Failure 503 {object} map[string]string "Locks or store unavailable"
// @Failure 500 {object} map[string]string "Failed to reverse transaction"
// @Security BearerAuth
// @Router /transactions/{id}/reverse [post]
func (h *transactionHandler) reverseTransaction(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	id, ok := parseTransactionID(c, logger)
	if !ok {
		return
	}

	var req dto.ReverseTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, logger, err, "request format")
		return
	}

	logger = logger.With(slog.Int64("transaction_id", id), slog.String("idempotency_key", req.IdempotencyKey))
	logger.Info("Received request to reverse transaction")

	reversal, err := h.ledgerService.ReverseTransaction(c.Request.Context(), id, req.IdempotencyKey)
	if err != nil {
		respondWithError(c, logger, err, "Failed to reverse transaction")
		return
	}

	c.JSON(http.StatusCreated, dto.ToTransactionResponse(reversal))
}

func parseTransactionID(c *gin.Context, logger *slog.Logger) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		logger.Warn("Invalid transaction ID in path", slog.String("id", c.Param("id")))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid transaction ID"})
		return 0, false
	}
	return id, true
}

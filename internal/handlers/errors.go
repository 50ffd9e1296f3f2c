package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/SscSPs/cbs_ledger/internal/apperrors"
	"github.com/gin-gonic/gin"
)

// statusForError maps ledger errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, apperrors.ErrUnbalanced),
		errors.Is(err, apperrors.ErrMultiCurrency),
		errors.Is(err, apperrors.ErrInvalidHierarchy):
		return http.StatusBadRequest
	case errors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperrors.ErrDuplicate),
		errors.Is(err, apperrors.ErrConflict),
		errors.Is(err, apperrors.ErrVersionConflict):
		return http.StatusConflict
	case errors.Is(err, apperrors.ErrLockTimeout),
		errors.Is(err, apperrors.ErrStoreUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errorBody adds structured details for the errors callers are expected to act on.
func errorBody(err error) gin.H {
	body := gin.H{"error": err.Error()}

	var unbalanced *apperrors.UnbalancedTransactionError
	var missing *apperrors.AccountNotFoundError
	var duplicate *apperrors.DuplicateIdempotencyKeyError
	var validation *apperrors.ValidationError
	switch {
	case errors.As(err, &unbalanced):
		body["debits"] = unbalanced.Debits
		body["credits"] = unbalanced.Credits
	case errors.As(err, &missing):
		body["missingAccounts"] = missing.Missing
	case errors.As(err, &duplicate):
		if duplicate.ExistingID != 0 {
			body["existingTransactionID"] = duplicate.ExistingID
		}
	case errors.As(err, &validation):
		if validation.Field != "" {
			body["field"] = validation.Field
		}
	}
	if apperrors.IsRetryable(err) {
		body["retryable"] = true
	}
	return body
}

// respondWithError writes err with its mapped status. Unexpected errors are
// logged and replaced by fallbackMsg so internals do not leak.
func respondWithError(c *gin.Context, logger *slog.Logger, err error, fallbackMsg string) {
	status := statusForError(err)
	switch {
	case status == http.StatusInternalServerError:
		logger.Error(fallbackMsg, slog.String("error", err.Error()))
		c.JSON(status, gin.H{"error": fallbackMsg})
		return
	case status == http.StatusServiceUnavailable:
		logger.Error("Ledger temporarily unavailable", slog.String("error", err.Error()))
	default:
		logger.Warn("Request rejected", slog.Int("status", status), slog.String("error", err.Error()))
	}
	c.JSON(status, errorBody(err))
}

func respondBindError(c *gin.Context, logger *slog.Logger, err error, what string) {
	logger.Warn("Failed to bind "+what, slog.String("error", err.Error()))
	c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid " + what + ": " + err.Error()})
}

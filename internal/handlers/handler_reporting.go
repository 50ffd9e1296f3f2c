package handlers

import (
	"log/slog"
	"net/http"

	portssvc "github.com/SscSPs/cbs_ledger/internal/core/ports/services"
	"github.com/SscSPs/cbs_ledger/internal/dto"
	"github.com/SscSPs/cbs_ledger/internal/middleware"
	"github.com/gin-gonic/gin"
)

// reportingHandler handles HTTP requests related to financial reports
type reportingHandler struct {
	reportingService portssvc.ReportingService
}

func newReportingHandler(rs portssvc.ReportingService) *reportingHandler {
	return &reportingHandler{
		reportingService: rs,
	}
}

// registerReportingRoutes registers routes related to financial reports
func registerReportingRoutes(rg *gin.RouterGroup, reportingService portssvc.ReportingService) {
	h := newReportingHandler(reportingService)

	reportingGroup := rg.Group("/reports")
	{
		reportingGroup.GET("/trial-balance", h.getTrialBalance)
		reportingGroup.GET("/balance-sheet", h.getBalanceSheet)
		reportingGroup.GET("/loan-aging", h.getLoanAging)
	}
}

// getTrialBalance godoc
// @Summary Generate trial balance report
// @Description Sums current balances per account type. Debit and credit totals match on a consistent ledger.
// @Tags reports
// @Produce json
// @Success 200 {object} dto.TrialBalanceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to generate report"
// @Security BearerAuth
// @Router /reports/trial-balance [get]
func (h *reportingHandler) getTrialBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	report, err := h.reportingService.GetTrialBalance(c.Request.Context())
	if err != nil {
		respondWithError(c, logger, err, "Failed to generate trial balance report")
		return
	}

	logger.Info("Trial balance generated", slog.Bool("is_balanced", report.IsBalanced))
	c.JSON(http.StatusOK, dto.ToTrialBalanceResponse(report))
}

// getBalanceSheet godoc
// @Summary Generate balance sheet report
// @Description Lists assets, liabilities and equity including current earnings
// @Tags reports
// @Produce json
// @Success 200 {object} dto.BalanceSheetResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to generate report"
// @Security BearerAuth
// @Router /reports/balance-sheet [get]
func (h *reportingHandler) getBalanceSheet(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	report, err := h.reportingService.GetBalanceSheet(c.Request.Context())
	if err != nil {
		respondWithError(c, logger, err, "Failed to generate balance sheet report")
		return
	}

	c.JSON(http.StatusOK, dto.ToBalanceSheetResponse(report))
}

// getLoanAging godoc
// @Summary Generate loan aging report
// @Description Buckets outstanding loans by days past due. Empty buckets are omitted.
// @Tags reports
// @Produce json
// @Success 200 {array} dto.LoanAgingBucketResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to generate report"
// @Security BearerAuth
// @Router /reports/loan-aging [get]
func (h *reportingHandler) getLoanAging(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	buckets, err := h.reportingService.GetLoanAgingReport(c.Request.Context())
	if err != nil {
		respondWithError(c, logger, err, "Failed to generate loan aging report")
		return
	}

	c.JSON(http.StatusOK, dto.ToLoanAgingResponse(buckets))
}

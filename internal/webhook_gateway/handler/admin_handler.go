package handler

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/webhook_gateway/service"
)

// AdminHandler handles operator reconciliation endpoints
type AdminHandler struct {
	reconciliationService service.ReconciliationService
	logger                *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(logger *slog.Logger, reconciliationService service.ReconciliationService) *AdminHandler {
	return &AdminHandler{
		reconciliationService: reconciliationService,
		logger:                logger,
	}
}

// Reconcile runs one sweep synchronously and returns its report. Without an
// explicit "dry_run": false the sweep only measures, it never writes.
func (h *AdminHandler) Reconcile(c *gin.Context) {
	var req ReconcileRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.logger.Error("Invalid reconcile request body", "error", err)
			RespondBadRequest(c, "Invalid request body: "+err.Error())
			return
		}
	}

	dryRun := true
	if req.DryRun != nil {
		dryRun = *req.DryRun
	}

	report, err := h.reconciliationService.Run(c.Request.Context(), dryRun)
	if err != nil {
		h.logger.Error("Reconciliation sweep failed", "dry_run", dryRun, "error", err)
		RespondInternalError(c)
		return
	}

	RespondOK(c, report)
}

// LatestReport returns the most recent sweep report
func (h *AdminHandler) LatestReport(c *gin.Context) {
	report, err := h.reconciliationService.LatestReport(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load latest sweep report", "error", err)
		RespondInternalError(c)
		return
	}
	if report == nil {
		RespondNotFound(c, "No reconciliation run recorded")
		return
	}
	RespondOK(c, report)
}

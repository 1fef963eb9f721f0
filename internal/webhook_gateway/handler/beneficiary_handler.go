package handler

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/beneficiary"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/webhook_gateway/service"
)

// BeneficiaryHandler handles public beneficiary endpoints
type BeneficiaryHandler struct {
	queryService service.QueryService
	logger       *slog.Logger
}

// NewBeneficiaryHandler creates a new beneficiary handler
func NewBeneficiaryHandler(logger *slog.Logger, queryService service.QueryService) *BeneficiaryHandler {
	return &BeneficiaryHandler{
		queryService: queryService,
		logger:       logger,
	}
}

// GetSponsors returns the beneficiary with its sponsor wall. Anonymous
// sponsors appear masked; contact details are never exposed here.
func (h *BeneficiaryHandler) GetSponsors(c *gin.Context) {
	idParam := c.Param("id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		h.logger.Error("Invalid beneficiary ID", "id", idParam, "error", err)
		RespondBadRequest(c, "Invalid beneficiary ID")
		return
	}

	b, sponsors, err := h.queryService.GetBeneficiarySponsors(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, beneficiary.ErrBeneficiaryNotFound{}) {
			RespondNotFound(c, "Beneficiary not found")
			return
		}
		h.logger.Error("Failed to load beneficiary sponsors", "beneficiary_id", idParam, "error", err)
		RespondInternalError(c)
		return
	}

	response := BeneficiarySponsorsResponse{
		Beneficiary: mapBeneficiaryToResponse(b),
		Sponsors:    make([]PublicSponsorResponse, 0, len(sponsors)),
	}
	for _, sp := range sponsors {
		response.Sponsors = append(response.Sponsors, mapSponsorToPublicResponse(sp))
	}

	RespondOK(c, response)
}

// GetDashboard returns the platform-wide donation totals
func (h *BeneficiaryHandler) GetDashboard(c *gin.Context) {
	stats, err := h.queryService.GetDashboard(c.Request.Context())
	if err != nil {
		h.logger.Error("Failed to load dashboard stats", "error", err)
		RespondInternalError(c)
		return
	}
	RespondOK(c, stats)
}

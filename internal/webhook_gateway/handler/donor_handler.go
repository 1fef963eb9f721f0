package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/webhook_gateway/middleware"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/webhook_gateway/service"
)

// DonorHandler handles donor-facing history endpoints
type DonorHandler struct {
	queryService service.QueryService
	logger       *slog.Logger
}

// NewDonorHandler creates a new donor handler
func NewDonorHandler(logger *slog.Logger, queryService service.QueryService) *DonorHandler {
	return &DonorHandler{
		queryService: queryService,
		logger:       logger,
	}
}

// GetHistory returns the authenticated donor's sponsorships and donations.
// The donor identity comes from the verified token, never from the request,
// so one donor can never read another's history.
func (h *DonorHandler) GetHistory(c *gin.Context) {
	donorID := middleware.GetDonorID(c)
	if donorID == "" {
		RespondWithError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Missing donor identity")
		return
	}

	history, err := h.queryService.GetDonorHistory(c.Request.Context(), donorID)
	if err != nil {
		h.logger.Error("Failed to load donor history", "error", err)
		RespondInternalError(c)
		return
	}

	response := DonorHistoryResponse{
		Stats: DonorStatsResponse{
			TotalDonated:     history.Stats.TotalDonated,
			DonationCount:    history.Stats.DonationCount,
			BeneficiaryCount: history.Stats.BeneficiaryCount,
		},
		Sponsorships: make([]SponsorshipResponse, 0, len(history.Sponsorships)),
	}
	if history.Stats.LastDonationAt != nil {
		response.Stats.LastDonationAt = history.Stats.LastDonationAt.Format(timeFormat)
	}

	for _, summary := range history.Sponsorships {
		sp := summary.Sponsor
		item := SponsorshipResponse{
			ID:              sp.ID.String(),
			TotalDonated:    sp.TotalDonated,
			DonationCount:   sp.DonationCount,
			FirstDonationAt: sp.FirstDonationAt.Format(timeFormat),
			LastDonationAt:  sp.LastDonationAt.Format(timeFormat),
			Donations:       make([]DonationResponse, 0, len(summary.Donations)),
		}
		if summary.Beneficiary != nil {
			b := mapBeneficiaryToResponse(summary.Beneficiary)
			item.Beneficiary = &b
		}
		for _, d := range summary.Donations {
			item.Donations = append(item.Donations, mapDonationToResponse(d))
		}
		response.Sponsorships = append(response.Sponsorships, item)
	}

	RespondOK(c, response)
}

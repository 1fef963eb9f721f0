package handler

import (
	"time"

	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/beneficiary"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/donation"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/sponsor"
)

// timeFormat is the timestamp layout used in API responses
const timeFormat = time.RFC3339

// WebhookAckResponse acknowledges one webhook delivery to the payment
// processor
type WebhookAckResponse struct {
	EventID   string `json:"event_id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
}

// DonationResponse represents a donation in API responses
type DonationResponse struct {
	ID            string `json:"id"`
	SessionID     string `json:"session_id"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Status        string `json:"status"`
	BeneficiaryID string `json:"beneficiary_id,omitempty"`
	PackID        string `json:"pack_id,omitempty"`
	Recurrence    string `json:"recurrence"`
	PaidAt        string `json:"paid_at"`
}

// BeneficiaryResponse represents a beneficiary in API responses
type BeneficiaryResponse struct {
	ID            string `json:"id"`
	DisplayName   string `json:"display_name"`
	ClubName      string `json:"club_name,omitempty"`
	TotalReceived int64  `json:"total_received"`
	SponsorCount  int64  `json:"sponsor_count"`
}

// SponsorshipResponse represents one donor-to-beneficiary relationship in the
// donor's own history, with the donations attributed to it
type SponsorshipResponse struct {
	ID              string               `json:"id"`
	Beneficiary     *BeneficiaryResponse `json:"beneficiary,omitempty"`
	TotalDonated    int64                `json:"total_donated"`
	DonationCount   int64                `json:"donation_count"`
	FirstDonationAt string               `json:"first_donation_at"`
	LastDonationAt  string               `json:"last_donation_at"`
	Donations       []DonationResponse   `json:"donations"`
}

// DonorStatsResponse summarizes the donor's giving across all sponsorships
type DonorStatsResponse struct {
	TotalDonated     int64  `json:"total_donated"`
	DonationCount    int64  `json:"donation_count"`
	BeneficiaryCount int64  `json:"beneficiary_count"`
	LastDonationAt   string `json:"last_donation_at,omitempty"`
}

// DonorHistoryResponse represents the authenticated donor's giving history
type DonorHistoryResponse struct {
	Stats        DonorStatsResponse    `json:"stats"`
	Sponsorships []SponsorshipResponse `json:"sponsorships"`
}

// PublicSponsorResponse represents a sponsor on a beneficiary's public page.
// Anonymous sponsors are masked and contact details are never exposed.
type PublicSponsorResponse struct {
	DisplayName    string `json:"display_name"`
	TotalDonated   int64  `json:"total_donated"`
	DonationCount  int64  `json:"donation_count"`
	LastDonationAt string `json:"last_donation_at"`
}

// BeneficiarySponsorsResponse represents a beneficiary with its sponsor list
type BeneficiarySponsorsResponse struct {
	Beneficiary BeneficiaryResponse     `json:"beneficiary"`
	Sponsors    []PublicSponsorResponse `json:"sponsors"`
}

// ReconcileRequest represents an operator's sweep trigger. A missing body or
// dry_run field defaults to a dry run.
type ReconcileRequest struct {
	DryRun *bool `json:"dry_run"`
}

func mapDonationToResponse(d *donation.Donation) DonationResponse {
	response := DonationResponse{
		ID:         d.ID.String(),
		SessionID:  d.SessionID,
		Amount:     d.Amount,
		Currency:   d.Currency,
		Status:     string(d.Status),
		PackID:     d.PackID,
		Recurrence: string(d.Recurrence),
		PaidAt:     d.PaidAt.Format(timeFormat),
	}
	if d.BeneficiaryID != nil {
		response.BeneficiaryID = d.BeneficiaryID.String()
	}
	return response
}

func mapBeneficiaryToResponse(b *beneficiary.Beneficiary) BeneficiaryResponse {
	return BeneficiaryResponse{
		ID:            b.ID.String(),
		DisplayName:   b.DisplayName,
		ClubName:      b.ClubName,
		TotalReceived: b.TotalReceived,
		SponsorCount:  b.SponsorCount,
	}
}

func mapSponsorToPublicResponse(s *sponsor.Sponsor) PublicSponsorResponse {
	return PublicSponsorResponse{
		DisplayName:    s.DisplayName(),
		TotalDonated:   s.TotalDonated,
		DonationCount:  s.DonationCount,
		LastDonationAt: s.LastDonationAt.Format(timeFormat),
	}
}

package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/archive"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/beneficiary"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/donation"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/sponsor"
)

// IngestStatus is the gateway's verdict on one webhook delivery
type IngestStatus string

const (
	// IngestAccepted means the event was archived and published for processing
	IngestAccepted IngestStatus = "accepted"
	// IngestDuplicate means a donation for the payment session already exists
	IngestDuplicate IngestStatus = "duplicate"
	// IngestIgnored means the event type is not one the ledger consumes
	IngestIgnored IngestStatus = "ignored"
)

// IngestResult describes how the gateway settled a webhook delivery. All
// three statuses are acknowledged with 200 so the provider stops retrying.
type IngestResult struct {
	EventID   uuid.UUID
	SessionID string
	EventType string
	Status    IngestStatus
}

// IngestionService defines the webhook ingestion operation
type IngestionService interface {
	// Ingest verifies, archives and publishes one webhook delivery.
	// Returns ErrInvalidSignature or ErrMalformedPayload for deliveries the
	// provider must not retry with the same body.
	Ingest(ctx context.Context, payload []byte, signatureHeader, correlationID string) (*IngestResult, error)
}

// SponsorshipSummary pairs a sponsor aggregate with the beneficiary it funds
// and the donations attributed to the pair
type SponsorshipSummary struct {
	Sponsor     *sponsor.Sponsor
	Beneficiary *beneficiary.Beneficiary
	Donations   []*donation.Donation
}

// DonorStats aggregates the donor's giving across all sponsorships
type DonorStats struct {
	TotalDonated     int64
	DonationCount    int64
	BeneficiaryCount int64
	LastDonationAt   *time.Time
}

// DonorHistory is everything a donor sees about their own giving
type DonorHistory struct {
	Stats        DonorStats
	Sponsorships []*SponsorshipSummary
}

// DashboardStats is the platform-wide aggregate served from the read-side
// cache
type DashboardStats struct {
	TotalCollected   int64 `json:"total_collected"` // Stored in cents/minor units
	SponsorCount     int64 `json:"sponsor_count"`
	BeneficiaryCount int64 `json:"beneficiary_count"`
}

// QueryService defines the read-side operations
type QueryService interface {
	// GetDonorHistory returns the authenticated donor's sponsorships and
	// donations. Anonymous donations are keyed by session pseudo-identities
	// and never appear here.
	GetDonorHistory(ctx context.Context, donorExternalID string) (*DonorHistory, error)

	// GetBeneficiarySponsors returns the beneficiary with its sponsor list.
	// Returns beneficiary.ErrBeneficiaryNotFound when the id is unknown.
	GetBeneficiarySponsors(ctx context.Context, beneficiaryID uuid.UUID) (*beneficiary.Beneficiary, []*sponsor.Sponsor, error)

	// GetDashboard returns platform-wide totals, served from cache when fresh
	GetDashboard(ctx context.Context) (*DashboardStats, error)
}

// ReconciliationService exposes the sweep to operators
type ReconciliationService interface {
	// Run executes one reconciliation sweep synchronously
	Run(ctx context.Context, dryRun bool) (*archive.SweepReport, error)

	// LatestReport returns nil, nil when no sweep has run yet
	LatestReport(ctx context.Context) (*archive.SweepReport, error)
}

package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/beneficiary"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/donation"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/sponsor"
	"github.com/redis/go-redis/v9"
)

// dashboardCacheKey holds the serialized platform-wide aggregate
const dashboardCacheKey = "dashboard:stats"

// dashboardPageSize bounds one beneficiary scan page while computing the
// dashboard aggregate
const dashboardPageSize = 500

// QueryServiceImpl implements the QueryService interface
type QueryServiceImpl struct {
	sponsorRepo     sponsor.Repository
	donationRepo    donation.Repository
	beneficiaryRepo beneficiary.Repository
	cache           *redis.Client
	cacheTTL        time.Duration
	logger          *slog.Logger
}

// NewQueryService creates a new read-side query service
func NewQueryService(
	logger *slog.Logger,
	sponsorRepo sponsor.Repository,
	donationRepo donation.Repository,
	beneficiaryRepo beneficiary.Repository,
	cache *redis.Client,
	cacheTTL time.Duration,
) QueryService {
	return &QueryServiceImpl{
		sponsorRepo:     sponsorRepo,
		donationRepo:    donationRepo,
		beneficiaryRepo: beneficiaryRepo,
		cache:           cache,
		cacheTTL:        cacheTTL,
		logger:          logger,
	}
}

// GetDonorHistory returns the donor's sponsorships with the beneficiaries
// they fund, each with its own donation history, plus aggregate stats over
// the donor's whole giving
func (s *QueryServiceImpl) GetDonorHistory(ctx context.Context, donorExternalID string) (*DonorHistory, error) {
	sponsors, err := s.sponsorRepo.ListByDonorKey(ctx, donorExternalID)
	if err != nil {
		s.logger.Error("Failed to list sponsorships for donor", "error", err)
		return nil, err
	}

	history := &DonorHistory{
		Sponsorships: make([]*SponsorshipSummary, 0, len(sponsors)),
	}

	for _, sp := range sponsors {
		summary := &SponsorshipSummary{Sponsor: sp}

		b, err := s.beneficiaryRepo.GetByID(ctx, sp.BeneficiaryID)
		if err != nil {
			s.logger.Error("Failed to load beneficiary for sponsorship",
				"sponsor_id", sp.ID.String(),
				"beneficiary_id", sp.BeneficiaryID.String(),
				"error", err,
			)
			return nil, err
		}
		summary.Beneficiary = b

		donations, err := s.donationRepo.ListBySponsorID(ctx, sp.ID)
		if err != nil {
			s.logger.Error("Failed to list donations for sponsorship",
				"sponsor_id", sp.ID.String(),
				"error", err,
			)
			return nil, err
		}
		summary.Donations = donations

		history.Sponsorships = append(history.Sponsorships, summary)

		history.Stats.TotalDonated += sp.TotalDonated
		history.Stats.DonationCount += sp.DonationCount
		if history.Stats.LastDonationAt == nil || sp.LastDonationAt.After(*history.Stats.LastDonationAt) {
			last := sp.LastDonationAt
			history.Stats.LastDonationAt = &last
		}
	}
	history.Stats.BeneficiaryCount = int64(len(history.Sponsorships))

	return history, nil
}

// GetBeneficiarySponsors returns the beneficiary with its sponsor list,
// ordered by total donated
func (s *QueryServiceImpl) GetBeneficiarySponsors(ctx context.Context, beneficiaryID uuid.UUID) (*beneficiary.Beneficiary, []*sponsor.Sponsor, error) {
	b, err := s.beneficiaryRepo.GetByID(ctx, beneficiaryID)
	if err != nil {
		return nil, nil, err
	}

	sponsors, err := s.sponsorRepo.ListByBeneficiaryID(ctx, beneficiaryID)
	if err != nil {
		s.logger.Error("Failed to list sponsors for beneficiary",
			"beneficiary_id", beneficiaryID.String(),
			"error", err,
		)
		return nil, nil, err
	}

	return b, sponsors, nil
}

// GetDashboard returns platform-wide totals. The aggregate is recomputed from
// beneficiary counters on cache miss and cached for the configured TTL; a
// cache outage degrades to recomputation, never to failure.
func (s *QueryServiceImpl) GetDashboard(ctx context.Context) (*DashboardStats, error) {
	cached, err := s.cache.Get(ctx, dashboardCacheKey).Result()
	if err == nil {
		var stats DashboardStats
		decodeErr := json.Unmarshal([]byte(cached), &stats)
		if decodeErr == nil {
			return &stats, nil
		}
		s.logger.Warn("Discarding undecodable dashboard cache entry", "error", decodeErr)
	} else if err != redis.Nil {
		s.logger.Error("Failed to read dashboard cache, recomputing", "error", err)
	}

	stats, err := s.computeDashboard(ctx)
	if err != nil {
		return nil, err
	}

	encoded, err := json.Marshal(stats)
	if err == nil {
		if err := s.cache.Set(ctx, dashboardCacheKey, encoded, s.cacheTTL).Err(); err != nil {
			s.logger.Error("Failed to cache dashboard stats", "error", err)
		}
	}

	return stats, nil
}

// computeDashboard derives the aggregate from the cached beneficiary counters
func (s *QueryServiceImpl) computeDashboard(ctx context.Context) (*DashboardStats, error) {
	stats := &DashboardStats{}
	offset := 0
	for {
		page, err := s.beneficiaryRepo.List(ctx, dashboardPageSize, offset)
		if err != nil {
			s.logger.Error("Failed to scan beneficiaries for dashboard", "offset", offset, "error", err)
			return nil, err
		}
		if len(page) == 0 {
			break
		}

		for _, b := range page {
			stats.TotalCollected += b.TotalReceived
			stats.SponsorCount += b.SponsorCount
			stats.BeneficiaryCount++
		}

		if len(page) < dashboardPageSize {
			break
		}
		offset += len(page)
	}
	return stats, nil
}

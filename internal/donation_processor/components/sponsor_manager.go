package components

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/donation"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/sponsor"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/donation_processor/service"
)

// SponsorManagerImpl implements the SponsorManager interface
type SponsorManagerImpl struct {
	sponsorRepo sponsor.Repository
	logger      *slog.Logger
}

// NewSponsorManager creates a new SponsorManagerImpl
func NewSponsorManager(sponsorRepo sponsor.Repository, logger *slog.Logger) service.SponsorManager {
	return &SponsorManagerImpl{
		sponsorRepo: sponsorRepo,
		logger:      logger,
	}
}

// LockAndApply locks the sponsor aggregate for the donation's (donor,
// beneficiary) pair and accumulates the donation into it, creating the
// aggregate from the donation when the pair has none yet. Must run inside
// the ledger transaction.
func (m *SponsorManagerImpl) LockAndApply(ctx context.Context, tx pgx.Tx, d *donation.Donation) (*sponsor.Sponsor, error) {
	logger := m.logger

	donorKey := sponsor.DonorKey(d.DonorExternalID, d.SessionID, d.Anonymous)
	sponsorRepoTx := m.sponsorRepo.WithTx(tx)

	locked, err := sponsorRepoTx.LockByDonorAndBeneficiary(ctx, donorKey, *d.BeneficiaryID)
	if err != nil {
		logger.Error("Failed to lock sponsor", "donor_key", donorKey, "beneficiary_id", d.BeneficiaryID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock sponsor for donor %s: %w", donorKey, err)
	}

	if locked == nil {
		created, newErr := sponsor.New(donorKey, d.DonorName, d.DonorEmail, d.Anonymous, *d.BeneficiaryID, d.Amount, d.PaidAt)
		if newErr != nil {
			return nil, newErr
		}

		if err = sponsorRepoTx.Create(ctx, created); err != nil {
			if errors.Is(err, sponsor.ErrDuplicateSponsor{}) {
				// Lost the first-insert race. The unique violation aborts the
				// surrounding transaction, so the event is retried and locks
				// the winner's row on the next attempt.
				logger.Warn("Concurrent sponsor creation for pair, deferring to retry",
					"donor_key", donorKey,
					"beneficiary_id", d.BeneficiaryID.String(),
				)
				return nil, err
			}
			logger.Error("Failed to create sponsor", "donor_key", donorKey, "error", err)
			return nil, fmt.Errorf("failed to create sponsor for donor %s: %w", donorKey, err)
		}

		logger.Info("Sponsor created",
			"sponsor_id", created.ID.String(),
			"donor_key", donorKey,
			"beneficiary_id", d.BeneficiaryID.String(),
		)
		return created, nil
	}

	logger.Info("Sponsor locked", "sponsor_id", locked.ID.String(), "total", locked.TotalDonated, "count", locked.DonationCount)

	if err = locked.Apply(d.Amount, d.PaidAt); err != nil {
		logger.Error("Failed to apply donation to sponsor model", "sponsor_id", locked.ID.String(), "error", err)
		return nil, err
	}

	if err = sponsorRepoTx.Update(ctx, locked); err != nil {
		logger.Error("Failed to update sponsor in DB", "sponsor_id", locked.ID.String(), "error", err)
		return nil, fmt.Errorf("failed to update sponsor %s: %w", locked.ID.String(), err)
	}

	logger.Info("Sponsor totals updated", "sponsor_id", locked.ID.String(), "total", locked.TotalDonated, "count", locked.DonationCount)
	return locked, nil
}

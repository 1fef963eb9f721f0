package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/beneficiary"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/shared"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/donation_processor/service"
)

type BeneficiaryResolverImpl struct {
	beneficiaryRepo beneficiary.Repository
	logger          *slog.Logger
}

func NewBeneficiaryResolver(beneficiaryRepo beneficiary.Repository, logger *slog.Logger) service.BeneficiaryResolver {
	return &BeneficiaryResolverImpl{
		beneficiaryRepo: beneficiaryRepo,
		logger:          logger,
	}
}

// Resolve checks the event's beneficiary reference against known
// beneficiaries. A missing or unknown reference resolves to nil: the
// donation is still recorded, just without attribution.
func (r *BeneficiaryResolverImpl) Resolve(ctx context.Context, evt *shared.DonationEvent) (*uuid.UUID, error) {
	logger := r.logger
	if evt.CorrelationID != "" {
		logger = r.logger.With("correlation_id", evt.CorrelationID)
	}

	if evt.BeneficiaryID == nil {
		logger.Debug("Event carries no beneficiary reference", "event_id", evt.EventID.String())
		return nil, nil
	}

	exists, err := r.beneficiaryRepo.Exists(ctx, *evt.BeneficiaryID)
	if err != nil {
		logger.Error("Failed to resolve beneficiary", "beneficiary_id", evt.BeneficiaryID.String(), "error", err)
		return nil, fmt.Errorf("failed to resolve beneficiary %s: %w", evt.BeneficiaryID.String(), err)
	}

	if !exists {
		logger.Warn("Unknown beneficiary referenced by event",
			"event_id", evt.EventID.String(),
			"beneficiary_id", evt.BeneficiaryID.String(),
		)
		return nil, nil
	}

	return evt.BeneficiaryID, nil
}

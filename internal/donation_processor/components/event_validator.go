package components

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/donation"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/shared"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/donation_processor/service"
)

type EventValidatorImpl struct {
	donationRepo donation.Repository
	logger       *slog.Logger
}

func NewEventValidator(donationRepo donation.Repository, logger *slog.Logger) service.EventValidator {
	return &EventValidatorImpl{
		donationRepo: donationRepo,
		logger:       logger,
	}
}

// Validate checks donation event validity
func (v *EventValidatorImpl) Validate(ctx context.Context, evt *shared.DonationEvent) error {
	logger := v.logger
	if evt.CorrelationID != "" {
		logger = v.logger.With("correlation_id", evt.CorrelationID)
	}

	if !evt.Type.Known() {
		logger.Error("Unknown event type", "event_id", evt.EventID.String(), "type", string(evt.Type))
		return shared.ErrUnknownEventType
	}

	if evt.SessionID == "" {
		logger.Error("Missing payment session id", "event_id", evt.EventID.String())
		return shared.ErrMissingSessionID
	}

	if evt.Amount <= 0 {
		logger.Error("Invalid amount", "event_id", evt.EventID.String(), "amount", evt.Amount)
		return fmt.Errorf("amount must be positive: %d", evt.Amount)
	}

	if len(evt.Currency) != 3 {
		logger.Error("Invalid currency", "event_id", evt.EventID.String(), "currency", evt.Currency)
		return fmt.Errorf("currency must be a 3-letter code: %q", evt.Currency)
	}

	return nil
}

// CheckIdempotency checks if a donation already exists for the event's
// payment session
func (v *EventValidatorImpl) CheckIdempotency(ctx context.Context, evt *shared.DonationEvent) (bool, error) {
	logger := v.logger
	if evt.CorrelationID != "" {
		logger = v.logger.With("correlation_id", evt.CorrelationID)
	}

	existing, err := v.donationRepo.GetBySessionID(ctx, evt.SessionID)
	if err != nil {
		logger.Error("Failed to check donations for idempotency", "session_id", evt.SessionID, "error", err)
		return false, fmt.Errorf("idempotency check failed for session %s: %w", evt.SessionID, err)
	}

	if existing != nil {
		logger.Info("Payment session already recorded (idempotency)",
			"session_id", evt.SessionID,
			"donation_id", existing.ID.String(),
			"status", string(existing.Status),
		)
		return true, nil // Skip processing
	}

	return false, nil // Continue processing
}

package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/shared"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/donation_processor/service"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/platform/messaging/producers"
)

// DonationEventHandler handles incoming donation event messages from Kafka
type DonationEventHandler struct {
	processingService service.ProcessingService
	producer          producers.DeadLetterPublisher
	logger            *slog.Logger
}

// NewDonationEventHandler creates a new handler
func NewDonationEventHandler(
	logger *slog.Logger,
	processingService service.ProcessingService,
	producer producers.DeadLetterPublisher,
) *DonationEventHandler {
	return &DonationEventHandler{
		processingService: processingService,
		producer:          producer,
		logger:            logger,
	}
}

// HandleMessage processes Kafka messages
func (h *DonationEventHandler) HandleMessage(ctx context.Context, key []byte, value []byte) error {
	var evt shared.DonationEvent
	if err := json.Unmarshal(value, &evt); err != nil {
		unmarshalErrorMsg := "Failed to unmarshal donation event from Kafka message"
		h.logger.Error(unmarshalErrorMsg,
			"error", err,
			"message_key", string(key),
		)

		// Send to DLQ if available
		if h.producer != nil {
			dlqReason := fmt.Sprintf("%s: %s", unmarshalErrorMsg, err.Error())
			if dlqErr := h.producer.PublishToDLQ(ctx, string(key), value, dlqReason); dlqErr != nil {
				h.logger.Error("Failed to publish message to DLQ after unmarshal error",
					"dlq_error", dlqErr,
					"original_error", err,
					"message_key", string(key),
				)
				// Return original error if DLQ fails
			} else {
				h.logger.Info("Successfully published unprocessable message to DLQ", "message_key", string(key), "reason", dlqReason)
				// Message handled, commit offset
				return nil
			}
		}
		// Allow Kafka retries
		return fmt.Errorf("failed to unmarshal message value: %w", err)
	}

	// Add correlation ID to logger
	logger := h.logger
	if evt.CorrelationID != "" {
		logger = h.logger.With("correlation_id", evt.CorrelationID)
	}

	logger.Info("Received donation event for settlement",
		"event_id", evt.EventID.String(),
		"session_id", evt.SessionID,
		"type", string(evt.Type),
		"amount", evt.Amount,
	)

	if err := h.processingService.ProcessDonationEvent(ctx, &evt); err != nil {
		logger.Error("Failed to settle donation event",
			"event_id", evt.EventID.String(),
			"session_id", evt.SessionID,
			"error", err,
		)
		return fmt.Errorf("settling event %s failed: %w", evt.EventID.String(), err)
	}

	logger.Info("Successfully settled donation event", "event_id", evt.EventID.String())
	return nil // Success, commit offset
}

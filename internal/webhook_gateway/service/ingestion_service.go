package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/archive"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/donation"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/shared"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/platform/messaging/producers"
)

var (
	// ErrInvalidSignature means the delivery failed HMAC verification and was
	// dropped before any state change
	ErrInvalidSignature = errors.New("webhook signature verification failed")

	// ErrMalformedPayload means the body could not be decoded into a payment
	// event
	ErrMalformedPayload = errors.New("webhook payload is malformed")
)

// SignatureVerifier abstracts signature.Verifier for testing
type SignatureVerifier interface {
	Verify(payload []byte, header string) error
}

// webhookPayload mirrors the payment processor's delivery envelope. Only the
// fields the ledger needs are decoded; the raw body is archived verbatim.
type webhookPayload struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		SessionID string `json:"session_id"`
		Amount    int64  `json:"amount"`
		Currency  string `json:"currency"`
		Customer  struct {
			ID    string `json:"id"`
			Name  string `json:"name"`
			Email string `json:"email"`
		} `json:"customer"`
		Anonymous bool `json:"anonymous"`
		Metadata  struct {
			BeneficiaryID string `json:"beneficiary_id"`
			PackID        string `json:"pack_id"`
			Recurrence    string `json:"recurrence"`
		} `json:"metadata"`
		PaidAt time.Time `json:"paid_at"`
	} `json:"data"`
}

// IngestionServiceImpl implements the IngestionService interface
type IngestionServiceImpl struct {
	verifier     SignatureVerifier
	donationRepo donation.Repository
	archiveRepo  archive.Repository
	producer     producers.MessagePublisher
	logger       *slog.Logger
}

// NewIngestionService creates a new ingestion service
func NewIngestionService(
	logger *slog.Logger,
	verifier SignatureVerifier,
	donationRepo donation.Repository,
	archiveRepo archive.Repository,
	producer producers.MessagePublisher,
) IngestionService {
	return &IngestionServiceImpl{
		verifier:     verifier,
		donationRepo: donationRepo,
		archiveRepo:  archiveRepo,
		producer:     producer,
		logger:       logger,
	}
}

// Ingest verifies, archives and publishes one webhook delivery. Publishing is
// keyed by payment session id so retried and recurring deliveries for the
// same session stay ordered on one partition.
func (s *IngestionServiceImpl) Ingest(ctx context.Context, payload []byte, signatureHeader, correlationID string) (*IngestResult, error) {
	logger := s.logger
	if correlationID != "" {
		logger = s.logger.With("correlation_id", correlationID)
	}

	if err := s.verifier.Verify(payload, signatureHeader); err != nil {
		logger.Warn("Rejected webhook delivery with invalid signature", "error", err)
		return nil, fmt.Errorf("%w: %s", ErrInvalidSignature, err.Error())
	}

	evt, err := decodeEvent(payload, correlationID)
	if err != nil {
		logger.Warn("Rejected malformed webhook payload", "error", err)
		return nil, err
	}

	result := &IngestResult{
		EventID:   evt.EventID,
		SessionID: evt.SessionID,
		EventType: string(evt.Type),
	}

	if !evt.Type.Known() {
		logger.Info("Ignoring webhook event of unknown type",
			"event_id", evt.EventID.String(),
			"type", string(evt.Type),
			"session_id", evt.SessionID,
		)
		s.archiveDelivery(ctx, logger, evt, payload, shared.DispositionRejected, "unknown event type")
		result.Status = IngestIgnored
		return result, nil
	}

	// Cheap pre-check only; the processor's unique constraint is the
	// authoritative dedup. A read failure here must not block ingestion.
	existing, err := s.donationRepo.GetBySessionID(ctx, evt.SessionID)
	if err != nil {
		logger.Error("Failed to pre-check session for duplicates, continuing",
			"session_id", evt.SessionID,
			"error", err,
		)
	} else if existing != nil {
		logger.Info("Acknowledging retried webhook for already recorded session",
			"event_id", evt.EventID.String(),
			"session_id", evt.SessionID,
			"donation_id", existing.ID.String(),
		)
		s.archiveDelivery(ctx, logger, evt, payload, shared.DispositionDuplicate, "donation already recorded at ingestion")
		result.Status = IngestDuplicate
		return result, nil
	}

	s.archiveDelivery(ctx, logger, evt, payload, shared.DispositionReceived, "")

	if err := s.producer.Publish(ctx, evt.SessionID, evt); err != nil {
		logger.Error("Failed to publish donation event",
			"event_id", evt.EventID.String(),
			"session_id", evt.SessionID,
			"error", err,
		)
		return nil, err
	}

	logger.Info("Donation event published",
		"event_id", evt.EventID.String(),
		"type", string(evt.Type),
		"session_id", evt.SessionID,
		"amount", evt.Amount,
		"currency", evt.Currency,
	)

	result.Status = IngestAccepted
	return result, nil
}

// archiveDelivery appends the raw delivery to the audit archive. Archiving is
// best-effort at the gateway: a failed append is logged, never surfaced, so
// an archive outage cannot stall payment ingestion.
func (s *IngestionServiceImpl) archiveDelivery(ctx context.Context, logger *slog.Logger, evt *shared.DonationEvent, payload []byte, disposition shared.Disposition, detail string) {
	rec := archive.NewEventRecord(evt, payload)
	rec.Disposition = disposition
	rec.Detail = detail

	if err := s.archiveRepo.Archive(ctx, rec); err != nil {
		logger.Error("Failed to archive webhook delivery",
			"event_id", evt.EventID.String(),
			"session_id", evt.SessionID,
			"error", err,
		)
	}
}

// decodeEvent normalizes the provider envelope into a DonationEvent
func decodeEvent(payload []byte, correlationID string) (*shared.DonationEvent, error) {
	var body webhookPayload
	if err := json.Unmarshal(payload, &body); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMalformedPayload, err.Error())
	}

	if body.Data.SessionID == "" {
		return nil, fmt.Errorf("%w: missing session id", ErrMalformedPayload)
	}
	if body.Data.Amount <= 0 {
		return nil, fmt.Errorf("%w: amount must be positive", ErrMalformedPayload)
	}
	if len(body.Data.Currency) != 3 {
		return nil, fmt.Errorf("%w: currency must be a 3-letter code", ErrMalformedPayload)
	}

	// The provider's beneficiary reference travels in free-form metadata; an
	// unparsable value leaves the donation unattributed rather than rejected.
	var beneficiaryID *uuid.UUID
	if raw := body.Data.Metadata.BeneficiaryID; raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			beneficiaryID = &id
		}
	}

	recurrence := shared.Recurrence(body.Data.Metadata.Recurrence)
	if recurrence != shared.RecurrenceMonthly {
		recurrence = shared.RecurrenceUnique
	}

	return &shared.DonationEvent{
		EventID:         uuid.New(),
		Type:            shared.EventType(body.Type),
		SessionID:       body.Data.SessionID,
		Amount:          body.Data.Amount,
		Currency:        strings.ToUpper(body.Data.Currency),
		DonorExternalID: body.Data.Customer.ID,
		DonorName:       body.Data.Customer.Name,
		DonorEmail:      body.Data.Customer.Email,
		Anonymous:       body.Data.Anonymous || body.Data.Customer.ID == "",
		BeneficiaryID:   beneficiaryID,
		PackID:          body.Data.Metadata.PackID,
		Recurrence:      recurrence,
		PaidAt:          body.Data.PaidAt,
		CorrelationID:   correlationID,
	}, nil
}

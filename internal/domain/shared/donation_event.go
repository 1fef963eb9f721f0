package shared

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrUnknownEventType = errors.New("unknown payment event type")
	ErrMissingSessionID = errors.New("payment session id is required")
)

// DonationEvent is the normalized payment-confirmation message published by
// the webhook gateway and consumed by the donation processor. One event maps
// to exactly one payment session occurrence; recurring payments carry a fresh
// session id per billing cycle.
type DonationEvent struct {
	EventID         uuid.UUID  `json:"event_id"`
	Type            EventType  `json:"type"`
	SessionID       string     `json:"session_id"` // external payment-session id, globally unique
	Amount          int64      `json:"amount"`     // Stored in cents/minor units
	Currency        string     `json:"currency"`
	DonorExternalID string     `json:"donor_external_id,omitempty"` // empty for anonymous donors
	DonorName       string     `json:"donor_name,omitempty"`
	DonorEmail      string     `json:"donor_email,omitempty"`
	Anonymous       bool       `json:"anonymous"`
	BeneficiaryID   *uuid.UUID `json:"beneficiary_id,omitempty"`
	PackID          string     `json:"pack_id,omitempty"`
	Recurrence      Recurrence `json:"recurrence"`
	PaidAt          time.Time  `json:"paid_at"`
	CorrelationID   string     `json:"correlation_id,omitempty"`
}

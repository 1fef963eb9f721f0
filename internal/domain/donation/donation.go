package donation

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/shared"
)

// Common errors
var (
	ErrInvalidAmount         = errors.New("amount must be positive")
	ErrEmptySessionID        = errors.New("payment session id cannot be empty")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
)

// Donation represents one discrete payment-confirmation record. A donation is
// immutable once completed, except for its sponsor linkage which is set
// exactly once by the ledger.
type Donation struct {
	ID              uuid.UUID             `json:"id"`
	SessionID       string                `json:"session_id"` // external payment-session id, unique
	Amount          int64                 `json:"amount"`     // Stored in cents/minor units
	Currency        string                `json:"currency"`
	Status          shared.DonationStatus `json:"status"`
	DonorExternalID string                `json:"donor_external_id,omitempty"`
	DonorName       string                `json:"donor_name,omitempty"`
	DonorEmail      string                `json:"donor_email,omitempty"`
	Anonymous       bool                  `json:"anonymous"`
	BeneficiaryID   *uuid.UUID            `json:"beneficiary_id,omitempty"` // nil when the beneficiary could not be resolved
	PackID          string                `json:"pack_id,omitempty"`
	Recurrence      shared.Recurrence     `json:"recurrence"`
	SponsorID       *uuid.UUID            `json:"sponsor_id,omitempty"` // nil until ledger processing completes
	PaidAt          time.Time             `json:"paid_at"`
	CreatedAt       time.Time             `json:"created_at"`
}

// FromEvent builds a donation record from a normalized payment event.
// Failed recurring payments produce a failed donation; everything else
// produces a completed one.
func FromEvent(evt *shared.DonationEvent) (*Donation, error) {
	if evt.SessionID == "" {
		return nil, ErrEmptySessionID
	}
	if evt.Amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if len(evt.Currency) != 3 {
		return nil, ErrInvalidCurrencyFormat
	}

	status := shared.DonationStatusCompleted
	if evt.Type == shared.EventRecurringFailed {
		status = shared.DonationStatusFailed
	}

	recurrence := evt.Recurrence
	if recurrence == "" {
		recurrence = shared.RecurrenceUnique
	}

	paidAt := evt.PaidAt
	if paidAt.IsZero() {
		paidAt = time.Now()
	}

	return &Donation{
		ID:              uuid.New(),
		SessionID:       evt.SessionID,
		Amount:          evt.Amount,
		Currency:        evt.Currency,
		Status:          status,
		DonorExternalID: evt.DonorExternalID,
		DonorName:       evt.DonorName,
		DonorEmail:      evt.DonorEmail,
		Anonymous:       evt.Anonymous,
		BeneficiaryID:   evt.BeneficiaryID,
		PackID:          evt.PackID,
		Recurrence:      recurrence,
		PaidAt:          paidAt,
		CreatedAt:       time.Now(),
	}, nil
}

// Completed reports whether the donation entered a terminal collected state
func (d *Donation) Completed() bool {
	return d.Status == shared.DonationStatusCompleted
}

// Linked reports whether the donation already carries a sponsor linkage
func (d *Donation) Linked() bool {
	return d.SponsorID != nil
}

// Orphaned reports whether the donation is a completed row the ledger has not
// attached to a sponsor yet
func (d *Donation) Orphaned() bool {
	return d.Completed() && d.SponsorID == nil
}

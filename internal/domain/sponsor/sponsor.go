package sponsor

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrEmptyDonorKey      = errors.New("donor key cannot be empty")
	ErrMissingBeneficiary = errors.New("beneficiary id is required")
	ErrZeroPaymentTime    = errors.New("payment timestamp is required")
)

// Sponsor is the aggregate ledger row for one donor's cumulative
// relationship to one beneficiary. TotalDonated and DonationCount are
// derived values: they must always equal the sum and count of the completed
// donations linked to this sponsor.
type Sponsor struct {
	ID              uuid.UUID `json:"id"`
	DonorKey        string    `json:"donor_key"` // see DonorKey derivation in identity.go
	DonorName       string    `json:"donor_name,omitempty"`
	DonorEmail      string    `json:"donor_email,omitempty"`
	Anonymous       bool      `json:"anonymous"`
	BeneficiaryID   uuid.UUID `json:"beneficiary_id"`
	TotalDonated    int64     `json:"total_donated"` // Stored in cents/minor units
	DonationCount   int64     `json:"donation_count"`
	FirstDonationAt time.Time `json:"first_donation_at"`
	LastDonationAt  time.Time `json:"last_donation_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// New creates the sponsor aggregate for a (donor, beneficiary) pair from its
// first completed donation
func New(donorKey, donorName, donorEmail string, anonymous bool, beneficiaryID uuid.UUID, amount int64, paidAt time.Time) (*Sponsor, error) {
	if donorKey == "" {
		return nil, ErrEmptyDonorKey
	}
	if beneficiaryID == uuid.Nil {
		return nil, ErrMissingBeneficiary
	}
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if paidAt.IsZero() {
		return nil, ErrZeroPaymentTime
	}

	now := time.Now()
	return &Sponsor{
		ID:              uuid.New(),
		DonorKey:        donorKey,
		DonorName:       donorName,
		DonorEmail:      donorEmail,
		Anonymous:       anonymous,
		BeneficiaryID:   beneficiaryID,
		TotalDonated:    amount,
		DonationCount:   1,
		FirstDonationAt: paidAt,
		LastDonationAt:  paidAt,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

// Apply accumulates one more completed donation into the aggregate.
// Timestamps tolerate out-of-order delivery: FirstDonationAt only moves
// backwards, LastDonationAt only forwards.
func (s *Sponsor) Apply(amount int64, paidAt time.Time) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	if paidAt.IsZero() {
		return ErrZeroPaymentTime
	}

	s.TotalDonated += amount
	s.DonationCount++
	if paidAt.Before(s.FirstDonationAt) {
		s.FirstDonationAt = paidAt
	}
	if paidAt.After(s.LastDonationAt) {
		s.LastDonationAt = paidAt
	}
	s.UpdatedAt = time.Now()
	return nil
}

// DisplayName returns the donor name to expose publicly, masking anonymous
// sponsors
func (s *Sponsor) DisplayName() string {
	if s.Anonymous || s.DonorName == "" {
		return "anonymous"
	}
	return s.DonorName
}

package beneficiary

import (
	"time"

	"github.com/google/uuid"
)

// Beneficiary is the sponsored player or child. TotalReceived and
// SponsorCount are denormalized caches over the sponsorship ledger; they may
// transiently lag behind it but must always be reconcilable from donation
// and sponsor rows.
type Beneficiary struct {
	ID            uuid.UUID `json:"id"`
	ExternalRef   string    `json:"external_ref"` // identity-provider profile reference
	DisplayName   string    `json:"display_name"`
	ClubName      string    `json:"club_name,omitempty"`
	TotalReceived int64     `json:"total_received"` // Stored in cents/minor units
	SponsorCount  int64     `json:"sponsor_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/donation"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/shared"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/sponsor"
)

// ProcessingService defines the interface for settling donation events into
// the ledger.
type ProcessingService interface {
	ProcessDonationEvent(ctx context.Context, evt *shared.DonationEvent) error
}

// TxBeginner opens the database transaction the ledger write runs in
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// EventValidator validates donation events before the ledger write
type EventValidator interface {
	Validate(ctx context.Context, evt *shared.DonationEvent) error
	// CheckIdempotency reports whether a donation already exists for the
	// event's payment session
	CheckIdempotency(ctx context.Context, evt *shared.DonationEvent) (bool, error)
}

// BeneficiaryResolver resolves an event's beneficiary reference. It returns
// nil without error when the event carries no reference or the referenced
// beneficiary is unknown; such donations are recorded as orphans.
type BeneficiaryResolver interface {
	Resolve(ctx context.Context, evt *shared.DonationEvent) (*uuid.UUID, error)
}

// SponsorManager owns the sponsor aggregate write inside the ledger
// transaction
type SponsorManager interface {
	LockAndApply(ctx context.Context, tx pgx.Tx, d *donation.Donation) (*sponsor.Sponsor, error)
}

// DispositionRecorder upgrades the archived event's disposition once the
// processor settles it
type DispositionRecorder interface {
	Record(ctx context.Context, evt *shared.DonationEvent, disposition shared.Disposition, detail string) error
}

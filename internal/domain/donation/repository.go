package donation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// SponsorTotals is the aggregate independently derivable from donation rows
// linked to one sponsor. The reconciliation sweep compares it against the
// stored sponsor counters.
type SponsorTotals struct {
	TotalDonated    int64
	DonationCount   int64
	FirstDonationAt *time.Time
	LastDonationAt  *time.Time
}

// Repository defines donation persistence operations
type Repository interface {
	// Create inserts the donation. Returns ErrDuplicateDonation when a row
	// with the same payment session id already exists.
	Create(ctx context.Context, d *Donation) error

	GetByID(ctx context.Context, id uuid.UUID) (*Donation, error)

	// GetBySessionID returns nil, nil when no donation carries the session id
	GetBySessionID(ctx context.Context, sessionID string) (*Donation, error)

	// LinkSponsor sets the write-once sponsor linkage. Linking an already
	// linked donation to the same sponsor is a no-op; linking to a different
	// sponsor returns ErrAlreadyLinked.
	LinkSponsor(ctx context.Context, donationID, sponsorID uuid.UUID) error

	// ListOrphans returns completed donations with a resolved beneficiary
	// but no sponsor linkage, oldest first. The offset skips rows an earlier
	// page already visited so callers can walk the whole backlog.
	ListOrphans(ctx context.Context, limit, offset int) ([]*Donation, error)

	ListBySponsorID(ctx context.Context, sponsorID uuid.UUID) ([]*Donation, error)

	// TotalsBySponsorID recomputes the expected sponsor aggregate from
	// completed donation rows
	TotalsBySponsorID(ctx context.Context, sponsorID uuid.UUID) (*SponsorTotals, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrDonationNotFound indicates missing donation
type ErrDonationNotFound struct {
	DonationID uuid.UUID
}

func (e ErrDonationNotFound) Error() string {
	return "donation not found: " + e.DonationID.String()
}

// ErrDuplicateDonation indicates payment-session uniqueness violation. This
// is the idempotency short-circuit for webhook retries, not a failure.
type ErrDuplicateDonation struct {
	SessionID string
}

func (e ErrDuplicateDonation) Error() string {
	return "donation already recorded for payment session: " + e.SessionID
}

// Is matches any ErrDuplicateDonation when the target session id is empty
func (e ErrDuplicateDonation) Is(target error) bool {
	t, ok := target.(ErrDuplicateDonation)
	if !ok {
		return false
	}
	if t.SessionID == "" {
		return true
	}
	return e.SessionID == t.SessionID
}

// ErrAlreadyLinked indicates a donation already carries a different sponsor
// linkage. This is an invariant violation signalling a logic error upstream;
// the linkage is never silently overwritten.
type ErrAlreadyLinked struct {
	DonationID uuid.UUID
	SponsorID  uuid.UUID
}

func (e ErrAlreadyLinked) Error() string {
	return "donation " + e.DonationID.String() + " already linked to sponsor " + e.SponsorID.String()
}

// Is matches any ErrAlreadyLinked when the target donation id is empty
func (e ErrAlreadyLinked) Is(target error) bool {
	t, ok := target.(ErrAlreadyLinked)
	if !ok {
		return false
	}
	if t.DonationID == uuid.Nil {
		return true
	}
	return e.DonationID == t.DonationID
}

package sponsor

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Repository defines sponsor persistence operations. Only the ledger and the
// reconciliation sweep are permitted to call the mutating methods.
type Repository interface {
	// Create inserts the sponsor. Returns ErrDuplicateSponsor when a row for
	// the same (donor key, beneficiary) pair already exists.
	Create(ctx context.Context, s *Sponsor) error

	GetByID(ctx context.Context, id uuid.UUID) (*Sponsor, error)

	// GetByDonorAndBeneficiary returns nil, nil when no sponsor exists for
	// the pair
	GetByDonorAndBeneficiary(ctx context.Context, donorKey string, beneficiaryID uuid.UUID) (*Sponsor, error)

	// LockByDonorAndBeneficiary acquires a pessimistic row lock on the
	// sponsor for the pair, serializing concurrent ledger writes. Returns
	// nil, nil when no sponsor exists yet. Must run inside a transaction.
	LockByDonorAndBeneficiary(ctx context.Context, donorKey string, beneficiaryID uuid.UUID) (*Sponsor, error)

	// Update persists accumulated totals for a previously locked sponsor
	Update(ctx context.Context, s *Sponsor) error

	// SetTotals overwrites the derived counters with independently computed
	// truth. Used only by the reconciliation sweep.
	SetTotals(ctx context.Context, id uuid.UUID, totalDonated, donationCount int64, firstDonationAt, lastDonationAt time.Time) error

	ListByBeneficiaryID(ctx context.Context, beneficiaryID uuid.UUID) ([]*Sponsor, error)
	ListByDonorKey(ctx context.Context, donorKey string) ([]*Sponsor, error)

	// List pages through all sponsors for the reconciliation sweep
	List(ctx context.Context, limit, offset int) ([]*Sponsor, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrSponsorNotFound indicates missing sponsor
type ErrSponsorNotFound struct {
	SponsorID uuid.UUID
}

func (e ErrSponsorNotFound) Error() string {
	return "sponsor not found: " + e.SponsorID.String()
}

// ErrDuplicateSponsor indicates (donor key, beneficiary) uniqueness
// violation, raised when two ledger writes race to create the first sponsor
// row for a pair. The loser re-locks and accumulates instead.
type ErrDuplicateSponsor struct {
	DonorKey      string
	BeneficiaryID uuid.UUID
}

func (e ErrDuplicateSponsor) Error() string {
	return "sponsor already exists for donor " + e.DonorKey + " and beneficiary " + e.BeneficiaryID.String()
}

// Is matches any ErrDuplicateSponsor when the target donor key is empty
func (e ErrDuplicateSponsor) Is(target error) bool {
	t, ok := target.(ErrDuplicateSponsor)
	if !ok {
		return false
	}
	if t.DonorKey == "" {
		return true
	}
	return e.DonorKey == t.DonorKey && e.BeneficiaryID == t.BeneficiaryID
}

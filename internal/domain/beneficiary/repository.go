package beneficiary

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Drift is the divergence between cached beneficiary counters and the values
// derivable from ledger rows, as measured by the reconciliation sweep
type Drift struct {
	BeneficiaryID         uuid.UUID
	CachedTotalReceived   int64
	ExpectedTotalReceived int64
	CachedSponsorCount    int64
	ExpectedSponsorCount  int64
}

// InSync reports whether cached and expected counters agree within the given
// tolerance on the amount (counts must match exactly)
func (d Drift) InSync(tolerance int64) bool {
	diff := d.CachedTotalReceived - d.ExpectedTotalReceived
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance && d.CachedSponsorCount == d.ExpectedSponsorCount
}

// Repository defines beneficiary persistence operations. Counter writes are
// owned by the same transactional boundary as the ledger write.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Beneficiary, error)

	// Exists is the cheap resolution check used by event ingestion
	Exists(ctx context.Context, id uuid.UUID) (bool, error)

	// RecomputeAggregates overwrites the cached counters from the ledger:
	// total_received from completed donations attributed via their sponsor,
	// sponsor_count from distinct sponsor rows. Always sets computed truth,
	// never adjusts incrementally.
	RecomputeAggregates(ctx context.Context, id uuid.UUID) error

	// MeasureDrift compares cached counters against ledger-derived values
	// without mutating anything
	MeasureDrift(ctx context.Context, id uuid.UUID) (*Drift, error)

	// List pages through all beneficiaries for the reconciliation sweep
	List(ctx context.Context, limit, offset int) ([]*Beneficiary, error)

	WithTx(tx pgx.Tx) Repository
}

// ErrBeneficiaryNotFound indicates missing beneficiary
type ErrBeneficiaryNotFound struct {
	BeneficiaryID uuid.UUID
}

func (e ErrBeneficiaryNotFound) Error() string {
	return "beneficiary not found: " + e.BeneficiaryID.String()
}

// Is matches any ErrBeneficiaryNotFound when the target id is empty
func (e ErrBeneficiaryNotFound) Is(target error) bool {
	t, ok := target.(ErrBeneficiaryNotFound)
	if !ok {
		return false
	}
	if t.BeneficiaryID == uuid.Nil {
		return true
	}
	return e.BeneficiaryID == t.BeneficiaryID
}

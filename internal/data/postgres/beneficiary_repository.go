package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/beneficiary"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/platform/persistence"
)

const beneficiaryColumns = `id, external_ref, display_name, club_name, total_received, sponsor_count, created_at, updated_at`

// ledgerAggregatesSubqueries compute a beneficiary's counters from ledger
// rows: completed donations attributed via their sponsor, and distinct
// sponsor rows. They are the single source of truth for cache recomputation
// and drift measurement.
const (
	expectedTotalReceivedSQL = `COALESCE((
		SELECT SUM(d.amount)
		FROM donations d
		JOIN sponsors s ON d.sponsor_id = s.id
		WHERE s.beneficiary_id = b.id AND d.status = 'completed'
	), 0)`
	expectedSponsorCountSQL = `COALESCE((
		SELECT COUNT(*)
		FROM sponsors s
		WHERE s.beneficiary_id = b.id
	), 0)`
)

// BeneficiaryRepository implements the beneficiary.Repository interface for
// PostgreSQL
type BeneficiaryRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewBeneficiaryRepository creates a new PostgreSQL beneficiary repository
func NewBeneficiaryRepository(logger *slog.Logger, db *persistence.PostgresDB) beneficiary.Repository {
	return &BeneficiaryRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction so counter recomputation is
// atomic with the ledger write it follows
func (r *BeneficiaryRepository) WithTx(tx pgx.Tx) beneficiary.Repository {
	return &BeneficiaryRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// GetByID retrieves a beneficiary by its ID
func (r *BeneficiaryRepository) GetByID(ctx context.Context, id uuid.UUID) (*beneficiary.Beneficiary, error) {
	query := `
		SELECT ` + beneficiaryColumns + `
		FROM beneficiaries
		WHERE id = $1
	`

	var b beneficiary.Beneficiary
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.ExternalRef,
		&b.DisplayName,
		&b.ClubName,
		&b.TotalReceived,
		&b.SponsorCount,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, beneficiary.ErrBeneficiaryNotFound{BeneficiaryID: id}
		}
		r.logger.Error("Failed to get beneficiary", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get beneficiary: %w", err)
	}

	return &b, nil
}

// Exists is the cheap resolution check used by event ingestion
func (r *BeneficiaryRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM beneficiaries WHERE id = $1)`

	var exists bool
	if err := r.querier.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		r.logger.Error("Failed to check beneficiary existence", "id", id.String(), "error", err)
		return false, fmt.Errorf("failed to check beneficiary existence: %w", err)
	}

	return exists, nil
}

// RecomputeAggregates overwrites the cached counters from ledger rows.
// Always sets computed truth, never adjusts incrementally, so repeated runs
// converge.
func (r *BeneficiaryRepository) RecomputeAggregates(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE beneficiaries b
		SET total_received = ` + expectedTotalReceivedSQL + `,
			sponsor_count = ` + expectedSponsorCountSQL + `,
			updated_at = NOW()
		WHERE b.id = $1
	`

	result, err := r.querier.Exec(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to recompute beneficiary aggregates", "id", id.String(), "error", err)
		return fmt.Errorf("failed to recompute beneficiary aggregates: %w", err)
	}

	if result.RowsAffected() == 0 {
		return beneficiary.ErrBeneficiaryNotFound{BeneficiaryID: id}
	}

	return nil
}

// MeasureDrift compares cached counters against ledger-derived values in one
// read, without mutating anything
func (r *BeneficiaryRepository) MeasureDrift(ctx context.Context, id uuid.UUID) (*beneficiary.Drift, error) {
	query := `
		SELECT b.total_received, b.sponsor_count,
			` + expectedTotalReceivedSQL + `,
			` + expectedSponsorCountSQL + `
		FROM beneficiaries b
		WHERE b.id = $1
	`

	drift := beneficiary.Drift{BeneficiaryID: id}
	err := r.querier.QueryRow(ctx, query, id).Scan(
		&drift.CachedTotalReceived,
		&drift.CachedSponsorCount,
		&drift.ExpectedTotalReceived,
		&drift.ExpectedSponsorCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, beneficiary.ErrBeneficiaryNotFound{BeneficiaryID: id}
		}
		r.logger.Error("Failed to measure beneficiary drift", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to measure beneficiary drift: %w", err)
	}

	return &drift, nil
}

// List pages through all beneficiaries in stable order for the
// reconciliation sweep
func (r *BeneficiaryRepository) List(ctx context.Context, limit, offset int) ([]*beneficiary.Beneficiary, error) {
	query := `
		SELECT ` + beneficiaryColumns + `
		FROM beneficiaries
		ORDER BY created_at ASC, id ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list beneficiaries", "error", err)
		return nil, fmt.Errorf("failed to list beneficiaries: %w", err)
	}
	defer rows.Close()

	var beneficiaries []*beneficiary.Beneficiary
	for rows.Next() {
		var b beneficiary.Beneficiary
		err := rows.Scan(
			&b.ID,
			&b.ExternalRef,
			&b.DisplayName,
			&b.ClubName,
			&b.TotalReceived,
			&b.SponsorCount,
			&b.CreatedAt,
			&b.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan beneficiary row: %w", err)
		}
		beneficiaries = append(beneficiaries, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read beneficiary rows: %w", err)
	}

	return beneficiaries, nil
}

package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/sponsor"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/platform/persistence"
)

const sponsorColumns = `id, donor_key, donor_name, donor_email, anonymous, beneficiary_id, total_donated, donation_count, first_donation_at, last_donation_at, created_at, updated_at`

// SponsorRepository implements the sponsor.Repository interface for PostgreSQL
type SponsorRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewSponsorRepository creates a new PostgreSQL sponsor repository
func NewSponsorRepository(logger *slog.Logger, db *persistence.PostgresDB) sponsor.Repository {
	return &SponsorRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction. Sponsor mutations must
// always run inside the ledger transaction.
func (r *SponsorRepository) WithTx(tx pgx.Tx) sponsor.Repository {
	return &SponsorRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new sponsor aggregate. The unique index on
// (donor_key, beneficiary_id) guarantees at most one aggregate per pair;
// racing creators get ErrDuplicateSponsor and must re-lock.
func (r *SponsorRepository) Create(ctx context.Context, s *sponsor.Sponsor) error {
	query := `
		INSERT INTO sponsors (` + sponsorColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := r.querier.Exec(ctx, query,
		s.ID,
		s.DonorKey,
		s.DonorName,
		s.DonorEmail,
		s.Anonymous,
		s.BeneficiaryID,
		s.TotalDonated,
		s.DonationCount,
		s.FirstDonationAt,
		s.LastDonationAt,
		s.CreatedAt,
		s.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return sponsor.ErrDuplicateSponsor{DonorKey: s.DonorKey, BeneficiaryID: s.BeneficiaryID}
		}
		r.logger.Error("Failed to create sponsor", "donor_key", s.DonorKey, "beneficiary_id", s.BeneficiaryID.String(), "error", err)
		return fmt.Errorf("failed to create sponsor: %w", err)
	}

	return nil
}

// GetByID retrieves a sponsor by its ID
func (r *SponsorRepository) GetByID(ctx context.Context, id uuid.UUID) (*sponsor.Sponsor, error) {
	query := `
		SELECT ` + sponsorColumns + `
		FROM sponsors
		WHERE id = $1
	`

	s, err := scanSponsor(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, sponsor.ErrSponsorNotFound{SponsorID: id}
		}
		r.logger.Error("Failed to get sponsor", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get sponsor: %w", err)
	}

	return s, nil
}

// GetByDonorAndBeneficiary retrieves the sponsor aggregate for a
// (donor key, beneficiary) pair. Returns nil, nil when none exists.
func (r *SponsorRepository) GetByDonorAndBeneficiary(ctx context.Context, donorKey string, beneficiaryID uuid.UUID) (*sponsor.Sponsor, error) {
	query := `
		SELECT ` + sponsorColumns + `
		FROM sponsors
		WHERE donor_key = $1 AND beneficiary_id = $2
	`

	s, err := scanSponsor(r.querier.QueryRow(ctx, query, donorKey, beneficiaryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get sponsor by pair", "donor_key", donorKey, "beneficiary_id", beneficiaryID.String(), "error", err)
		return nil, fmt.Errorf("failed to get sponsor by pair: %w", err)
	}

	return s, nil
}

// LockByDonorAndBeneficiary obtains a pessimistic lock on the sponsor row for
// the pair, serializing concurrent ledger writes for the same donor and
// beneficiary. Returns nil, nil when no sponsor exists yet. Must be used
// within a transaction.
func (r *SponsorRepository) LockByDonorAndBeneficiary(ctx context.Context, donorKey string, beneficiaryID uuid.UUID) (*sponsor.Sponsor, error) {
	query := `
		SELECT ` + sponsorColumns + `
		FROM sponsors
		WHERE donor_key = $1 AND beneficiary_id = $2
		FOR UPDATE
	`

	s, err := scanSponsor(r.querier.QueryRow(ctx, query, donorKey, beneficiaryID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to lock sponsor for update", "donor_key", donorKey, "beneficiary_id", beneficiaryID.String(), "error", err)
		return nil, fmt.Errorf("failed to lock sponsor for update: %w", err)
	}

	return s, nil
}

// Update persists accumulated totals for a previously locked sponsor
func (r *SponsorRepository) Update(ctx context.Context, s *sponsor.Sponsor) error {
	query := `
		UPDATE sponsors
		SET donor_name = $1, donor_email = $2, anonymous = $3, total_donated = $4, donation_count = $5, first_donation_at = $6, last_donation_at = $7, updated_at = $8
		WHERE id = $9
	`

	result, err := r.querier.Exec(ctx, query,
		s.DonorName,
		s.DonorEmail,
		s.Anonymous,
		s.TotalDonated,
		s.DonationCount,
		s.FirstDonationAt,
		s.LastDonationAt,
		s.UpdatedAt,
		s.ID,
	)
	if err != nil {
		r.logger.Error("Failed to update sponsor", "id", s.ID.String(), "error", err)
		return fmt.Errorf("failed to update sponsor: %w", err)
	}

	if result.RowsAffected() == 0 {
		return sponsor.ErrSponsorNotFound{SponsorID: s.ID}
	}

	return nil
}

// SetTotals overwrites the derived counters with independently computed
// truth. Corrections always set, never adjust incrementally, so a repeated
// sweep converges instead of compounding.
func (r *SponsorRepository) SetTotals(ctx context.Context, id uuid.UUID, totalDonated, donationCount int64, firstDonationAt, lastDonationAt time.Time) error {
	query := `
		UPDATE sponsors
		SET total_donated = $1, donation_count = $2, first_donation_at = $3, last_donation_at = $4, updated_at = NOW()
		WHERE id = $5
	`

	result, err := r.querier.Exec(ctx, query, totalDonated, donationCount, firstDonationAt, lastDonationAt, id)
	if err != nil {
		r.logger.Error("Failed to set sponsor totals", "id", id.String(), "error", err)
		return fmt.Errorf("failed to set sponsor totals: %w", err)
	}

	if result.RowsAffected() == 0 {
		return sponsor.ErrSponsorNotFound{SponsorID: id}
	}

	return nil
}

// ListByBeneficiaryID returns all sponsors of one beneficiary, largest
// cumulative gift first
func (r *SponsorRepository) ListByBeneficiaryID(ctx context.Context, beneficiaryID uuid.UUID) ([]*sponsor.Sponsor, error) {
	query := `
		SELECT ` + sponsorColumns + `
		FROM sponsors
		WHERE beneficiary_id = $1
		ORDER BY total_donated DESC
	`

	rows, err := r.querier.Query(ctx, query, beneficiaryID)
	if err != nil {
		r.logger.Error("Failed to list sponsors by beneficiary", "beneficiary_id", beneficiaryID.String(), "error", err)
		return nil, fmt.Errorf("failed to list sponsors by beneficiary: %w", err)
	}
	defer rows.Close()

	return collectSponsors(rows)
}

// ListByDonorKey returns all sponsor aggregates of one donor, most recent
// activity first
func (r *SponsorRepository) ListByDonorKey(ctx context.Context, donorKey string) ([]*sponsor.Sponsor, error) {
	query := `
		SELECT ` + sponsorColumns + `
		FROM sponsors
		WHERE donor_key = $1
		ORDER BY last_donation_at DESC
	`

	rows, err := r.querier.Query(ctx, query, donorKey)
	if err != nil {
		r.logger.Error("Failed to list sponsors by donor", "donor_key", donorKey, "error", err)
		return nil, fmt.Errorf("failed to list sponsors by donor: %w", err)
	}
	defer rows.Close()

	return collectSponsors(rows)
}

// List pages through all sponsors in stable order for the reconciliation sweep
func (r *SponsorRepository) List(ctx context.Context, limit, offset int) ([]*sponsor.Sponsor, error) {
	query := `
		SELECT ` + sponsorColumns + `
		FROM sponsors
		ORDER BY created_at ASC, id ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list sponsors", "error", err)
		return nil, fmt.Errorf("failed to list sponsors: %w", err)
	}
	defer rows.Close()

	return collectSponsors(rows)
}

func scanSponsor(row pgx.Row) (*sponsor.Sponsor, error) {
	var s sponsor.Sponsor
	err := row.Scan(
		&s.ID,
		&s.DonorKey,
		&s.DonorName,
		&s.DonorEmail,
		&s.Anonymous,
		&s.BeneficiaryID,
		&s.TotalDonated,
		&s.DonationCount,
		&s.FirstDonationAt,
		&s.LastDonationAt,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func collectSponsors(rows pgx.Rows) ([]*sponsor.Sponsor, error) {
	var sponsors []*sponsor.Sponsor
	for rows.Next() {
		s, err := scanSponsor(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sponsor row: %w", err)
		}
		sponsors = append(sponsors, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sponsor rows: %w", err)
	}
	return sponsors, nil
}

// Package postgres provides PostgreSQL implementations of the domain
// repositories. All financial state lives here; write access to sponsor rows
// and donation sponsor links is reserved to the ledger and the
// reconciliation sweep.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/donation"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/platform/persistence"
)

const donationColumns = `id, session_id, amount, currency, status, donor_external_id, donor_name, donor_email, anonymous, beneficiary_id, pack_id, recurrence, sponsor_id, paid_at, created_at`

// DonationRepository implements the donation.Repository interface for PostgreSQL
type DonationRepository struct {
	querier persistence.Querier // Can be *pgxpool.Pool or pgx.Tx
	logger  *slog.Logger
}

// NewDonationRepository creates a new PostgreSQL donation repository
func NewDonationRepository(logger *slog.Logger, db *persistence.PostgresDB) donation.Repository {
	return &DonationRepository{
		querier: db.Pool(),
		logger:  logger,
	}
}

// WithTx wraps the repository with a transaction, allowing donation writes to
// be atomic with sponsor and beneficiary updates
func (r *DonationRepository) WithTx(tx pgx.Tx) donation.Repository {
	return &DonationRepository{
		querier: tx,
		logger:  r.logger,
	}
}

// Create stores a new donation. The unique index on session_id turns webhook
// replays into ErrDuplicateDonation instead of double-counted rows.
func (r *DonationRepository) Create(ctx context.Context, d *donation.Donation) error {
	query := `
		INSERT INTO donations (` + donationColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`

	_, err := r.querier.Exec(ctx, query,
		d.ID,
		d.SessionID,
		d.Amount,
		d.Currency,
		d.Status,
		d.DonorExternalID,
		d.DonorName,
		d.DonorEmail,
		d.Anonymous,
		d.BeneficiaryID,
		d.PackID,
		d.Recurrence,
		d.SponsorID,
		d.PaidAt,
		d.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return donation.ErrDuplicateDonation{SessionID: d.SessionID}
		}
		r.logger.Error("Failed to create donation", "session_id", d.SessionID, "error", err)
		return fmt.Errorf("failed to create donation: %w", err)
	}

	return nil
}

// GetByID retrieves a donation by its ID
func (r *DonationRepository) GetByID(ctx context.Context, id uuid.UUID) (*donation.Donation, error) {
	query := `
		SELECT ` + donationColumns + `
		FROM donations
		WHERE id = $1
	`

	d, err := scanDonation(r.querier.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, donation.ErrDonationNotFound{DonationID: id}
		}
		r.logger.Error("Failed to get donation", "id", id.String(), "error", err)
		return nil, fmt.Errorf("failed to get donation: %w", err)
	}

	return d, nil
}

// GetBySessionID retrieves a donation by its external payment-session id.
// Returns nil, nil when no donation carries the session id; this is the
// normal case for first-time events.
func (r *DonationRepository) GetBySessionID(ctx context.Context, sessionID string) (*donation.Donation, error) {
	query := `
		SELECT ` + donationColumns + `
		FROM donations
		WHERE session_id = $1
	`

	d, err := scanDonation(r.querier.QueryRow(ctx, query, sessionID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		r.logger.Error("Failed to get donation by session id", "session_id", sessionID, "error", err)
		return nil, fmt.Errorf("failed to get donation by session id: %w", err)
	}

	return d, nil
}

// LinkSponsor sets the write-once sponsor linkage on a donation. Re-linking
// to the same sponsor is a no-op so retried ledger transactions stay
// idempotent; linking to a different sponsor fails with ErrAlreadyLinked.
func (r *DonationRepository) LinkSponsor(ctx context.Context, donationID, sponsorID uuid.UUID) error {
	query := `
		UPDATE donations
		SET sponsor_id = $1
		WHERE id = $2 AND (sponsor_id IS NULL OR sponsor_id = $1)
	`

	result, err := r.querier.Exec(ctx, query, sponsorID, donationID)
	if err != nil {
		r.logger.Error("Failed to link donation to sponsor", "donation_id", donationID.String(), "sponsor_id", sponsorID.String(), "error", err)
		return fmt.Errorf("failed to link donation to sponsor: %w", err)
	}

	if result.RowsAffected() == 0 {
		existing, getErr := r.GetByID(ctx, donationID)
		if getErr != nil {
			return getErr
		}
		if existing.SponsorID != nil {
			return donation.ErrAlreadyLinked{DonationID: donationID, SponsorID: *existing.SponsorID}
		}
		return fmt.Errorf("failed to link donation %s: no rows affected", donationID.String())
	}

	return nil
}

// ListOrphans returns completed donations with a resolved beneficiary but no
// sponsor linkage, oldest first, for the reconciliation sweep
func (r *DonationRepository) ListOrphans(ctx context.Context, limit, offset int) ([]*donation.Donation, error) {
	query := `
		SELECT ` + donationColumns + `
		FROM donations
		WHERE status = 'completed' AND sponsor_id IS NULL AND beneficiary_id IS NOT NULL
		ORDER BY created_at ASC
		LIMIT $1 OFFSET $2
	`

	rows, err := r.querier.Query(ctx, query, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list orphan donations", "error", err)
		return nil, fmt.Errorf("failed to list orphan donations: %w", err)
	}
	defer rows.Close()

	return collectDonations(rows)
}

// ListBySponsorID returns all donations linked to one sponsor, newest first
func (r *DonationRepository) ListBySponsorID(ctx context.Context, sponsorID uuid.UUID) ([]*donation.Donation, error) {
	query := `
		SELECT ` + donationColumns + `
		FROM donations
		WHERE sponsor_id = $1
		ORDER BY paid_at DESC
	`

	rows, err := r.querier.Query(ctx, query, sponsorID)
	if err != nil {
		r.logger.Error("Failed to list donations by sponsor", "sponsor_id", sponsorID.String(), "error", err)
		return nil, fmt.Errorf("failed to list donations by sponsor: %w", err)
	}
	defer rows.Close()

	return collectDonations(rows)
}

// TotalsBySponsorID recomputes the expected sponsor aggregate from completed
// donation rows. This is the independently verifiable truth the sweep
// compares stored counters against.
func (r *DonationRepository) TotalsBySponsorID(ctx context.Context, sponsorID uuid.UUID) (*donation.SponsorTotals, error) {
	query := `
		SELECT COALESCE(SUM(amount), 0), COUNT(*), MIN(paid_at), MAX(paid_at)
		FROM donations
		WHERE sponsor_id = $1 AND status = 'completed'
	`

	var totals donation.SponsorTotals
	err := r.querier.QueryRow(ctx, query, sponsorID).Scan(
		&totals.TotalDonated,
		&totals.DonationCount,
		&totals.FirstDonationAt,
		&totals.LastDonationAt,
	)
	if err != nil {
		r.logger.Error("Failed to compute sponsor totals", "sponsor_id", sponsorID.String(), "error", err)
		return nil, fmt.Errorf("failed to compute sponsor totals: %w", err)
	}

	return &totals, nil
}

func scanDonation(row pgx.Row) (*donation.Donation, error) {
	var d donation.Donation
	err := row.Scan(
		&d.ID,
		&d.SessionID,
		&d.Amount,
		&d.Currency,
		&d.Status,
		&d.DonorExternalID,
		&d.DonorName,
		&d.DonorEmail,
		&d.Anonymous,
		&d.BeneficiaryID,
		&d.PackID,
		&d.Recurrence,
		&d.SponsorID,
		&d.PaidAt,
		&d.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func collectDonations(rows pgx.Rows) ([]*donation.Donation, error) {
	var donations []*donation.Donation
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan donation row: %w", err)
		}
		donations = append(donations, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read donation rows: %w", err)
	}
	return donations, nil
}

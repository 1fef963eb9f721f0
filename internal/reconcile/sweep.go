// Package reconcile implements the reconciliation sweep: an independent
// verification pass that re-derives sponsor and beneficiary aggregates from
// donation rows and corrects drift. It shares nothing with the event-driven
// ledger path on purpose, so a bug in one cannot hide in the other.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/config"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/archive"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/beneficiary"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/donation"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/sponsor"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/metrics"
)

// Correction kinds reported to metrics
const (
	correctionOrphanRelink        = "orphan_relink"
	correctionSponsorTotals       = "sponsor_totals"
	correctionBeneficiaryCounters = "beneficiary_counters"
)

// TxRunner abstracts the transactional boundary each correction runs in.
// Satisfied by persistence.PostgresDB.
type TxRunner interface {
	ExecuteTx(ctx context.Context, fn func(tx pgx.Tx) error) error
}

// Sweeper runs the three reconciliation phases: orphan relink, sponsor totals
// drift, beneficiary counter drift. Each correction is applied in its own
// transaction so one failure never poisons the rest of the run.
type Sweeper struct {
	db              TxRunner
	donationRepo    donation.Repository
	sponsorRepo     sponsor.Repository
	beneficiaryRepo beneficiary.Repository
	reportStore     archive.SweepReportStore
	logger          *slog.Logger
	batchSize       int
	amountTolerance int64
}

func NewSweeper(
	cfg *config.SweepConfig,
	db TxRunner,
	donationRepo donation.Repository,
	sponsorRepo sponsor.Repository,
	beneficiaryRepo beneficiary.Repository,
	reportStore archive.SweepReportStore,
	logger *slog.Logger,
) *Sweeper {
	return &Sweeper{
		db:              db,
		donationRepo:    donationRepo,
		sponsorRepo:     sponsorRepo,
		beneficiaryRepo: beneficiaryRepo,
		reportStore:     reportStore,
		logger:          logger,
		batchSize:       cfg.BatchSize,
		amountTolerance: cfg.AmountTolerance,
	}
}

// Run executes one full sweep. In dry-run mode drift is measured and counted
// but nothing is written. The report is persisted to the report store before
// returning; a store failure is recorded on the report, not returned.
func (s *Sweeper) Run(ctx context.Context, dryRun bool) (*archive.SweepReport, error) {
	report := &archive.SweepReport{
		ID:        uuid.New(),
		StartedAt: time.Now(),
		DryRun:    dryRun,
	}

	s.logger.Info("Starting reconciliation sweep", "sweep_id", report.ID.String(), "dry_run", dryRun)

	s.sweepOrphans(ctx, report)
	s.sweepSponsors(ctx, report)
	s.sweepBeneficiaries(ctx, report)

	report.FinishedAt = time.Now()

	switch {
	case len(report.Errors) > 0:
		metrics.RecordSweepRun("error")
	case report.Clean():
		metrics.RecordSweepRun("clean")
	default:
		metrics.RecordSweepRun("corrected")
	}

	if err := s.reportStore.Insert(ctx, report); err != nil {
		s.logger.Error("Failed to persist sweep report", "sweep_id", report.ID.String(), "error", err)
		report.Errors = append(report.Errors, fmt.Sprintf("persist report: %s", err.Error()))
	}

	s.logger.Info("Reconciliation sweep finished",
		"sweep_id", report.ID.String(),
		"dry_run", dryRun,
		"orphans_found", report.OrphansFound,
		"orphans_relinked", report.OrphansRelinked,
		"sponsors_corrected", report.SponsorsCorrected,
		"beneficiaries_corrected", report.BeneficiariesCorrected,
		"errors", len(report.Errors),
	)

	return report, nil
}

// sweepOrphans finds completed donations with a resolved beneficiary but no
// sponsor linkage and attaches each to its sponsor, creating the sponsor row
// when the pair has none yet.
func (s *Sweeper) sweepOrphans(ctx context.Context, report *archive.SweepReport) {
	offset := 0
	for {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("orphan phase aborted: %s", ctx.Err().Error()))
			return
		}

		orphans, err := s.donationRepo.ListOrphans(ctx, s.batchSize, offset)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("list orphans at offset %d: %s", offset, err.Error()))
			return
		}
		if len(orphans) == 0 {
			return
		}

		report.OrphansFound += len(orphans)

		if report.DryRun {
			if len(orphans) < s.batchSize {
				return
			}
			offset += len(orphans)
			continue
		}

		failed := 0
		for _, d := range orphans {
			if err := s.relinkOrphan(ctx, d); err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("relink donation %s: %s", d.ID.String(), err.Error()))
				failed++
				continue
			}
			report.OrphansRelinked++
			metrics.RecordSweepCorrection(correctionOrphanRelink)
		}

		if len(orphans) < s.batchSize {
			return
		}
		// Relinked rows left the orphan set; only the rows that failed are
		// still ahead of the scan position, so skip exactly those.
		offset += failed
	}
}

// relinkOrphan attaches one orphaned donation to its sponsor inside a single
// transaction, then restores derived state from row-level truth.
func (s *Sweeper) relinkOrphan(ctx context.Context, d *donation.Donation) error {
	if d.BeneficiaryID == nil {
		return errors.New("orphan has no resolved beneficiary")
	}
	beneficiaryID := *d.BeneficiaryID
	donorKey := sponsor.DonorKey(d.DonorExternalID, d.SessionID, d.Anonymous)

	return s.db.ExecuteTx(ctx, func(tx pgx.Tx) error {
		donationRepo := s.donationRepo.WithTx(tx)
		sponsorRepo := s.sponsorRepo.WithTx(tx)
		beneficiaryRepo := s.beneficiaryRepo.WithTx(tx)

		sp, err := sponsorRepo.LockByDonorAndBeneficiary(ctx, donorKey, beneficiaryID)
		if err != nil {
			return fmt.Errorf("failed to lock sponsor: %w", err)
		}
		if sp == nil {
			sp, err = sponsor.New(donorKey, d.DonorName, d.DonorEmail, d.Anonymous, beneficiaryID, d.Amount, d.PaidAt)
			if err != nil {
				return fmt.Errorf("failed to build sponsor: %w", err)
			}
			if err := sponsorRepo.Create(ctx, sp); err != nil {
				return fmt.Errorf("failed to create sponsor: %w", err)
			}
		}

		if err := donationRepo.LinkSponsor(ctx, d.ID, sp.ID); err != nil {
			return fmt.Errorf("failed to link donation: %w", err)
		}

		totals, err := donationRepo.TotalsBySponsorID(ctx, sp.ID)
		if err != nil {
			return fmt.Errorf("failed to recompute sponsor totals: %w", err)
		}
		firstAt, lastAt := totalSpan(sp, totals)
		if err := sponsorRepo.SetTotals(ctx, sp.ID, totals.TotalDonated, totals.DonationCount, firstAt, lastAt); err != nil {
			return fmt.Errorf("failed to set sponsor totals: %w", err)
		}

		if err := beneficiaryRepo.RecomputeAggregates(ctx, beneficiaryID); err != nil {
			return fmt.Errorf("failed to recompute beneficiary aggregates: %w", err)
		}
		return nil
	})
}

// sweepSponsors pages through all sponsors and compares stored counters with
// totals re-derived from donation rows
func (s *Sweeper) sweepSponsors(ctx context.Context, report *archive.SweepReport) {
	offset := 0
	for {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("sponsor phase aborted: %s", ctx.Err().Error()))
			return
		}

		sponsors, err := s.sponsorRepo.List(ctx, s.batchSize, offset)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("list sponsors at offset %d: %s", offset, err.Error()))
			return
		}
		if len(sponsors) == 0 {
			return
		}

		for _, sp := range sponsors {
			report.SponsorsChecked++

			totals, err := s.donationRepo.TotalsBySponsorID(ctx, sp.ID)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("totals for sponsor %s: %s", sp.ID.String(), err.Error()))
				continue
			}
			if sponsorInSync(sp, totals, s.amountTolerance) {
				continue
			}

			report.SponsorsCorrected++
			s.logger.Warn("Sponsor counters drifted from donation rows",
				"sponsor_id", sp.ID.String(),
				"stored_total", sp.TotalDonated,
				"expected_total", totals.TotalDonated,
				"stored_count", sp.DonationCount,
				"expected_count", totals.DonationCount,
				"dry_run", report.DryRun,
			)

			if report.DryRun {
				continue
			}

			firstAt, lastAt := totalSpan(sp, totals)
			if err := s.sponsorRepo.SetTotals(ctx, sp.ID, totals.TotalDonated, totals.DonationCount, firstAt, lastAt); err != nil {
				report.SponsorsCorrected--
				report.Errors = append(report.Errors, fmt.Sprintf("set totals for sponsor %s: %s", sp.ID.String(), err.Error()))
				continue
			}
			metrics.RecordSweepCorrection(correctionSponsorTotals)
		}

		if len(sponsors) < s.batchSize {
			return
		}
		offset += len(sponsors)
	}
}

// sweepBeneficiaries pages through all beneficiaries and recomputes cached
// counters for any that drifted from ledger-derived values
func (s *Sweeper) sweepBeneficiaries(ctx context.Context, report *archive.SweepReport) {
	offset := 0
	for {
		if ctx.Err() != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("beneficiary phase aborted: %s", ctx.Err().Error()))
			return
		}

		beneficiaries, err := s.beneficiaryRepo.List(ctx, s.batchSize, offset)
		if err != nil {
			report.Errors = append(report.Errors, fmt.Sprintf("list beneficiaries at offset %d: %s", offset, err.Error()))
			return
		}
		if len(beneficiaries) == 0 {
			return
		}

		for _, b := range beneficiaries {
			report.BeneficiariesChecked++

			drift, err := s.beneficiaryRepo.MeasureDrift(ctx, b.ID)
			if err != nil {
				report.Errors = append(report.Errors, fmt.Sprintf("measure drift for beneficiary %s: %s", b.ID.String(), err.Error()))
				continue
			}
			if drift.InSync(s.amountTolerance) {
				continue
			}

			report.BeneficiariesCorrected++
			s.logger.Warn("Beneficiary counters drifted from ledger",
				"beneficiary_id", b.ID.String(),
				"cached_total", drift.CachedTotalReceived,
				"expected_total", drift.ExpectedTotalReceived,
				"cached_sponsor_count", drift.CachedSponsorCount,
				"expected_sponsor_count", drift.ExpectedSponsorCount,
				"dry_run", report.DryRun,
			)

			if report.DryRun {
				continue
			}

			if err := s.beneficiaryRepo.RecomputeAggregates(ctx, b.ID); err != nil {
				report.BeneficiariesCorrected--
				report.Errors = append(report.Errors, fmt.Sprintf("recompute beneficiary %s: %s", b.ID.String(), err.Error()))
				continue
			}
			metrics.RecordSweepCorrection(correctionBeneficiaryCounters)
		}

		if len(beneficiaries) < s.batchSize {
			return
		}
		offset += len(beneficiaries)
	}
}

// sponsorInSync compares stored sponsor counters against row-derived totals.
// Amounts tolerate the configured drift; counts must match exactly.
func sponsorInSync(sp *sponsor.Sponsor, totals *donation.SponsorTotals, tolerance int64) bool {
	diff := sp.TotalDonated - totals.TotalDonated
	if diff < 0 {
		diff = -diff
	}
	return diff <= tolerance && sp.DonationCount == totals.DonationCount
}

// totalSpan resolves the first/last donation timestamps to store, keeping the
// sponsor's current values when no completed donation rows exist to derive
// them from
func totalSpan(sp *sponsor.Sponsor, totals *donation.SponsorTotals) (time.Time, time.Time) {
	firstAt := sp.FirstDonationAt
	lastAt := sp.LastDonationAt
	if totals.FirstDonationAt != nil {
		firstAt = *totals.FirstDonationAt
	}
	if totals.LastDonationAt != nil {
		lastAt = *totals.LastDonationAt
	}
	return firstAt, lastAt
}

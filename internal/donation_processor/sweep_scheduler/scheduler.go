// Package sweep_scheduler runs the reconciliation sweep on a fixed period
// inside the donation processor. Every scheduled run applies corrections;
// dry runs are only available through the operator endpoint.
package sweep_scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/config"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/archive"
)

// SweepRunner runs one reconciliation pass over the ledger
type SweepRunner interface {
	Run(ctx context.Context, dryRun bool) (*archive.SweepReport, error)
}

// Scheduler triggers periodic reconciliation sweeps
type Scheduler struct {
	sweeper  SweepRunner
	logger   *slog.Logger
	interval time.Duration
}

func NewScheduler(
	cfg *config.SweepConfig,
	sweeper SweepRunner,
	logger *slog.Logger,
) *Scheduler {
	return &Scheduler{
		sweeper:  sweeper,
		logger:   logger,
		interval: cfg.Interval,
	}
}

// Start runs sweeps until the context is canceled
func (s *Scheduler) Start(ctx context.Context) {
	s.logger.Info("Starting reconciliation scheduler", "interval", s.interval.String())
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Reconciliation scheduler stopping due to context cancellation.")
			return
		case <-ticker.C:
			s.logger.Debug("Reconciliation scheduler tick: starting sweep")
			s.runOnce(ctx)
		}
	}
}

func (s *Scheduler) runOnce(ctx context.Context) {
	report, err := s.sweeper.Run(ctx, false)
	if err != nil {
		s.logger.Error("Scheduled reconciliation sweep failed", "error", err)
		return
	}

	s.logger.Info("Scheduled reconciliation sweep finished",
		"report_id", report.ID.String(),
		"orphans_found", report.OrphansFound,
		"orphans_relinked", report.OrphansRelinked,
		"sponsors_corrected", report.SponsorsCorrected,
		"beneficiaries_corrected", report.BeneficiariesCorrected,
		"errors", len(report.Errors),
		"duration", report.FinishedAt.Sub(report.StartedAt).String(),
	)
}

package service

import (
	"context"
	"log/slog"

	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/archive"
)

// SweepRunner abstracts reconcile.Sweeper for testing
type SweepRunner interface {
	Run(ctx context.Context, dryRun bool) (*archive.SweepReport, error)
}

// ReconciliationServiceImpl implements the ReconciliationService interface
type ReconciliationServiceImpl struct {
	sweeper     SweepRunner
	reportStore archive.SweepReportStore
	logger      *slog.Logger
}

// NewReconciliationService creates a new reconciliation service
func NewReconciliationService(logger *slog.Logger, sweeper SweepRunner, reportStore archive.SweepReportStore) ReconciliationService {
	return &ReconciliationServiceImpl{
		sweeper:     sweeper,
		reportStore: reportStore,
		logger:      logger,
	}
}

// Run executes one sweep synchronously on behalf of an operator
func (s *ReconciliationServiceImpl) Run(ctx context.Context, dryRun bool) (*archive.SweepReport, error) {
	s.logger.Info("Operator triggered reconciliation sweep", "dry_run", dryRun)
	return s.sweeper.Run(ctx, dryRun)
}

// LatestReport returns the most recent persisted sweep report, nil when no
// sweep has run yet
func (s *ReconciliationServiceImpl) LatestReport(ctx context.Context) (*archive.SweepReport, error) {
	report, err := s.reportStore.Latest(ctx)
	if err != nil {
		s.logger.Error("Failed to load latest sweep report", "error", err)
		return nil, err
	}
	return report, nil
}

package components

import (
	"log/slog"

	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/config"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/archive"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/beneficiary"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/donation"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/domain/sponsor"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/donation_processor/service"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/platform/persistence"
)

// CreateProcessingService creates a new ProcessingService with all its dependencies.
func CreateProcessingService(
	pgDB *persistence.PostgresDB,
	donationRepo donation.Repository,
	sponsorRepo sponsor.Repository,
	beneficiaryRepo beneficiary.Repository,
	archiveRepo archive.Repository,
	logger *slog.Logger,
	cfg *config.Config,
) service.ProcessingService {
	validator := NewEventValidator(donationRepo, logger)
	resolver := NewBeneficiaryResolver(beneficiaryRepo, logger)
	sponsorManager := NewSponsorManager(sponsorRepo, logger)
	recorder := NewDispositionRecorder(archiveRepo, logger)

	baseService := service.NewLedgerService(
		pgDB.Pool(),
		donationRepo,
		beneficiaryRepo,
		validator,
		resolver,
		sponsorManager,
		recorder,
		cfg.Ledger.TxTimeout,
		logger,
	)

	workerPoolService, err := service.NewWorkerPoolProcessingService(
		baseService,
		service.WorkerPoolConfig{
			Size: cfg.WorkerPool.Size,
		},
		logger.With("component", "worker_pool"),
	)

	if err != nil {
		logger.Error("Failed to create worker pool service, falling back to base service", "error", err)
		return baseService
	}

	logger.Info("Created worker pool processing service", "pool_size", cfg.WorkerPool.Size)
	return workerPoolService
}

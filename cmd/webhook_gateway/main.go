package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/config"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/data/mongo"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/data/postgres"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/logger"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/platform/messaging/producers"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/platform/persistence"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/reconcile"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/webhook_gateway"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/webhook_gateway/service"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/webhook_gateway/signature"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("webhook_gateway")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	// Initialize databases with app context
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	redisDB, err := persistence.NewRedisDB(appCtx, log, &cfg.Redis)
	if err != nil {
		log.Error("Failed to initialize Redis", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producer (publishes normalized donation events)
	kafkaProducer, err := producers.NewDonationEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	donationRepo := postgres.NewDonationRepository(log, postgresDB)
	sponsorRepo := postgres.NewSponsorRepository(log, postgresDB)
	beneficiaryRepo := postgres.NewBeneficiaryRepository(log, postgresDB)
	archiveRepo := mongo.NewEventArchiveRepository(log, mongoDB.Database())
	sweepReportStore := mongo.NewSweepReportRepository(log, mongoDB.Database())

	// Initialize services
	verifier := signature.NewVerifier(cfg.Webhook.SigningSecret, cfg.Webhook.TimestampTolerance)
	ingestionService := service.NewIngestionService(log, verifier, donationRepo, archiveRepo, kafkaProducer)
	queryService := service.NewQueryService(log, sponsorRepo, donationRepo, beneficiaryRepo, redisDB.Client(), cfg.Redis.CacheTTL)

	// The operator endpoint drives the same sweeper the processor schedules
	sweeper := reconcile.NewSweeper(&cfg.Sweep, postgresDB, donationRepo, sponsorRepo, beneficiaryRepo, sweepReportStore, log)
	reconciliationService := service.NewReconciliationService(log, sweeper, sweepReportStore)

	// Initialize REST server
	server := webhook_gateway.NewServer(log, cfg, ingestionService, queryService, reconciliationService)
	log.Info("REST server initialized")

	// Create error channel for server errors
	errChan := make(chan error, 1)

	// Start server in goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first so no request observes a closed pool
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	postgresDB.Close()

	if err = redisDB.Close(); err != nil {
		log.Error("Error closing Redis connection", "error", err)
	}

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}

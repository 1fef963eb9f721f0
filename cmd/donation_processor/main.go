package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/config"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/data/mongo"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/data/postgres"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/donation_processor/components"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/donation_processor/consumer"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/donation_processor/service"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/donation_processor/sweep_scheduler"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/logger"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/platform/messaging/consumers"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/platform/messaging/producers"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/platform/persistence"
	"github.com/paiecashplay/paiecashplay-fundation-sub001/internal/reconcile"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("donation_processor")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Donation Processor",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

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

	// Initialize repositories
	donationRepo := postgres.NewDonationRepository(log, postgresDB)
	sponsorRepo := postgres.NewSponsorRepository(log, postgresDB)
	beneficiaryRepo := postgres.NewBeneficiaryRepository(log, postgresDB)
	archiveRepo := mongo.NewEventArchiveRepository(log, mongoDB.Database())
	sweepReportStore := mongo.NewSweepReportRepository(log, mongoDB.Database())

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	// Initialize processing service with separated concerns
	processingService := components.CreateProcessingService(
		postgresDB,
		donationRepo,
		sponsorRepo,
		beneficiaryRepo,
		archiveRepo,
		log,
		cfg,
	)

	// Initialize donation event handler
	donationEventHandler := consumer.NewDonationEventHandler(
		log,
		processingService,
		dlqProducer,
	)

	// Initialize reconciliation scheduler
	sweeper := reconcile.NewSweeper(&cfg.Sweep, postgresDB, donationRepo, sponsorRepo, beneficiaryRepo, sweepReportStore, log)
	scheduler := sweep_scheduler.NewScheduler(&cfg.Sweep, sweeper, log)

	// Prometheus exposition on a dedicated port
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler: metricsMux,
	}

	// Create error channel for service errors
	errChan := make(chan error, 2)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.DonationTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.DonationTopic, cfg.Kafka.ConsumerGroup, donationEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
	}()

	// Start reconciliation scheduler in a goroutine
	if cfg.Sweep.Enabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			scheduler.Start(appCtx)
		}()
	} else {
		log.Info("Reconciliation scheduler disabled by configuration")
	}

	// Start metrics server in a goroutine
	go func() {
		log.Info("Starting metrics server", "port", cfg.Metrics.Port)
		if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("metrics server error: %w", err)
		}
	}()

	// Set up signal handling
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	// Wait for a shutdown signal or error
	var serviceErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Service error occurred", "error", err)
		serviceErr = err
	}

	// Cancel the application context
	cancelAppCtx()

	// Shutdown the worker pool if it's a WorkerPoolProcessingService
	if wpService, ok := processingService.(*service.WorkerPoolProcessingService); ok {
		log.Info("Shutting down worker pool", "running_workers", wpService.Running())
		wpService.Shutdown()
	}

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Wait for all goroutines to finish
	log.Info("Waiting for services to stop...")
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-shutdownCtx.Done():
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Shutdown metrics server
	if err = metricsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down metrics server", "error", err)
	}

	// Close DLQ Kafka producer
	if dlqProducer != nil { // dlqProducer can be nil if DLQTopic was not configured
		if err = dlqProducer.Close(); err != nil {
			log.Error("Error closing DLQ Kafka producer", "error", err)
		}
	}

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Donation Processor shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Donation Processor shutdown completed with errors")
	} else {
		log.Info("Donation Processor shutdown completed successfully")
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/event-driven-wallet/internal/config"
	"github.com/event-driven-wallet/internal/data/postgres"
	"github.com/event-driven-wallet/internal/domain/event"
	"github.com/event-driven-wallet/internal/ledger/consumer"
	"github.com/event-driven-wallet/internal/ledger/seeder"
	"github.com/event-driven-wallet/internal/ledger/service"
	"github.com/event-driven-wallet/internal/logger"
	"github.com/event-driven-wallet/internal/platform/messaging/consumers"
	"github.com/event-driven-wallet/internal/platform/messaging/producers"
	"github.com/event-driven-wallet/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("ledger_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Ledger Service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize database with app context (runs migrations)
	postgresDB, err := persistence.NewPostgresDB(appCtx, log, &cfg.Postgres)
	if err != nil {
		log.Error("Failed to initialize PostgreSQL", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	accountRepo := postgres.NewLedgerAccountRepository(log, postgresDB)
	journalRepo := postgres.NewLedgerJournalRepository(log, postgresDB)
	entryRepo := postgres.NewLedgerEntryRepository(log, postgresDB)

	// Seed system accounts before consuming any event; the poster treats a
	// missing system account as fatal.
	systemAccountSeeder := seeder.NewSystemAccountSeeder(log, accountRepo, cfg.Ledger.Currencies)
	if err := systemAccountSeeder.Seed(appCtx); err != nil {
		log.Error("Failed to seed system ledger accounts", "error", err)
		os.Exit(1)
	}

	// Initialize posting service behind a worker pool
	postingService := service.NewPostingService(log, postgresDB, accountRepo, journalRepo, entryRepo)
	pooledService, err := service.NewWorkerPoolPostingService(
		postingService,
		service.WorkerPoolConfig{Size: cfg.WorkerPool.Size},
		log,
	)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize transaction event handler and consumer
	transactionEventHandler := consumer.NewTransactionEventHandler(log, pooledService, dlqProducer)
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, event.TopicTransactionCompleted, dlqProducer)

	// Create error channel for service errors
	errChan := make(chan error, 1)

	// Start Kafka consumer in a goroutine
	go func() {
		if err := kafkaConsumer.Subscribe(appCtx, transactionEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
		}
		close(errChan)
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
		if err != nil {
			log.Error("Service error occurred", "error", err)
			serviceErr = err
		}
	}

	// Cancel the application context
	cancelAppCtx()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Drain the worker pool before closing stores
	log.Info("Shutting down worker pool", "running_workers", pooledService.Running())
	pooledService.Shutdown()

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Close DLQ Kafka producer
	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serviceErr != nil {
		log.Error("Ledger Service shutdown with errors", "error", serviceErr)
	} else {
		log.Info("Ledger Service shutdown completed successfully")
	}
}

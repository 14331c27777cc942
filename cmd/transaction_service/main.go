package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/event-driven-wallet/internal/config"
	"github.com/event-driven-wallet/internal/data/postgres"
	"github.com/event-driven-wallet/internal/domain/event"
	"github.com/event-driven-wallet/internal/logger"
	"github.com/event-driven-wallet/internal/platform/messaging/consumers"
	"github.com/event-driven-wallet/internal/platform/messaging/producers"
	"github.com/event-driven-wallet/internal/platform/persistence"
	"github.com/event-driven-wallet/internal/transaction/consumer"
	"github.com/event-driven-wallet/internal/transaction/httpapi"
	"github.com/event-driven-wallet/internal/transaction/outbox_poller"
	"github.com/event-driven-wallet/internal/transaction/service"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("transaction_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Transaction Service",
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
	walletRepo := postgres.NewWalletRepository(log, postgresDB)
	transactionRepo := postgres.NewTransactionRepository(log, postgresDB)
	blocklistRepo := postgres.NewBlocklistRepository(log, postgresDB)
	outboxRepo := postgres.NewOutboxRepository(log, postgresDB)

	// Initialize Kafka relay producer for the outbox topics
	relayProducer, err := producers.NewOutboxRelayProducer(appCtx, log, &cfg.Kafka, []string{
		event.TopicTransactionCompleted,
		event.TopicTransactionFailed,
	})
	if err != nil {
		log.Error("Failed to initialize outbox relay Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize transaction service
	transactionService := service.NewTransactionService(
		log,
		postgresDB,
		walletRepo,
		transactionRepo,
		blocklistRepo,
		outboxRepo,
		cfg.Processor.BalanceRetryAttempts,
	)

	// Initialize REST server
	server := httpapi.NewServer(log, cfg, transactionService)

	// Initialize outbox poller
	poller := outbox_poller.NewPoller(&cfg.Outbox, outboxRepo, relayProducer, log)

	// Initialize Kafka consumers for wallet provisioning and fraud blocks
	walletCreatedHandler := consumer.NewWalletCreatedHandler(log, transactionService)
	walletCreatedConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, event.TopicWalletCreated, dlqProducer)

	userBlockedHandler := consumer.NewUserBlockedHandler(log, transactionService)
	userBlockedConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka, event.TopicUserBlocked, dlqProducer)

	// Create error channel for service errors
	errChan := make(chan error, 3)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	// Start outbox poller in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		poller.Start(appCtx)
	}()

	// Start Kafka consumers in goroutines
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := walletCreatedConsumer.Subscribe(appCtx, walletCreatedHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("wallet-created consumer error: %w", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := userBlockedConsumer.Subscribe(appCtx, userBlockedHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("user-blocked consumer error: %w", err)
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

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	// Wait for poller and consumers to finish
	wgChan := make(chan struct{})
	go func() {
		wg.Wait()
		close(wgChan)
	}()

	select {
	case <-wgChan:
		log.Info("All services stopped successfully")
	case <-time.After(cfg.Server.ShutdownTimeout):
		log.Warn("Shutdown timeout reached, forcing exit")
	}

	// Close Kafka consumers
	if err = walletCreatedConsumer.Close(); err != nil {
		log.Error("Error closing wallet-created consumer", "error", err)
	}
	if err = userBlockedConsumer.Close(); err != nil {
		log.Error("Error closing user-blocked consumer", "error", err)
	}

	// Close Kafka producers
	if err = relayProducer.Close(); err != nil {
		log.Error("Error closing outbox relay Kafka producer", "error", err)
	}
	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

	// Final status
	if serviceErr != nil {
		log.Error("Transaction Service shutdown with errors", "error", serviceErr)
	} else {
		log.Info("Transaction Service shutdown completed successfully")
	}
}

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/event-driven-wallet/internal/config"
	"github.com/event-driven-wallet/internal/data/mongo"
	"github.com/event-driven-wallet/internal/domain/event"
	"github.com/event-driven-wallet/internal/fraud/consumer"
	"github.com/event-driven-wallet/internal/fraud/seeder"
	"github.com/event-driven-wallet/internal/fraud/service"
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
	cfg, err := config.LoadConfig("fraud_service")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Fraud Service",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	// Initialize database with app context
	mongoDB, err := persistence.NewMongoDB(appCtx, log, &cfg.MongoDB)
	if err != nil {
		log.Error("Failed to initialize MongoDB", "error", err)
		os.Exit(1)
	}

	// Unique indexes guard the one-analysis/one-history-entry invariants;
	// they must exist before the first event is consumed.
	if err := mongo.EnsureIndexes(appCtx, log, mongoDB.Database()); err != nil {
		log.Error("Failed to ensure MongoDB indexes", "error", err)
		os.Exit(1)
	}

	// Initialize repositories
	ruleRepo := mongo.NewRuleRepository(log, mongoDB.Database())
	analysisRepo := mongo.NewAnalysisRepository(log, mongoDB.Database())
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())

	// Seed the default rule set
	ruleSeeder := seeder.NewRuleSeeder(log, ruleRepo)
	if err := ruleSeeder.Seed(appCtx); err != nil {
		log.Error("Failed to seed fraud rules", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka producers for verdict events
	userBlockedProducer, err := producers.NewEventProducer(appCtx, log, &cfg.Kafka, event.TopicUserBlocked)
	if err != nil {
		log.Error("Failed to initialize user-blocked Kafka producer", "error", err)
		os.Exit(1)
	}

	fraudAlertProducer, err := producers.NewEventProducer(appCtx, log, &cfg.Kafka, event.TopicFraudAlert)
	if err != nil {
		log.Error("Failed to initialize fraud-alert Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}

	// Initialize analysis service
	analysisService := service.NewAnalysisService(
		log,
		ruleRepo,
		analysisRepo,
		historyRepo,
		userBlockedProducer,
		fraudAlertProducer,
	)

	// Initialize transaction event handler and consumer
	transactionEventHandler := consumer.NewTransactionEventHandler(log, analysisService, dlqProducer)
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

	// Create a shutdown context with timeout
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelShutdown()

	// Graceful shutdown sequence
	log.Info("Starting graceful shutdown...")

	// Close Kafka consumer
	if err = kafkaConsumer.Close(); err != nil {
		log.Error("Error closing Kafka consumer", "error", err)
	}

	// Close Kafka producers
	if err = userBlockedProducer.Close(); err != nil {
		log.Error("Error closing user-blocked Kafka producer", "error", err)
	}
	if err = fraudAlertProducer.Close(); err != nil {
		log.Error("Error closing fraud-alert Kafka producer", "error", err)
	}
	if err = dlqProducer.Close(); err != nil {
		log.Error("Error closing DLQ Kafka producer", "error", err)
	}

	// Close MongoDB connection
	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	// Final status
	if serviceErr != nil {
		log.Error("Fraud Service shutdown with errors", "error", serviceErr)
	} else {
		log.Info("Fraud Service shutdown completed successfully")
	}
}

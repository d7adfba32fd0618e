package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rentflow-decision-ledger/internal/config"
	"github.com/rentflow-decision-ledger/internal/data/mongo"
	"github.com/rentflow-decision-ledger/internal/data/postgres"
	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ingest"
	"github.com/rentflow-decision-ledger/internal/ledger/client"
	"github.com/rentflow-decision-ledger/internal/ledger/counter"
	"github.com/rentflow-decision-ledger/internal/ledger/transport"
	"github.com/rentflow-decision-ledger/internal/logger"
	"github.com/rentflow-decision-ledger/internal/platform/messaging/consumers"
	"github.com/rentflow-decision-ledger/internal/platform/messaging/producers"
	"github.com/rentflow-decision-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("decision_ingest")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.NewLogger(cfg)

	log.Info("Starting Decision Ingest",
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

	// Initialize the ledger transport, counter cache, and client
	rpcTransport, err := transport.NewRPCTransport(log, &cfg.Ledger)
	if err != nil {
		log.Error("Failed to initialize ledger transport", "error", err)
		os.Exit(1)
	}

	counterStore := postgres.NewCounterStore(log, postgresDB)
	decisionCounter := counter.New(log, &cfg.Counter, func(ctx context.Context) (int64, error) {
		return rpcTransport.Count(ctx, decision.KindPaymentDecision)
	}, counterStore)

	mirrorRepo := mongo.NewMirrorRepository(log, mongoDB.Database())
	ledgerClient := client.New(log, &cfg.Ledger, rpcTransport, mirrorRepo, decisionCounter)

	// Initialize Kafka consumer
	kafkaConsumer := consumers.NewKafkaConsumer(appCtx, log, &cfg.Kafka)

	// Initialize Kafka DLQ producer
	dlqProducer, err := producers.NewDLQProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize DLQ Kafka producer", "error", err)
		os.Exit(1)
	}
	// dlqProducer might be nil if DLQTopic is not configured. Handler should be nil-safe.

	// Initialize the recording service behind a bounded worker pool
	baseService := ingest.NewLedgerRecordingService(log, ledgerClient)
	recordingService, err := ingest.NewWorkerPoolRecordingService(baseService, ingest.WorkerPoolConfig{
		Size: cfg.WorkerPool.Size,
	}, log)
	if err != nil {
		log.Error("Failed to initialize worker pool", "error", err)
		os.Exit(1)
	}

	// Initialize decision event handler
	decisionEventHandler := ingest.NewDecisionEventHandler(
		log,
		recordingService,
		dlqProducer,
	)

	// Create error channel for service errors
	errChan := make(chan error, 1)

	// Create wait group for graceful shutdown
	var wg sync.WaitGroup

	// Start Kafka consumer in a goroutine
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Info("Starting Kafka consumer",
			"topic", cfg.Kafka.DecisionTopic,
			"group", cfg.Kafka.ConsumerGroup,
		)
		if err := kafkaConsumer.Subscribe(appCtx, cfg.Kafka.DecisionTopic, cfg.Kafka.ConsumerGroup, decisionEventHandler.HandleMessage); err != nil {
			errChan <- fmt.Errorf("kafka consumer error: %w", err)
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

	// Shutdown the worker pool
	log.Info("Shutting down worker pool", "running_workers", recordingService.Running())
	recordingService.Shutdown()

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
		log.Error("Decision Ingest shutdown with errors", "error", serviceErr)
	}
	if err != nil {
		log.Error("Decision Ingest shutdown completed with errors")
	} else {
		log.Info("Decision Ingest shutdown completed successfully")
	}
}

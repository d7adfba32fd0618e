package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rentflow-decision-ledger/internal/api_gateway"
	"github.com/rentflow-decision-ledger/internal/api_gateway/service"
	"github.com/rentflow-decision-ledger/internal/config"
	"github.com/rentflow-decision-ledger/internal/data/mongo"
	"github.com/rentflow-decision-ledger/internal/data/postgres"
	"github.com/rentflow-decision-ledger/internal/domain/decision"
	"github.com/rentflow-decision-ledger/internal/ledger/client"
	"github.com/rentflow-decision-ledger/internal/ledger/counter"
	"github.com/rentflow-decision-ledger/internal/ledger/transport"
	"github.com/rentflow-decision-ledger/internal/logger"
	"github.com/rentflow-decision-ledger/internal/platform/messaging/producers"
	"github.com/rentflow-decision-ledger/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	// Initialize configuration
	cfg, err := config.LoadConfig("api_gateway")
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

	// Initialize Kafka producer for async decision recording
	kafkaProducer, err := producers.NewDecisionEventProducer(appCtx, log, &cfg.Kafka)
	if err != nil {
		log.Error("Failed to initialize decision event producer", "error", err)
		os.Exit(1)
	}

	// Initialize the ledger transport and counter cache
	rpcTransport, err := transport.NewRPCTransport(log, &cfg.Ledger)
	if err != nil {
		log.Error("Failed to initialize ledger transport", "error", err)
		os.Exit(1)
	}

	counterStore := postgres.NewCounterStore(log, postgresDB)
	decisionCounter := counter.New(log, &cfg.Counter, func(ctx context.Context) (int64, error) {
		return rpcTransport.Count(ctx, decision.KindPaymentDecision)
	}, counterStore)

	// Initialize the ledger client with the reporting mirror
	mirrorRepo := mongo.NewMirrorRepository(log, mongoDB.Database())
	ledgerClient := client.New(log, &cfg.Ledger, rpcTransport, mirrorRepo, decisionCounter)

	// Initialize services
	eventService := service.NewEventService(log, kafkaProducer)

	// Initialize REST server
	server := api_gateway.NewServer(log, cfg, ledgerClient, ledgerClient, eventService)
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

	// Shutdown HTTP server
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	if err = kafkaProducer.Close(); err != nil {
		log.Error("Error closing Kafka producer", "error", err)
	}

	// Shutdown postgres connection pool
	postgresDB.Close()

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

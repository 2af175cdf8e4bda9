package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/library-circulation/internal/api"
	"github.com/library-circulation/internal/circulation"
	"github.com/library-circulation/internal/config"
	"github.com/library-circulation/internal/data/mongo"
	"github.com/library-circulation/internal/data/postgres"
	"github.com/library-circulation/internal/logger"
	"github.com/library-circulation/internal/platform/auth"
	"github.com/library-circulation/internal/platform/persistence"
)

func main() {
	// Create base context with cancellation
	appCtx, cancelAppCtx := context.WithCancel(context.Background())
	defer cancelAppCtx()

	cfg, err := config.LoadConfig("circulation_api")
	if err != nil {
		// logger is not initialized yet, so we use fmt
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewLogger(cfg)

	log.Info("Starting Circulation API",
		"app_name", cfg.Application.Name,
		"env", cfg.Application.Env,
	)

	if err := persistence.RunMigrations(cfg.Postgres.URL, cfg.Postgres.MigrationsPath); err != nil {
		log.Error("Failed to apply PostgreSQL migrations", "error", err)
		os.Exit(1)
	}

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

	verifier, err := auth.NewVerifier(appCtx, log, &cfg.Auth)
	if err != nil {
		log.Error("Failed to initialize token verifier", "error", err, "provider", cfg.Auth.Provider)
		os.Exit(1)
	}

	// Initialize repositories
	repos := circulation.Repositories{
		Copies:       postgres.NewCopyRepository(log, postgresDB),
		Loans:        postgres.NewLoanRepository(log, postgresDB),
		Fines:        postgres.NewFineRepository(log, postgresDB),
		Reservations: postgres.NewReservationRepository(log, postgresDB),
		Catalog:      postgres.NewCatalogRepository(log, postgresDB),
		Outbox:       postgres.NewOutboxRepository(log, postgresDB),
	}
	historyRepo := mongo.NewHistoryRepository(log, mongoDB.Database())
	committer := circulation.NewPostgresCommitter(postgresDB.Pool(), repos)

	// Initialize services
	clock := time.Now
	services := api.Services{
		Loans:        circulation.NewLoanLedger(log, committer, repos, cfg.Circulation, clock),
		Fines:        circulation.NewFineEngine(log, committer, repos, cfg.Circulation, clock),
		Reservations: circulation.NewReservationManager(log, committer, repos, clock),
		Copies:       circulation.NewCopyTracker(log, committer, repos, clock),
		History:      circulation.NewHistoryReader(log, historyRepo),
	}

	server := api.NewServer(log, cfg, verifier, services)
	log.Info("REST server initialized")

	errChan := make(chan error, 1)

	go func() {
		log.Info("Starting HTTP server", "port", cfg.Server.Port)
		if err := server.Start(); err != nil {
			errChan <- fmt.Errorf("HTTP server error: %w", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	var serverErr error
	select {
	case <-quit:
		log.Info("Shutdown signal received")
	case err := <-errChan:
		log.Error("Server error occurred", "error", err)
		serverErr = err
	}

	cancelAppCtx()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancelShutdown()

	log.Info("Starting graceful shutdown...")

	// Stop accepting requests before the pools go away
	if err = server.Stop(shutdownCtx); err != nil {
		log.Error("Error during server shutdown", "error", err)
	}

	postgresDB.Close()

	if err = mongoDB.Close(shutdownCtx); err != nil {
		log.Error("Error closing MongoDB connection", "error", err)
	}

	if serverErr != nil {
		log.Error("HTTP server shutdown with errors", "error", serverErr)
	}
	if err != nil {
		log.Error("Server shutdown completed with errors")
	} else {
		log.Info("Server shutdown completed successfully")
	}
}

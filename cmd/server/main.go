package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/caretrack/priorauth/internal/automation"
	"github.com/caretrack/priorauth/internal/config"
	domain "github.com/caretrack/priorauth/internal/domain/workflow"
	"github.com/caretrack/priorauth/internal/enrichment"
	httpiface "github.com/caretrack/priorauth/internal/interfaces/http"
	"github.com/caretrack/priorauth/internal/notification"
	"github.com/caretrack/priorauth/internal/repository"
	"github.com/caretrack/priorauth/internal/worker"
	"github.com/caretrack/priorauth/internal/workflow"
	"github.com/caretrack/priorauth/pkg/database"
	"github.com/caretrack/priorauth/pkg/utils"
)

func main() {
	_ = gotenv.Load()

	configPath := os.Getenv("PRIORAUTH_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting prior-authorization workflow service",
		zap.Int("port", cfg.Server.Port))

	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Repositories
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	historyRepo := repository.NewHistoryRepository(db.DB, logger)
	decisionRepo := repository.NewDecisionRepository(db.DB, logger)
	requirementsRepo := repository.NewRequirementsRepository(db.DB, logger)
	patientRepo := repository.NewPatientRepository(db.DB, logger)

	// Workflow engine
	graph := domain.NewGraph()
	enricher := enrichment.NewEnricher(patientRepo, logger)
	engine := workflow.NewEngine(db, graph, requestRepo, historyRepo, decisionRepo, enricher, logger)

	// Automation
	rulesEngine := automation.NewRulesEngine(requirementsRepo, engine, logger)
	actions := automation.NewActions(engine, logger)
	actions.RegisterHooks()

	// Background monitor
	notifier := notification.NewLogNotifier(logger)
	monitor := worker.NewMonitor(requestRepo, engine, rulesEngine, notifier, worker.MonitorConfig{
		Interval:       cfg.Monitor.Interval,
		BatchSize:      cfg.Monitor.BatchSize,
		ItemTimeout:    cfg.Monitor.ItemTimeout,
		DeadlineWindow: cfg.Monitor.DeadlineWindow,
	}, logger)

	manager := worker.NewManager(logger)
	manager.Register(monitor)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := manager.StartAll(ctx); err != nil {
		logger.Fatal("Failed to start workers", zap.Error(err))
	}

	// Operational HTTP surface
	handlers := httpiface.NewHandlers(engine, rulesEngine, monitor, requestRepo, decisionRepo, logger)
	server := httpiface.NewServer(httpiface.ServerConfig{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP shutdown error", zap.Error(err))
	}

	manager.StopAll()
	logger.Info("Shutdown complete")
}

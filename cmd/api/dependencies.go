package main

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/FACorreiaa/statement-tracker/internal/domain/document"
	dochandler "github.com/FACorreiaa/statement-tracker/internal/domain/document/handler"
	"github.com/FACorreiaa/statement-tracker/internal/domain/extraction"
	"github.com/FACorreiaa/statement-tracker/internal/domain/transaction"
	txhandler "github.com/FACorreiaa/statement-tracker/internal/domain/transaction/handler"
	"github.com/FACorreiaa/statement-tracker/pkg/config"
	"github.com/FACorreiaa/statement-tracker/pkg/cron"
	"github.com/FACorreiaa/statement-tracker/pkg/db"
	"github.com/FACorreiaa/statement-tracker/pkg/storage"
)

// Dependencies holds all application dependencies
type Dependencies struct {
	Config *config.Config
	DB     *db.DB
	Logger *slog.Logger

	// Repositories
	DocumentRepo    *document.Repository
	TransactionRepo *transaction.Repository

	// Services
	DocumentService    *document.Service
	TransactionService *transaction.Service
	ExtractionService  *extraction.Service
	FileStorage        storage.Storage
	Scheduler          *cron.Scheduler

	// Handlers
	DocumentHandler    *dochandler.Handler
	TransactionHandler *txhandler.Handler
}

// InitDependencies initializes all application dependencies
func InitDependencies(cfg *config.Config, logger *slog.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	if err := deps.initDatabase(); err != nil {
		return nil, fmt.Errorf("failed to init database: %w", err)
	}

	if err := deps.initServices(); err != nil {
		return nil, fmt.Errorf("failed to init services: %w", err)
	}

	deps.initHandlers()

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initDatabase initializes the database connection and runs migrations
func (d *Dependencies) initDatabase() error {
	database, err := db.New(db.Config{
		DSN:             d.Config.Database.DSN(),
		MaxConns:        25,
		MinConns:        5,
		MaxConnLifetime: 5 * time.Minute,
		MaxConnIdleTime: 10 * time.Minute,
	}, d.Logger)
	if err != nil {
		return err
	}

	d.DB = database

	if err := d.DB.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	d.Logger.Info("database connected and migrations completed successfully")
	return nil
}

// initServices initializes repositories, storage and the service layer
func (d *Dependencies) initServices() error {
	d.DocumentRepo = document.NewRepository(d.DB.Pool)
	d.TransactionRepo = transaction.NewRepository(d.DB.Pool)

	fileStorage, err := storage.NewLocalStorage(d.Config.Storage.LocalPath)
	if err != nil {
		return fmt.Errorf("failed to init file storage: %w", err)
	}
	d.FileStorage = fileStorage

	d.DocumentService = document.NewService(d.DocumentRepo, d.FileStorage, d.Logger)
	d.TransactionService = transaction.NewService(d.TransactionRepo, d.DocumentRepo, d.Logger)

	d.ExtractionService = extraction.NewService(
		d.DocumentRepo,
		d.TransactionRepo,
		d.FileStorage,
		extraction.Config{
			Workers:        d.Config.Processing.Workers,
			QueueSize:      d.Config.Processing.QueueSize,
			ProcessTimeout: d.Config.Processing.ProcessTimeout,
		},
		d.Logger,
	)

	d.Scheduler = cron.NewScheduler(
		d.ExtractionService,
		d.Config.Processing.SweepSchedule,
		d.Config.Processing.StuckAfter,
		d.Logger,
	)

	d.Logger.Info("services initialized")
	return nil
}

// initHandlers initializes all handler dependencies
func (d *Dependencies) initHandlers() {
	d.DocumentHandler = dochandler.NewHandler(d.DocumentService, d.ExtractionService, d.Logger)
	d.TransactionHandler = txhandler.NewHandler(d.TransactionService, d.Logger)

	d.Logger.Info("handlers initialized")
}

// Cleanup closes all resources
func (d *Dependencies) Cleanup() {
	if d.Scheduler != nil {
		<-d.Scheduler.Stop().Done()
	}
	if d.ExtractionService != nil {
		d.ExtractionService.Stop()
	}
	if d.DB != nil {
		d.DB.Close()
	}
	d.Logger.Info("cleanup completed")
}

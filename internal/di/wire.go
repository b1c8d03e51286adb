// Package di wires configuration, storage, repositories and services together.
// The HTTP server and the ledgerctl CLI share this wiring.
package di

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/config"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/database"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/quote"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/repository"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/scheduler"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/service"
)

// reconcileTimeout bounds a single scheduled reconciliation run.
const reconcileTimeout = 5 * time.Minute

// Container holds every long-lived dependency of the application.
type Container struct {
	DB *sql.DB

	AccountRepo     *repository.AccountRepository
	HoldingRepo     *repository.HoldingRepository
	TransactionRepo *repository.TransactionRepository

	Quotes quote.Provider

	SystemService    *service.SystemService
	AccountService   *service.AccountService
	PortfolioService *service.PortfolioService
	ReconcileService *service.ReconcileService
}

// Wire opens and migrates the database, then builds repositories and services.
// Order of operations:
//  1. Open the database and apply pending migrations
//  2. Build repositories
//  3. Build the quote provider and services
func Wire(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Container, error) {
	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	applied, err := database.Migrate(ctx, db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	log.Info().Str("path", cfg.Database.Path).Int("migrations_applied", applied).Msg("Database ready")

	c := &Container{
		DB:              db,
		AccountRepo:     repository.NewAccountRepository(db),
		HoldingRepo:     repository.NewHoldingRepository(db),
		TransactionRepo: repository.NewTransactionRepository(db),
	}

	if err := c.initializeServices(cfg, log); err != nil {
		db.Close()
		return nil, err
	}

	log.Info().Msg("Dependency wiring completed")

	return c, nil
}

func (c *Container) initializeServices(cfg *config.Config, log zerolog.Logger) error {
	quotes, err := quote.New(cfg.Quote, log)
	if err != nil {
		return fmt.Errorf("failed to create quote provider: %w", err)
	}
	c.Quotes = quotes

	defaultCash, err := decimal.NewFromString(cfg.Ledger.DefaultCash)
	if err != nil {
		return fmt.Errorf("invalid default cash %q: %w", cfg.Ledger.DefaultCash, err)
	}

	cursors, err := service.NewCursorCodec(cfg.Ledger.CursorKey)
	if err != nil {
		return fmt.Errorf("failed to create cursor codec: %w", err)
	}
	if cfg.Ledger.CursorKey == "" {
		log.Warn().Msg("CURSOR_KEY not set, pagination cursors will not survive a restart")
	}

	c.SystemService = service.NewSystemService(c.DB)
	c.AccountService = service.NewAccountService(c.AccountRepo, defaultCash, log)
	c.PortfolioService = service.NewPortfolioService(
		c.DB,
		c.AccountRepo,
		c.HoldingRepo,
		c.TransactionRepo,
		c.Quotes,
		cursors,
		cfg.Ledger.ValuationConcurrency,
		log,
	)
	c.ReconcileService = service.NewReconcileService(
		c.AccountRepo,
		c.HoldingRepo,
		c.TransactionRepo,
		c.PortfolioService.Locks(),
		log,
	)

	return nil
}

// RegisterJobs creates the scheduler and registers the background jobs enabled in cfg.
// The scheduler is returned unstarted.
func (c *Container) RegisterJobs(cfg *config.Config, log zerolog.Logger) (*scheduler.Scheduler, error) {
	sched := scheduler.New(log)

	if cfg.Reconcile.Enabled {
		job := scheduler.NewReconcileJob(log, c.ReconcileService, reconcileTimeout)
		if err := sched.AddJob(cfg.Reconcile.Schedule, job); err != nil {
			return nil, fmt.Errorf("failed to register %s: %w", job.Name(), err)
		}
	}

	return sched, nil
}

// Close releases the database.
func (c *Container) Close() error {
	return c.DB.Close()
}

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ndewijer/Stock-Ledger-Backend/internal/api"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/config"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/di"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/logger"
	"github.com/ndewijer/Stock-Ledger-Backend/internal/version"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	appLog := logger.New(logger.Config{
		Level:  cfg.Log.Level,
		Pretty: cfg.Log.Pretty,
	})
	logger.SetGlobalLogger(appLog)

	appLog.Info().Str("version", version.Version).Msg("Starting stock ledger")

	// Open database, build repositories and services
	container, err := di.Wire(context.Background(), cfg, appLog)
	if err != nil {
		appLog.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer container.Close()

	sched, err := container.RegisterJobs(cfg, appLog)
	if err != nil {
		appLog.Fatal().Err(err).Msg("Failed to register background jobs")
	}
	sched.Start()

	// Create router
	router := api.NewRouter(
		container.SystemService,
		container.AccountService,
		container.PortfolioService,
		cfg,
		appLog,
	)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		appLog.Info().Str("addr", cfg.Server.Addr).Msg("Starting server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLog.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	// Wait for interrupt signal for graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLog.Info().Msg("Shutting down server...")

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		appLog.Error().Err(err).Msg("Server forced to shutdown")
	}

	sched.Stop()

	appLog.Info().Msg("Server exited")
}

package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dvloznov/card-txn-console/internal/api/handlers"
	"github.com/dvloznov/card-txn-console/internal/api/middleware"
	"github.com/dvloznov/card-txn-console/internal/app"
	"github.com/dvloznov/card-txn-console/internal/config"
	"github.com/dvloznov/card-txn-console/internal/logger"
)

func main() {
	// Parse command-line flags
	var (
		configPath = flag.String("config", os.Getenv("CARDTXN_CONFIG"), "Path to YAML config file (or set CARDTXN_CONFIG env)")
		port       = flag.String("port", "", "HTTP server port (overrides config)")
	)
	flag.Parse()

	// Initialize logger
	log := logger.New()

	cfg, err := config.Load(*configPath, os.Getenv)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}
	if *port != "" {
		cfg.Port = *port
	}
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid config")
	}

	log, err = logger.Configure(cfg.LogLevel, cfg.LogFormat, os.Stdout)
	if err != nil {
		log = logger.New()
		log.Warn().Err(err).Msg("Falling back to default logger")
	}

	if cfg.AuthToken == "" {
		log.Warn().Msg("No auth token configured - API is open")
	}

	ctx := logger.WithContext(context.Background(), log)

	console, err := app.New(ctx, cfg, log, app.Options{WithTriage: true})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to assemble console")
	}

	// Start triage workers in background
	workerCtx, cancelWorker := context.WithCancel(ctx)
	defer cancelWorker()

	log.Info().Str("classifier", cfg.Triage.Classifier).Msg("Starting triage workers")
	if err := console.StartTriage(workerCtx, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to start triage workers")
	}

	// Create router
	mux := http.NewServeMux()
	handlers.Register(mux, console.Service, log)

	// Apply middleware
	handler := middleware.Chain(mux, log, cfg.AuthToken, "/health")

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.Source.Timeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Stop triage queue and wait for in-flight queries
	if err := console.Queue.Stop(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error stopping triage queue")
	}
	cancelWorker()

	if err := console.Close(); err != nil {
		log.Error().Err(err).Msg("Failed to release resources")
	}

	log.Info().Msg("Server exited")
}

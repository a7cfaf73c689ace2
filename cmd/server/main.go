package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/testdesk/internal/apiclient"
	"github.com/stemsi/testdesk/internal/config"
	"github.com/stemsi/testdesk/internal/database"
	"github.com/stemsi/testdesk/internal/handler"
	"github.com/stemsi/testdesk/internal/logger"
	"github.com/stemsi/testdesk/internal/repository"
	"github.com/stemsi/testdesk/internal/response"
	"github.com/stemsi/testdesk/internal/router"
	"github.com/stemsi/testdesk/internal/service"
	"github.com/stemsi/testdesk/internal/store"
	"github.com/stemsi/testdesk/internal/validator"
	"github.com/stemsi/testdesk/internal/worker"
)

const snapshotInterval = 5 * time.Second

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()
	config.UseSnapshotPrefix(cfg.SnapshotKeyPrefix)

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("api_base_url", cfg.APIBaseURL).
		Msg("Starting testdesk")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// ─── Remote API and Stores ─────────────────────────────────────────
	api := apiclient.New(cfg.APIBaseURL, cfg.APITimeout, log,
		apiclient.WithRequestID(response.RequestIDFromContext),
	)

	registryOpts := []store.RegistryOption{
		store.WithOwnerFilter(cfg.FilterTestsByOwner),
		store.WithLogger(log),
	}
	var snapshots *repository.SnapshotRepository
	if rdb != nil {
		snapshots = repository.NewSnapshotRepository(rdb)
		registryOpts = append(registryOpts, store.WithSnapshotter(snapshots))
	}
	registry := store.NewRegistry(api, registryOpts...)

	// ─── Initialize Services ──────────────────────────────────────────
	sessions := service.NewSessionService(cfg)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Dashboard: handler.NewDashboardHandler(registry, sessions, cfg, log),
		Lookup:    handler.NewLookupHandler(registry, log),
		TestAPI:   handler.NewTestAPIHandler(registry, sessions, cfg, log),
		WS:        handler.NewWSHandler(registry, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	var snapshotWorker *worker.SnapshotWorker
	if snapshots != nil {
		snapshotWorker = worker.NewSnapshotWorker(registry, snapshots, snapshotInterval, log)
		go snapshotWorker.Start(workerCtx)
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, sessions, handlers, cfg, log)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the snapshot worker and wait for its final flush.
	workerCancel()
	if snapshotWorker != nil {
		select {
		case <-snapshotWorker.Done():
		case <-time.After(5 * time.Second):
			log.Warn().Msg("Snapshot worker did not drain in time")
		}
	}

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}

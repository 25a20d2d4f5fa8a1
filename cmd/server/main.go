// Package main is the entry point for the Tally trade reconciliation service.
// Tally ingests raw trade activity from heterogeneous sources (CSV exports,
// JSON dumps, webhooks, live agent feeds), normalizes it into canonical trade
// legs, and reconciles those legs into unified trades with derived P&L.
//
// Startup sequence:
//  1. Load configuration from environment variables (.env supported)
//  2. Initialize structured logging
//  3. Open the ledger and cache databases and ensure schemas
//  4. Wire repositories, the ledger service and the event bus
//  5. Start the live agent feed client (if configured)
//  6. Start the reconciliation sweep scheduler
//  7. Start the HTTP server and wait for a shutdown signal
package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/alevras/tally/internal/clients/agentfeed"
	"github.com/alevras/tally/internal/config"
	"github.com/alevras/tally/internal/database"
	"github.com/alevras/tally/internal/events"
	"github.com/alevras/tally/internal/modules/ledger"
	ledgerhandlers "github.com/alevras/tally/internal/modules/ledger/handlers"
	"github.com/alevras/tally/internal/scheduler"
	"github.com/alevras/tally/internal/server"
	"github.com/alevras/tally/internal/snapshots"
	"github.com/alevras/tally/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{Level: "info", Pretty: true})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Tally")

	// Ledger database holds the immutable leg history; full synchronous
	// writes because legs are the audit trail everything else derives from.
	ledgerDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "ledger.db"),
		Profile: database.ProfileLedger,
		Name:    "ledger",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open ledger database")
	}
	defer ledgerDB.Close()

	// Cache database holds rebuildable reconciliation snapshots
	cacheDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "cache.db"),
		Profile: database.ProfileCache,
		Name:    "cache",
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open cache database")
	}
	defer cacheDB.Close()

	legRepo := ledger.NewRepository(ledgerDB.Conn(), log)
	if err := legRepo.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize ledger schema")
	}

	snapshotRepo := snapshots.NewRepository(cacheDB.Conn())
	if err := snapshotRepo.InitSchema(); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize snapshot schema")
	}

	bus := events.NewBus(log)

	// Bus consumers: the feed-state tracker backs the system status
	// endpoint, and the ingest subscriptions are the operator-facing
	// audit trail for activity arriving outside the import endpoint.
	feedState := events.NewFeedState()
	bus.Subscribe(events.FeedStateChanged, feedState.Handle)
	bus.Subscribe(events.LegIngested, func(e events.Event) {
		if data, ok := e.Data.(events.LegIngestedData); ok {
			log.Info().
				Str("leg_id", data.LegID).
				Str("agent_id", data.AgentID).
				Str("source", data.Source).
				Msg("Leg ingested")
		}
	})
	bus.Subscribe(events.BatchImported, func(e events.Event) {
		if data, ok := e.Data.(events.BatchImportedData); ok {
			log.Info().
				Str("agent_id", data.AgentID).
				Str("dialect", data.Dialect).
				Int("imported", data.Imported).
				Int("duplicates", data.Duplicates).
				Int("errors", data.Errors).
				Msg("Batch imported")
		}
	})

	ledgerService := ledger.NewService(legRepo, snapshotRepo, bus, cfg.SolRate, log)
	handlers := ledgerhandlers.NewLedgerHandlers(ledgerService, log)

	// Live agent feed (optional)
	var feed *agentfeed.Client
	if cfg.FeedURL != "" {
		feed = agentfeed.NewClient(cfg.FeedURL, cfg.DefaultAgentID, ledgerService, bus, log)
		if err := feed.Start(); err != nil {
			log.Warn().Err(err).Msg("Agent feed unavailable, reconnecting in background")
		}
	} else {
		log.Info().Msg("No feed URL configured, live ingestion disabled")
	}

	// Background reconciliation sweep keeps snapshots fresh even when no
	// writes arrive (crash recovery, clock-dependent staleness).
	sched := scheduler.New(log)
	sweep := scheduler.NewReconcileSweepJob(ledgerService, log)
	if err := sched.AddJob(cfg.SweepSchedule, sweep); err != nil {
		log.Fatal().Err(err).Str("schedule", cfg.SweepSchedule).Msg("Failed to register sweep job")
	}
	sched.Start()

	srv := server.New(server.Config{
		Port:           cfg.Port,
		Log:            log,
		LedgerDB:       ledgerDB,
		CacheDB:        cacheDB,
		Config:         cfg,
		DevMode:        cfg.DevMode,
		LedgerHandlers: handlers,
		Feed:           feedState,
	})

	// Start server in goroutine so shutdown handling below is reached
	go func() {
		if err := srv.Start(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	sched.Stop()

	if feed != nil {
		if err := feed.Stop(); err != nil {
			log.Error().Err(err).Msg("Error stopping agent feed")
		} else {
			log.Info().Msg("Agent feed stopped")
		}
	}

	// Give the HTTP server up to 10 seconds to finish in-flight requests
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

// Package main is the entry point for the Rankforge server.
//
// Rankforge is a durable ranking editor for merchandised product lists. It
// keeps the authoritative edit state in memory, persists every edit to a
// local BadgerDB snapshot before acknowledging it, and replicates the list
// to the remote ranking service behind a debounce and retry schedule. On
// startup it reconciles any snapshot left behind by a crash with the
// server's state and replays unflushed edits.
//
// # Startup order
//
//  1. Configuration: Koanf v2 layered sources (env > config.yaml > defaults)
//  2. Logging: zerolog global logger
//  3. Snapshot store: BadgerDB with synchronous writes
//  4. Ranking service client: HTTP client behind a circuit breaker
//  5. Engine: crash recovery, then debounced replication
//  6. HTTP server: Chi REST API plus /metrics and /healthz
//
// # Configuration
//
// Required:
//   - RANKINGS_API_URL: ranking service base URL
//
// Common:
//   - RANKINGS_API_TOKEN: bearer token for the ranking service
//   - RANKING_LIST_ID: list to edit (default "default")
//   - SNAPSHOT_PATH: BadgerDB directory (default /data/rankforge/snapshots)
//   - ALLOW_INSERT_TO_PUSH_DOWN_RANKINGS: insert shifts occupants (default true)
//   - AUTO_FILL_RANKING_GAPS: renumber to 1..N after edits (default true)
//
// # Signal handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the HTTP server drains
// in-flight requests, the engine stops its timers, and the snapshot store
// flushes and closes. A pending snapshot left on disk is replayed on the
// next start.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/toplist-labs/rankforge/internal/api"
	"github.com/toplist-labs/rankforge/internal/config"
	"github.com/toplist-labs/rankforge/internal/engine"
	"github.com/toplist-labs/rankforge/internal/logging"
	"github.com/toplist-labs/rankforge/internal/model"
	"github.com/toplist-labs/rankforge/internal/replicator"
	"github.com/toplist-labs/rankforge/internal/retry"
	"github.com/toplist-labs/rankforge/internal/snapshot"
)

func main() {
	if err := run(); err != nil {
		logging.Fatal().Err(err).Msg("Rankforge failed to start")
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("ranking_list_id", cfg.Ranking.ListID).
		Str("remote_url", cfg.Remote.URL).
		Msg("Starting Rankforge")

	store, err := snapshot.Open(snapshot.Config{
		Path:         cfg.Snapshot.Path,
		SyncWrites:   cfg.Snapshot.SyncWrites,
		CloseTimeout: cfg.Snapshot.CloseTimeout,
	})
	if err != nil {
		return fmt.Errorf("open snapshot store: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logging.Error().Err(err).Msg("Snapshot store close failed")
		}
	}()

	var remote replicator.Remote = replicator.NewClient(cfg.Remote.URL, cfg.Remote.AuthToken)
	if !cfg.Remote.BreakerDisabled {
		remote = replicator.NewBreakerClient(remote, replicator.BreakerSettings{})
	}

	eng := engine.New(engineConfig(cfg), store, remote)
	defer eng.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := eng.Start(ctx); err != nil {
		return fmt.Errorf("engine recovery: %w", err)
	}
	logging.Info().
		Int("rankings", len(eng.RankedProductIDs())).
		Int("slots", eng.SlotCount()).
		Msg("Engine ready")

	router := api.NewRouter(eng, store, cfg.Server.Timeout)
	server := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logging.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	logging.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logging.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	return nil
}

func engineConfig(cfg *config.Config) engine.Config {
	retryOpts := retry.DefaultOptions()
	retryOpts.MaxRetries = cfg.Ranking.SaveRetries
	retryOpts.InitialDelay = cfg.Ranking.RetryInitialDelay
	retryOpts.MaxDelay = cfg.Ranking.RetryMaxDelay

	return engine.Config{
		RankingListID:   cfg.Ranking.ListID,
		Debounce:        cfg.Ranking.Debounce,
		Retry:           retryOpts,
		BackgroundRetry: cfg.Ranking.BackgroundRetry,
		SavedIdle:       cfg.Ranking.SavedIdle,
		MaxRankable:     cfg.Ranking.MaxRankable,
		Flags: model.Flags{
			PushDownOnInsert: cfg.Ranking.PushDownOnInsert,
			FillGaps:         cfg.Ranking.FillGaps,
		},
	}
}

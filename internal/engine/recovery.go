// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package engine

import (
	"context"
	"fmt"

	"github.com/toplist-labs/rankforge/internal/logging"
	"github.com/toplist-labs/rankforge/internal/metrics"
	"github.com/toplist-labs/rankforge/internal/model"
	"github.com/toplist-labs/rankforge/internal/snapshot"
)

// Start runs crash recovery and hydrates the list. It blocks until the
// list is usable: either reconciled with the server or, when the server is
// unreachable but a snapshot exists, serving the snapshot offline with a
// background retry armed.
//
// Recovery resolves a snapshot/server conflict by cardinality. Rankings
// are only ever lost by explicit removal, so the side holding more entries
// is the one that saw the most recent completed edit; on a tie the
// snapshot wins because it is by construction at least as new as the last
// confirmed save.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	e.ctx = ctx
	e.cancel = cancel
	e.loading = true
	e.mu.Unlock()

	err := e.recover(ctx)

	e.mu.Lock()
	e.loading = false
	e.mu.Unlock()
	return err
}

func (e *Engine) recover(ctx context.Context) error {
	snap := e.latestSnapshot(ctx)

	server, loadErr := e.remote.Load(ctx, e.cfg.RankingListID)
	if loadErr != nil {
		if snap == nil {
			metrics.RecoveryRuns.WithLabelValues("load_failed").Inc()
			return fmt.Errorf("load rankings: %w", loadErr)
		}

		// Offline start: serve the snapshot and keep trying to push it.
		e.mu.Lock()
		if err := e.list.Hydrate(snap.Rankings); err != nil {
			e.mu.Unlock()
			metrics.RecoveryRuns.WithLabelValues("load_failed").Inc()
			return fmt.Errorf("hydrate snapshot: %w", err)
		}
		e.dirty = true
		e.status = SaveStatus{State: StateError, Err: loadErr}
		e.scheduleBackgroundRetryLocked()
		e.notifyStatusLocked()
		e.mu.Unlock()

		metrics.RecoveryRuns.WithLabelValues("offline").Inc()
		logging.Warn().
			Err(loadErr).
			Int("rankings", len(snap.Rankings)).
			Msg("Server unreachable on startup, serving snapshot offline")
		return nil
	}

	chosen := server
	fromSnapshot := false
	if snap != nil && len(snap.Rankings) >= len(server) {
		chosen = snap.Rankings
		fromSnapshot = true
	}

	e.mu.Lock()
	if err := e.list.Hydrate(chosen); err != nil {
		if !fromSnapshot {
			e.mu.Unlock()
			metrics.RecoveryRuns.WithLabelValues("hydrate_failed").Inc()
			return fmt.Errorf("hydrate rankings: %w", err)
		}
		// Unusable snapshot; the server state is still good.
		logging.Warn().Err(err).Msg("Snapshot unusable, falling back to server state")
		fromSnapshot = false
		if err := e.list.Hydrate(server); err != nil {
			e.mu.Unlock()
			metrics.RecoveryRuns.WithLabelValues("hydrate_failed").Inc()
			return fmt.Errorf("hydrate rankings: %w", err)
		}
	}
	canonical := e.list.Entries()
	e.mu.Unlock()

	if fromSnapshot && !model.EntriesEqual(canonical, server) {
		logging.Info().
			Int("snapshot_rankings", len(canonical)).
			Int("server_rankings", len(server)).
			Msg("Replaying unflushed snapshot to server")

		if err := e.push(ctx, canonical); err != nil {
			// Snapshot stays on disk; the next attempt replays it.
			e.mu.Lock()
			e.dirty = true
			e.status = SaveStatus{State: StateError, Err: err}
			e.scheduleBackgroundRetryLocked()
			e.notifyStatusLocked()
			e.mu.Unlock()

			metrics.RecoveryRuns.WithLabelValues("replay_failed").Inc()
			logging.Error().Err(err).Msg("Snapshot replay failed, background retry armed")
			return nil
		}
		metrics.RecoveryRuns.WithLabelValues("replayed").Inc()
	} else {
		metrics.RecoveryRuns.WithLabelValues("in_sync").Inc()
	}

	// One consolidated confirmation regardless of how many legacy rows
	// the store collapsed. A start with no snapshot completed no save,
	// so nothing fires and the status stays idle.
	if snap != nil {
		e.confirmSaved(canonical)
	}
	return nil
}

// latestSnapshot returns the newest snapshot row for the list, or nil.
// More than one row means legacy per-edit rows survived migration; the
// highest timestamp wins, current_state on ties.
func (e *Engine) latestSnapshot(ctx context.Context) *snapshot.Snapshot {
	snaps, err := e.store.List(ctx, e.cfg.RankingListID)
	if err != nil {
		logging.Warn().Err(err).Msg("Snapshot store unreadable during recovery")
		return nil
	}
	var best *snapshot.Snapshot
	for _, s := range snaps {
		if best == nil || s.Timestamp > best.Timestamp ||
			(s.Timestamp == best.Timestamp && s.SnapshotID == snapshot.CurrentStateID) {
			best = s
		}
	}
	return best
}

// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

// Package engine ties the ranking list model to durable snapshot
// persistence and debounced remote replication.
//
// Every mutation follows the same write pipeline: apply to the in-memory
// list, persist a snapshot synchronously, then arm (or re-arm) the
// debounce timer. The remote save happens off the caller's goroutine once
// the edit burst settles. A snapshot is deleted only after the server
// confirms a save that covers it, so a crash at any point leaves either a
// confirmed server state or a pending snapshot to replay.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/toplist-labs/rankforge/internal/logging"
	"github.com/toplist-labs/rankforge/internal/metrics"
	"github.com/toplist-labs/rankforge/internal/model"
	"github.com/toplist-labs/rankforge/internal/reconcile"
	"github.com/toplist-labs/rankforge/internal/replicator"
	"github.com/toplist-labs/rankforge/internal/retry"
	"github.com/toplist-labs/rankforge/internal/snapshot"
)

var (
	// ErrEngineClosed is returned by operations after Close.
	ErrEngineClosed = errors.New("engine is closed")

	// ErrUnsavedChanges is returned by Refresh while local edits are
	// still pending replication; refreshing would discard them.
	ErrUnsavedChanges = errors.New("unsaved local changes pending")
)

// Config tunes the engine. Durations are production defaults sized for a
// human editing cadence; tests shrink them.
type Config struct {
	// RankingListID scopes snapshots and remote calls to one list.
	RankingListID string

	// Debounce is the quiet period after the last edit before a save.
	Debounce time.Duration

	// Retry is the in-schedule retry policy for remote saves.
	Retry retry.Options

	// BackgroundRetry is the interval between save attempts after the
	// in-schedule retries are exhausted.
	BackgroundRetry time.Duration

	// SavedIdle is how long the saved confirmation stays visible before
	// the status reverts to idle.
	SavedIdle time.Duration

	// MaxRankable caps ranks at the catalog size. Zero means unknown.
	MaxRankable int

	// Flags select the insert and gap policies.
	Flags model.Flags
}

// DefaultConfig returns the production tuning for a list.
func DefaultConfig(rankingListID string) Config {
	return Config{
		RankingListID:   rankingListID,
		Debounce:        800 * time.Millisecond,
		Retry:           retry.DefaultOptions(),
		BackgroundRetry: 5 * time.Second,
		SavedIdle:       2 * time.Second,
		Flags:           model.DefaultFlags(),
	}
}

// Engine owns the ranking list and its replication lifecycle. All exported
// methods are safe for concurrent use; internally a single mutex serializes
// every state transition, so observers always see a consistent list.
type Engine struct {
	cfg    Config
	store  snapshot.Store
	remote replicator.Remote

	mu      sync.Mutex
	list    *model.List
	status  SaveStatus
	loading bool
	closed  bool

	// dirty is true while a snapshot exists that the server has not
	// confirmed.
	dirty bool

	// gen counts mutations; a save captured at one gen is stale if gen
	// moved before it completed.
	gen uint64

	// saving guards against concurrent save goroutines; rearm records
	// that a flush fired mid-save and another pass is owed.
	saving bool
	rearm  bool

	debounceTimer *time.Timer
	bgTimer       *time.Timer
	savedTimer    *time.Timer

	ctx    context.Context
	cancel context.CancelFunc

	onSaveComplete func(rankings []model.RankingEntry)
	onStatusChange func(SaveStatus)
}

// New creates an engine over the given store and remote. Call Start before
// mutating; it runs crash recovery and hydrates the list.
func New(cfg Config, store snapshot.Store, remote replicator.Remote) *Engine {
	list := model.NewList(cfg.Flags)
	if cfg.MaxRankable > 0 {
		list.SetMaxRankable(cfg.MaxRankable)
	}
	return &Engine{
		cfg:    cfg,
		store:  store,
		remote: remote,
		list:   list,
		status: SaveStatus{State: StateIdle},
		ctx:    context.Background(),
		cancel: func() {},
	}
}

// OnSaveComplete registers a callback fired once per confirmed save with
// the rankings that were saved. Recovery fires it exactly once regardless
// of how many snapshot rows it consolidated.
func (e *Engine) OnSaveComplete(fn func(rankings []model.RankingEntry)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onSaveComplete = fn
}

// OnStatusChange registers a callback fired on every save status
// transition. The callback runs without the engine lock held.
func (e *Engine) OnStatusChange(fn func(SaveStatus)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.onStatusChange = fn
}

// Close stops timers and prevents further mutations. An in-flight save is
// cancelled through the engine context.
func (e *Engine) Close() {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}
	e.closed = true
	stopTimer(&e.debounceTimer)
	stopTimer(&e.bgTimer)
	stopTimer(&e.savedTimer)
	cancel := e.cancel
	e.mu.Unlock()
	cancel()
}

// AddOrMove inserts a product at targetRank or moves it there, and returns
// the rank the product actually occupies after the configured policies run.
func (e *Engine) AddOrMove(p model.Product, targetRank int) (int, error) {
	var assigned int
	err := e.mutate("add_or_move", func() error {
		var err error
		assigned, err = e.list.AddOrMove(p, targetRank)
		return err
	})
	return assigned, err
}

// Remove deletes a product from the list.
func (e *Engine) Remove(productID string) error {
	return e.mutate("remove", func() error {
		return e.list.Remove(productID)
	})
}

// Reorder moves the entry at fromIndex to the rank held by the entry at
// toIndex, with the same push-down semantics as AddOrMove.
func (e *Engine) Reorder(fromIndex, toIndex int) error {
	return e.mutate("reorder", func() error {
		return e.list.Reorder(fromIndex, toIndex)
	})
}

// Replace puts a product at the given rank, evicting whatever held it.
func (e *Engine) Replace(p model.Product, rank int) (int, error) {
	var assigned int
	err := e.mutate("replace", func() error {
		var err error
		assigned, err = e.list.Replace(p, rank)
		return err
	})
	return assigned, err
}

// ClearAll empties the list. The replicated save clears the server's list
// as well.
func (e *Engine) ClearAll() error {
	return e.mutate("clear_all", func() error {
		e.list.ClearAll()
		return nil
	})
}

// SetMaxRankable updates the catalog bound; ranks and slots re-clamp. Not
// a ranking edit, so nothing is persisted or replicated unless entries
// actually moved.
func (e *Engine) SetMaxRankable(n int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	before := e.list.Entries()
	e.list.SetMaxRankable(n)
	if !model.EntriesEqual(before, e.list.Entries()) {
		e.gen++
		e.persistLocked()
		e.resetDebounceLocked()
	}
}

// RankedProducts returns the entries in rank order.
func (e *Engine) RankedProducts() []model.RankingEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.list.Entries()
}

// RankedProductIDs returns product ids in rank order.
func (e *Engine) RankedProductIDs() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.list.ProductIDs()
}

// SlotView returns the slot projection for grid rendering.
func (e *Engine) SlotView() []model.Slot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.list.SlotView()
}

// SlotCount returns the current slot capacity.
func (e *Engine) SlotCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.list.SlotCount()
}

// MaxRankable returns the catalog bound, zero when unknown.
func (e *Engine) MaxRankable() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.list.MaxRankable()
}

// SaveStatus returns the current save pipeline status.
func (e *Engine) SaveStatus() SaveStatus {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// IsLoading reports whether startup recovery is still running.
func (e *Engine) IsLoading() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.loading
}

// Dirty reports whether local edits exist that the server has not
// confirmed.
func (e *Engine) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dirty
}

// Refresh replaces the local list with the server's, discarding nothing:
// it refuses to run while unsaved local changes are pending.
func (e *Engine) Refresh(ctx context.Context) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if e.dirty || e.saving {
		e.mu.Unlock()
		return ErrUnsavedChanges
	}
	e.mu.Unlock()

	server, err := e.remote.Load(ctx, e.cfg.RankingListID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dirty {
		// An edit raced the load; its state wins.
		return ErrUnsavedChanges
	}
	return e.list.Hydrate(server)
}

// ForceResync diffs the local id set against the server and, when apply is
// set and drift exists, pushes the local list as the authoritative state.
func (e *Engine) ForceResync(ctx context.Context, apply bool) (*reconcile.Report, error) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return nil, ErrEngineClosed
	}
	ids := e.list.ProductIDs()
	payload := e.list.Entries()
	e.mu.Unlock()

	report, err := e.remote.Reconcile(ctx, ids)
	if err != nil {
		return nil, err
	}
	if !apply || report.State == reconcile.StateInSync {
		return report, nil
	}

	if err := e.push(ctx, payload); err != nil {
		return report, err
	}
	e.confirmSaved(payload)
	return report, nil
}

// mutate runs one edit through the write pipeline.
func (e *Engine) mutate(op string, fn func() error) error {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return ErrEngineClosed
	}
	if err := fn(); err != nil {
		e.mu.Unlock()
		return err
	}
	e.gen++
	e.dirty = true
	metrics.Mutations.WithLabelValues(op).Inc()
	e.persistLocked()
	e.resetDebounceLocked()
	e.mu.Unlock()
	return nil
}

// persistLocked writes the current list as the durable snapshot. A storage
// failure surfaces through the save status but does not block the edit: the
// in-memory list still drives the remote save, only crash protection is
// degraded. The debounced save's saving transition supersedes the error.
func (e *Engine) persistLocked() {
	snap := snapshot.New(e.cfg.RankingListID, e.list.Entries())
	if err := e.store.Put(e.ctx, snap); err != nil {
		logging.Error().
			Err(err).
			Str("ranking_list_id", e.cfg.RankingListID).
			Msg("Snapshot persist failed; edit is not crash-safe")
		e.status = SaveStatus{State: StateError, Err: err}
		e.notifyStatusLocked()
	}
}

// resetDebounceLocked arms the debounce timer, superseding any pending
// flush or background retry.
func (e *Engine) resetDebounceLocked() {
	stopTimer(&e.bgTimer)
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
		metrics.DebounceResets.Inc()
	}
	e.debounceTimer = time.AfterFunc(e.cfg.Debounce, e.flush)
}

// flush starts a save for the current list, or defers if one is in
// flight; the running save re-arms itself when it finds newer edits.
func (e *Engine) flush() {
	e.mu.Lock()
	if e.closed || e.loading {
		e.mu.Unlock()
		return
	}
	if e.saving {
		e.rearm = true
		e.mu.Unlock()
		return
	}
	e.saving = true
	payload := e.list.Entries()
	gen := e.gen
	e.mu.Unlock()

	go e.runSave(payload, gen)
}

// runSave pushes one captured payload through the retry schedule and
// settles the outcome.
func (e *Engine) runSave(payload []model.RankingEntry, gen uint64) {
	e.setStatus(SaveStatus{State: StateSaving})

	start := time.Now()
	err := e.push(e.ctx, payload)
	metrics.SaveDuration.Observe(time.Since(start).Seconds())

	e.mu.Lock()
	e.saving = false

	if e.closed {
		e.mu.Unlock()
		return
	}

	if err != nil {
		metrics.SaveAttempts.WithLabelValues("failure").Inc()
		logging.Error().
			Err(err).
			Int("rankings", len(payload)).
			Msg("Remote save failed; scheduling background retry")
		e.status = SaveStatus{State: StateError, Err: err}
		e.scheduleBackgroundRetryLocked()
		e.notifyStatusLocked()
		e.mu.Unlock()
		return
	}

	metrics.SaveAttempts.WithLabelValues("success").Inc()

	if e.gen != gen || e.rearm {
		e.rearm = false
		if !model.EntriesEqual(e.list.Entries(), payload) {
			// Newer edits changed the content mid-save; their
			// snapshot stands and a fresh debounced save follows.
			e.resetDebounceLocked()
			e.mu.Unlock()
			return
		}
		// The edits cancelled out; the save covers the current state.
	}
	e.mu.Unlock()

	e.confirmSaved(payload)
}

// push performs the remote call with the in-schedule retry policy. An
// empty payload clears the server list instead of saving nothing.
func (e *Engine) push(ctx context.Context, payload []model.RankingEntry) error {
	opts := e.cfg.Retry
	opts.ShouldRetry = replicator.IsRetryable
	opts.OnRetry = func(attempt int, delay time.Duration, err error) {
		metrics.SaveRetries.Inc()
		logging.Warn().
			Err(err).
			Int("retry", attempt+1).
			Dur("delay", delay).
			Msg("Remote save attempt failed, retrying")
		e.setStatus(SaveStatus{State: StateSaving, Attempt: attempt + 1})
	}

	return retry.Do(ctx, func(ctx context.Context) error {
		if len(payload) == 0 {
			return e.remote.Clear(ctx, e.cfg.RankingListID)
		}
		return e.remote.Save(ctx, e.cfg.RankingListID, payload)
	}, opts)
}

// confirmSaved settles a confirmed save: the snapshot is redundant, the
// status shows the confirmation briefly, listeners fire once.
func (e *Engine) confirmSaved(rankings []model.RankingEntry) {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return
	}

	if err := e.store.ClearAll(e.ctx, e.cfg.RankingListID); err != nil {
		// Stale but harmless; recovery replays it as a no-op.
		logging.Warn().Err(err).Msg("Failed to clear confirmed snapshot")
	} else {
		metrics.SnapshotsPending.Set(0)
	}
	e.dirty = false

	e.status = SaveStatus{State: StateSaved, SavedCount: len(rankings)}
	stopTimer(&e.savedTimer)
	e.savedTimer = time.AfterFunc(e.cfg.SavedIdle, func() {
		e.mu.Lock()
		if e.status.State == StateSaved {
			e.status = SaveStatus{State: StateIdle}
			e.notifyStatusLocked()
			e.mu.Unlock()
			return
		}
		e.mu.Unlock()
	})

	cb := e.onSaveComplete
	e.notifyStatusLocked()
	e.mu.Unlock()

	if cb != nil {
		cb(rankings)
	}
}

// scheduleBackgroundRetryLocked arms the post-exhaustion retry cycle. Any
// new edit supersedes it through resetDebounceLocked.
func (e *Engine) scheduleBackgroundRetryLocked() {
	stopTimer(&e.bgTimer)
	e.bgTimer = time.AfterFunc(e.cfg.BackgroundRetry, func() {
		metrics.BackgroundRetries.Inc()
		e.flush()
	})
}

func (e *Engine) setStatus(s SaveStatus) {
	e.mu.Lock()
	e.status = s
	e.notifyStatusLocked()
	e.mu.Unlock()
}

// notifyStatusLocked snapshots the callback and status under the lock and
// fires the callback on its own goroutine so listeners can call back into
// the engine.
func (e *Engine) notifyStatusLocked() {
	if e.onStatusChange == nil {
		return
	}
	fn := e.onStatusChange
	s := e.status
	go fn(s)
}

func stopTimer(t **time.Timer) {
	if *t != nil {
		(*t).Stop()
		*t = nil
	}
}

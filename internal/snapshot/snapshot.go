// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

// Package snapshot implements the durable snapshot store: a single-key,
// crash-safe record of the current ranking list, persisted to BadgerDB
// before any remote save is attempted. One snapshot exists per ranking list;
// writes are upserts under the constant id "current_state", so only the
// latest edit survives. Recovery reads it back after a crash and replays the
// unflushed state to the server.
package snapshot

import (
	"context"
	"fmt"
	"time"

	"github.com/toplist-labs/rankforge/internal/model"
)

// CurrentStateID is the one authoritative snapshot id. Earlier releases
// wrote one row per edit keyed by UUID; those rows are collapsed to this id
// on startup.
const CurrentStateID = "current_state"

// SchemaVersion identifies the store layout. A bump implies a migration on
// open.
const SchemaVersion = 1

// StatusPending marks a snapshot awaiting a confirmed remote save.
const StatusPending = "pending"

// Snapshot is the durable record of an unflushed ranking list.
type Snapshot struct {
	SnapshotID    string               `json:"snapshotId"`
	Rankings      []model.RankingEntry `json:"rankings"`
	RankingListID string               `json:"rankingListId"`

	// Timestamp is epoch milliseconds of the write; readers pick the
	// highest when legacy rows coexist.
	Timestamp int64 `json:"timestamp"`

	Status      string `json:"status"`
	RetryCount  int    `json:"retryCount"`
	LastAttempt int64  `json:"lastAttempt,omitempty"`
}

// Store is the durable snapshot contract consumed by the edit engine.
type Store interface {
	// Put upserts the snapshot by SnapshotID; atomic with respect to
	// crashes. Once Put returns nil the snapshot survives process
	// termination.
	Put(ctx context.Context, snap *Snapshot) error

	// GetCurrent returns the lone snapshot for the list, or
	// ErrSnapshotNotFound.
	GetCurrent(ctx context.Context, rankingListID string) (*Snapshot, error)

	// Clear deletes one snapshot by id.
	Clear(ctx context.Context, rankingListID, snapshotID string) error

	// ClearAll deletes every snapshot for the list, legacy rows included.
	ClearAll(ctx context.Context, rankingListID string) error

	// List returns all snapshots for the list, for recovery inspection.
	// More than one result means legacy per-edit rows survived migration
	// and the caller should prefer the highest timestamp.
	List(ctx context.Context, rankingListID string) ([]*Snapshot, error)
}

// Errors
var (
	// ErrStoreClosed is returned when the store has been closed.
	ErrStoreClosed = fmt.Errorf("snapshot store is closed")

	// ErrSnapshotNotFound is returned when no snapshot exists for a list.
	ErrSnapshotNotFound = fmt.Errorf("snapshot not found")

	// ErrNilSnapshot is returned when a nil snapshot is passed to Put.
	ErrNilSnapshot = fmt.Errorf("snapshot cannot be nil")
)

// StorageError wraps a durable-store failure. The engine reports it via
// SaveStatus but still schedules the remote save; in-memory state is the
// fallback.
type StorageError struct {
	Op  string
	Err error
}

// Error implements the error interface.
func (e *StorageError) Error() string {
	return fmt.Sprintf("snapshot store %s: %v", e.Op, e.Err)
}

// Unwrap supports errors.Is/As.
func (e *StorageError) Unwrap() error {
	return e.Err
}

// Validate rejects malformed snapshots before they reach disk: a missing
// rankings slice, an entry without a product id, or a non-positive rank.
func (s *Snapshot) Validate() error {
	if s.RankingListID == "" {
		return fmt.Errorf("snapshot has no ranking list id")
	}
	if s.Rankings == nil {
		return fmt.Errorf("snapshot rankings missing")
	}
	for i := range s.Rankings {
		e := &s.Rankings[i]
		if e.Product.ProductID == "" {
			return fmt.Errorf("snapshot entry %d has no product id", i)
		}
		if e.Rank < 1 {
			return fmt.Errorf("snapshot entry %q has invalid rank %d", e.Product.ProductID, e.Rank)
		}
	}
	return nil
}

// New builds a pending snapshot of the given rankings, stamped now.
func New(rankingListID string, rankings []model.RankingEntry) *Snapshot {
	if rankings == nil {
		rankings = []model.RankingEntry{}
	}
	return &Snapshot{
		SnapshotID:    CurrentStateID,
		Rankings:      rankings,
		RankingListID: rankingListID,
		Timestamp:     time.Now().UnixMilli(),
		Status:        StatusPending,
	}
}

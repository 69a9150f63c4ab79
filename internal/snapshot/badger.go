// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/toplist-labs/rankforge/internal/logging"
	"github.com/toplist-labs/rankforge/internal/metrics"
)

// Key layout: snapshot:<rankingListID>:<snapshotID>, with "%" and ":" in
// the list id percent-escaped so one list's prefix scan can never match
// another's rows. Legacy releases wrote one row per edit with a UUID
// snapshot id under the same prefix.
const keyPrefix = "snapshot:"

const schemaKey = "meta:schema_version"

// Config holds BadgerStore tuning.
type Config struct {
	// Path is the BadgerDB directory.
	Path string

	// SyncWrites forces fsync on every upsert. On by default: the write
	// pipeline acknowledges the edit only after the snapshot is durable.
	SyncWrites bool

	// CloseTimeout bounds how long Close waits for BadgerDB.
	CloseTimeout time.Duration
}

// DefaultConfig returns production defaults for the given path.
func DefaultConfig(path string) Config {
	return Config{
		Path:         path,
		SyncWrites:   true,
		CloseTimeout: 30 * time.Second,
	}
}

// BadgerStore implements Store on BadgerDB. It is safe for concurrent use;
// in practice one engine per ranking list is the only writer.
type BadgerStore struct {
	db     *badger.DB
	config Config

	mu     sync.RWMutex
	closed bool
}

var _ Store = (*BadgerStore)(nil)

// Open opens (or creates) the store at cfg.Path and runs the legacy-row
// migration: any per-edit UUID rows left by earlier releases are collapsed
// to one "current_state" row per list, keeping the highest timestamp. The
// migration is idempotent.
func Open(cfg Config) (*BadgerStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("snapshot store path is required")
	}

	opts := badger.DefaultOptions(cfg.Path)
	opts.SyncWrites = cfg.SyncWrites
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open BadgerDB: %w", err)
	}

	s := &BadgerStore{db: db, config: cfg}

	if err := s.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate snapshot store: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("sync_writes", cfg.SyncWrites).
		Msg("snapshot store opened")
	return s, nil
}

// Put upserts the snapshot under its id. A zero timestamp is stamped with
// the current wall clock so readers always see the latest write win.
func (s *BadgerStore) Put(ctx context.Context, snap *Snapshot) error {
	start := time.Now()
	defer func() {
		metrics.SnapshotWriteLatency.Observe(time.Since(start).Seconds())
	}()

	if err := s.checkOpen(); err != nil {
		return err
	}
	if snap == nil {
		return ErrNilSnapshot
	}
	if snap.SnapshotID == "" {
		snap.SnapshotID = CurrentStateID
	}
	if err := snap.Validate(); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	if snap.Timestamp == 0 {
		snap.Timestamp = time.Now().UnixMilli()
	}
	if snap.Status == "" {
		snap.Status = StatusPending
	}

	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := snapshotKey(snap.RankingListID, snap.SnapshotID)
	err = s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, data)
	})
	if err != nil {
		return &StorageError{Op: "put", Err: err}
	}

	metrics.SnapshotWrites.Inc()
	return nil
}

// GetCurrent returns the authoritative snapshot for the list. If legacy
// rows somehow coexist, the one with the highest timestamp wins.
func (s *BadgerStore) GetCurrent(ctx context.Context, rankingListID string) (*Snapshot, error) {
	snaps, err := s.List(ctx, rankingListID)
	if err != nil {
		return nil, err
	}
	if len(snaps) == 0 {
		return nil, ErrSnapshotNotFound
	}
	return latest(snaps), nil
}

// Clear deletes one snapshot row. Deleting a missing row is not an error.
func (s *BadgerStore) Clear(ctx context.Context, rankingListID, snapshotID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	err := s.db.Update(func(txn *badger.Txn) error {
		err := txn.Delete(snapshotKey(rankingListID, snapshotID))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		return err
	})
	if err != nil {
		return &StorageError{Op: "clear", Err: err}
	}

	metrics.SnapshotClears.Inc()
	return nil
}

// ClearAll deletes every snapshot row for the list.
func (s *BadgerStore) ClearAll(ctx context.Context, rankingListID string) error {
	if err := s.checkOpen(); err != nil {
		return err
	}

	prefix := listPrefix(rankingListID)
	err := s.db.Update(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.IteratorOptions{Prefix: prefix})
		defer it.Close()

		var keys [][]byte
		for it.Rewind(); it.Valid(); it.Next() {
			keys = append(keys, it.Item().KeyCopy(nil))
		}
		for _, k := range keys {
			if err := txn.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return &StorageError{Op: "clear_all", Err: err}
	}
	return nil
}

// List returns all snapshots stored for the list, legacy rows included.
func (s *BadgerStore) List(ctx context.Context, rankingListID string) ([]*Snapshot, error) {
	if err := s.checkOpen(); err != nil {
		return nil, err
	}

	var snaps []*Snapshot
	prefix := listPrefix(rankingListID)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}

			item := it.Item()
			var snap Snapshot
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &snap)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("snapshot store: skipping unreadable row")
				continue
			}
			snaps = append(snaps, &snap)
		}
		return nil
	})
	if err != nil {
		return nil, &StorageError{Op: "list", Err: err}
	}

	metrics.SnapshotsPending.Set(float64(len(snaps)))
	return snaps, nil
}

// Stats describes store contents for health reporting.
type Stats struct {
	SnapshotCount int   `json:"snapshotCount"`
	DBSizeBytes   int64 `json:"dbSizeBytes"`
}

// Stats returns row count and estimated database size.
func (s *BadgerStore) Stats() Stats {
	if err := s.checkOpen(); err != nil {
		return Stats{}
	}

	var count int
	if err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	}); err != nil {
		logging.Warn().Err(err).Msg("snapshot store: stats count failed")
	}

	lsm, vlog := s.db.Size()
	return Stats{SnapshotCount: count, DBSizeBytes: lsm + vlog}
}

// Close shuts the store down, bounded by CloseTimeout.
func (s *BadgerStore) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	timeout := s.config.CloseTimeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	s.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		done <- s.db.Close()
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("close BadgerDB: %w", err)
		}
		logging.Info().Msg("snapshot store closed")
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("badgerdb close timeout after %v", timeout)
	}
}

// migrate collapses legacy per-edit rows to one current_state row per list
// and stamps the schema version. Running it against an already-migrated
// store is a no-op.
func (s *BadgerStore) migrate(ctx context.Context) error {
	type row struct {
		key  []byte
		snap *Snapshot
	}
	byList := make(map[string][]row)

	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(keyPrefix)
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			var snap Snapshot
			err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &snap)
			})
			if err != nil {
				logging.Warn().Err(err).Str("key", string(item.Key())).Msg("snapshot migration: skipping unreadable row")
				continue
			}
			byList[snap.RankingListID] = append(byList[snap.RankingListID], row{
				key:  item.KeyCopy(nil),
				snap: &snap,
			})
		}
		return nil
	})
	if err != nil {
		return err
	}

	for listID, rows := range byList {
		if len(rows) == 1 && rows[0].snap.SnapshotID == CurrentStateID {
			continue
		}

		snaps := make([]*Snapshot, len(rows))
		for i, r := range rows {
			snaps[i] = r.snap
		}
		winner := latest(snaps)
		logging.Info().
			Str("ranking_list_id", listID).
			Int("legacy_rows", len(rows)).
			Int64("kept_timestamp", winner.Timestamp).
			Msg("snapshot migration: collapsing legacy rows")

		err := s.db.Update(func(txn *badger.Txn) error {
			// Delete by the stored key: rows written before list ids
			// were escaped do not round-trip through snapshotKey.
			for _, r := range rows {
				if err := txn.Delete(r.key); err != nil &&
					!errors.Is(err, badger.ErrKeyNotFound) {
					return err
				}
			}

			winner.SnapshotID = CurrentStateID
			data, err := json.Marshal(winner)
			if err != nil {
				return fmt.Errorf("marshal migrated snapshot: %w", err)
			}
			return txn.Set(snapshotKey(listID, CurrentStateID), data)
		})
		if err != nil {
			return fmt.Errorf("collapse rows for list %s: %w", listID, err)
		}
		metrics.SnapshotMigratedRows.Add(float64(len(rows) - 1))
	}

	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(schemaKey), []byte(fmt.Sprintf("%d", SchemaVersion)))
	})
}

func (s *BadgerStore) checkOpen() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrStoreClosed
	}
	return nil
}

// latest returns the snapshot with the highest timestamp, preferring the
// current_state row on ties.
func latest(snaps []*Snapshot) *Snapshot {
	winner := snaps[0]
	for _, snap := range snaps[1:] {
		if snap.Timestamp > winner.Timestamp ||
			(snap.Timestamp == winner.Timestamp && snap.SnapshotID == CurrentStateID) {
			winner = snap
		}
	}
	return winner
}

// escapeListID makes a list id safe for the colon-delimited key layout.
// "%" must be escaped first so the escaping is unambiguous.
func escapeListID(rankingListID string) string {
	escaped := strings.ReplaceAll(rankingListID, "%", "%25")
	return strings.ReplaceAll(escaped, ":", "%3A")
}

func snapshotKey(rankingListID, snapshotID string) []byte {
	return []byte(keyPrefix + escapeListID(rankingListID) + ":" + snapshotID)
}

func listPrefix(rankingListID string) []byte {
	return []byte(keyPrefix + escapeListID(rankingListID) + ":")
}

// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

// Package config holds all application configuration loaded from
// environment variables and config files.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: Built-in sensible defaults for all optional settings
//  2. Config File: Optional YAML config file (config.yaml)
//  3. Environment Variables: Override any setting
//
// Config is immutable after Load and safe for concurrent reads.
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Remote   RemoteConfig   `koanf:"remote"`
	Ranking  RankingConfig  `koanf:"ranking"`
	Snapshot SnapshotConfig `koanf:"snapshot"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig tunes the local HTTP API.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// RemoteConfig points at the ranking service.
type RemoteConfig struct {
	// URL is the ranking service base URL.
	URL string `koanf:"url"`

	// AuthToken is the opaque bearer token sent with every request.
	// Session acquisition is outside this program's scope.
	AuthToken string `koanf:"auth_token"`

	// BreakerDisabled bypasses the circuit breaker; useful in tests.
	BreakerDisabled bool `koanf:"breaker_disabled"`
}

// RankingConfig tunes the edit engine.
type RankingConfig struct {
	// ListID identifies the ranking list this instance edits.
	ListID string `koanf:"list_id"`

	// MaxRankable caps ranks at the catalog size. Zero means unknown.
	MaxRankable int `koanf:"max_rankable"`

	// Debounce is the quiet period after the last edit before a save.
	Debounce time.Duration `koanf:"debounce"`

	// SaveRetries is the number of retries after the first failed save.
	SaveRetries int `koanf:"save_retries"`

	// RetryInitialDelay is the wait before the first retry; it doubles
	// each attempt up to RetryMaxDelay.
	RetryInitialDelay time.Duration `koanf:"retry_initial_delay"`
	RetryMaxDelay     time.Duration `koanf:"retry_max_delay"`

	// BackgroundRetry is the interval between save attempts after the
	// retry schedule is exhausted.
	BackgroundRetry time.Duration `koanf:"background_retry"`

	// SavedIdle is how long the saved confirmation stays visible.
	SavedIdle time.Duration `koanf:"saved_idle"`

	// PushDownOnInsert makes inserting at an occupied rank shift the
	// contiguous run below it instead of replacing the occupant.
	PushDownOnInsert bool `koanf:"push_down_on_insert"`

	// FillGaps renumbers the list to 1..N after every mutation.
	FillGaps bool `koanf:"fill_gaps"`
}

// SnapshotConfig tunes the durable snapshot store.
type SnapshotConfig struct {
	// Path is the Badger database directory.
	Path string `koanf:"path"`

	// SyncWrites fsyncs every write. Disabling trades the durability
	// guarantee for throughput.
	SyncWrites bool `koanf:"sync_writes"`

	// CloseTimeout bounds the shutdown flush.
	CloseTimeout time.Duration `koanf:"close_timeout"`
}

// LoggingConfig tunes structured logging.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// defaultConfig returns a Config with all defaults. These are applied
// first, then overridden by the config file and env vars.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8487,
			Timeout: 30 * time.Second,
		},
		Remote: RemoteConfig{
			URL:             "",
			AuthToken:       "",
			BreakerDisabled: false,
		},
		Ranking: RankingConfig{
			ListID:            "default",
			MaxRankable:       0,
			Debounce:          800 * time.Millisecond,
			SaveRetries:       3,
			RetryInitialDelay: time.Second,
			RetryMaxDelay:     30 * time.Second,
			BackgroundRetry:   5 * time.Second,
			SavedIdle:         2 * time.Second,
			PushDownOnInsert:  true,
			FillGaps:          true,
		},
		Snapshot: SnapshotConfig{
			Path:         "/data/rankforge/snapshots",
			SyncWrites:   true,
			CloseTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

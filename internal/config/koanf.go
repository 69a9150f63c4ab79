// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in order. The
// first file found wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/rankforge/config.yaml",
	"/etc/rankforge/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// Load builds configuration from layered sources with clear precedence:
// ENV > file > defaults.
func Load() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults from struct
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: optional config file
	configPath := findConfigFile()
	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables (highest priority)
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or empty string.
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// envTransformFunc maps environment variable names onto koanf config
// paths. Unmapped variables are dropped so random environment noise never
// pollutes the config.
//
// Examples:
//   - RANKINGS_API_URL -> remote.url
//   - SAVE_DEBOUNCE -> ranking.debounce
//   - ALLOW_INSERT_TO_PUSH_DOWN_RANKINGS -> ranking.push_down_on_insert
func envTransformFunc(key string) string {
	key = strings.ToLower(key)

	envMappings := map[string]string{
		// Server mappings
		"http_host":    "server.host",
		"http_port":    "server.port",
		"http_timeout": "server.timeout",

		// Ranking service mappings
		"rankings_api_url":          "remote.url",
		"rankings_api_token":        "remote.auth_token",
		"rankings_breaker_disabled": "remote.breaker_disabled",

		// Engine mappings
		"ranking_list_id":       "ranking.list_id",
		"max_rankable":          "ranking.max_rankable",
		"save_debounce":         "ranking.debounce",
		"save_retries":          "ranking.save_retries",
		"save_retry_delay":      "ranking.retry_initial_delay",
		"save_retry_max_delay":  "ranking.retry_max_delay",
		"save_background_retry": "ranking.background_retry",
		"save_saved_idle":       "ranking.saved_idle",

		// Feature flags
		"allow_insert_to_push_down_rankings": "ranking.push_down_on_insert",
		"auto_fill_ranking_gaps":             "ranking.fill_gaps",

		// Snapshot store mappings
		"snapshot_path":          "snapshot.path",
		"snapshot_sync_writes":   "snapshot.sync_writes",
		"snapshot_close_timeout": "snapshot.close_timeout",

		// Logging mappings
		"log_level":  "logging.level",
		"log_format": "logging.format",
		"log_caller": "logging.caller",
	}

	if mapped, ok := envMappings[key]; ok {
		return mapped
	}
	return ""
}

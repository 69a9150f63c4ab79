// Rankforge - Durable Ranking Edit Engine
// Copyright 2026 Toplist Labs
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/toplist-labs/rankforge

package config

import (
	"fmt"
	"net/url"
	"strings"
)

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateRanking(); err != nil {
		return err
	}
	if err := c.validateSnapshot(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("HTTP_TIMEOUT must be positive, got %s", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateRemote() error {
	if c.Remote.URL == "" {
		return fmt.Errorf("RANKINGS_API_URL is required")
	}
	u, err := url.Parse(c.Remote.URL)
	if err != nil {
		return fmt.Errorf("RANKINGS_API_URL is invalid: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("RANKINGS_API_URL must use http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("RANKINGS_API_URL has no host")
	}
	return nil
}

func (c *Config) validateRanking() error {
	if strings.TrimSpace(c.Ranking.ListID) == "" {
		return fmt.Errorf("RANKING_LIST_ID cannot be empty")
	}
	if c.Ranking.MaxRankable < 0 {
		return fmt.Errorf("MAX_RANKABLE cannot be negative, got %d", c.Ranking.MaxRankable)
	}
	if c.Ranking.Debounce <= 0 {
		return fmt.Errorf("SAVE_DEBOUNCE must be positive, got %s", c.Ranking.Debounce)
	}
	if c.Ranking.SaveRetries < 0 {
		return fmt.Errorf("SAVE_RETRIES cannot be negative, got %d", c.Ranking.SaveRetries)
	}
	if c.Ranking.RetryInitialDelay <= 0 {
		return fmt.Errorf("SAVE_RETRY_DELAY must be positive, got %s", c.Ranking.RetryInitialDelay)
	}
	if c.Ranking.RetryMaxDelay < c.Ranking.RetryInitialDelay {
		return fmt.Errorf("SAVE_RETRY_MAX_DELAY must be >= SAVE_RETRY_DELAY")
	}
	if c.Ranking.BackgroundRetry <= 0 {
		return fmt.Errorf("SAVE_BACKGROUND_RETRY must be positive, got %s", c.Ranking.BackgroundRetry)
	}
	return nil
}

func (c *Config) validateSnapshot() error {
	if c.Snapshot.Path == "" {
		return fmt.Errorf("SNAPSHOT_PATH cannot be empty")
	}
	if c.Snapshot.CloseTimeout <= 0 {
		return fmt.Errorf("SNAPSHOT_CLOSE_TIMEOUT must be positive, got %s", c.Snapshot.CloseTimeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, fatal; got %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
	return nil
}

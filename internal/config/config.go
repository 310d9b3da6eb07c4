// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

// Package config holds the immutable application configuration.
//
// Configuration is built exactly once at startup via LoadWithKoanf and passed
// by pointer into every component constructor. No package reads configuration
// from the environment after startup.
package config

import (
	"fmt"
	"net/url"
	"time"
)

// maxPageSize is the Fireflies API limit on transcripts per listing call.
const maxPageSize = 50

// Config is the root configuration structure.
type Config struct {
	Fireflies     FirefliesConfig    `koanf:"fireflies"`
	Vault         VaultConfig        `koanf:"vault"`
	Sync          SyncConfig         `koanf:"sync"`
	Ledger        LedgerConfig       `koanf:"ledger"`
	Notifications NotificationConfig `koanf:"notifications"`
	Server        ServerConfig       `koanf:"server"`
	Logging       LoggingConfig      `koanf:"logging"`
}

// FirefliesConfig configures the remote Fireflies API client.
type FirefliesConfig struct {
	// APIKey is the Fireflies.ai API key (required).
	APIKey string `koanf:"api_key"`

	// URL is the GraphQL endpoint.
	URL string `koanf:"url"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `koanf:"timeout"`

	// MaxRetries is the maximum retry count for transient failures.
	MaxRetries int `koanf:"max_retries"`

	// RetryBaseDelay is the base for exponential backoff (base << attempt).
	RetryBaseDelay time.Duration `koanf:"retry_base_delay"`

	// RateLimitPerMinute is the API call budget per wall-clock minute.
	// Calls over budget block until the limiter releases them.
	RateLimitPerMinute int `koanf:"rate_limit_per_minute"`

	// BreakerEnabled wraps the client in a circuit breaker.
	BreakerEnabled bool `koanf:"breaker_enabled"`
}

// VaultConfig configures the Obsidian vault destination.
type VaultConfig struct {
	// Path is the vault root directory (required).
	Path string `koanf:"path"`

	// Folder is the subfolder for generated notes.
	Folder string `koanf:"folder"`
}

// SyncConfig configures the sync scheduler and cycle controller.
type SyncConfig struct {
	// Interval between scheduled cycles.
	Interval time.Duration `koanf:"interval"`

	// Lookback is the listing horizon for candidate transcripts.
	Lookback time.Duration `koanf:"lookback"`

	// PageSize is the listing page size (1..50).
	PageSize int `koanf:"page_size"`

	// TranscriptIDs restricts cycles to specific transcripts (test mode).
	TranscriptIDs []string `koanf:"transcript_ids"`
}

// LedgerConfig configures the processed-transcript ledger.
type LedgerConfig struct {
	// Path is the ledger database directory (required).
	Path string `koanf:"path"`
}

// NotificationConfig configures completion notifications.
type NotificationConfig struct {
	Enabled bool `koanf:"enabled"`

	// Desktop sends OS desktop notifications in addition to log entries.
	Desktop bool `koanf:"desktop"`
}

// ServerConfig configures the local ops HTTP server.
type ServerConfig struct {
	Enabled bool          `koanf:"enabled"`
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for fatal errors. A validation failure
// terminates the process; the sync engine never runs on a guessed config.
func (c *Config) Validate() error {
	if err := c.validateFireflies(); err != nil {
		return err
	}
	if err := c.validateVault(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateLedger(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateFireflies() error {
	if c.Fireflies.APIKey == "" {
		return fmt.Errorf("fireflies.api_key is required (set FIREFLIES_API_KEY)")
	}
	u, err := url.Parse(c.Fireflies.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("fireflies.url %q is not a valid URL", c.Fireflies.URL)
	}
	if c.Fireflies.Timeout <= 0 {
		return fmt.Errorf("fireflies.timeout must be positive, got %s", c.Fireflies.Timeout)
	}
	if c.Fireflies.MaxRetries < 0 {
		return fmt.Errorf("fireflies.max_retries must be >= 0, got %d", c.Fireflies.MaxRetries)
	}
	if c.Fireflies.RetryBaseDelay <= 0 {
		return fmt.Errorf("fireflies.retry_base_delay must be positive, got %s", c.Fireflies.RetryBaseDelay)
	}
	if c.Fireflies.RateLimitPerMinute < 1 {
		return fmt.Errorf("fireflies.rate_limit_per_minute must be >= 1, got %d", c.Fireflies.RateLimitPerMinute)
	}
	return nil
}

func (c *Config) validateVault() error {
	if c.Vault.Path == "" {
		return fmt.Errorf("vault.path is required (set VAULT_PATH)")
	}
	if c.Vault.Folder == "" {
		return fmt.Errorf("vault.folder must not be empty")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.Interval < 10*time.Second {
		return fmt.Errorf("sync.interval must be >= 10s, got %s", c.Sync.Interval)
	}
	if c.Sync.Lookback <= 0 {
		return fmt.Errorf("sync.lookback must be positive, got %s", c.Sync.Lookback)
	}
	if c.Sync.PageSize < 1 || c.Sync.PageSize > maxPageSize {
		return fmt.Errorf("sync.page_size must be in 1..%d, got %d", maxPageSize, c.Sync.PageSize)
	}
	return nil
}

func (c *Config) validateLedger() error {
	if c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required")
	}
	return nil
}

func (c *Config) validateServer() error {
	if !c.Server.Enabled {
		return nil
	}
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1..65535, got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format must be json or console, got %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "disabled":
		return nil
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
}

// Firesync - Fireflies Transcript to Obsidian Vault Sync
// Copyright 2026 Firesync Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/firesync/firesync

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists where config files are searched, in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/firesync/config.yaml",
	"/etc/firesync/config.yml",
}

// ConfigPathEnvVar overrides the config file search when set.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are
// applied first, then overridden by the config file and environment.
func defaultConfig() *Config {
	return &Config{
		Fireflies: FirefliesConfig{
			APIKey:             "",
			URL:                "https://api.fireflies.ai/graphql",
			Timeout:            30 * time.Second,
			MaxRetries:         3,
			RetryBaseDelay:     time.Second,
			RateLimitPerMinute: 50,
			BreakerEnabled:     true,
		},
		Vault: VaultConfig{
			Path:   "",
			Folder: "Fireflies",
		},
		Sync: SyncConfig{
			Interval: 5 * time.Minute,
			Lookback: 7 * 24 * time.Hour,
			PageSize: 25,
		},
		Ledger: LedgerConfig{
			Path: ".state/ledger",
		},
		Notifications: NotificationConfig{
			Enabled: true,
			Desktop: false,
		},
		Server: ServerConfig{
			Enabled: true,
			Host:    "127.0.0.1",
			Port:    9272,
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load builds the configuration. See LoadWithKoanf for layering details.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

// LoadWithKoanf builds the configuration from three layers, highest last:
//
//  1. Defaults: built-in values from defaultConfig
//  2. Config file: optional YAML file (see DefaultConfigPaths, CONFIG_PATH)
//  3. Environment variables: FIREFLIES_API_KEY, VAULT_PATH, SYNC_INTERVAL, ...
//
// The returned Config is validated; any validation error is fatal to startup.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// FIREFLIES_API_KEY -> fireflies.api_key, SYNC_PAGE_SIZE -> sync.page_size
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
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

// findConfigFile returns the first existing config file path, or "".
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

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// they arrive as strings from the environment.
var sliceConfigPaths = []string{
	"sync.transcript_ids",
}

// processSliceFields converts comma-separated string values to slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}

		// Already a slice (from YAML) - nothing to do.
		switch val.(type) {
		case []interface{}, []string:
			continue
		}

		strVal, ok := val.(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
//
// Examples:
//   - FIREFLIES_API_KEY -> fireflies.api_key
//   - VAULT_PATH -> vault.path
//   - SYNC_INTERVAL -> sync.interval
//   - LEDGER_PATH -> ledger.path
//
// Unrecognized variables map to "" and are ignored, so unrelated environment
// noise cannot leak into the configuration.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		"FIREFLIES_API_KEY":               "fireflies.api_key",
		"FIREFLIES_URL":                   "fireflies.url",
		"FIREFLIES_TIMEOUT":               "fireflies.timeout",
		"FIREFLIES_MAX_RETRIES":           "fireflies.max_retries",
		"FIREFLIES_RETRY_BASE_DELAY":      "fireflies.retry_base_delay",
		"FIREFLIES_RATE_LIMIT_PER_MINUTE": "fireflies.rate_limit_per_minute",
		"FIREFLIES_BREAKER_ENABLED":       "fireflies.breaker_enabled",

		"VAULT_PATH":   "vault.path",
		"VAULT_FOLDER": "vault.folder",

		"SYNC_INTERVAL":       "sync.interval",
		"SYNC_LOOKBACK":       "sync.lookback",
		"SYNC_PAGE_SIZE":      "sync.page_size",
		"SYNC_TRANSCRIPT_IDS": "sync.transcript_ids",

		"LEDGER_PATH": "ledger.path",

		"NOTIFICATIONS_ENABLED": "notifications.enabled",
		"NOTIFICATIONS_DESKTOP": "notifications.desktop",

		"SERVER_ENABLED": "server.enabled",
		"SERVER_HOST":    "server.host",
		"SERVER_PORT":    "server.port",
		"SERVER_TIMEOUT": "server.timeout",

		"LOG_LEVEL":  "logging.level",
		"LOG_FORMAT": "logging.format",
		"LOG_CALLER": "logging.caller",
	}

	if path, ok := mappings[key]; ok {
		return path
	}
	return ""
}

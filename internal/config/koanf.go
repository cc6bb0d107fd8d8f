// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

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

// DefaultConfigPaths lists the config file locations searched in order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/setlistsync/config.yaml",
	"/etc/setlistsync/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Remote: RemoteConfig{
			BaseURL:                "http://127.0.0.1:8090",
			UserAgent:              "setlistsync/1",
			Timeout:                15 * time.Second,
			RateLimit:              0,
			RateBurst:              10,
			CircuitBreaker:         true,
			StringifySetListFields: true,
		},
		Store: StoreConfig{
			Path:       "/data/setlistsync",
			InMemory:   false,
			SyncWrites: true,
		},
		Sync: SyncConfig{
			SetListDebounce:  500 * time.Millisecond,
			ReconcileTimeout: 30 * time.Second,
			PushTimeout:      30 * time.Second,
			FlushOnShutdown:  true,
		},
		Connectivity: ConnectivityConfig{
			Mode:             "probe",
			ProbeURL:         "", // defaults to <remote.base_url>/api/songs
			ProbeInterval:    15 * time.Second,
			ProbeTimeout:     5 * time.Second,
			FailureThreshold: 1,
			StartOnline:      true,
		},
		Notify: NotifyConfig{
			TTL: 5 * time.Second,
		},
		Server: ServerConfig{
			Port:            3870,
			Host:            "127.0.0.1",
			Timeout:         30 * time.Second,
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   300,
			RateLimitWindow: time.Minute,
		},
		Cloudsim: CloudsimConfig{
			Port: 8090,
			Host: "127.0.0.1",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration with layered sources:
//  1. Defaults
//  2. Config File (optional)
//  3. Environment Variables
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

	cfg.applyDerivedDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// applyDerivedDefaults fills values computed from other settings.
func (c *Config) applyDerivedDefaults() {
	c.Remote.BaseURL = strings.TrimRight(c.Remote.BaseURL, "/")
	if c.Connectivity.ProbeURL == "" && c.Remote.BaseURL != "" {
		c.Connectivity.ProbeURL = c.Remote.BaseURL + "/api/songs"
	}
}

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

// sliceConfigPaths are parsed from comma-separated env values.
var sliceConfigPaths = []string{
	"server.cors_origins",
}

func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
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

// envMappings maps environment variable names (lowercased) to koanf paths.
// Unmapped variables are ignored.
var envMappings = map[string]string{
	"remote_url":                      "remote.base_url",
	"remote_token":                    "remote.token",
	"remote_user_agent":               "remote.user_agent",
	"remote_timeout":                  "remote.timeout",
	"remote_rate_limit":               "remote.rate_limit",
	"remote_rate_burst":               "remote.rate_burst",
	"remote_circuit_breaker":          "remote.circuit_breaker",
	"remote_stringify_setlist_fields": "remote.stringify_setlist_fields",

	"store_path":        "store.path",
	"store_in_memory":   "store.in_memory",
	"store_sync_writes": "store.sync_writes",

	"sync_setlist_debounce":  "sync.setlist_debounce",
	"sync_reconcile_timeout": "sync.reconcile_timeout",
	"sync_push_timeout":      "sync.push_timeout",
	"sync_flush_on_shutdown": "sync.flush_on_shutdown",

	"connectivity_mode":              "connectivity.mode",
	"connectivity_probe_url":         "connectivity.probe_url",
	"connectivity_probe_interval":    "connectivity.probe_interval",
	"connectivity_probe_timeout":     "connectivity.probe_timeout",
	"connectivity_failure_threshold": "connectivity.failure_threshold",
	"connectivity_start_online":      "connectivity.start_online",

	"notify_ttl": "notify.ttl",

	"http_port":           "server.port",
	"http_host":           "server.host",
	"http_timeout":        "server.timeout",
	"cors_origins":        "server.cors_origins",
	"rate_limit_requests": "server.rate_limit_reqs",
	"rate_limit_window":   "server.rate_limit_window",
	"disable_rate_limit":  "server.rate_limit_disabled",

	"cloudsim_port": "cloudsim.port",
	"cloudsim_host": "cloudsim.host",
	"cloudsim_seed": "cloudsim.seed",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc transforms environment variable names to koanf paths:
//   - REMOTE_URL -> remote.base_url
//   - SYNC_SETLIST_DEBOUNCE -> sync.setlist_debounce
func envTransformFunc(key string) string {
	if mapped, ok := envMappings[strings.ToLower(key)]; ok {
		return mapped
	}
	return ""
}

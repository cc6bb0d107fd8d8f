// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

// Package config loads setlistsync configuration.
//
// Configuration Loading Order (Koanf v2):
//  1. Defaults: built-in values from defaultConfig()
//  2. Config File: optional YAML file (CONFIG_PATH or config.yaml)
//  3. Environment Variables: mapped explicitly in envTransformFunc
//
// Config is immutable after Load() and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Remote       RemoteConfig       `koanf:"remote"`
	Store        StoreConfig        `koanf:"store"`
	Sync         SyncConfig         `koanf:"sync"`
	Connectivity ConnectivityConfig `koanf:"connectivity"`
	Notify       NotifyConfig       `koanf:"notify"`
	Server       ServerConfig       `koanf:"server"`
	Cloudsim     CloudsimConfig     `koanf:"cloudsim"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// RemoteConfig describes the authoritative HTTP store.
//
// Environment Variables:
//   - REMOTE_URL: base URL, e.g. https://songs.example.org
//   - REMOTE_TOKEN: static bearer token (optional)
//   - REMOTE_TIMEOUT: per-request timeout (default: 15s)
//   - REMOTE_RATE_LIMIT: requests per second, 0 disables (default: 0)
//   - REMOTE_CIRCUIT_BREAKER: wrap calls in a circuit breaker (default: true)
type RemoteConfig struct {
	BaseURL   string        `koanf:"base_url"`
	Token     string        `koanf:"token"`
	UserAgent string        `koanf:"user_agent"`
	Timeout   time.Duration `koanf:"timeout"`

	RateLimit float64 `koanf:"rate_limit"`
	RateBurst int     `koanf:"rate_burst"`

	CircuitBreaker bool `koanf:"circuit_breaker"`

	// StringifySetListFields sends songs, songKeys and completedSongs as
	// JSON strings on set-list create, matching servers that store them in
	// text columns.
	StringifySetListFields bool `koanf:"stringify_setlist_fields"`
}

// StoreConfig holds the local cache settings.
type StoreConfig struct {
	Path       string `koanf:"path"`
	InMemory   bool   `koanf:"in_memory"`
	SyncWrites bool   `koanf:"sync_writes"`
}

// SyncConfig holds engine timing.
type SyncConfig struct {
	SetListDebounce  time.Duration `koanf:"setlist_debounce"`
	ReconcileTimeout time.Duration `koanf:"reconcile_timeout"`
	PushTimeout      time.Duration `koanf:"push_timeout"`
	FlushOnShutdown  bool          `koanf:"flush_on_shutdown"`
}

// ConnectivityConfig selects how online state is determined.
//
// Mode "probe" polls ProbeURL; mode "static" keeps the state fixed at
// StartOnline until changed through the API.
type ConnectivityConfig struct {
	Mode             string        `koanf:"mode"`
	ProbeURL         string        `koanf:"probe_url"`
	ProbeInterval    time.Duration `koanf:"probe_interval"`
	ProbeTimeout     time.Duration `koanf:"probe_timeout"`
	FailureThreshold int           `koanf:"failure_threshold"`
	StartOnline      bool          `koanf:"start_online"`
}

// NotifyConfig holds notification display settings.
type NotifyConfig struct {
	TTL time.Duration `koanf:"ttl"`
}

// ServerConfig holds the local collaborator API settings.
type ServerConfig struct {
	Port              int           `koanf:"port"`
	Host              string        `koanf:"host"`
	Timeout           time.Duration `koanf:"timeout"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// Addr returns host:port for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// CloudsimConfig configures the in-process remote simulator binary.
type CloudsimConfig struct {
	Port int    `koanf:"port"`
	Host string `koanf:"host"`
	Seed string `koanf:"seed"`
}

// Addr returns host:port for http.Server.
func (c CloudsimConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Load loads configuration from defaults, file and environment.
func Load() (*Config, error) {
	return LoadWithKoanf()
}

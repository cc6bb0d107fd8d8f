// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// assertNoError checks that error is nil
func assertNoError(t *testing.T, err error, testName string) {
	t.Helper()
	if err != nil {
		t.Fatalf("%s: unexpected error: %v", testName, err)
	}
}

// assertErrorContains checks that an error occurred and mentions want.
func assertErrorContains(t *testing.T, err error, want, testName string) {
	t.Helper()
	if err == nil {
		t.Fatalf("%s: expected error containing %q, got nil", testName, want)
	}
	if !strings.Contains(err.Error(), want) {
		t.Errorf("%s: error = %v, want error containing %q", testName, err, want)
	}
}

// isolateConfig points CONFIG_PATH at a missing file so only defaults and
// the test's own env vars apply.
func isolateConfig(t *testing.T) {
	t.Helper()
	t.Setenv(ConfigPathEnvVar, filepath.Join(t.TempDir(), "absent.yaml"))
	for env := range envMappings {
		if _, ok := os.LookupEnv(strings.ToUpper(env)); ok {
			t.Setenv(strings.ToUpper(env), "")
			_ = os.Unsetenv(strings.ToUpper(env))
		}
	}
}

func TestLoadDefaults(t *testing.T) {
	isolateConfig(t)

	cfg, err := Load()
	assertNoError(t, err, "defaults")

	if cfg.Sync.SetListDebounce != 500*time.Millisecond {
		t.Errorf("SetListDebounce = %v, want 500ms", cfg.Sync.SetListDebounce)
	}
	if cfg.Notify.TTL != 5*time.Second {
		t.Errorf("Notify.TTL = %v, want 5s", cfg.Notify.TTL)
	}
	if cfg.Connectivity.ProbeURL != "http://127.0.0.1:8090/api/songs" {
		t.Errorf("ProbeURL = %q, want derived from remote base URL", cfg.Connectivity.ProbeURL)
	}
	if !cfg.Remote.CircuitBreaker {
		t.Error("expected circuit breaker enabled by default")
	}
	if cfg.Server.Addr() != "127.0.0.1:3870" {
		t.Errorf("Server.Addr() = %q", cfg.Server.Addr())
	}
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	isolateConfig(t)
	t.Setenv("REMOTE_URL", "https://songs.example.org/")
	t.Setenv("SYNC_SETLIST_DEBOUNCE", "250ms")
	t.Setenv("REMOTE_RATE_LIMIT", "2.5")
	t.Setenv("CONNECTIVITY_MODE", "static")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	assertNoError(t, err, "env overrides")

	if cfg.Remote.BaseURL != "https://songs.example.org" {
		t.Errorf("BaseURL = %q, want trailing slash trimmed", cfg.Remote.BaseURL)
	}
	if cfg.Sync.SetListDebounce != 250*time.Millisecond {
		t.Errorf("SetListDebounce = %v, want 250ms", cfg.Sync.SetListDebounce)
	}
	if cfg.Remote.RateLimit != 2.5 {
		t.Errorf("RateLimit = %v, want 2.5", cfg.Remote.RateLimit)
	}
	if cfg.Connectivity.Mode != "static" {
		t.Errorf("Mode = %q, want static", cfg.Connectivity.Mode)
	}
	if len(cfg.Server.CORSOrigins) != 2 || cfg.Server.CORSOrigins[1] != "http://b.test" {
		t.Errorf("CORSOrigins = %v", cfg.Server.CORSOrigins)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q", cfg.Logging.Level)
	}
}

func TestLoadConfigFile(t *testing.T) {
	isolateConfig(t)

	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
remote:
  base_url: http://cloud.local:9000
  token: secret
store:
  in_memory: true
notify:
  ttl: 2s
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv(ConfigPathEnvVar, path)
	t.Setenv("REMOTE_TOKEN", "from-env")

	cfg, err := Load()
	assertNoError(t, err, "config file")

	if cfg.Remote.BaseURL != "http://cloud.local:9000" {
		t.Errorf("BaseURL = %q", cfg.Remote.BaseURL)
	}
	if cfg.Remote.Token != "from-env" {
		t.Errorf("Token = %q, env should win over file", cfg.Remote.Token)
	}
	if !cfg.Store.InMemory {
		t.Error("expected in-memory store from file")
	}
	if cfg.Notify.TTL != 2*time.Second {
		t.Errorf("Notify.TTL = %v, want 2s", cfg.Notify.TTL)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"missing remote", func(c *Config) { c.Remote.BaseURL = "" }, "REMOTE_URL is required"},
		{"remote with path", func(c *Config) { c.Remote.BaseURL = "http://x.test/api" }, "base URL only"},
		{"bad scheme", func(c *Config) { c.Remote.BaseURL = "ftp://x.test" }, "scheme must be http or https"},
		{"zero debounce", func(c *Config) { c.Sync.SetListDebounce = 0 }, "SYNC_SETLIST_DEBOUNCE"},
		{"bad mode", func(c *Config) { c.Connectivity.Mode = "ping" }, "CONNECTIVITY_MODE"},
		{"threshold", func(c *Config) { c.Connectivity.FailureThreshold = 0 }, "FAILURE_THRESHOLD"},
		{"store path", func(c *Config) { c.Store.Path = " " }, "STORE_PATH"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "HTTP_PORT"},
		{"rate burst", func(c *Config) { c.Remote.RateLimit = 1; c.Remote.RateBurst = 0 }, "REMOTE_RATE_BURST"},
		{"log format", func(c *Config) { c.Logging.Format = "xml" }, "LOG_FORMAT"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultConfig()
			cfg.applyDerivedDefaults()
			tt.mutate(cfg)
			assertErrorContains(t, cfg.Validate(), tt.want, tt.name)
		})
	}
}

func TestValidateStaticModeSkipsProbe(t *testing.T) {
	cfg := defaultConfig()
	cfg.Connectivity.Mode = "static"
	cfg.Connectivity.ProbeURL = "not a url"
	cfg.Connectivity.ProbeInterval = 0
	assertNoError(t, cfg.Validate(), "static mode")
}

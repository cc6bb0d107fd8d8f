// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package config

import (
	"fmt"
	"strings"
)

// Validate checks the loaded configuration.
func (c *Config) Validate() error {
	if err := c.validateRemote(); err != nil {
		return err
	}
	if err := c.validateStore(); err != nil {
		return err
	}
	if err := c.validateSync(); err != nil {
		return err
	}
	if err := c.validateConnectivity(); err != nil {
		return err
	}
	if c.Notify.TTL <= 0 {
		return fmt.Errorf("NOTIFY_TTL must be positive")
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateRemote() error {
	if c.Remote.BaseURL == "" {
		return fmt.Errorf("REMOTE_URL is required")
	}
	if err := validateHTTPURL(c.Remote.BaseURL, "REMOTE_URL"); err != nil {
		return fmt.Errorf("REMOTE_URL is invalid: %w", err)
	}
	if c.Remote.Timeout <= 0 {
		return fmt.Errorf("REMOTE_TIMEOUT must be positive")
	}
	if c.Remote.RateLimit < 0 {
		return fmt.Errorf("REMOTE_RATE_LIMIT must not be negative")
	}
	if c.Remote.RateLimit > 0 && c.Remote.RateBurst < 1 {
		return fmt.Errorf("REMOTE_RATE_BURST must be at least 1 when REMOTE_RATE_LIMIT is set")
	}
	return nil
}

func (c *Config) validateStore() error {
	if !c.Store.InMemory && strings.TrimSpace(c.Store.Path) == "" {
		return fmt.Errorf("STORE_PATH is required unless STORE_IN_MEMORY=true")
	}
	return nil
}

func (c *Config) validateSync() error {
	if c.Sync.SetListDebounce <= 0 {
		return fmt.Errorf("SYNC_SETLIST_DEBOUNCE must be positive")
	}
	if c.Sync.ReconcileTimeout <= 0 || c.Sync.PushTimeout <= 0 {
		return fmt.Errorf("SYNC_RECONCILE_TIMEOUT and SYNC_PUSH_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateConnectivity() error {
	switch c.Connectivity.Mode {
	case "static":
		return nil
	case "probe":
	default:
		return fmt.Errorf("CONNECTIVITY_MODE must be 'probe' or 'static', got: %s", c.Connectivity.Mode)
	}
	if _, err := parseProbeURL(c.Connectivity.ProbeURL); err != nil {
		return fmt.Errorf("CONNECTIVITY_PROBE_URL is invalid: %w", err)
	}
	if c.Connectivity.ProbeInterval <= 0 || c.Connectivity.ProbeTimeout <= 0 {
		return fmt.Errorf("CONNECTIVITY_PROBE_INTERVAL and CONNECTIVITY_PROBE_TIMEOUT must be positive")
	}
	if c.Connectivity.FailureThreshold < 1 {
		return fmt.Errorf("CONNECTIVITY_FAILURE_THRESHOLD must be at least 1")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	if !c.Server.RateLimitDisabled {
		if c.Server.RateLimitReqs < 1 {
			return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
		}
		if c.Server.RateLimitWindow <= 0 {
			return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
		}
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL must be one of trace, debug, info, warn, error, disabled; got: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be 'json' or 'console', got: %s", c.Logging.Format)
	}
}

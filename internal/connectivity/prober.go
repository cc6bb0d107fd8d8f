// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package connectivity

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/metrics"
)

// ProberConfig configures a Prober.
type ProberConfig struct {
	URL              string
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold int

	// StartOnline is the state reported before the first probe completes.
	StartOnline bool

	// HTTPClient defaults to a client with Timeout.
	HTTPClient *http.Client
}

// Prober is a Monitor driven by periodic HTTP requests. Any HTTP response
// means the store is reachable; FailureThreshold consecutive transport
// failures flip the state to offline.
type Prober struct {
	*broadcaster

	url       string
	interval  time.Duration
	timeout   time.Duration
	threshold int
	client    *http.Client

	mu       sync.Mutex
	failures int
	lastErr  error
	lastAt   time.Time
}

var _ Monitor = (*Prober)(nil)

// NewProber creates a Prober. Call Serve to start probing.
func NewProber(cfg ProberConfig) *Prober {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.FailureThreshold < 1 {
		cfg.FailureThreshold = 1
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout}
	}
	metrics.ConnectivityOnline.Set(boolToFloat(cfg.StartOnline))

	return &Prober{
		broadcaster: newBroadcaster("probe", cfg.StartOnline),
		url:         cfg.URL,
		interval:    cfg.Interval,
		timeout:     cfg.Timeout,
		threshold:   cfg.FailureThreshold,
		client:      client,
	}
}

// Serve probes immediately, then every interval, until ctx ends.
func (p *Prober) Serve(ctx context.Context) error {
	logging.Info().Str("url", p.url).Dur("interval", p.interval).Msg("Connectivity prober started")

	p.Probe(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logging.Info().Msg("Connectivity prober stopped")
			return ctx.Err()
		case <-ticker.C:
			p.Probe(ctx)
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (p *Prober) String() string {
	return "connectivity-prober"
}

// Probe performs one check and updates the state. It returns the state
// after the check.
func (p *Prober) Probe(ctx context.Context) bool {
	err := p.check(ctx)
	if ctx.Err() != nil {
		return p.IsOnline()
	}

	p.mu.Lock()
	p.lastAt = time.Now()
	p.lastErr = err
	if err == nil {
		p.failures = 0
	} else {
		p.failures++
	}
	failures := p.failures
	p.mu.Unlock()

	if err == nil {
		p.set(true)
		return true
	}

	logging.Debug().Err(err).Int("consecutive_failures", failures).Msg("Connectivity probe failed")
	if failures >= p.threshold {
		p.set(false)
	}
	return p.IsOnline()
}

func (p *Prober) check(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create probe request: %w", err)
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

// Status describes the last probe.
type Status struct {
	Online              bool      `json:"online"`
	LastProbe           time.Time `json:"last_probe,omitempty"`
	LastError           string    `json:"last_error,omitempty"`
	ConsecutiveFailures int       `json:"consecutive_failures"`
}

// Status returns the result of the most recent probe.
func (p *Prober) Status() Status {
	p.mu.Lock()
	defer p.mu.Unlock()
	s := Status{
		Online:              p.IsOnline(),
		LastProbe:           p.lastAt,
		ConsecutiveFailures: p.failures,
	}
	if p.lastErr != nil {
		s.LastError = p.lastErr.Error()
	}
	return s
}

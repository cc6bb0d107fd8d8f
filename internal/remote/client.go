// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

// Package remote is the HTTP client for the authoritative song store.
//
// The client is stateless between calls and never retries: retry policy
// belongs to the sync engine. Every non-2xx response is reported as an
// *APIError carrying the status and any server-provided message.
package remote

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/tomtom215/setlistsync/internal/models"
)

// Options configures a Client.
type Options struct {
	// BaseURL is the remote store root, e.g. https://songs.example.org.
	BaseURL string

	// HTTPClient is used as-is when set (it may already carry credentials).
	// Otherwise a client with Timeout is created.
	HTTPClient *http.Client
	Timeout    time.Duration

	// Token, when set, is sent as a bearer token.
	Token     string
	UserAgent string

	// RateLimit caps requests per second; 0 disables limiting.
	RateLimit float64
	RateBurst int

	// CircuitBreaker enables the breaker with Breaker settings.
	CircuitBreaker bool
	Breaker        BreakerSettings

	// StringifySetListFields encodes set-list members as JSON strings on
	// create.
	StringifySetListFields bool
}

// Client talks to the remote store.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	userAgent  string
	limiter    *rate.Limiter
	breaker    *breaker

	songs    *Collection[models.Song]
	setLists *Collection[models.SetList]
}

// New creates a Client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 15 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(opts.BaseURL, "/"),
		httpClient: httpClient,
		token:      opts.Token,
		userAgent:  opts.UserAgent,
	}
	if opts.RateLimit > 0 {
		burst := opts.RateBurst
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	if opts.CircuitBreaker {
		c.breaker = newBreaker(opts.Breaker)
	}

	c.songs = &Collection[models.Song]{
		client: c,
		name:   models.CollectionSongs,
		path:   "/api/songs",
		idOf:   func(s models.Song) string { return s.ID },
	}
	c.setLists = &Collection[models.SetList]{
		client: c,
		name:   models.CollectionSetLists,
		path:   "/api/setlists",
		idOf:   func(l models.SetList) string { return l.ID },
	}
	if opts.StringifySetListFields {
		c.setLists.encodeCreate = func(l models.SetList) ([]byte, error) {
			return l.MarshalStringified()
		}
	}
	return c
}

// Songs returns the songs collection endpoint.
func (c *Client) Songs() *Collection[models.Song] {
	return c.songs
}

// SetLists returns the set-lists collection endpoint.
func (c *Client) SetLists() *Collection[models.SetList] {
	return c.setLists
}

// BaseURL returns the configured remote root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// BreakerState reports the circuit breaker state, or "disabled".
func (c *Client) BreakerState() string {
	if c.breaker == nil {
		return "disabled"
	}
	return c.breaker.State()
}

// response is what a successful round trip yields.
type response struct {
	status int
	body   []byte
}

// do performs one request. A 2xx response returns its body; anything else
// returns *APIError. Transport failures are wrapped plain errors.
func (c *Client) do(ctx context.Context, method, path string, body []byte) (*response, error) {
	if c.breaker == nil {
		return c.roundTrip(ctx, method, path, body)
	}
	result, err := c.breaker.execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, path, body)
	})
	if err != nil {
		return nil, err
	}
	resp, ok := result.(*response)
	if !ok {
		return nil, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return resp, nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, body []byte) (*response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(readBodyForError(resp.Body)),
			Method:     method,
			Path:       path,
		}
	}

	if resp.StatusCode == http.StatusNoContent {
		return &response{status: resp.StatusCode}, nil
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: read response: %w", method, path, err)
	}
	return &response{status: resp.StatusCode, body: data}, nil
}

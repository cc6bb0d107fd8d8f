// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package remote

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/setlistsync/internal/models"
)

// maxErrorBodySize caps how much of a failed response body is read.
const maxErrorBodySize = 64 * 1024

// ErrUnavailable wraps rejections by the open circuit breaker.
var ErrUnavailable = errors.New("remote store unavailable")

// APIError is returned for every non-2xx response.
type APIError struct {
	StatusCode int
	Message    string
	Method     string
	Path       string
}

// Error implements error.
func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s %s returned status %d", e.Method, e.Path, e.StatusCode)
	}
	return fmt.Sprintf("%s %s returned status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// NotFound reports a 404.
func (e *APIError) NotFound() bool {
	return e.StatusCode == http.StatusNotFound
}

// IsNotFound reports whether err carries a 404 from the remote store.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.NotFound()
}

// StatusCode extracts the HTTP status from err, or 0 when the request never
// produced a response.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsTransport reports whether err is a failure without an HTTP response
// (network error, timeout, open breaker, rate limit wait).
func IsTransport(err error) bool {
	return err != nil && StatusCode(err) == 0
}

// countsAsFailure decides what the circuit breaker should count. Client
// errors other than 429 mean the server is healthy.
func countsAsFailure(err error) bool {
	if err == nil {
		return false
	}
	code := StatusCode(err)
	if code == 0 {
		return true
	}
	return code >= 500 || code == http.StatusTooManyRequests
}

// readBodyForError reads at most maxErrorBodySize bytes of r.
func readBodyForError(r io.Reader) []byte {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return []byte("(failed to read response body)")
	}
	if len(body) == maxErrorBodySize {
		return append(body, []byte("\n... (truncated)")...)
	}
	return body
}

// errorMessage extracts a server-provided message: {"error": "..."} or
// {"message": "..."} when the body is JSON, else the trimmed body text.
func errorMessage(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return ""
	}
	if body[0] == '{' {
		var payload struct {
			Error   models.FlexString `json:"error"`
			Message models.FlexString `json:"message"`
		}
		if err := json.Unmarshal(body, &payload); err == nil {
			if payload.Error != "" {
				return string(payload.Error)
			}
			if payload.Message != "" {
				return string(payload.Message)
			}
		}
	}
	return strings.TrimSpace(string(body))
}

// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package models

import (
	"bytes"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// Millis is an epoch-millisecond timestamp.
type Millis int64

// Now returns the current time as Millis.
func Now() Millis {
	return Millis(time.Now().UnixMilli())
}

// Time converts m to a time.Time in UTC.
func (m Millis) Time() time.Time {
	return time.UnixMilli(int64(m)).UTC()
}

// MarshalJSON always encodes a JSON number.
func (m Millis) MarshalJSON() ([]byte, error) {
	return strconv.AppendInt(nil, int64(m), 10), nil
}

// UnmarshalJSON never fails: unparseable input normalizes to 0.
func (m *Millis) UnmarshalJSON(data []byte) error {
	*m = ParseMillis(data)
	return nil
}

// ParseMillis interprets a raw JSON value as a timestamp.
func ParseMillis(data []byte) Millis {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return 0
	}

	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0
		}
		return parseMillisString(s)
	}

	if f, err := strconv.ParseFloat(string(data), 64); err == nil {
		return millisFromFloat(f)
	}
	return 0
}

// millisFromFloat truncates f, normalizing values outside the int64 range
// to 0.
func millisFromFloat(f float64) Millis {
	if math.IsNaN(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		return 0
	}
	return Millis(int64(f))
}

func parseMillisString(s string) Millis {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return Millis(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return millisFromFloat(f)
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return Millis(t.UnixMilli())
		}
	}
	return 0
}

// FlexString decodes from either a JSON string or a JSON number. Some
// servers store tempo and marker times as numbers.
type FlexString string

// UnmarshalJSON accepts strings, numbers, booleans and null.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
	default:
		*f = FlexString(data)
	}
	return nil
}

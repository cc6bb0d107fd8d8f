// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package remote

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/metrics"
	"github.com/tomtom215/setlistsync/internal/models"
)

// CollectionAPI is the per-collection contract the sync engine depends on.
type CollectionAPI[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id string) (*T, error)
	Create(ctx context.Context, record T) (string, error)
	Update(ctx context.Context, id string, record T) error
	Delete(ctx context.Context, id string) error
}

var (
	_ CollectionAPI[models.Song]    = (*Collection[models.Song])(nil)
	_ CollectionAPI[models.SetList] = (*Collection[models.SetList])(nil)
)

// Collection is one REST collection on the remote store.
type Collection[T any] struct {
	client *Client
	name   models.Collection
	path   string
	idOf   func(T) string

	// encodeCreate overrides the POST body encoding.
	encodeCreate func(T) ([]byte, error)
}

func (col *Collection[T]) itemPath(id string) string {
	return col.path + "/" + url.PathEscape(id)
}

func (col *Collection[T]) call(ctx context.Context, op, method, path string, body []byte) (*response, error) {
	start := time.Now()
	resp, err := col.client.do(ctx, method, path, body)
	var status int
	if resp != nil {
		status = resp.status
	} else {
		status = StatusCode(err)
	}
	metrics.RecordRemoteRequest(col.name.String(), op, status, time.Since(start))
	return resp, err
}

// List fetches every record. Elements that fail to decode are skipped.
func (col *Collection[T]) List(ctx context.Context) ([]T, error) {
	resp, err := col.call(ctx, "list", http.MethodGet, col.path, nil)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", col.name, err)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(resp.body, &elems); err != nil {
		return nil, fmt.Errorf("list %s: decode response: %w", col.name, err)
	}

	records := make([]T, 0, len(elems))
	for i, elem := range elems {
		var rec T
		if err := json.Unmarshal(elem, &rec); err != nil {
			logging.Warn().Err(err).Str("collection", col.name.String()).Int("index", i).Msg("Skipping undecodable remote record")
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Get fetches one record. A missing record yields an *APIError for which
// IsNotFound is true.
func (col *Collection[T]) Get(ctx context.Context, id string) (*T, error) {
	resp, err := col.call(ctx, "get", http.MethodGet, col.itemPath(id), nil)
	if err != nil {
		return nil, fmt.Errorf("get %s %s: %w", col.name, id, err)
	}
	var rec T
	if err := json.Unmarshal(resp.body, &rec); err != nil {
		return nil, fmt.Errorf("get %s %s: decode response: %w", col.name, id, err)
	}
	return &rec, nil
}

// Create posts a new record and returns the ID assigned by the server, or
// the record's own ID when the response does not name one.
func (col *Collection[T]) Create(ctx context.Context, record T) (string, error) {
	encode := col.encodeCreate
	if encode == nil {
		encode = func(r T) ([]byte, error) { return json.Marshal(r) }
	}
	body, err := encode(record)
	if err != nil {
		return "", fmt.Errorf("create %s: encode: %w", col.name, err)
	}

	resp, err := col.call(ctx, "create", http.MethodPost, col.path, body)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", col.name, err)
	}

	if id := createdID(resp.body); id != "" {
		return id, nil
	}
	return col.idOf(record), nil
}

// createdID reads {"id": ...} from a create response, tolerating empty or
// non-object bodies.
func createdID(body []byte) string {
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return ""
	}
	var payload struct {
		ID models.FlexString `json:"id"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	return string(payload.ID)
}

// Update replaces a record.
func (col *Collection[T]) Update(ctx context.Context, id string, record T) error {
	body, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("update %s %s: encode: %w", col.name, id, err)
	}
	if _, err := col.call(ctx, "update", http.MethodPut, col.itemPath(id), body); err != nil {
		return fmt.Errorf("update %s %s: %w", col.name, id, err)
	}
	return nil
}

// Delete removes a record. 200 and 204 are both success.
func (col *Collection[T]) Delete(ctx context.Context, id string) error {
	if _, err := col.call(ctx, "delete", http.MethodDelete, col.itemPath(id), nil); err != nil {
		return fmt.Errorf("delete %s %s: %w", col.name, id, err)
	}
	return nil
}

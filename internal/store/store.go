// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

// Package store implements the local cache: a BadgerDB database holding the
// songs collection, the set-lists collection and UI preference flags.
//
// Each collection lives under a single key as a JSON array, so a save
// replaces the whole collection atomically. Reads never fail: missing or
// corrupt data sanitizes to an empty list.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/metrics"
	"github.com/tomtom215/setlistsync/internal/models"
)

// ErrClosed is returned by writes after Close.
var ErrClosed = errors.New("store: closed")

const (
	collectionKeyPrefix = "collection:"
	preferenceKeyPrefix = "pref:"
)

// Config configures the badger database.
type Config struct {
	// Path is the badger directory. Ignored when InMemory is set.
	Path string

	// InMemory keeps everything in RAM (tests and throwaway sessions).
	InMemory bool

	// SyncWrites fsyncs every save before it returns.
	SyncWrites bool
}

// Store is the durable local cache. It is safe for concurrent use.
type Store struct {
	db *badger.DB

	mu     sync.RWMutex
	closed bool
}

// Open opens (or creates) the cache.
func Open(cfg Config) (*Store, error) {
	opts := badger.DefaultOptions(cfg.Path)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.SyncWrites = cfg.SyncWrites && !cfg.InMemory

	// Reduce logging verbosity
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}

	logging.Info().
		Str("path", cfg.Path).
		Bool("in_memory", cfg.InMemory).
		Bool("sync_writes", opts.SyncWrites).
		Msg("Local store opened")
	return &Store{db: db}, nil
}

// OpenInMemory opens a throwaway in-memory cache.
func OpenInMemory() (*Store, error) {
	return Open(Config{InMemory: true})
}

// Close flushes and closes the database. Further saves return ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close local store: %w", err)
	}
	return nil
}

func collectionKey(c models.Collection) []byte {
	return []byte(collectionKeyPrefix + string(c))
}

// readRaw returns the stored bytes for key, or nil when absent.
func (s *Store) readRaw(key []byte) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, ErrClosed
	}

	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	return raw, err
}

func (s *Store) writeRaw(key, value []byte) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return ErrClosed
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(key, value)
	})
}

// RawCollection returns the persisted bytes of a collection, or nil.
func (s *Store) RawCollection(c models.Collection) ([]byte, error) {
	return s.readRaw(collectionKey(c))
}

// WriteRawCollection stores bytes verbatim, bypassing sanitization. It
// exists for importing legacy exports and for tests that need corrupt data.
func (s *Store) WriteRawCollection(c models.Collection, raw []byte) error {
	return s.writeRaw(collectionKey(c), raw)
}

// IsEmpty reports whether a collection is absent, blank or an empty array.
func (s *Store) IsEmpty(c models.Collection) bool {
	raw, err := s.RawCollection(c)
	if err != nil {
		logging.Warn().Err(err).Str("collection", c.String()).Msg("Failed to read collection, treating as empty")
		return true
	}
	return isEmptyRaw(raw)
}

func isEmptyRaw(raw []byte) bool {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return true
	}
	return bytes.Equal(bytes.Join(bytes.Fields(raw), nil), []byte("[]"))
}

// LoadSongs returns the sanitized songs collection.
func (s *Store) LoadSongs() []models.Song {
	raw, err := s.RawCollection(models.CollectionSongs)
	if err != nil {
		s.recordError(models.CollectionSongs, "load", err)
		return []models.Song{}
	}
	return SanitizeSongs(raw)
}

// LoadSetLists returns the sanitized set-lists collection.
func (s *Store) LoadSetLists() []models.SetList {
	raw, err := s.RawCollection(models.CollectionSetLists)
	if err != nil {
		s.recordError(models.CollectionSetLists, "load", err)
		return []models.SetList{}
	}
	return SanitizeSetLists(raw)
}

// SaveSongs sanitizes and durably persists the songs collection. Failures
// are logged and returned; callers decide whether they matter.
func (s *Store) SaveSongs(songs []models.Song) error {
	return s.save(models.CollectionSongs, models.FilterSongs(songs))
}

// SaveSetLists sanitizes and durably persists the set-lists collection.
func (s *Store) SaveSetLists(lists []models.SetList) error {
	return s.save(models.CollectionSetLists, models.FilterSetLists(lists))
}

func (s *Store) save(c models.Collection, records interface{}) error {
	data, err := json.Marshal(records)
	if err != nil {
		err = fmt.Errorf("encode %s: %w", c, err)
		s.recordError(c, "save", err)
		return err
	}
	if err := s.writeRaw(collectionKey(c), data); err != nil {
		err = fmt.Errorf("persist %s: %w", c, err)
		s.recordError(c, "save", err)
		return err
	}
	return nil
}

func (s *Store) recordError(c models.Collection, op string, err error) {
	metrics.StoreErrors.WithLabelValues(c.String(), op).Inc()
	logging.Error().Err(err).Str("collection", c.String()).Str("op", op).Msg("Local store operation failed")
}

// Preference returns a persisted UI flag, false when unset.
func (s *Store) Preference(name string) bool {
	raw, err := s.readRaw([]byte(preferenceKeyPrefix + name))
	if err != nil {
		logging.Warn().Err(err).Str("preference", name).Msg("Failed to read preference")
		return false
	}
	return string(raw) == "true"
}

// SetPreference persists a UI flag.
func (s *Store) SetPreference(name string, value bool) error {
	v := []byte("false")
	if value {
		v = []byte("true")
	}
	if err := s.writeRaw([]byte(preferenceKeyPrefix+name), v); err != nil {
		return fmt.Errorf("persist preference %s: %w", name, err)
	}
	return nil
}

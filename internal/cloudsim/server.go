// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package cloudsim

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/middleware"
	"github.com/tomtom215/setlistsync/internal/models"
)

const maxBodyBytes = 4 << 20

// Request is one logged call.
type Request struct {
	Method     string            `json:"method"`
	Path       string            `json:"path"`
	Collection models.Collection `json:"collection"`
	ID         string            `json:"id,omitempty"`
	Status     int               `json:"status"`
	Body       json.RawMessage   `json:"body,omitempty"`
}

// Fault forces the status of matching requests. An empty ID matches the
// collection endpoint itself (list and create).
type Fault struct {
	Collection models.Collection `json:"collection"`
	Method     string            `json:"method"`
	ID         string            `json:"id"`
	Status     int               `json:"status"`
}

type faultKey struct {
	collection models.Collection
	method     string
	id         string
}

// table keeps records in insertion order.
type table[T any] struct {
	order []string
	rows  map[string]T
}

func newTable[T any]() *table[T] {
	return &table[T]{rows: make(map[string]T)}
}

func (t *table[T]) list() []T {
	out := make([]T, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

func (t *table[T]) put(id string, v T) {
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = v
}

func (t *table[T]) remove(id string) bool {
	if _, ok := t.rows[id]; !ok {
		return false
	}
	delete(t.rows, id)
	for i, o := range t.order {
		if o == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return true
}

// Server is the simulated remote store. The zero value is not usable; call
// New.
type Server struct {
	mu       sync.Mutex
	songs    *table[models.Song]
	setLists *table[models.SetList]
	faults   map[faultKey]int
	requests []Request
	latency  time.Duration
}

// New creates an empty Server.
func New() *Server {
	return &Server{
		songs:    newTable[models.Song](),
		setLists: newTable[models.SetList](),
		faults:   make(map[faultKey]int),
	}
}

// SeedSongs stores songs as if they had been created remotely.
func (s *Server) SeedSongs(songs ...models.Song) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, song := range songs {
		s.songs.put(song.ID, song.Clone())
	}
}

// SeedSetLists stores set-lists as if they had been created remotely.
func (s *Server) SeedSetLists(lists ...models.SetList) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, l := range lists {
		l = l.Clone()
		l.Normalize()
		s.setLists.put(l.ID, l)
	}
}

// SeedFile is the layout read by LoadSeedFile.
type SeedFile struct {
	Songs    []models.Song    `json:"songs"`
	SetLists []models.SetList `json:"setlists"`
}

// LoadSeedFile seeds the server from a JSON file.
func (s *Server) LoadSeedFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read seed file: %w", err)
	}
	var seed SeedFile
	if err := json.Unmarshal(data, &seed); err != nil {
		return fmt.Errorf("decode seed file %s: %w", path, err)
	}
	s.SeedSongs(seed.Songs...)
	s.SeedSetLists(seed.SetLists...)
	return nil
}

// Songs returns the stored songs in creation order.
func (s *Server) Songs() []models.Song {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneSongs(s.songs.list())
}

// SetLists returns the stored set-lists in creation order.
func (s *Server) SetLists() []models.SetList {
	s.mu.Lock()
	defer s.mu.Unlock()
	return models.CloneSetLists(s.setLists.list())
}

// Song returns one stored song.
func (s *Server) Song(id string) (models.Song, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	song, ok := s.songs.rows[id]
	return song.Clone(), ok
}

// SetList returns one stored set-list.
func (s *Server) SetList(id string) (models.SetList, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.setLists.rows[id]
	return l.Clone(), ok
}

// ForceStatus makes every matching request answer status until cleared.
func (s *Server) ForceStatus(c models.Collection, method, id string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults[faultKey{c, strings.ToUpper(method), id}] = status
}

// FailList makes listing c answer status.
func (s *Server) FailList(c models.Collection, status int) {
	s.ForceStatus(c, http.MethodGet, "", status)
}

// Faults returns the active faults.
func (s *Server) Faults() []Fault {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Fault, 0, len(s.faults))
	for k, status := range s.faults {
		out = append(out, Fault{Collection: k.collection, Method: k.method, ID: k.id, Status: status})
	}
	return out
}

// ClearFaults removes every forced status.
func (s *Server) ClearFaults() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.faults = make(map[faultKey]int)
}

// SetLatency delays every data request by d.
func (s *Server) SetLatency(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.latency = d
}

// Requests returns the request log.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests counts logged requests matching method and collection. An
// empty id matches any id.
func (s *Server) CountRequests(c models.Collection, method, id string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Collection == c && r.Method == method && (id == "" || r.ID == id) {
			n++
		}
	}
	return n
}

// ResetRequests clears the request log.
func (s *Server) ResetRequests() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

// Handler returns the HTTP surface: /api/songs, /api/setlists, /health and
// the /_sim control endpoints.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(chimiddleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "service": "cloudsim"})
	})

	r.Route("/api/songs", func(r chi.Router) {
		h := &collectionHandler[models.Song]{
			sim:    s,
			name:   models.CollectionSongs,
			table:  s.songs,
			idOf:   func(v models.Song) string { return v.ID },
			withID: func(v models.Song, id string) models.Song { v.ID = id; return v },
		}
		h.mount(r)
	})

	r.Route("/api/setlists", func(r chi.Router) {
		h := &collectionHandler[models.SetList]{
			sim:   s,
			name:  models.CollectionSetLists,
			table: s.setLists,
			idOf:  func(v models.SetList) string { return v.ID },
			withID: func(v models.SetList, id string) models.SetList {
				v.ID = id
				v.Normalize()
				return v
			},
		}
		h.mount(r)
	})

	r.Route("/_sim", func(r chi.Router) {
		r.Get("/requests", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, s.Requests())
		})
		r.Delete("/requests", func(w http.ResponseWriter, r *http.Request) {
			s.ResetRequests()
			w.WriteHeader(http.StatusNoContent)
		})
		r.Get("/faults", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, s.Faults())
		})
		r.Post("/faults", s.addFault)
		r.Delete("/faults", func(w http.ResponseWriter, r *http.Request) {
			s.ClearFaults()
			w.WriteHeader(http.StatusNoContent)
		})
	})

	return r
}

func (s *Server) addFault(w http.ResponseWriter, r *http.Request) {
	var f Fault
	if err := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes)).Decode(&f); err != nil {
		writeError(w, http.StatusBadRequest, "invalid fault: "+err.Error())
		return
	}
	if f.Collection != models.CollectionSongs && f.Collection != models.CollectionSetLists {
		writeError(w, http.StatusBadRequest, "collection must be songs or setlists")
		return
	}
	if f.Status < 100 || f.Status > 599 || f.Method == "" {
		writeError(w, http.StatusBadRequest, "method and a valid status are required")
		return
	}
	s.ForceStatus(f.Collection, f.Method, f.ID, f.Status)
	writeJSON(w, http.StatusCreated, f)
}

// begin logs the request. It returns the log index, the forced status (0
// when none applies) and the configured latency.
func (s *Server) begin(c models.Collection, r *http.Request, id string, body []byte) (int, int, time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	forced := s.faults[faultKey{c, r.Method, id}]
	var logged json.RawMessage
	if len(body) > 0 {
		logged = append(json.RawMessage(nil), body...)
	}
	s.requests = append(s.requests, Request{
		Method:     r.Method,
		Path:       r.URL.Path,
		Collection: c,
		ID:         id,
		Body:       logged,
	})
	return len(s.requests) - 1, forced, s.latency
}

// finish records the status sent for the request at idx.
func (s *Server) finish(idx, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if idx < len(s.requests) {
		s.requests[idx].Status = status
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.Debug().Err(err).Msg("cloudsim: write response failed")
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// newID returns a fresh record id.
func newID() string {
	return uuid.New().String()
}

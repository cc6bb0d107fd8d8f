// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package sync

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/setlistsync/internal/connectivity"
	"github.com/tomtom215/setlistsync/internal/models"
	"github.com/tomtom215/setlistsync/internal/notify"
	"github.com/tomtom215/setlistsync/internal/remote"
	"github.com/tomtom215/setlistsync/internal/store"
)

// fakeCollection is an in-memory remote collection that records every call
// and fails on demand.
type fakeCollection[T any] struct {
	name  string
	idOf  func(T) string
	clone func(T) T

	mu      sync.Mutex
	records map[string]T
	order   []string
	calls   []string
	fail    map[string]error
	listErr error
	block   chan struct{}

	createBlock   chan struct{}
	createEntered chan string
}

var (
	_ remote.CollectionAPI[models.Song]    = (*fakeCollection[models.Song])(nil)
	_ remote.CollectionAPI[models.SetList] = (*fakeCollection[models.SetList])(nil)
)

func newFakeSongs() *fakeCollection[models.Song] {
	return &fakeCollection[models.Song]{
		name:    "songs",
		idOf:    func(s models.Song) string { return s.ID },
		clone:   models.Song.Clone,
		records: make(map[string]models.Song),
		fail:    make(map[string]error),
	}
}

func newFakeSetLists() *fakeCollection[models.SetList] {
	return &fakeCollection[models.SetList]{
		name:    "setlists",
		idOf:    func(l models.SetList) string { return l.ID },
		clone:   models.SetList.Clone,
		records: make(map[string]models.SetList),
		fail:    make(map[string]error),
	}
}

func statusError(code int, method, path string) *remote.APIError {
	return &remote.APIError{StatusCode: code, Method: method, Path: path, Message: http.StatusText(code)}
}

// seed stores records without recording calls.
func (f *fakeCollection[T]) seed(records ...T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range records {
		id := f.idOf(r)
		if _, ok := f.records[id]; !ok {
			f.order = append(f.order, id)
		}
		f.records[id] = f.clone(r)
	}
}

// failOn makes op ("get", "create", "update", "delete") on id return err.
// A nil err clears the failure.
func (f *fakeCollection[T]) failOn(op, id string, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err == nil {
		delete(f.fail, op+":"+id)
		return
	}
	f.fail[op+":"+id] = err
}

func (f *fakeCollection[T]) setListErr(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listErr = err
}

// blockList makes List wait until the returned func is called.
func (f *fakeCollection[T]) blockList() func() {
	ch := make(chan struct{})
	f.mu.Lock()
	f.block = ch
	f.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// blockCreate makes Create wait until the returned func is called. The id
// of each create that starts waiting is sent on the returned channel.
func (f *fakeCollection[T]) blockCreate() (<-chan string, func()) {
	ch := make(chan struct{})
	entered := make(chan string, 8)
	f.mu.Lock()
	f.createBlock = ch
	f.createEntered = entered
	f.mu.Unlock()
	var once sync.Once
	return entered, func() { once.Do(func() { close(ch) }) }
}

func (f *fakeCollection[T]) record(op, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, op+":"+id)
	return f.fail[op+":"+id]
}

func (f *fakeCollection[T]) get(id string) (T, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.records[id]
	return r, ok
}

func (f *fakeCollection[T]) size() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.records)
}

func (f *fakeCollection[T]) callLog() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// countCalls counts recorded calls whose "op:id" starts with prefix.
func (f *fakeCollection[T]) countCalls(prefix string) int {
	n := 0
	for _, c := range f.callLog() {
		if strings.HasPrefix(c, prefix) {
			n++
		}
	}
	return n
}

func (f *fakeCollection[T]) List(ctx context.Context) ([]T, error) {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list:")
	if f.listErr != nil {
		return nil, f.listErr
	}
	out := make([]T, 0, len(f.order))
	for _, id := range f.order {
		if r, ok := f.records[id]; ok {
			out = append(out, f.clone(r))
		}
	}
	return out, nil
}

func (f *fakeCollection[T]) Get(_ context.Context, id string) (*T, error) {
	if err := f.record("get", id); err != nil {
		return nil, err
	}
	r, ok := f.get(id)
	if !ok {
		return nil, statusError(http.StatusNotFound, http.MethodGet, "/api/"+f.name+"/"+id)
	}
	return &r, nil
}

func (f *fakeCollection[T]) Create(ctx context.Context, record T) (string, error) {
	id := f.idOf(record)
	f.mu.Lock()
	block, entered := f.createBlock, f.createEntered
	f.mu.Unlock()
	if block != nil {
		entered <- id
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if err := f.record("create", id); err != nil {
		return "", err
	}
	f.seed(record)
	return id, nil
}

func (f *fakeCollection[T]) Update(_ context.Context, id string, record T) error {
	if err := f.record("update", id); err != nil {
		return err
	}
	if _, ok := f.get(id); !ok {
		return statusError(http.StatusNotFound, http.MethodPut, "/api/"+f.name+"/"+id)
	}
	f.seed(record)
	return nil
}

func (f *fakeCollection[T]) Delete(_ context.Context, id string) error {
	if err := f.record("delete", id); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.records[id]; !ok {
		return statusError(http.StatusNotFound, http.MethodDelete, "/api/"+f.name+"/"+id)
	}
	delete(f.records, id)
	return nil
}

// fakeNotifier records emitted notifications.
type fakeNotifier struct {
	mu    sync.Mutex
	items []notify.Notification
}

func (n *fakeNotifier) Emit(kind notify.Kind, message string, count int) notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	item := notify.Notification{Kind: kind, Message: message, Count: count, CreatedAt: time.Now()}
	n.items = append(n.items, item)
	return item
}

func (n *fakeNotifier) all() []notify.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notify.Notification(nil), n.items...)
}

// publishRecorder captures change callbacks.
type publishRecorder struct {
	mu        sync.Mutex
	songs     [][]models.Song
	setLists  [][]models.SetList
	notifyLog []string
}

func (p *publishRecorder) callbacks() Callbacks {
	return Callbacks{
		OnSongsChanged: func(songs []models.Song) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.songs = append(p.songs, songs)
		},
		OnSetListsChanged: func(lists []models.SetList) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.setLists = append(p.setLists, lists)
		},
		Notify: func(kind notify.Kind, message string) {
			p.mu.Lock()
			defer p.mu.Unlock()
			p.notifyLog = append(p.notifyLog, string(kind)+": "+message)
		},
	}
}

func (p *publishRecorder) lastSetLists() []models.SetList {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.setLists) == 0 {
		return nil
	}
	return p.setLists[len(p.setLists)-1]
}

func (p *publishRecorder) songPublishes() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.songs)
}

// harness bundles an engine with its fakes.
type harness struct {
	engine   *Engine
	store    *store.Store
	songs    *fakeCollection[models.Song]
	setLists *fakeCollection[models.SetList]
	monitor  *connectivity.Static
	notifier *fakeNotifier
	rec      *publishRecorder
}

type harnessOption func(*harnessSetup)

type harnessSetup struct {
	online bool
	cfg    Config
	seed   func(h *harness)
}

func offline() harnessOption {
	return func(s *harnessSetup) { s.online = false }
}

func withDebounce(d time.Duration) harnessOption {
	return func(s *harnessSetup) { s.cfg.SetListDebounce = d }
}

// seeded runs fn against the store and fakes before the engine is created.
func seeded(fn func(h *harness)) harnessOption {
	return func(s *harnessSetup) { s.seed = fn }
}

// newHarness builds an engine that has not been initialized yet. The
// default debounce is long enough that only explicit pushes run.
func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()

	setup := harnessSetup{
		online: true,
		cfg: Config{
			SetListDebounce:  time.Hour,
			ReconcileTimeout: 2 * time.Second,
			PushTimeout:      2 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(&setup)
	}

	st, err := store.OpenInMemory()
	checkNoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	h := &harness{
		store:    st,
		songs:    newFakeSongs(),
		setLists: newFakeSetLists(),
		monitor:  connectivity.NewStatic(setup.online),
		notifier: &fakeNotifier{},
		rec:      &publishRecorder{},
	}
	if setup.seed != nil {
		setup.seed(h)
	}

	e, err := New(Deps{
		Store:    st,
		Songs:    h.songs,
		SetLists: h.setLists,
		Monitor:  h.monitor,
		Notifier: h.notifier,
	}, setup.cfg, h.rec.callbacks())
	checkNoError(t, err)
	t.Cleanup(e.Dispose)
	h.engine = e
	return h
}

// start initializes the engine and waits for reconciliation to settle.
func (h *harness) start(t *testing.T) {
	t.Helper()
	checkNoError(t, h.engine.Init(context.Background()))
	waitReady(t, h.engine)
}

func song(id, title string, updated models.Millis) models.Song {
	return models.Song{
		ID:         id,
		Title:      title,
		Artist:     "Trad.",
		Lyrics:     "...",
		Timestamps: []models.Marker{},
		CreatedAt:  updated,
		UpdatedAt:  updated,
	}
}

func setList(id, name string, updated models.Millis, members ...string) models.SetList {
	l := models.SetList{
		ID:        id,
		Name:      name,
		Songs:     append([]string{}, members...),
		CreatedAt: updated,
		UpdatedAt: updated,
	}
	l.Normalize()
	return l
}

// Setlistsync - Local-first song and set-list synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/setlistsync

package sync

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tomtom215/setlistsync/internal/connectivity"
	"github.com/tomtom215/setlistsync/internal/logging"
	"github.com/tomtom215/setlistsync/internal/models"
	"github.com/tomtom215/setlistsync/internal/notify"
	"github.com/tomtom215/setlistsync/internal/remote"
	"github.com/tomtom215/setlistsync/internal/store"
)

// LocalStore is the persistence the engine reads from and writes to.
// Save errors are logged and counted by the store; the engine ignores them.
type LocalStore interface {
	LoadSongs() []models.Song
	LoadSetLists() []models.SetList
	SaveSongs(songs []models.Song) error
	SaveSetLists(lists []models.SetList) error
	IsEmpty(c models.Collection) bool
}

var _ LocalStore = (*store.Store)(nil)

// Notifier shows transient status messages.
type Notifier interface {
	Emit(kind notify.Kind, message string, count int) notify.Notification
}

var _ Notifier = (*notify.Emitter)(nil)

// Callbacks are invoked after the collections change or a notification is
// emitted. They run outside the engine lock and may call back into the
// engine. Any of them may be nil.
type Callbacks struct {
	OnSongsChanged    func(songs []models.Song)
	OnSetListsChanged func(lists []models.SetList)
	Notify            func(kind notify.Kind, message string)
}

// Config holds engine timing.
type Config struct {
	// SetListDebounce is the quiet period before set-lists are pushed.
	SetListDebounce time.Duration

	// ReconcileTimeout bounds the remote listing during reconciliation.
	ReconcileTimeout time.Duration

	// PushTimeout bounds one push round.
	PushTimeout time.Duration
}

// DefaultConfig returns the standard timings.
func DefaultConfig() Config {
	return Config{
		SetListDebounce:  500 * time.Millisecond,
		ReconcileTimeout: 30 * time.Second,
		PushTimeout:      30 * time.Second,
	}
}

// Deps are the collaborators injected into the engine.
type Deps struct {
	Store    LocalStore
	Songs    remote.CollectionAPI[models.Song]
	SetLists remote.CollectionAPI[models.SetList]
	Monitor  connectivity.Monitor

	// Notifier defaults to a notify.Emitter with the default TTL.
	Notifier Notifier
}

type songIntent int

const (
	intentUpdate songIntent = iota
	intentCreate
)

func (i songIntent) String() string {
	if i == intentCreate {
		return "create"
	}
	return "update"
}

// dirtySong is a song with an outstanding push. gen changes on every
// mutation so a push only clears the entry it actually sent.
type dirtySong struct {
	intent songIntent
	gen    uint64
}

// Engine synchronizes the local cache with the remote store.
type Engine struct {
	store    LocalStore
	songs    remote.CollectionAPI[models.Song]
	setLists remote.CollectionAPI[models.SetList]
	monitor  connectivity.Monitor
	notifier Notifier
	cb       Callbacks
	cfg      Config

	debouncer *Debouncer

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	reconcileMu   sync.Mutex
	songPushMu    sync.Mutex
	setListPushMu sync.Mutex

	mu                  sync.Mutex
	initialized         bool
	initialLoadComplete bool
	reconciling         bool
	deferred            bool
	disposed            bool
	dirty               map[string]dirtySong
	dirtyGen            uint64
	setListsPending     bool
	unsubscribe         func()
	lastReconcile       *ReconcileReport
	lastSongPush        *PushReport
	lastSetListPush     *PushReport

	readyOnce sync.Once
	ready     chan struct{}
}

// New creates an engine. Init must be called before it reconciles or
// pushes anything.
func New(deps Deps, cfg Config, cb Callbacks) (*Engine, error) {
	switch {
	case deps.Store == nil:
		return nil, errors.New("sync: store is required")
	case deps.Songs == nil || deps.SetLists == nil:
		return nil, errors.New("sync: remote collections are required")
	case deps.Monitor == nil:
		return nil, errors.New("sync: connectivity monitor is required")
	}

	def := DefaultConfig()
	if cfg.SetListDebounce <= 0 {
		cfg.SetListDebounce = def.SetListDebounce
	}
	if cfg.ReconcileTimeout <= 0 {
		cfg.ReconcileTimeout = def.ReconcileTimeout
	}
	if cfg.PushTimeout <= 0 {
		cfg.PushTimeout = def.PushTimeout
	}

	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.NewEmitter(notify.DefaultTTL)
	}

	ctx, cancel := context.WithCancel(context.Background())
	e := &Engine{
		store:    deps.Store,
		songs:    deps.Songs,
		setLists: deps.SetLists,
		monitor:  deps.Monitor,
		notifier: notifier,
		cb:       cb,
		cfg:      cfg,
		ctx:      ctx,
		cancel:   cancel,
		dirty:    make(map[string]dirtySong),
		ready:    make(chan struct{}),
	}
	e.debouncer = NewDebouncer(cfg.SetListDebounce, e.onSetListDebounce)
	return e, nil
}

// Init publishes the cached collections and starts reconciliation. When the
// monitor reports offline the reconciliation is deferred to the first online
// transition and pushes are allowed immediately. Init may be called once.
func (e *Engine) Init(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return ErrDisposed
	}
	if e.initialized {
		e.mu.Unlock()
		return ErrAlreadyInitialized
	}
	e.initialized = true

	updates, unsubscribe := e.monitor.Subscribe()
	e.unsubscribe = unsubscribe

	songs := e.store.LoadSongs()
	lists := e.store.LoadSetLists()
	empty := e.emptinessLocked()
	online := e.monitor.IsOnline()
	if !online {
		e.initialLoadComplete = true
		e.deferred = true
	}
	e.mu.Unlock()

	// The cache is published before any merged result can be.
	e.publishSongs(songs)
	e.publishSetLists(lists)

	e.goBackground(func() { e.watchConnectivity(updates) })
	if online {
		e.goBackground(func() {
			e.reconcileMu.Lock()
			defer e.reconcileMu.Unlock()
			e.reconcile(e.ctx, empty)
		})
	}

	if !online {
		e.markReady()
		recordOfflineStart()
		logging.Ctx(ctx).Info().
			Int("songs", len(songs)).
			Int("setlists", len(lists)).
			Msg("Starting offline, reconciliation deferred until online")
		if empty.any() {
			e.notify(notify.KindWarning, msgOfflineRecover, 0)
		}
	}
	return nil
}

// Ready is closed once the first reconciliation has settled (or was
// deferred by an offline start).
func (e *Engine) Ready() <-chan struct{} {
	return e.ready
}

func (e *Engine) markReady() {
	e.readyOnce.Do(func() { close(e.ready) })
}

// Dispose cancels the pending set-list push, stops following connectivity
// and waits for background work to observe the cancellation. Results of
// requests still in flight are discarded.
func (e *Engine) Dispose() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	e.disposed = true
	unsubscribe := e.unsubscribe
	e.unsubscribe = nil
	e.mu.Unlock()

	e.debouncer.Stop()
	if unsubscribe != nil {
		unsubscribe()
	}
	e.cancel()
	e.wg.Wait()
	logging.Info().Msg("Sync engine disposed")
}

// goLocked starts fn as tracked background work. Caller must hold e.mu and
// have checked e.disposed.
func (e *Engine) goLocked(fn func()) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		fn()
	}()
}

// goBackground starts fn unless the engine has been disposed.
func (e *Engine) goBackground(fn func()) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.disposed {
		return
	}
	e.goLocked(fn)
}

// gateLocked reports why a push may not run now.
func (e *Engine) gateLocked() error {
	switch {
	case e.disposed:
		return ErrDisposed
	case !e.initialLoadComplete || e.reconciling:
		return ErrNotReady
	case !e.monitor.IsOnline():
		return ErrOffline
	case e.deferred:
		// Back online after an offline start; the deferred merge goes first.
		return ErrNotReady
	}
	return nil
}

type emptiness struct {
	songs    bool
	setLists bool
}

func (em emptiness) any() bool {
	return em.songs || em.setLists
}

func (e *Engine) emptinessLocked() emptiness {
	return emptiness{
		songs:    e.store.IsEmpty(models.CollectionSongs),
		setLists: e.store.IsEmpty(models.CollectionSetLists),
	}
}

// watchConnectivity handles offline to online transitions.
func (e *Engine) watchConnectivity(updates <-chan bool) {
	for {
		select {
		case <-e.ctx.Done():
			return
		case online, ok := <-updates:
			if !ok {
				return
			}
			if online {
				e.handleReconnect()
			}
		}
	}
}

func (e *Engine) handleReconnect() {
	e.mu.Lock()
	if e.disposed {
		e.mu.Unlock()
		return
	}
	deferred := e.deferred
	pendingSongs := len(e.dirty) > 0
	pendingLists := e.setListsPending
	e.mu.Unlock()

	logging.Info().
		Bool("deferred_reconcile", deferred).
		Bool("dirty_songs", pendingSongs).
		Bool("setlists_pending", pendingLists).
		Msg("Remote store reachable again")

	if deferred {
		// Reconcile resumes any pushes that queued up while offline.
		if _, err := e.Reconcile(e.ctx); err != nil && !errors.Is(err, ErrDisposed) {
			logging.Warn().Err(err).Msg("Deferred reconciliation did not run")
		}
		return
	}
	e.resumePushes(pendingSongs, pendingLists)
}

func (e *Engine) resumePushes(songs, setLists bool) {
	if songs {
		e.kickSongPush()
	}
	if setLists {
		e.scheduleSetListPush()
	}
}

// Status is a point-in-time view of the engine.
type Status struct {
	Initialized         bool             `json:"initialized"`
	InitialLoadComplete bool             `json:"initial_load_complete"`
	Reconciling         bool             `json:"reconciling"`
	ReconcileDeferred   bool             `json:"reconcile_deferred"`
	Online              bool             `json:"online"`
	Disposed            bool             `json:"disposed"`
	DirtySongs          int              `json:"dirty_songs"`
	SetListPushPending  bool             `json:"setlist_push_pending"`
	SetListPushArmed    bool             `json:"setlist_push_armed"`
	LastReconcile       *ReconcileReport `json:"last_reconcile,omitempty"`
	LastSongPush        *PushReport      `json:"last_song_push,omitempty"`
	LastSetListPush     *PushReport      `json:"last_setlist_push,omitempty"`
}

// Status returns the current engine state.
func (e *Engine) Status() Status {
	armed := e.debouncer.Pending()

	e.mu.Lock()
	defer e.mu.Unlock()
	return Status{
		Initialized:         e.initialized,
		InitialLoadComplete: e.initialLoadComplete,
		Reconciling:         e.reconciling,
		ReconcileDeferred:   e.deferred,
		Online:              e.monitor.IsOnline(),
		Disposed:            e.disposed,
		DirtySongs:          len(e.dirty),
		SetListPushPending:  e.setListsPending,
		SetListPushArmed:    armed,
		LastReconcile:       e.lastReconcile,
		LastSongPush:        e.lastSongPush,
		LastSetListPush:     e.lastSetListPush,
	}
}

func (e *Engine) publishSongs(songs []models.Song) {
	if e.cb.OnSongsChanged != nil {
		e.cb.OnSongsChanged(songs)
	}
}

func (e *Engine) publishSetLists(lists []models.SetList) {
	if e.cb.OnSetListsChanged != nil {
		e.cb.OnSetListsChanged(lists)
	}
}

func (e *Engine) notify(kind notify.Kind, message string, count int) {
	e.notifier.Emit(kind, message, count)
	if e.cb.Notify != nil {
		e.cb.Notify(kind, message)
	}
}

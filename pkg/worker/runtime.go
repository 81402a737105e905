// Package worker implements the background worker runtime of the VisitaFlow
// PWA: a persistent, single-threaded event loop that intercepts fetches,
// displays pushed notifications and reacts to notification clicks,
// independent of any page lifetime.
//
// Events are drained one at a time: an event is not considered handled until
// its handler's asynchronous chain has fully resolved, which is the Go
// rendering of the platform's pending-work ("waitUntil") token. No in-memory
// state is assumed to survive between events except through CacheStorage.
package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// State is the coarse lifecycle position of a runtime version.
type State int32

const (
	StateNew State = iota
	StateInstalling
	StateInstalled
	StateActivating
	StateActivated
	StateRedundant
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateInstalling:
		return "installing"
	case StateInstalled:
		return "installed"
	case StateActivating:
		return "activating"
	case StateActivated:
		return "activated"
	case StateRedundant:
		return "redundant"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

const cachePrefix = "visitaflow-"

// InstallFunc is one-time setup run during installation, e.g. pre-caching
// the application shell. A failing InstallFunc aborts the installation and
// leaves the previous runtime version in control.
type InstallFunc func(ctx context.Context, cache *Cache) error

// Options configures a Runtime.
type Options struct {
	// Version tags this runtime's cache namespace. Caches carrying any
	// other version are deleted on activation.
	Version   string
	Log       *zap.SugaredLogger
	Fetcher   Fetcher
	Notifier  Notifier
	Clients   WindowClients
	Caches    *CacheStorage
	OnInstall []InstallFunc
}

type envelope struct {
	ctx     context.Context
	ev      *Event
	resp    *Response
	err     error
	drained chan struct{}
}

type handlerFunc func(ctx context.Context, env *envelope)

// Runtime is one version of the background worker.
type Runtime struct {
	version   string
	log       *zap.SugaredLogger
	fetcher   Fetcher
	notifier  Notifier
	clients   WindowClients
	caches    *CacheStorage
	onInstall []InstallFunc
	handlers  map[EventType]handlerFunc

	mu    sync.Mutex
	state State

	skipOnce sync.Once
	skipCh   chan struct{}
	ready    chan struct{}
	events   chan *envelope
}

// New builds a Runtime. It does not run until Run is called.
func New(opts Options) *Runtime {
	log := opts.Log
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	caches := opts.Caches
	if caches == nil {
		caches = NewCacheStorage()
	}
	r := &Runtime{
		version:   opts.Version,
		log:       log,
		fetcher:   opts.Fetcher,
		notifier:  opts.Notifier,
		clients:   opts.Clients,
		caches:    caches,
		onInstall: opts.OnInstall,
		skipCh:    make(chan struct{}),
		ready:     make(chan struct{}),
		events:    make(chan *envelope),
	}
	r.handlers = map[EventType]handlerFunc{
		EventFetch: func(ctx context.Context, env *envelope) {
			env.resp, env.err = r.handleFetch(ctx, env.ev.Request)
		},
		EventPush: func(ctx context.Context, env *envelope) {
			env.err = r.handlePush(ctx, env.ev.Data)
		},
		EventNotificationClick: func(ctx context.Context, env *envelope) {
			env.err = r.handleNotificationClick(ctx, env.ev.Notification)
		},
		EventNotificationClose: func(ctx context.Context, env *envelope) {
			// Dismissals require no action; reserved for telemetry.
		},
		EventMessage: func(ctx context.Context, env *envelope) {
			r.handleMessage(env.ev.Message)
		},
	}
	return r
}

// CacheName is the cache namespace owned by this runtime version.
func (r *Runtime) CacheName() string {
	return cachePrefix + r.version
}

// State returns the current lifecycle state.
func (r *Runtime) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runtime) setState(s State) {
	r.mu.Lock()
	r.state = s
	r.mu.Unlock()
	r.log.Debugw("runtime state changed", "state", s.String(), "version", r.version)
}

// SkipWaiting releases the runtime from the waiting phase so the newest
// version activates without waiting for open pages to close.
func (r *Runtime) SkipWaiting() {
	r.skipOnce.Do(func() { close(r.skipCh) })
}

// Ready is closed once activation has completed and events are being served.
func (r *Runtime) Ready() <-chan struct{} {
	return r.ready
}

// Run installs and activates this runtime version, then serves events until
// ctx is cancelled. Install or activate failure aborts the corresponding
// transition and returns the error, leaving the previous version in control.
func (r *Runtime) Run(ctx context.Context) error {
	r.setState(StateInstalling)
	for _, install := range r.onInstall {
		if err := install(ctx, r.caches.Open(r.CacheName())); err != nil {
			r.setState(StateRedundant)
			return fmt.Errorf("install: %w", err)
		}
	}
	// The install step always signals skip-waiting so the newest version
	// takes over immediately.
	r.SkipWaiting()
	r.setState(StateInstalled)

	select {
	case <-r.skipCh:
	case <-ctx.Done():
		return ctx.Err()
	}

	r.setState(StateActivating)
	for _, name := range r.caches.Keys() {
		if name == r.CacheName() {
			continue
		}
		r.caches.Delete(name)
		r.log.Infow("deleted stale cache", "cache", name)
	}
	if err := r.clients.Claim(ctx); err != nil {
		r.setState(StateRedundant)
		return fmt.Errorf("activate: claim clients: %w", err)
	}
	r.setState(StateActivated)
	close(r.ready)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-r.events:
			r.handle(env)
		}
	}
}

// handle runs one event to completion. A handler panic is contained here: a
// crash while displaying one notification must not take down the runtime
// for every future event.
func (r *Runtime) handle(env *envelope) {
	defer close(env.drained)
	defer func() {
		if p := recover(); p != nil {
			env.err = fmt.Errorf("handler panic: %v", p)
			r.log.Errorw("event handler panicked", "event", env.ev.Type, "panic", p)
		}
	}()

	h, ok := r.handlers[env.ev.Type]
	if !ok {
		r.log.Warnw("no handler for event", "event", env.ev.Type)
		return
	}
	h(env.ctx, env)
}

func (r *Runtime) dispatch(ctx context.Context, ev *Event) (*envelope, error) {
	env := &envelope{ctx: ctx, ev: ev, drained: make(chan struct{})}
	select {
	case r.events <- env:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case <-env.drained:
		return env, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Fetch routes an intercepted request through the runtime loop.
func (r *Runtime) Fetch(ctx context.Context, req *Request) (*Response, error) {
	env, err := r.dispatch(ctx, &Event{Type: EventFetch, Request: req})
	if err != nil {
		return nil, err
	}
	return env.resp, env.err
}

// Push delivers a raw push message. The returned error is informational:
// delivery failures are logged and never destabilize the runtime.
func (r *Runtime) Push(ctx context.Context, payload []byte) error {
	env, err := r.dispatch(ctx, &Event{Type: EventPush, Data: payload})
	if err != nil {
		return err
	}
	return env.err
}

// NotificationClick reacts to the user activating a displayed notification.
func (r *Runtime) NotificationClick(ctx context.Context, n Notification) error {
	env, err := r.dispatch(ctx, &Event{Type: EventNotificationClick, Notification: &n})
	if err != nil {
		return err
	}
	return env.err
}

// NotificationClose records a dismissal without a click.
func (r *Runtime) NotificationClose(ctx context.Context, n Notification) error {
	_, err := r.dispatch(ctx, &Event{Type: EventNotificationClose, Notification: &n})
	return err
}

// PostMessage delivers a control message from a page.
func (r *Runtime) PostMessage(ctx context.Context, m Message) error {
	_, err := r.dispatch(ctx, &Event{Type: EventMessage, Message: &m})
	return err
}

// handlePush parses the payload and keeps the event open until the display
// request's outcome is known.
func (r *Runtime) handlePush(ctx context.Context, data []byte) error {
	n := decodeNotification(data)
	if err := r.notifier.Show(ctx, n); err != nil {
		r.log.Errorw("failed to display notification", "title", n.Title, "error", err)
		return err
	}
	return nil
}

// handleNotificationClick closes the notification, then focuses an open
// window already at the target URL or opens a new one.
func (r *Runtime) handleNotificationClick(ctx context.Context, n *Notification) error {
	if err := r.notifier.Close(ctx, n.Tag); err != nil {
		r.log.Warnw("failed to close notification", "tag", n.Tag, "error", err)
	}

	target := n.TargetURL()
	windows, err := r.clients.List(ctx)
	if err != nil {
		r.log.Errorw("failed to enumerate windows", "error", err)
		return err
	}
	for _, w := range windows {
		if w.URL() == target {
			return w.Focus(ctx)
		}
	}
	return r.clients.OpenWindow(ctx, target)
}

func (r *Runtime) handleMessage(m *Message) {
	if m.Type == MessageSkipWaiting {
		r.SkipWaiting()
		return
	}
	r.log.Debugw("ignoring message", "type", m.Type)
}

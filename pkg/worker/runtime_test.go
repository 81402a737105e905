package worker

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"
)

type fakeFetcher struct {
	mu        sync.Mutex
	responses map[string]*Response
	err       error
	calls     []string
}

func (f *fakeFetcher) Do(_ context.Context, req *Request) (*Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req.Method+" "+req.URL)
	if f.err != nil {
		return nil, f.err
	}
	if resp, ok := f.responses[req.URL]; ok {
		return resp, nil
	}
	return &Response{StatusCode: http.StatusNotFound}, nil
}

type fakeNotifier struct {
	mu      sync.Mutex
	shown   []Notification
	closed  []string
	showErr error
}

func (f *fakeNotifier) Show(_ context.Context, n Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.showErr != nil {
		return f.showErr
	}
	f.shown = append(f.shown, n)
	return nil
}

func (f *fakeNotifier) Close(_ context.Context, tag string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = append(f.closed, tag)
	return nil
}

type fakeWindow struct {
	url     string
	focused bool
}

func (w *fakeWindow) URL() string                    { return w.url }
func (w *fakeWindow) Focus(_ context.Context) error { w.focused = true; return nil }

type fakeClients struct {
	mu      sync.Mutex
	windows []*fakeWindow
	opened  []string
	claimed bool
}

func (f *fakeClients) List(_ context.Context) ([]WindowClient, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]WindowClient, len(f.windows))
	for i, w := range f.windows {
		out[i] = w
	}
	return out, nil
}

func (f *fakeClients) OpenWindow(_ context.Context, url string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.opened = append(f.opened, url)
	return nil
}

func (f *fakeClients) Claim(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.claimed = true
	return nil
}

func startRuntime(t *testing.T, opts Options) *Runtime {
	t.Helper()
	r := New(opts)
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go r.Run(ctx) //nolint:errcheck // terminated via ctx cancel
	select {
	case <-r.Ready():
	case <-time.After(2 * time.Second):
		t.Fatal("runtime did not activate")
	}
	return r
}

func baseOptions() Options {
	return Options{
		Version:  "v1",
		Fetcher:  &fakeFetcher{},
		Notifier: &fakeNotifier{},
		Clients:  &fakeClients{},
	}
}

func TestRun_InstallFailureAbortsActivation(t *testing.T) {
	opts := baseOptions()
	opts.OnInstall = []InstallFunc{
		func(context.Context, *Cache) error { return errors.New("precache failed") },
	}
	r := New(opts)
	if err := r.Run(context.Background()); err == nil {
		t.Fatal("Run() = nil, want install error")
	}
	if got := r.State(); got != StateRedundant {
		t.Errorf("State() = %v, want redundant", got)
	}
}

func TestRun_ActivateDeletesStaleCachesAndClaims(t *testing.T) {
	caches := NewCacheStorage()
	caches.Open("visitaflow-v0").Put("/app.js", &Response{StatusCode: 200})
	caches.Open("someone-else").Put("/x", &Response{StatusCode: 200})

	clients := &fakeClients{}
	opts := baseOptions()
	opts.Caches = caches
	opts.Clients = clients
	startRuntime(t, opts)

	keys := caches.Keys()
	for _, k := range keys {
		if k != "visitaflow-v1" {
			t.Errorf("stale cache %q survived activation", k)
		}
	}
	if !clients.claimed {
		t.Error("activation did not claim open pages")
	}
}

func TestFetch_NetworkFirst(t *testing.T) {
	fetcher := &fakeFetcher{responses: map[string]*Response{
		"/api/visits": {StatusCode: 200, Body: []byte(`[]`)},
	}}
	opts := baseOptions()
	opts.Fetcher = fetcher
	r := startRuntime(t, opts)

	resp, err := r.Fetch(context.Background(), &Request{Method: http.MethodGet, URL: "/api/visits"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if resp.StatusCode != 200 || string(resp.Body) != `[]` {
		t.Errorf("Fetch = %d %q, want network response", resp.StatusCode, resp.Body)
	}
}

func TestFetch_FallsBackToCacheOnNetworkFailure(t *testing.T) {
	caches := NewCacheStorage()
	caches.Open("visitaflow-v1").Put("/offline", &Response{StatusCode: 200, Body: []byte("cached")})

	opts := baseOptions()
	opts.Caches = caches
	opts.Fetcher = &fakeFetcher{err: errors.New("network down")}
	r := startRuntime(t, opts)

	resp, err := r.Fetch(context.Background(), &Request{Method: http.MethodGet, URL: "/offline"})
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if string(resp.Body) != "cached" {
		t.Errorf("Fetch body = %q, want cached fallback", resp.Body)
	}
}

func TestFetch_PropagatesErrorWithoutCacheEntry(t *testing.T) {
	netErr := errors.New("network down")
	opts := baseOptions()
	opts.Fetcher = &fakeFetcher{err: netErr}
	r := startRuntime(t, opts)

	_, err := r.Fetch(context.Background(), &Request{Method: http.MethodGet, URL: "/missing"})
	if !errors.Is(err, netErr) {
		t.Errorf("Fetch error = %v, want original network error", err)
	}
}

func TestFetch_NonGETIsNotIntercepted(t *testing.T) {
	caches := NewCacheStorage()
	caches.Open("visitaflow-v1").Put("/submit", &Response{StatusCode: 200, Body: []byte("cached")})

	netErr := errors.New("network down")
	opts := baseOptions()
	opts.Caches = caches
	opts.Fetcher = &fakeFetcher{err: netErr}
	r := startRuntime(t, opts)

	// A POST must pass through: no cache fallback even when an entry exists.
	_, err := r.Fetch(context.Background(), &Request{Method: http.MethodPost, URL: "/submit"})
	if !errors.Is(err, netErr) {
		t.Errorf("Fetch error = %v, want pass-through network error", err)
	}
}

func TestPush_DisplaysParsedPayload(t *testing.T) {
	notifier := &fakeNotifier{}
	opts := baseOptions()
	opts.Notifier = notifier
	r := startRuntime(t, opts)

	payload := []byte(`{"title":"New visit","body":"Inspection at 14:00","tag":"visit-7","data":{"url":"/visits/7"}}`)
	if err := r.Push(context.Background(), payload); err != nil {
		t.Fatalf("Push error: %v", err)
	}

	if len(notifier.shown) != 1 {
		t.Fatalf("shown %d notifications, want 1", len(notifier.shown))
	}
	n := notifier.shown[0]
	if n.Title != "New visit" || n.Tag != "visit-7" {
		t.Errorf("notification = %+v", n)
	}
	if n.Icon != DefaultIcon {
		t.Errorf("Icon = %q, want default applied", n.Icon)
	}
	if n.TargetURL() != "/visits/7" {
		t.Errorf("TargetURL = %q, want /visits/7", n.TargetURL())
	}
}

func TestPush_NonJSONFallsBackToPlainText(t *testing.T) {
	notifier := &fakeNotifier{}
	opts := baseOptions()
	opts.Notifier = notifier
	r := startRuntime(t, opts)

	if err := r.Push(context.Background(), []byte("plain text alert")); err != nil {
		t.Fatalf("Push error: %v", err)
	}
	n := notifier.shown[0]
	if n.Body != "plain text alert" {
		t.Errorf("Body = %q, want raw text", n.Body)
	}
	if n.Title != DefaultTitle || n.Tag != DefaultTag {
		t.Errorf("defaults not applied: %+v", n)
	}
	if n.TargetURL() != DefaultTargetURL {
		t.Errorf("TargetURL = %q, want fallback route", n.TargetURL())
	}
}

func TestPush_DisplayFailureDoesNotKillRuntime(t *testing.T) {
	notifier := &fakeNotifier{showErr: errors.New("display refused")}
	opts := baseOptions()
	opts.Notifier = notifier
	r := startRuntime(t, opts)

	if err := r.Push(context.Background(), []byte(`{"title":"T","body":"B"}`)); err == nil {
		t.Fatal("Push = nil, want display error")
	}

	// Runtime must still serve events.
	notifier.mu.Lock()
	notifier.showErr = nil
	notifier.mu.Unlock()
	if err := r.Push(context.Background(), []byte(`{"title":"T","body":"B"}`)); err != nil {
		t.Fatalf("Push after failure: %v", err)
	}
}

func TestNotificationClick_FocusesExactMatch(t *testing.T) {
	win := &fakeWindow{url: "/visits/7"}
	clients := &fakeClients{windows: []*fakeWindow{{url: "/dashboard"}, win}}
	notifier := &fakeNotifier{}
	opts := baseOptions()
	opts.Clients = clients
	opts.Notifier = notifier
	r := startRuntime(t, opts)

	n := Notification{Tag: "visit-7", Data: map[string]string{"url": "/visits/7"}}
	if err := r.NotificationClick(context.Background(), n); err != nil {
		t.Fatalf("NotificationClick error: %v", err)
	}
	if !win.focused {
		t.Error("matching window was not focused")
	}
	if len(clients.opened) != 0 {
		t.Errorf("opened %v, want no new window", clients.opened)
	}
	if len(notifier.closed) != 1 || notifier.closed[0] != "visit-7" {
		t.Errorf("closed = %v, want the clicked notification", notifier.closed)
	}
}

func TestNotificationClick_OpensWindowWhenNoMatch(t *testing.T) {
	clients := &fakeClients{windows: []*fakeWindow{{url: "/dashboard"}}}
	opts := baseOptions()
	opts.Clients = clients
	r := startRuntime(t, opts)

	n := Notification{Data: map[string]string{"url": "/visits/9"}}
	if err := r.NotificationClick(context.Background(), n); err != nil {
		t.Fatalf("NotificationClick error: %v", err)
	}
	if len(clients.opened) != 1 || clients.opened[0] != "/visits/9" {
		t.Errorf("opened = %v, want [/visits/9]", clients.opened)
	}
}

func TestNotificationClick_DefaultsTargetURL(t *testing.T) {
	clients := &fakeClients{}
	opts := baseOptions()
	opts.Clients = clients
	r := startRuntime(t, opts)

	if err := r.NotificationClick(context.Background(), Notification{}); err != nil {
		t.Fatalf("NotificationClick error: %v", err)
	}
	if len(clients.opened) != 1 || clients.opened[0] != DefaultTargetURL {
		t.Errorf("opened = %v, want fallback route", clients.opened)
	}
}

func TestNotificationClose_IsANoOp(t *testing.T) {
	r := startRuntime(t, baseOptions())
	if err := r.NotificationClose(context.Background(), Notification{Tag: "x"}); err != nil {
		t.Fatalf("NotificationClose error: %v", err)
	}
}

func TestOnInstall_PrecachesIntoVersionedCache(t *testing.T) {
	caches := NewCacheStorage()
	opts := baseOptions()
	opts.Caches = caches
	opts.OnInstall = []InstallFunc{
		func(_ context.Context, cache *Cache) error {
			cache.Put("/app-shell", &Response{StatusCode: 200, Body: []byte("shell")})
			return nil
		},
	}
	startRuntime(t, opts)

	if _, ok := caches.Open("visitaflow-v1").Match("/app-shell"); !ok {
		t.Error("install setup did not populate the versioned cache")
	}
}

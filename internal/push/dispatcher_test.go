package push

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/config"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/schema"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/store"
)

var testVAPID = config.VAPIDConfig{
	PublicKey:  "test-public",
	PrivateKey: "test-private",
	Subscriber: "ops@visitaflow.app",
}

// fakeGateway returns a scripted outcome per endpoint and records every
// message it was asked to deliver.
type fakeGateway struct {
	mu       sync.Mutex
	outcomes map[string]error // keyed by endpoint, nil entry or absent = success
	messages map[string][]byte
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{outcomes: make(map[string]error), messages: make(map[string][]byte)}
}

func (g *fakeGateway) Send(_ context.Context, sub *schema.PushSubscription, message []byte) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.messages[sub.Endpoint] = message
	return g.outcomes[sub.Endpoint]
}

func (g *fakeGateway) calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.messages)
}

func newTestDispatcher(t *testing.T, gateway Gateway) (*Dispatcher, *store.MemoryStore) {
	t.Helper()
	subs := store.NewMemoryStore()
	return NewDispatcher(zap.NewNop().Sugar(), subs, gateway, testVAPID), subs
}

func seed(t *testing.T, subs *store.MemoryStore, userID, endpoint string) {
	t.Helper()
	if _, err := subs.Upsert(context.Background(), userID, endpoint, "p256dh-key", "auth-secret"); err != nil {
		t.Fatalf("seed subscription: %v", err)
	}
}

func TestSend_CountInvariant(t *testing.T) {
	gateway := newFakeGateway()
	gateway.outcomes["https://push.example/dead"] = ErrGone
	gateway.outcomes["https://push.example/flaky"] = errors.New("503 from gateway")

	d, subs := newTestDispatcher(t, gateway)
	ctx := context.Background()
	seed(t, subs, "tech-1", "https://push.example/ok-1")
	seed(t, subs, "tech-1", "https://push.example/ok-2")
	seed(t, subs, "tech-1", "https://push.example/dead")
	seed(t, subs, "tech-1", "https://push.example/flaky")

	res, err := d.Send(ctx, "tech-1", Payload{Title: "T", Body: "B"})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if res.Sent != 2 || res.Failed != 2 || res.Total != 4 {
		t.Errorf("Result = %+v, want sent=2 failed=2 total=4", res)
	}
	if res.Sent+res.Failed != res.Total {
		t.Errorf("sent+failed != total: %+v", res)
	}

	// Exactly the permanently-gone endpoint is pruned; the transient
	// failure keeps its record.
	remaining, _ := subs.ByUser(ctx, "tech-1")
	endpoints := make(map[string]bool)
	for _, sub := range remaining {
		endpoints[sub.Endpoint] = true
	}
	if endpoints["https://push.example/dead"] {
		t.Error("dead endpoint was not pruned")
	}
	if !endpoints["https://push.example/flaky"] {
		t.Error("transient failure was pruned; it must be kept for a later send")
	}
	if len(remaining) != 3 {
		t.Errorf("%d records remain, want 3", len(remaining))
	}
}

func TestSend_EmptyTargetIsSuccess(t *testing.T) {
	gateway := newFakeGateway()
	d, _ := newTestDispatcher(t, gateway)

	res, err := d.Send(context.Background(), "", Payload{Title: "T", Body: "B"})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	want := Result{Success: true}
	if *res != want {
		t.Errorf("Result = %+v, want %+v", res, want)
	}
	if gateway.calls() != 0 {
		t.Errorf("gateway called %d times for zero subscriptions", gateway.calls())
	}
}

func TestSend_TargetsSingleUser(t *testing.T) {
	gateway := newFakeGateway()
	d, subs := newTestDispatcher(t, gateway)
	seed(t, subs, "tech-1", "https://push.example/one")
	seed(t, subs, "tech-2", "https://push.example/two")

	res, err := d.Send(context.Background(), "tech-2", Payload{Title: "T", Body: "B"})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if res.Total != 1 || res.Sent != 1 {
		t.Errorf("Result = %+v, want exactly tech-2's subscription", res)
	}
	if _, ok := gateway.messages["https://push.example/one"]; ok {
		t.Error("tech-1's subscription received tech-2's notification")
	}
}

func TestSend_BroadcastsWithoutUserID(t *testing.T) {
	gateway := newFakeGateway()
	d, subs := newTestDispatcher(t, gateway)
	seed(t, subs, "tech-1", "https://push.example/one")
	seed(t, subs, "tech-2", "https://push.example/two")

	res, err := d.Send(context.Background(), "", Payload{Title: "T", Body: "B"})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if res.Total != 2 || res.Sent != 2 {
		t.Errorf("Result = %+v, want both users reached", res)
	}
}

func TestSend_AppliesPayloadDefaults(t *testing.T) {
	gateway := newFakeGateway()
	d, subs := newTestDispatcher(t, gateway)
	seed(t, subs, "tech-1", "https://push.example/abc")

	if _, err := d.Send(context.Background(), "tech-1", Payload{Title: "T", Body: "B"}); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	var wire Payload
	if err := json.Unmarshal(gateway.messages["https://push.example/abc"], &wire); err != nil {
		t.Fatalf("unmarshal wire payload: %v", err)
	}
	if wire.Icon != DefaultIcon || wire.Badge != DefaultBadge || wire.Tag != DefaultTag {
		t.Errorf("defaults missing on wire: %+v", wire)
	}
	if wire.Data["url"] != DefaultTargetURL {
		t.Errorf("Data.url = %q, want fallback route", wire.Data["url"])
	}
	if wire.Timestamp == 0 {
		t.Error("Timestamp not stamped")
	}
}

func TestSend_RequiresVAPIDConfig(t *testing.T) {
	subs := store.NewMemoryStore()
	d := NewDispatcher(zap.NewNop().Sugar(), subs, newFakeGateway(), config.VAPIDConfig{})

	if _, err := d.Send(context.Background(), "", Payload{Title: "T", Body: "B"}); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("Send error = %v, want ErrNotConfigured", err)
	}
}

func TestSend_RequiresTitleAndBody(t *testing.T) {
	d, _ := newTestDispatcher(t, newFakeGateway())
	for _, p := range []Payload{{}, {Title: "T"}, {Body: "B"}} {
		if _, err := d.Send(context.Background(), "", p); !errors.Is(err, ErrInvalidPayload) {
			t.Errorf("Send(%+v) error = %v, want ErrInvalidPayload", p, err)
		}
	}
}

// barrierGateway only succeeds if all expected sends are in flight at the
// same time, proving the fan-out is concurrent rather than sequential.
type barrierGateway struct {
	ready sync.WaitGroup
}

func (g *barrierGateway) Send(_ context.Context, _ *schema.PushSubscription, _ []byte) error {
	g.ready.Done()
	arrived := make(chan struct{})
	go func() {
		g.ready.Wait()
		close(arrived)
	}()
	select {
	case <-arrived:
		return nil
	case <-time.After(2 * time.Second):
		return errors.New("timed out waiting for concurrent sends")
	}
}

func TestSend_FansOutConcurrently(t *testing.T) {
	const n = 4
	gateway := &barrierGateway{}
	gateway.ready.Add(n)
	d, subs := newTestDispatcher(t, gateway)
	for _, suffix := range []string{"a", "b", "c", "d"} {
		seed(t, subs, "tech-1", "https://push.example/"+suffix)
	}

	res, err := d.Send(context.Background(), "tech-1", Payload{Title: "T", Body: "B"})
	if err != nil {
		t.Fatalf("Send error: %v", err)
	}
	if res.Sent != n {
		t.Errorf("Result = %+v, want all %d concurrent sends to succeed", res, n)
	}
}

func TestPayload_KeepsCallerData(t *testing.T) {
	gateway := newFakeGateway()
	d, subs := newTestDispatcher(t, gateway)
	seed(t, subs, "tech-1", "https://push.example/abc")

	payload := Payload{
		Title: "New visit",
		Body:  "Inspection scheduled",
		Tag:   "visit-42",
		Data:  map[string]string{"url": "/visits/42", "visitId": "42"},
	}
	if _, err := d.Send(context.Background(), "tech-1", payload); err != nil {
		t.Fatalf("Send error: %v", err)
	}

	wire := string(gateway.messages["https://push.example/abc"])
	for _, want := range []string{`"visit-42"`, `"/visits/42"`, `"visitId":"42"`} {
		if !strings.Contains(wire, want) {
			t.Errorf("wire payload missing %s: %s", want, wire)
		}
	}
}

// Package client is the subscription manager of the VisitaFlow PWA: it walks
// a device from permission prompt through push subscription creation to
// registration with the server, and exposes status and teardown.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/pkg/keycodec"
)

// Subscription is the transportable form of a push subscription.
type Subscription struct {
	Endpoint string `json:"endpoint"`
	P256dh   string `json:"p256dh"`
	Auth     string `json:"auth"`
}

// Result is the structured outcome of the user-facing operations. UI code
// renders Error directly instead of handling exceptions.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Manager orchestrates the subscription lifecycle for one device.
type Manager struct {
	platform   Platform
	baseURL    string
	token      string
	httpClient *http.Client
}

// New creates a Manager talking to the API at baseURL. token is the
// session's bearer credential and may be empty for unauthenticated probing.
func New(platform Platform, baseURL, token string) *Manager {
	return &Manager{
		platform: platform,
		baseURL:  baseURL,
		token:    token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// IsSupported reports whether the platform can do push at all. Pure
// capability check, no I/O.
func (m *Manager) IsSupported() bool {
	return m.platform.WorkerSupported() &&
		m.platform.PushSupported() &&
		m.platform.NotificationsSupported()
}

// PermissionState reflects the current platform permission.
func (m *Manager) PermissionState() PermissionState {
	return m.platform.Permission()
}

// RequestPermission obtains notification permission. Already-granted
// short-circuits without prompting; already-denied fails without prompting
// since platforms refuse to re-prompt.
func (m *Manager) RequestPermission(ctx context.Context) (PermissionState, error) {
	if !m.IsSupported() {
		return PermissionDenied, ErrUnsupported
	}
	switch m.platform.Permission() {
	case PermissionGranted:
		return PermissionGranted, nil
	case PermissionDenied:
		return PermissionDenied, ErrPermissionDenied
	}

	state, err := m.platform.RequestPermission(ctx)
	if err != nil {
		return PermissionDenied, fmt.Errorf("request permission: %w", err)
	}
	if state != PermissionGranted {
		return state, ErrPermissionDenied
	}
	return PermissionGranted, nil
}

// CreateSubscription creates a push subscription against the given VAPID
// public key and extracts its key material. It suspends until a worker
// registration is active.
func (m *Manager) CreateSubscription(ctx context.Context, vapidPublicKey string) (*Subscription, error) {
	if !m.IsSupported() {
		return nil, ErrUnsupported
	}

	reg, err := m.platform.Registration(ctx)
	if err != nil {
		return nil, fmt.Errorf("worker registration: %w", err)
	}

	serverKey, err := keycodec.DecodePublicKey(vapidPublicKey)
	if err != nil {
		return nil, fmt.Errorf("decode server key: %w", err)
	}

	sub, err := reg.Subscribe(ctx, serverKey)
	if err != nil {
		return nil, fmt.Errorf("create push subscription: %w", err)
	}

	return &Subscription{
		Endpoint: sub.Endpoint(),
		P256dh:   keycodec.EncodeKeyMaterial(sub.Key("p256dh")),
		Auth:     keycodec.EncodeKeyMaterial(sub.Key("auth")),
	}, nil
}

// FetchVAPIDKey retrieves the server's VAPID public key for use as the
// application server key.
func (m *Manager) FetchVAPIDKey(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/api/push/vapid-key", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch VAPID key: %w", err)
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode != http.StatusOK {
		return "", &HTTPError{StatusCode: resp.StatusCode, Message: serverMessage(resp)}
	}

	var body struct {
		PublicKey string `json:"publicKey"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode VAPID key response: %w", err)
	}
	return body.PublicKey, nil
}

// PersistSubscription registers the subscription with the server under the
// session's bearer credential.
func (m *Manager) PersistSubscription(ctx context.Context, sub *Subscription) Result {
	body, err := json.Marshal(sub)
	if err != nil {
		return Result{Error: fmt.Sprintf("marshal subscription: %v", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+"/api/push/subscribe", bytes.NewReader(body))
	if err != nil {
		return Result{Error: fmt.Sprintf("create request: %v", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if m.token != "" {
		req.Header.Set("Authorization", "Bearer "+m.token)
	}

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return Result{Error: fmt.Sprintf("persist subscription: %v", err)}
	}
	defer resp.Body.Close() //nolint:errcheck // best-effort close

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{Error: serverMessage(resp)}
	}
	return Result{Success: true}
}

// Enable composes permission, subscription creation and persistence,
// stopping with a readable reason at the first failing step. A created but
// unpersisted subscription is intentionally left in place for retry.
func (m *Manager) Enable(ctx context.Context, vapidPublicKey string) Result {
	if _, err := m.RequestPermission(ctx); err != nil {
		return Result{Error: err.Error()}
	}

	sub, err := m.CreateSubscription(ctx, vapidPublicKey)
	if err != nil {
		return Result{Error: err.Error()}
	}

	return m.PersistSubscription(ctx, sub)
}

// HasActiveSubscription reports whether the platform holds a subscription
// for the current registration. Unsupported platforms report false, not an
// error.
func (m *Manager) HasActiveSubscription(ctx context.Context) bool {
	if !m.IsSupported() {
		return false
	}
	reg, err := m.platform.Registration(ctx)
	if err != nil {
		return false
	}
	sub, err := reg.Subscription(ctx)
	return err == nil && sub != nil
}

// Disable tears down the platform subscription if one exists. The server
// record is left alone: the dispatcher prunes it once the gateway reports
// the endpoint gone.
func (m *Manager) Disable(ctx context.Context) Result {
	if !m.IsSupported() {
		return Result{Success: true}
	}
	reg, err := m.platform.Registration(ctx)
	if err != nil {
		return Result{Error: fmt.Sprintf("worker registration: %v", err)}
	}
	sub, err := reg.Subscription(ctx)
	if err != nil {
		return Result{Error: fmt.Sprintf("look up subscription: %v", err)}
	}
	if sub == nil {
		return Result{Success: true}
	}
	if err := sub.Unsubscribe(ctx); err != nil {
		return Result{Error: fmt.Sprintf("unsubscribe: %v", err)}
	}
	return Result{Success: true}
}

func serverMessage(resp *http.Response) string {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Sprintf("HTTP %d", resp.StatusCode)
	}
	var apiErr struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil && apiErr.Error != "" {
		return apiErr.Error
	}
	return fmt.Sprintf("HTTP %d: %s", resp.StatusCode, body)
}

package client

import "context"

// PermissionState mirrors the platform's notification permission.
type PermissionState string

const (
	PermissionDefault PermissionState = "default"
	PermissionGranted PermissionState = "granted"
	PermissionDenied  PermissionState = "denied"
)

// Platform abstracts the browser-side push machinery the manager drives:
// capability detection, the permission prompt and the worker registration.
type Platform interface {
	WorkerSupported() bool
	PushSupported() bool
	NotificationsSupported() bool

	// Permission returns the current permission without prompting.
	Permission() PermissionState
	// RequestPermission prompts the user and returns the outcome.
	RequestPermission(ctx context.Context) (PermissionState, error)

	// Registration suspends until an active background worker registration
	// is available.
	Registration(ctx context.Context) (Registration, error)
}

// Registration is an active background worker registration.
type Registration interface {
	// Subscribe creates a push subscription bound to the given application
	// server key. Subscriptions are created user-visible-only: every push
	// must surface a notification, silent pushes are not allowed.
	Subscribe(ctx context.Context, applicationServerKey []byte) (PlatformSubscription, error)
	// Subscription returns the existing subscription, or nil if none.
	Subscription(ctx context.Context) (PlatformSubscription, error)
}

// PlatformSubscription is a live push subscription held by the platform.
type PlatformSubscription interface {
	Endpoint() string
	// Key returns raw key material by name ("p256dh" or "auth").
	Key(name string) []byte
	Unsubscribe(ctx context.Context) error
}

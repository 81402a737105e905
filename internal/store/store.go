// Package store persists push subscription records.
package store

import (
	"context"

	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/schema"
)

// SubscriptionStore is the persistence contract for push subscriptions.
// Upsert is the defining operation: two calls with the same (userID,
// endpoint) and different keys leave exactly one record reflecting the
// latest keys.
type SubscriptionStore interface {
	Upsert(ctx context.Context, userID, endpoint, p256dh, auth string) (*schema.PushSubscription, error)

	// ByUser returns all subscriptions registered for one user.
	ByUser(ctx context.Context, userID string) ([]schema.PushSubscription, error)

	// All returns every stored subscription.
	All(ctx context.Context) ([]schema.PushSubscription, error)

	// DeleteByEndpoint prunes a subscription the gateway reported gone.
	// Deleting an absent endpoint is not an error.
	DeleteByEndpoint(ctx context.Context, endpoint string) error
}

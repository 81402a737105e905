package schema

import (
	"time"

	"github.com/google/uuid"
)

// CREATE TABLE "push_subscriptions" (
// "subscription_id" uuid NOT NULL,
// "user_id" character varying(64) NOT NULL,
// "endpoint" character varying(512) NOT NULL,
// "p256dh" character varying(256) NOT NULL,
// "auth" character varying(256) NOT NULL,
// "created_at" timestamptz NOT NULL DEFAULT now(),
// "updated_at" timestamptz NOT NULL DEFAULT now(),
// PRIMARY KEY ("subscription_id"),
// CONSTRAINT "user_endpoint_uq" UNIQUE ("user_id", "endpoint"));

// PushSubscription is one browser installation's registered push endpoint
// for one user. At most one row exists per (user_id, endpoint); the store
// upserts on that key.
type PushSubscription struct {
	SubscriptionID uuid.UUID `db:"subscription_id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	Endpoint       string    `db:"endpoint" json:"endpoint"`
	P256dh         string    `db:"p256dh" json:"p256dh"`
	Auth           string    `db:"auth" json:"auth"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

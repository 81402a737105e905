// Package dto defines the request and response shapes of the HTTP API.
package dto

import "github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/schema"

// Error is the uniform error body. Internal detail stays in the logs; this
// message is safe to show.
type Error struct {
	Error string `json:"error"`
}

// VAPIDKeyResponse carries the public half of the VAPID pair to clients.
type VAPIDKeyResponse struct {
	PublicKey string `json:"publicKey"`
}

// SubscribeRequest registers one device's push subscription. Key material
// must be base64 (standard or URL-safe alphabet).
type SubscribeRequest struct {
	Endpoint string `json:"endpoint" binding:"required,url"`
	P256dh   string `json:"p256dh" binding:"required,b64key"`
	Auth     string `json:"auth" binding:"required,b64key"`
}

type SubscribeResponse struct {
	Success      bool                    `json:"success"`
	Subscription schema.PushSubscription `json:"subscription"`
}

// SendRequest asks the dispatcher to notify one user, or everyone when
// UserID is empty.
type SendRequest struct {
	UserID             string            `json:"userId"`
	Title              string            `json:"title" binding:"required"`
	Body               string            `json:"body" binding:"required"`
	Icon               string            `json:"icon"`
	Badge              string            `json:"badge"`
	Tag                string            `json:"tag"`
	URL                string            `json:"url"`
	Data               map[string]string `json:"data"`
	RequireInteraction bool              `json:"requireInteraction"`
}

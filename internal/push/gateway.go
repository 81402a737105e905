package push

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"

	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/config"
	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/schema"
)

// ErrGone is the permanent-failure signal: the gateway will never accept
// another message for this endpoint, so its record should be pruned.
var ErrGone = errors.New("push: subscription gone")

// Gateway delivers one encrypted message to one subscription.
// Implementations must be safe for concurrent use.
type Gateway interface {
	Send(ctx context.Context, sub *schema.PushSubscription, message []byte) error
}

const defaultTTL = 300 // seconds

// WebPushGateway sends through the Web Push protocol with VAPID signing.
type WebPushGateway struct {
	vapid config.VAPIDConfig
	ttl   int
}

func NewWebPushGateway(vapid config.VAPIDConfig) *WebPushGateway {
	return &WebPushGateway{vapid: vapid, ttl: defaultTTL}
}

func (g *WebPushGateway) Send(ctx context.Context, sub *schema.PushSubscription, message []byte) error {
	resp, err := webpush.SendNotificationWithContext(ctx, message, &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256dh,
			Auth:   sub.Auth,
		},
	}, &webpush.Options{
		TTL:             g.ttl,
		Subscriber:      g.vapid.Subscriber,
		VAPIDPublicKey:  g.vapid.PublicKey,
		VAPIDPrivateKey: g.vapid.PrivateKey,
	})
	if err != nil {
		return fmt.Errorf("send notification: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusGone:
		return ErrGone
	case resp.StatusCode >= 400:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, body)
	}
	return nil
}

package worker

import (
	"context"
	"encoding/json"
)

// Display defaults applied when a push payload omits optional fields.
const (
	DefaultTitle     = "VisitaFlow"
	DefaultIcon      = "/icons/icon-192.png"
	DefaultBadge     = "/icons/badge-72.png"
	DefaultTag       = "visitaflow"
	DefaultTargetURL = "/dashboard"
)

// Notification is the displayable form of a push message.
type Notification struct {
	Title              string            `json:"title"`
	Body               string            `json:"body"`
	Icon               string            `json:"icon,omitempty"`
	Badge              string            `json:"badge,omitempty"`
	Tag                string            `json:"tag,omitempty"`
	Data               map[string]string `json:"data,omitempty"`
	RequireInteraction bool              `json:"requireInteraction,omitempty"`
	Vibrate            []int             `json:"vibrate,omitempty"`
	Timestamp          int64             `json:"timestamp,omitempty"`
}

// TargetURL resolves the route a click on this notification should land on.
func (n *Notification) TargetURL() string {
	if url, ok := n.Data["url"]; ok && url != "" {
		return url
	}
	return DefaultTargetURL
}

// decodeNotification parses a push wire payload. Non-JSON bodies are
// tolerated: the raw text becomes the notification body under the default
// title, so a malformed push still surfaces to the user.
func decodeNotification(data []byte) Notification {
	var n Notification
	if err := json.Unmarshal(data, &n); err != nil {
		n = Notification{Body: string(data)}
	}
	if n.Title == "" {
		n.Title = DefaultTitle
	}
	if n.Icon == "" {
		n.Icon = DefaultIcon
	}
	if n.Badge == "" {
		n.Badge = DefaultBadge
	}
	if n.Tag == "" {
		n.Tag = DefaultTag
	}
	if n.Data == nil {
		n.Data = map[string]string{"url": DefaultTargetURL}
	} else if n.Data["url"] == "" {
		n.Data["url"] = DefaultTargetURL
	}
	return n
}

// Notifier displays platform notifications on behalf of the runtime.
type Notifier interface {
	Show(ctx context.Context, n Notification) error
	Close(ctx context.Context, tag string) error
}

// WindowClient is one open page under the origin.
type WindowClient interface {
	URL() string
	Focus(ctx context.Context) error
}

// WindowClients enumerates and controls the origin's open pages.
type WindowClients interface {
	// List returns all open windows, including ones not yet controlled by
	// this runtime.
	List(ctx context.Context) ([]WindowClient, error)
	OpenWindow(ctx context.Context, url string) error
	// Claim takes control of all open pages without waiting for a reload.
	Claim(ctx context.Context) error
}

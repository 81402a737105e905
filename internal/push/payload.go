// Package push builds and delivers web push notifications to registered
// subscriptions.
package push

import (
	"errors"
	"time"
)

// Display defaults, mirrored by the background worker's own fallbacks.
const (
	DefaultIcon      = "/icons/icon-192.png"
	DefaultBadge     = "/icons/badge-72.png"
	DefaultTag       = "visitaflow"
	DefaultTargetURL = "/dashboard"
)

// ErrInvalidPayload is returned when a payload misses required fields.
var ErrInvalidPayload = errors.New("push: payload requires title and body")

// Payload is the logical notification message. It is constructed per send,
// serialized to the wire and reconstructed by the worker's push handler;
// nothing is persisted.
type Payload struct {
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

func (p *Payload) Validate() error {
	if p.Title == "" || p.Body == "" {
		return ErrInvalidPayload
	}
	return nil
}

// normalized returns a copy with defaults applied for missing optional
// fields, including the resolvable click-through URL.
func (p Payload) normalized(now time.Time) Payload {
	if p.Icon == "" {
		p.Icon = DefaultIcon
	}
	if p.Badge == "" {
		p.Badge = DefaultBadge
	}
	if p.Tag == "" {
		p.Tag = DefaultTag
	}
	data := make(map[string]string, len(p.Data)+1)
	for k, v := range p.Data {
		data[k] = v
	}
	if data["url"] == "" {
		data["url"] = DefaultTargetURL
	}
	p.Data = data
	if p.Timestamp == 0 {
		p.Timestamp = now.UnixMilli()
	}
	return p
}

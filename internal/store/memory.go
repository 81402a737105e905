package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/rondinellewalitte/visitaflow-wpatecnicoo/internal/schema"
)

// MemoryStore keeps subscriptions in process memory. It backs local
// development without a database and the test suites.
type MemoryStore struct {
	mu   sync.RWMutex
	subs map[string]schema.PushSubscription // keyed by userID + "\x00" + endpoint
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[string]schema.PushSubscription)}
}

func key(userID, endpoint string) string {
	return userID + "\x00" + endpoint
}

func (s *MemoryStore) Upsert(_ context.Context, userID, endpoint, p256dh, auth string) (*schema.PushSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	k := key(userID, endpoint)
	sub, ok := s.subs[k]
	if !ok {
		sub = schema.PushSubscription{
			SubscriptionID: uuid.New(),
			UserID:         userID,
			Endpoint:       endpoint,
			CreatedAt:      now,
		}
	}
	sub.P256dh = p256dh
	sub.Auth = auth
	sub.UpdatedAt = now
	s.subs[k] = sub
	return &sub, nil
}

func (s *MemoryStore) ByUser(_ context.Context, userID string) ([]schema.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []schema.PushSubscription
	for _, sub := range s.subs {
		if sub.UserID == userID {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (s *MemoryStore) All(_ context.Context) ([]schema.PushSubscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]schema.PushSubscription, 0, len(s.subs))
	for _, sub := range s.subs {
		out = append(out, sub)
	}
	return out, nil
}

func (s *MemoryStore) DeleteByEndpoint(_ context.Context, endpoint string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, sub := range s.subs {
		if sub.Endpoint == endpoint {
			delete(s.subs, k)
		}
	}
	return nil
}

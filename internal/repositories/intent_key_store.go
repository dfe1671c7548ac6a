package repositories

import (
	"context"
	"sync"
	"time"
)

// IntentKeyStore suppresses duplicate payment intents for identical checkout
// submissions within a time window.
type IntentKeyStore interface {
	// Reserve claims key for attemptID. When the key is already held it returns
	// the holder's attempt ID and reserved=false.
	Reserve(ctx context.Context, key, attemptID string, ttl time.Duration) (holder string, reserved bool, err error)
	// Extend resets the expiry of a key still held by attemptID. It returns
	// ErrNotFound when the key expired or changed hands.
	Extend(ctx context.Context, key, attemptID string, ttl time.Duration) error
	Release(ctx context.Context, key string) error
}

type keyEntry struct {
	attemptID string
	expiresAt time.Time
}

// MemoryIntentKeyStore is an in-memory IntentKeyStore for single-instance deployments.
type MemoryIntentKeyStore struct {
	keys map[string]keyEntry
	now  func() time.Time
	mu   sync.Mutex
}

// NewMemoryIntentKeyStore creates a new instance of MemoryIntentKeyStore.
func NewMemoryIntentKeyStore() *MemoryIntentKeyStore {
	return &MemoryIntentKeyStore{
		keys: make(map[string]keyEntry),
		now:  time.Now,
	}
}

func (s *MemoryIntentKeyStore) Reserve(_ context.Context, key, attemptID string, ttl time.Duration) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if e, ok := s.keys[key]; ok && now.Before(e.expiresAt) {
		return e.attemptID, false, nil
	}
	s.keys[key] = keyEntry{attemptID: attemptID, expiresAt: now.Add(ttl)}
	return "", true, nil
}

func (s *MemoryIntentKeyStore) Extend(_ context.Context, key, attemptID string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.keys[key]
	if !ok || e.attemptID != attemptID || !now.Before(e.expiresAt) {
		return ErrNotFound
	}
	s.keys[key] = keyEntry{attemptID: attemptID, expiresAt: now.Add(ttl)}
	return nil
}

func (s *MemoryIntentKeyStore) Release(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.keys, key)
	return nil
}

// Package revocation provides a shared store of revoked token IDs.
//
// Revocation must survive process restarts and be visible across server
// instances, so the production implementation is backed by Redis with key
// TTLs matching the remaining token lifetime. Expired entries disappear on
// their own.
package revocation

import (
	"context"
	"sync"
	"time"
)

// Store records revoked JWT IDs until their tokens would have expired anyway.
type Store interface {
	// Revoke marks a token id as revoked for the given duration.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether a token id has been revoked.
	// An expired or unknown id is not revoked.
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// MemoryStore is an in-process Store used in tests and single-node
// development setups.
type MemoryStore struct {
	mu      sync.Mutex
	entries map[string]time.Time
}

// NewMemoryStore constructs an empty in-memory revocation store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[string]time.Time)}
}

func (s *MemoryStore) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	if jti == "" || ttl <= 0 {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[jti] = time.Now().Add(ttl)
	return nil
}

func (s *MemoryStore) IsRevoked(_ context.Context, jti string) (bool, error) {
	if jti == "" {
		return false, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	expiry, ok := s.entries[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(s.entries, jti)
		return false, nil
	}
	return true, nil
}

package usercontext

import (
	"context"
	"sync"
	"time"
)

// Store keeps user contexts for the lifetime of the process.
// Implementations must be safe for concurrent use.
type Store interface {
	// Get returns the context stored under key and whether it exists.
	Get(ctx context.Context, key Key) (UserContext, bool, error)

	// Save inserts or replaces the context stored under key.
	Save(ctx context.Context, key Key, uc UserContext) error

	// Delete removes the context stored under key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key Key) error

	// EvictOlderThan removes contexts created before cutoff and returns how many were removed.
	EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error)
}

// MemoryStore is a map-backed Store.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[Key]UserContext
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{entries: make(map[Key]UserContext)}
}

func (s *MemoryStore) Get(ctx context.Context, key Key) (UserContext, bool, error) {
	if err := ctx.Err(); err != nil {
		return UserContext{}, false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	uc, ok := s.entries[key]
	return uc, ok, nil
}

func (s *MemoryStore) Save(ctx context.Context, key Key, uc UserContext) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if uc.CreatedAt.IsZero() {
		uc.CreatedAt = time.Now().UTC()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[key] = uc
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key Key) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *MemoryStore) EvictOlderThan(ctx context.Context, cutoff time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	evicted := 0
	for key, uc := range s.entries {
		if uc.CreatedAt.Before(cutoff) {
			delete(s.entries, key)
			evicted++
		}
	}
	return evicted, nil
}

// Len reports the number of stored contexts.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

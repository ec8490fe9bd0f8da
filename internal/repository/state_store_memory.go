package repository

import (
	"bytes"
	"context"
	"sync"
	"time"
)

type memEntry struct {
	value     []byte
	expiresAt time.Time
}

func (e memEntry) isExpired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

type memoryStateStore struct {
	mu      sync.Mutex
	entries map[string]memEntry
}

func NewMemoryStateStore() StateStore {
	return &memoryStateStore{
		entries: make(map[string]memEntry),
	}
}

// live returns the unexpired entry for key, dropping it once expired.
// Callers hold s.mu.
func (s *memoryStateStore) live(key string) (memEntry, bool) {
	entry, ok := s.entries[key]
	if !ok {
		return memEntry{}, false
	}
	if entry.isExpired(time.Now()) {
		delete(s.entries, key)
		return memEntry{}, false
	}
	return entry, true
}

func (s *memoryStateStore) SetNX(_ context.Context, key string, value []byte, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.live(key); ok {
		return false, nil
	}
	entry := memEntry{value: bytes.Clone(value)}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}
	s.entries[key] = entry
	return true, nil
}

func (s *memoryStateStore) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(key)
	if !ok {
		return nil, nil
	}
	return bytes.Clone(entry.value), nil
}

func (s *memoryStateStore) Release(_ context.Context, key string, value []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry, ok := s.live(key)
	if !ok || !bytes.Equal(entry.value, value) {
		return false, nil
	}
	delete(s.entries, key)
	return true, nil
}

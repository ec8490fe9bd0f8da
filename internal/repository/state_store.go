package repository

import (
	"context"
	"time"
)

// StateStore holds short-lived coordination keys shared between instances:
// seat-allocation locks and the account-sync guard.
// Implementations: Redis (production) or in-memory (local dev / single instance).
type StateStore interface {
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key string, value []byte, ttl time.Duration) (bool, error)
	// Get returns nil, nil for a missing or expired key.
	Get(ctx context.Context, key string) ([]byte, error)
	// Release deletes key only while it still holds value.
	Release(ctx context.Context, key string, value []byte) (bool, error)
}

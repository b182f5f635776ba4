// Package cache provides a small byte-oriented cache abstraction with
// in-memory and Redis-backed implementations. Callers that need to cache
// transient data (fetched signing keys, session material) depend on the
// [Cache] interface and receive a concrete implementation from the
// composition root.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys with a per-entry TTL.
//
// Get reports found=false for both absent keys and expired entries; an
// expired entry is indistinguishable from one that was never set.
// Implementations must be safe for concurrent use.
type Cache interface {
	// Get returns the value stored under key, or found=false if the key is
	// absent or its TTL has elapsed.
	Get(ctx context.Context, key string) (value []byte, found bool, err error)

	// Set stores value under key. A non-positive ttl stores the entry
	// without expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

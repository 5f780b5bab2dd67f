// Package cache stores rendered run outputs and fetched graph documents.
//
// Backends share the [Cache] interface: [FileCache] for the CLI,
// [RedisCache] when several processes share results, and [NullCache] when
// caching is disabled. Keys come from a [Keyer] so that every backend sees
// the same namespacing.
package cache

import (
	"context"
	"time"
)

// Cache is a byte store with optional expiry.
type Cache interface {
	// Get returns the value for key. A miss is (nil, false, nil).
	Get(ctx context.Context, key string) ([]byte, bool, error)
	// Set stores data under key. A ttl of zero never expires.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// Close releases backend resources.
	Close() error
}

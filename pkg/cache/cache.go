// Package cache provides the in-session blueprint cache. Parsing a template
// is deterministic and idempotent for a fixed file, so cached blueprints
// are keyed by the file's canonical path and modification time: touching
// the file changes the key and forces a fresh parse.
package cache

import (
	"context"
	"time"
)

// Cache is the storage interface. Implementations must be safe for
// concurrent readers; concurrent writers for the same key may race with
// last-writer-wins semantics.
type Cache interface {
	// Get retrieves a value. The bool reports whether the key was found.
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores a value with a TTL. A zero TTL means no expiration.
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error

	// Delete removes a key.
	Delete(ctx context.Context, key string) error

	// Close releases resources held by the cache.
	Close() error
}

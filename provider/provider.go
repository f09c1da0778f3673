// Package provider defines the byte store behind the result store.
//
// Implementations MUST be byte-for-byte transparent: Get returns exactly the
// []byte previously passed to Set for a key. Compression or other transforms
// must be fully reversed.
//
// The keyspace "result:<ns>:" is owned by the result store. Foreign values
// under that prefix fail strict wire validation and are deleted on read.
package provider

import (
	"context"
	"time"
)

// Provider is a minimal byte store with TTLs. Must be safe for concurrent use.
type Provider interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// If an IO/remote error happens, return (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL (ttl <= 0 => no expiry, where
	// supported). cost may be ignored. ok=false means the store rejected
	// the write under pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}

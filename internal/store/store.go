// Package store provides the opaque key-value persistence consumed by the
// usage tracker. Implementations guarantee single-key atomicity and nothing
// more; callers own read-modify-write sequencing.
package store

import "context"

// Store is a flat key-value namespace. Values are opaque byte slices; the
// usage tracker stores JSON documents in them.
type Store interface {
	// Get returns the values for the requested keys. Missing keys are simply
	// absent from the result map.
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)

	// Set writes all pairs. Each key is written atomically; no cross-key
	// transactionality is promised.
	Set(ctx context.Context, pairs map[string][]byte) error

	// Remove deletes the given keys. Removing an absent key is not an error.
	Remove(ctx context.Context, keys ...string) error

	// Close releases any underlying resources.
	Close() error
}

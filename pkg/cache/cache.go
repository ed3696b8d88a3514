// Package cache stores raw response bodies keyed by method name and the exact
// call-time arguments used to fetch them.
package cache

import (
	"context"
	"errors"
)

// Store is a response cache owned by a single client instance. Entries have no
// TTL; they live until overwritten or until the store is cleared.
type Store interface {
	// Get returns the cached value or an ErrCacheMiss.
	Get(ctx context.Context, key string) ([]byte, error)
	// Set stores value under key, replacing any existing entry.
	Set(ctx context.Context, key string, value []byte) error
	// Delete removes one entry.
	Delete(ctx context.Context, key string) error
	// Clear removes every entry of the store.
	Clear(ctx context.Context) error
}

// Factory creates the private store of a client instance.
type Factory func(instanceID string) Store

// ErrCacheMiss is returned when a key is not found in the cache
type ErrCacheMiss struct {
	Key string
}

func (e ErrCacheMiss) Error() string {
	return "cache miss: " + e.Key
}

// IsCacheMiss checks if an error is a cache miss
func IsCacheMiss(err error) bool {
	var miss ErrCacheMiss
	return errors.As(err, &miss)
}

package cache

import (
	"context"
	"time"
)

// NullCache stores nothing, so every registry lookup goes to the network.
// deptree selects it for --no-cache and the "none" backend. Concurrent
// lookups of one package still share a single request in the registry
// client.
type NullCache struct{}

// NewNullCache returns a Cache that never holds metadata.
func NewNullCache() Cache {
	return &NullCache{}
}

// Get always misses.
func (c *NullCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, nil
}

// Set discards data.
func (c *NullCache) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return nil
}

// Delete does nothing.
func (c *NullCache) Delete(ctx context.Context, key string) error {
	return nil
}

// Close does nothing.
func (c *NullCache) Close() error {
	return nil
}

var _ Cache = (*NullCache)(nil)

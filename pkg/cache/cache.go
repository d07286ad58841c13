// Package cache provides byte-oriented storage backends with expiry.
//
// # Backends
//
//   - [MemoryCache]: in-process map with optional TTL and LRU bound
//   - [FileCache]: JSON entry files on disk, for CLI usage
//   - [RedisCache]: shared Redis instance, for server replicas
//   - [MongoCache]: MongoDB collection with an expiry field
//   - [NullCache]: never stores anything
//
// All backends implement [Cache] and are safe for concurrent use.
//
// # Namespacing
//
// Use [Namespace] to prefix keys so different data kinds can share a
// backend without collisions:
//
//	meta := cache.Namespace(backend, "meta:")
//	meta.Set(ctx, "express@4.18.2", data, 0) // stored as "meta:express@4.18.2"
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values under string keys.
//
// A ttl of zero means the entry never expires. Get reports a miss (not an
// error) for absent or expired entries.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Namespace returns a view of c that prefixes every key with prefix.
// Closing the view closes the underlying cache.
func Namespace(c Cache, prefix string) Cache {
	if ns, ok := c.(*namespaced); ok {
		return &namespaced{inner: ns.inner, prefix: ns.prefix + prefix}
	}
	return &namespaced{inner: c, prefix: prefix}
}

type namespaced struct {
	inner  Cache
	prefix string
}

func (n *namespaced) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return n.inner.Get(ctx, n.prefix+key)
}

func (n *namespaced) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	return n.inner.Set(ctx, n.prefix+key, data, ttl)
}

func (n *namespaced) Delete(ctx context.Context, key string) error {
	return n.inner.Delete(ctx, n.prefix+key)
}

func (n *namespaced) Close() error { return n.inner.Close() }

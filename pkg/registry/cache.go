package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/matzehuels/deptree/pkg/cache"
	"github.com/matzehuels/deptree/pkg/observability"
)

const metadataKeyType = "metadata"

// MetadataCache memoizes registry answers keyed by name@version on top of a
// byte-oriented [cache.Cache]. Backend failures read as misses and failed
// writes are dropped: the cache only ever saves work.
type MetadataCache struct {
	store cache.Cache
	ttl   time.Duration
}

// NewMetadataCache stores entries in c under the "meta:" namespace. A zero
// ttl keeps entries for as long as the backend does.
func NewMetadataCache(c cache.Cache, ttl time.Duration) *MetadataCache {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &MetadataCache{store: cache.Namespace(c, "meta:"), ttl: ttl}
}

// NewMemoryMetadataCache returns a process-lifetime cache with no bound and
// no expiry.
func NewMemoryMetadataCache() *MetadataCache {
	return NewMetadataCache(cache.NewMemoryCache(0, 0), 0)
}

// Get returns the cached metadata for key.
func (c *MetadataCache) Get(ctx context.Context, key string) (*Metadata, bool) {
	data, ok, err := c.store.Get(ctx, key)
	if err != nil || !ok {
		observability.Cache().OnCacheMiss(ctx, metadataKeyType)
		return nil, false
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		observability.Cache().OnCacheMiss(ctx, metadataKeyType)
		return nil, false
	}
	observability.Cache().OnCacheHit(ctx, metadataKeyType)
	return &m, true
}

// Put stores m under key, overwriting any previous value.
func (c *MetadataCache) Put(ctx context.Context, key string, m *Metadata) {
	if m == nil {
		return
	}
	data, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := c.store.Set(ctx, key, data, c.ttl); err == nil {
		observability.Cache().OnCacheSet(ctx, metadataKeyType, len(data))
	}
}

// Close closes the backing store.
func (c *MetadataCache) Close() error {
	return c.store.Close()
}

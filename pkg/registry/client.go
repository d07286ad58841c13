// Package registry fetches package metadata with memoization and a
// fallback-to-latest policy.
//
// [Client.FetchMetadata] never fails: a package that cannot be found at the
// requested version nor at "latest" is reported absent so the caller can
// prune it instead of aborting a whole resolution.
//
//	src := npm.NewClient(npm.WithBaseURL(npm.DefaultBaseURL))
//	c := registry.NewClient(src, registry.NewMemoryMetadataCache(), logger)
//	meta, ok := c.FetchMetadata(ctx, "express", "4.18.2")
package registry

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/singleflight"

	"github.com/matzehuels/deptree/pkg/observability"
)

// Client resolves name@version to metadata through a Source, memoizing
// answers in a MetadataCache. Concurrent requests for the same key share a
// single fetch. Safe for concurrent use.
type Client struct {
	source Source
	cache  *MetadataCache
	logger *log.Logger
	flight singleflight.Group
}

// NewClient creates a Client. A nil cache gets a fresh in-memory cache and
// a nil logger discards output.
func NewClient(source Source, cache *MetadataCache, logger *log.Logger) *Client {
	if cache == nil {
		cache = NewMemoryMetadataCache()
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Client{source: source, cache: cache, logger: logger}
}

// Cache returns the client's metadata cache.
func (c *Client) Cache() *MetadataCache { return c.cache }

// FetchMetadata returns metadata for name@version.
//
// Lookup order: cache, exact version, then "latest". A fallback answer is
// cached under the originally requested key. When both lookups fail the
// package is reported absent and nothing is cached.
//
// The shared fetch runs detached from any one caller's cancellation and is
// bounded by the source's own timeout. A caller whose ctx ends stops
// waiting and sees the package as absent; other callers waiting on the same
// key still get the answer.
func (c *Client) FetchMetadata(ctx context.Context, name, version string) (*Metadata, bool) {
	key := Key(name, version)
	if m, ok := c.cache.Get(ctx, key); ok {
		return m, true
	}
	if ctx.Err() != nil {
		return nil, false
	}

	fctx := context.WithoutCancel(ctx)
	ch := c.flight.DoChan(key, func() (any, error) {
		// Another caller may have filled the cache while we waited.
		if m, ok := c.cache.Get(fctx, key); ok {
			return m, nil
		}
		return c.fetch(fctx, name, version, key), nil
	})

	select {
	case res := <-ch:
		m, _ := res.Val.(*Metadata)
		return m, m != nil
	case <-ctx.Done():
		c.logger.Debug("stopped waiting for lookup", "pkg", key, "err", ctx.Err())
		return nil, false
	}
}

func (c *Client) fetch(ctx context.Context, name, version, key string) *Metadata {
	hooks := observability.Resolve()
	start := time.Now()

	m, err := c.source.Lookup(ctx, name, version)
	if err == nil && m != nil {
		c.cache.Put(ctx, key, m)
		hooks.OnFetch(ctx, observability.FetchExact, time.Since(start))
		return m
	}
	c.logger.Debug("exact lookup failed, trying latest", "pkg", key, "err", err)

	m, err = c.source.Lookup(ctx, name, Latest)
	if err == nil && m != nil {
		c.cache.Put(ctx, key, m)
		hooks.OnFetch(ctx, observability.FetchFallback, time.Since(start))
		return m
	}

	c.logger.Warn("package unavailable", "pkg", key, "err", err)
	hooks.OnFetch(ctx, observability.FetchMiss, time.Since(start))
	return nil
}

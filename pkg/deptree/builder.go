package deptree

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/deptree/pkg/observability"
	"github.com/matzehuels/deptree/pkg/registry"
)

// DefaultMaxDepth is the deepest level that is still expanded. Roots are
// depth 0, so a tree has at most four levels.
const DefaultMaxDepth = 3

// Fetcher returns metadata for name@version, or false when the package is
// unavailable. *registry.Client implements it.
type Fetcher interface {
	FetchMetadata(ctx context.Context, name, version string) (*registry.Metadata, bool)
}

// Options configures a Builder.
//
// MaxDepth has a floor of 1: roots are always expanded at least one level,
// and any value below 1 selects DefaultMaxDepth. The zero Options is
// therefore a usable default.
type Options struct {
	MaxDepth    int         // Deepest expanded level, at least 1 (default: 3)
	Concurrency int         // Children resolved in parallel per node (default: 1)
	Logger      *log.Logger // Debug output (default: discard)
}

// WithDefaults returns a copy of Options with zero values replaced by defaults.
func (o Options) WithDefaults() Options {
	opts := o
	if opts.MaxDepth < 1 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return opts
}

// Builder expands root packages into dependency trees. A Builder holds no
// per-build state and may be shared between goroutines.
type Builder struct {
	fetcher Fetcher
	opts    Options
}

// NewBuilder creates a Builder that reads metadata from f.
func NewBuilder(f Fetcher, opts Options) *Builder {
	return &Builder{fetcher: f, opts: opts.WithDefaults()}
}

// Options returns the effective options.
func (b *Builder) Options() Options { return b.opts }

// Build resolves every request independently and returns the trees in
// request order. Roots the registry cannot serve are omitted. The result is
// never nil.
func (b *Builder) Build(ctx context.Context, roots []Request) []*Node {
	hooks := observability.Resolve()
	hooks.OnResolveStart(ctx, len(roots))
	start := time.Now()

	slots := make([]*Node, len(roots))
	b.fanOut(len(roots), func(i int) {
		r := roots[i]
		slots[i] = b.buildNode(ctx, r.Name, r.Version, 0, path{}, r.IsDev, r.IsPeer)
	})
	forest := compact(slots)

	stats := Collect(forest)
	hooks.OnResolveComplete(ctx, len(roots), stats.Nodes, time.Since(start))
	b.opts.Logger.Debug("resolved", "roots", len(roots), "trees", len(forest),
		"nodes", stats.Nodes, "circular", stats.Circular, "elapsed", time.Since(start))
	return forest
}

// BuildOne resolves a single root. It returns nil when the root is
// unavailable.
func (b *Builder) BuildOne(ctx context.Context, r Request) *Node {
	return b.buildNode(ctx, r.Name, r.Version, 0, path{}, r.IsDev, r.IsPeer)
}

type edge struct {
	name, spec    string
	isDev, isPeer bool
}

func (b *Builder) buildNode(ctx context.Context, name, spec string, depth int, p path, isDev, isPeer bool) *Node {
	if depth > b.opts.MaxDepth {
		return nil
	}

	key := registry.Key(name, spec)
	if depth > 0 && p.has(key) {
		return &Node{
			Name:       name,
			Version:    spec,
			Children:   []*Node{},
			IsDev:      isDev,
			IsPeer:     isPeer,
			IsCircular: true,
			Depth:      depth,
		}
	}
	p = p.with(key)

	if ctx.Err() != nil {
		return nil
	}
	meta, ok := b.fetcher.FetchMetadata(ctx, name, spec)
	if !ok {
		b.opts.Logger.Debug("pruned", "pkg", key, "depth", depth)
		return nil
	}

	edges := childEdges(meta, depth)
	slots := make([]*Node, len(edges))
	b.fanOut(len(edges), func(i int) {
		e := edges[i]
		slots[i] = b.buildNode(ctx, e.name, e.spec, depth+1, p, e.isDev, e.isPeer)
	})

	return &Node{
		Name:     name,
		Version:  meta.Version,
		Children: compact(slots),
		IsDev:    isDev,
		IsPeer:   isPeer,
		Depth:    depth,
	}
}

// childEdges lists the edges to expand below a node: production
// dependencies always, development and peer dependencies only at the root.
func childEdges(meta *registry.Metadata, depth int) []edge {
	n := len(meta.Dependencies)
	if depth == 0 {
		n += len(meta.DevDependencies) + len(meta.PeerDependencies)
	}
	edges := make([]edge, 0, n)
	for _, d := range meta.Dependencies {
		edges = append(edges, edge{name: d.Name, spec: Normalize(d.Range)})
	}
	if depth == 0 {
		for _, d := range meta.DevDependencies {
			edges = append(edges, edge{name: d.Name, spec: Normalize(d.Range), isDev: true})
		}
		for _, d := range meta.PeerDependencies {
			edges = append(edges, edge{name: d.Name, spec: Normalize(d.Range), isPeer: true})
		}
	}
	return edges
}

// fanOut calls fn for 0..n-1 and returns once every call has finished.
// Each call writes only its own index, so callers can collect results in
// order without locking.
func (b *Builder) fanOut(n int, fn func(i int)) {
	if n == 0 {
		return
	}
	if b.opts.Concurrency <= 1 || n == 1 {
		for i := range n {
			fn(i)
		}
		return
	}

	var (
		g         errgroup.Group
		panicOnce sync.Once
		panicVal  any
	)
	g.SetLimit(b.opts.Concurrency)
	for i := range n {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					panicOnce.Do(func() { panicVal = r })
				}
			}()
			fn(i)
			return nil
		})
	}
	_ = g.Wait()

	// Re-raise on the calling goroutine so callers' recover handlers see it.
	if panicVal != nil {
		panic(panicVal)
	}
}

// compact drops nil slots while keeping order. The result is never nil.
func compact(slots []*Node) []*Node {
	out := make([]*Node, 0, len(slots))
	for _, n := range slots {
		if n != nil {
			out = append(out, n)
		}
	}
	return out
}

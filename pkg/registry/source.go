package registry

import "context"

// Source answers metadata lookups against one remote registry.
//
// Lookup is called with an exact version or with [Latest]. Implementations
// return an error for a missing package or version, a transport failure or
// an unparseable document; the Client treats all of them the same way.
// Lookup must be safe for concurrent use.
type Source interface {
	Lookup(ctx context.Context, name, version string) (*Metadata, error)
}

// SourceFunc adapts a function to the Source interface.
type SourceFunc func(ctx context.Context, name, version string) (*Metadata, error)

// Lookup calls f.
func (f SourceFunc) Lookup(ctx context.Context, name, version string) (*Metadata, error) {
	return f(ctx, name, version)
}

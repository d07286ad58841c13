package deptree

// path is the set of name@spec keys on the way from a root to the node
// being built. It is immutable: with returns an extended copy, so sibling
// branches never see each other's entries.
type path struct {
	keys map[string]struct{}
}

func (p path) has(key string) bool {
	_, ok := p.keys[key]
	return ok
}

func (p path) with(key string) path {
	keys := make(map[string]struct{}, len(p.keys)+1)
	for k := range p.keys {
		keys[k] = struct{}{}
	}
	keys[key] = struct{}{}
	return path{keys: keys}
}


package registry

import "strings"

// Latest is the version tag the Client falls back to when an exact lookup
// fails.
const Latest = "latest"

// Dep is one edge of a dependency collection: a package name and the version
// range it was declared with.
type Dep struct {
	Name  string `json:"name"`
	Range string `json:"range"`
}

// Deps is an ordered dependency collection. Order follows the key order of
// the registry document.
type Deps []Dep

// Get returns the range declared for name.
func (d Deps) Get(name string) (string, bool) {
	for _, dep := range d {
		if dep.Name == name {
			return dep.Range, true
		}
	}
	return "", false
}

// Names returns the dependency names in declaration order.
func (d Deps) Names() []string {
	names := make([]string, len(d))
	for i, dep := range d {
		names[i] = dep.Name
	}
	return names
}

// Metadata is a registry's answer about one name@version. Version is the
// registry's canonical version, which may differ from the one requested.
// Values are never mutated once returned by a Client.
type Metadata struct {
	Name             string `json:"name"`
	Version          string `json:"version"`
	Dependencies     Deps   `json:"dependencies,omitempty"`
	DevDependencies  Deps   `json:"devDependencies,omitempty"`
	PeerDependencies Deps   `json:"peerDependencies,omitempty"`
}

// Key builds the cache and cycle-detection key for a package.
func Key(name, version string) string {
	return name + "@" + version
}

// SplitKey reverses Key. The separator is the last "@" not at position 0,
// so scoped names like "@babel/core@7.0.0" split correctly.
func SplitKey(key string) (name, version string) {
	i := strings.LastIndex(key, "@")
	if i <= 0 {
		return key, ""
	}
	return key[:i], key[i+1:]
}

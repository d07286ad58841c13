package deptree

import "encoding/json"

// Node is one package in a resolved tree.
type Node struct {
	Name string `json:"name"`
	// Version is the registry's resolved version, or the requested spec for
	// circular placeholders.
	Version    string  `json:"version"`
	Children   []*Node `json:"children"`
	IsDev      bool    `json:"isDev"`
	IsPeer     bool    `json:"isPeer"`
	IsCircular bool    `json:"isCircular"`
	Depth      int     `json:"depth"`
}

// MarshalJSON encodes Children as [] when empty.
func (n *Node) MarshalJSON() ([]byte, error) {
	type plain Node
	p := plain(*n)
	if p.Children == nil {
		p.Children = []*Node{}
	}
	return json.Marshal(p)
}

// Key returns name@version.
func (n *Node) Key() string {
	return n.Name + "@" + n.Version
}

// Request names a root package to resolve.
type Request struct {
	Name    string `json:"name" validate:"required"`
	Version string `json:"version" validate:"required"`
	IsDev   bool   `json:"isDev,omitempty"`
	IsPeer  bool   `json:"isPeer,omitempty"`
}

// Walk visits every node depth-first in child order. Returning false from
// fn skips the node's children.
func Walk(forest []*Node, fn func(n *Node) bool) {
	for _, n := range forest {
		if n == nil {
			continue
		}
		if fn(n) {
			Walk(n.Children, fn)
		}
	}
}

package deptree

// Stats summarizes a resolved forest.
type Stats struct {
	Trees    int // Root nodes
	Nodes    int // All nodes, placeholders included
	Circular int // Circular placeholders
	Dev      int // Nodes introduced as dev dependencies
	Peer     int // Nodes introduced as peer dependencies
	MaxDepth int // Deepest node
	Unique   int // Distinct name@version pairs
}

// Collect computes Stats for forest.
func Collect(forest []*Node) Stats {
	s := Stats{}
	seen := make(map[string]struct{})
	for _, n := range forest {
		if n != nil {
			s.Trees++
		}
	}
	Walk(forest, func(n *Node) bool {
		s.Nodes++
		if n.IsCircular {
			s.Circular++
		}
		if n.IsDev {
			s.Dev++
		}
		if n.IsPeer {
			s.Peer++
		}
		s.MaxDepth = max(s.MaxDepth, n.Depth)
		seen[n.Key()] = struct{}{}
		return true
	})
	s.Unique = len(seen)
	return s
}

package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/goccy/go-graphviz"

	"github.com/matzehuels/deptree/pkg/deptree"
)

// Options configures diagram generation.
type Options struct {
	// Detailed adds depth and edge kind to node labels.
	Detailed bool
}

// ToDOT converts a forest to Graphviz DOT source.
func ToDOT(forest []*deptree.Node, opts Options) string {
	var buf bytes.Buffer
	buf.WriteString("digraph G {\n")
	buf.WriteString("  rankdir=TB;\n")
	buf.WriteString("  bgcolor=\"transparent\";\n")
	buf.WriteString("  node [shape=box, style=\"rounded,filled\", fillcolor=white, fontsize=14, margin=\"0.2,0.1\"];\n")
	buf.WriteString("  ranksep=0.5;\n")
	buf.WriteString("  nodesep=0.3;\n")
	buf.WriteString("\n")

	var edges []string
	var visit func(n *deptree.Node, id string)
	visit = func(n *deptree.Node, id string) {
		fmt.Fprintf(&buf, "  %q [%s];\n", id, strings.Join(nodeAttrs(n, opts.Detailed), ", "))
		for i, c := range n.Children {
			cid := id + "." + strconv.Itoa(i)
			edges = append(edges, fmt.Sprintf("  %q -> %q%s;\n", id, cid, edgeAttrs(c)))
			visit(c, cid)
		}
	}
	for i, root := range forest {
		if root != nil {
			visit(root, "t"+strconv.Itoa(i))
		}
	}

	buf.WriteString("\n")
	for _, e := range edges {
		buf.WriteString(e)
	}
	buf.WriteString("}\n")
	return buf.String()
}

func nodeLabel(n *deptree.Node, detailed bool) string {
	label := n.Key()
	if !detailed {
		return label
	}
	parts := []string{fmt.Sprintf("depth: %d", n.Depth)}
	switch {
	case n.IsCircular:
		parts = append(parts, "circular")
	case n.IsDev:
		parts = append(parts, "dev")
	case n.IsPeer:
		parts = append(parts, "peer")
	}
	return label + "\n" + strings.Join(parts, "\n")
}

func nodeAttrs(n *deptree.Node, detailed bool) []string {
	attrs := []string{fmt.Sprintf("label=%q", nodeLabel(n, detailed))}
	switch {
	case n.IsCircular:
		attrs = append(attrs, "style=\"rounded,filled,dashed\"", "fillcolor=lightgrey")
	case n.IsDev:
		attrs = append(attrs, "fillcolor=lightyellow")
	case n.IsPeer:
		attrs = append(attrs, "fillcolor=lightblue")
	}
	if n.Depth == 0 {
		attrs = append(attrs, "penwidth=2")
	}
	return attrs
}

func edgeAttrs(child *deptree.Node) string {
	if child.IsCircular {
		return " [style=dashed]"
	}
	return ""
}

// RenderSVG renders DOT source to SVG using Graphviz.
func RenderSVG(ctx context.Context, dot string) ([]byte, error) {
	gv, err := graphviz.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("init graphviz: %w", err)
	}
	defer gv.Close()

	g, err := graphviz.ParseBytes([]byte(dot))
	if err != nil {
		return nil, fmt.Errorf("parse DOT: %w", err)
	}
	defer g.Close()

	var buf bytes.Buffer
	if err := gv.Render(ctx, g, graphviz.SVG, &buf); err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	return normalizeViewBox(buf.Bytes()), nil
}

var (
	svgTagRe  = regexp.MustCompile(`<svg[^>]*>`)
	viewBoxRe = regexp.MustCompile(`viewBox="([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)\s+([0-9.]+)"`)
)

// normalizeViewBox replaces Graphviz's point-based svg header with one that
// scales cleanly when embedded.
func normalizeViewBox(svg []byte) []byte {
	match := viewBoxRe.FindSubmatch(svg)
	if match == nil {
		return svg
	}

	w, _ := strconv.ParseFloat(string(match[3]), 64)
	h, _ := strconv.ParseFloat(string(match[4]), 64)
	if w == 0 || h == 0 {
		return svg
	}

	header := fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 %.2f %.2f" width="%.0f" height="%.0f">`,
		w, h, w, h)
	return svgTagRe.ReplaceAll(svg, []byte(header))
}

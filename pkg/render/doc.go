// Package render draws resolved dependency trees as Graphviz diagrams.
//
// [ToDOT] produces DOT source from a forest. Nodes are keyed by their
// position in the tree rather than by name, so a package reached through
// two parents (a diamond) is drawn twice, exactly as the tree holds it.
// Circular placeholders are drawn dashed, development dependencies in
// yellow and peer dependencies in blue.
//
//	dot := render.ToDOT(trees, render.Options{})
//	svg, err := render.RenderSVG(ctx, dot)
//
// [ToPDF] and [ToPNG] convert SVG output with the external rsvg-convert
// tool from librsvg.
package render

package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"

	"github.com/matzehuels/deptree/pkg/deptree"
)

var (
	styleNodeName    = lipgloss.NewStyle().Foreground(colorWhite)
	styleNodeVersion = lipgloss.NewStyle().Foreground(colorGray)
	styleTagDev      = lipgloss.NewStyle().Foreground(colorYellow)
	styleTagPeer     = lipgloss.NewStyle().Foreground(colorBlue)
	styleTagCircular = lipgloss.NewStyle().Foreground(colorRed)
	styleEnumerator  = lipgloss.NewStyle().Foreground(colorDim).PaddingRight(1)
)

// nodeLabel formats "name@version" with dev, peer and circular markers.
func nodeLabel(n *deptree.Node) string {
	return formatNode(n, styleNodeName)
}

func formatNode(n *deptree.Node, nameStyle lipgloss.Style) string {
	var b strings.Builder
	b.WriteString(nameStyle.Render(n.Name))
	b.WriteString(styleNodeVersion.Render("@" + n.Version))
	if n.IsDev {
		b.WriteString(" " + styleTagDev.Render("dev"))
	}
	if n.IsPeer {
		b.WriteString(" " + styleTagPeer.Render("peer"))
	}
	if n.IsCircular {
		b.WriteString(" " + styleTagCircular.Render("↻ circular"))
	}
	return b.String()
}

// renderForest draws each tree with box-drawing connectors.
func renderForest(forest []*deptree.Node) string {
	var b strings.Builder
	for i, n := range forest {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(toTree(n).String())
		b.WriteString("\n")
	}
	return b.String()
}

func toTree(n *deptree.Node) *tree.Tree {
	t := tree.Root(nodeLabel(n)).
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(styleEnumerator)
	for _, c := range n.Children {
		if len(c.Children) == 0 {
			t.Child(nodeLabel(c))
			continue
		}
		t.Child(toTree(c))
	}
	return t
}

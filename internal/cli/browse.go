package cli

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/matzehuels/deptree/pkg/deptree"
)

// List styles
var (
	listSelectedStyle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)
	listDimStyle      = lipgloss.NewStyle().Foreground(colorDim)
)

// browseCommand creates the browse command.
func (c *CLI) browseCommand() *cobra.Command {
	var in inputFlags

	cmd := &cobra.Command{
		Use:   "browse [name@version ...]",
		Short: "Explore resolved dependency trees interactively",
		Long: `Resolve packages like "deptree resolve" and open the result in an
interactive tree view. Use the arrow keys (or h/j/k/l) to move, enter or
space to expand and collapse, and q to quit.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := in.apply(c.Config()); err != nil {
				return err
			}
			reqs, err := in.requests(args)
			if err != nil {
				return err
			}
			forest, err := c.build(cmd.Context(), &in, reqs)
			if err != nil {
				return err
			}
			if len(forest) == 0 {
				printWarning("No packages could be resolved")
				return nil
			}

			p := tea.NewProgram(NewTreeModel(forest), tea.WithContext(cmd.Context()), tea.WithAltScreen())
			_, err = p.Run()
			return err
		},
	}

	in.register(cmd)
	return cmd
}

// =============================================================================
// TreeModel - Interactive tree explorer
// =============================================================================

// treeRow is one visible line: a node and where it sits in the forest.
type treeRow struct {
	node   *deptree.Node
	id     string
	prefix string
	last   bool
}

// TreeModel is the bubbletea model for browsing a forest. Roots start
// expanded; everything below starts collapsed.
type TreeModel struct {
	Forest   []*deptree.Node
	Expanded map[string]bool
	Cursor   int
	Offset   int
	Height   int

	rows  []treeRow
	stats deptree.Stats
}

// NewTreeModel creates a tree model.
func NewTreeModel(forest []*deptree.Node) TreeModel {
	m := TreeModel{
		Forest:   forest,
		Expanded: make(map[string]bool),
		Height:   20,
		stats:    deptree.Collect(forest),
	}
	for i := range forest {
		m.Expanded[rootID(i)] = true
	}
	m.rows = m.flatten()
	return m
}

func rootID(i int) string { return fmt.Sprintf("%d", i) }

// flatten lists the rows currently visible given the expansion state.
func (m TreeModel) flatten() []treeRow {
	var rows []treeRow
	var walk func(n *deptree.Node, id, prefix string, last bool)
	walk = func(n *deptree.Node, id, prefix string, last bool) {
		rows = append(rows, treeRow{node: n, id: id, prefix: prefix, last: last})
		if !m.Expanded[id] {
			return
		}
		childPrefix := prefix
		if n.Depth > 0 {
			if last {
				childPrefix += "   "
			} else {
				childPrefix += "│  "
			}
		}
		for i, c := range n.Children {
			walk(c, fmt.Sprintf("%s.%d", id, i), childPrefix, i == len(n.Children)-1)
		}
	}
	for i, n := range m.Forest {
		walk(n, rootID(i), "", true)
	}
	return rows
}

func (m TreeModel) Init() tea.Cmd {
	return nil
}

func (m TreeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
			}
		case "down", "j":
			if m.Cursor < len(m.rows)-1 {
				m.Cursor++
			}
		case "enter", " ":
			m = m.toggle(!m.Expanded[m.current().id])
		case "right", "l":
			m = m.toggle(true)
		case "left", "h":
			m = m.collapseOrParent()
		case "home", "g":
			m.Cursor = 0
		case "end", "G":
			m.Cursor = len(m.rows) - 1
		}
	case tea.WindowSizeMsg:
		m.Height = max(msg.Height-6, 5)
	}
	m.scroll()
	return m, nil
}

func (m TreeModel) current() treeRow {
	if len(m.rows) == 0 {
		return treeRow{node: &deptree.Node{}}
	}
	return m.rows[m.Cursor]
}

func (m TreeModel) toggle(expand bool) TreeModel {
	row := m.current()
	if len(row.node.Children) == 0 {
		return m
	}
	m.Expanded = cloneSet(m.Expanded)
	m.Expanded[row.id] = expand
	m.rows = m.flatten()
	return m
}

// collapseOrParent collapses the current node, or moves to its parent when
// it is already collapsed.
func (m TreeModel) collapseOrParent() TreeModel {
	row := m.current()
	if m.Expanded[row.id] && len(row.node.Children) > 0 {
		return m.toggle(false)
	}
	if i := strings.LastIndex(row.id, "."); i >= 0 {
		parent := row.id[:i]
		for j, r := range m.rows {
			if r.id == parent {
				m.Cursor = j
				break
			}
		}
	}
	return m
}

func (m *TreeModel) scroll() {
	if m.Cursor < m.Offset {
		m.Offset = m.Cursor
	}
	if m.Cursor >= m.Offset+m.Height {
		m.Offset = m.Cursor - m.Height + 1
	}
}

func cloneSet(s map[string]bool) map[string]bool {
	out := make(map[string]bool, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

func (m TreeModel) View() string {
	var b strings.Builder

	b.WriteString(StyleTitle.Render("Dependency Trees"))
	b.WriteString("  ")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("%d trees · %d nodes · %d circular",
		m.stats.Trees, m.stats.Nodes, m.stats.Circular)))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render("↑/↓ navigate  ⏎ expand/collapse  ← parent  q quit"))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.rows))
	for i := m.Offset; i < end; i++ {
		r := m.rows[i]

		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}

		branch := ""
		if r.node.Depth > 0 {
			branch = "├─ "
			if r.last {
				branch = "╰─ "
			}
		}

		marker := "  "
		if len(r.node.Children) > 0 {
			marker = "+ "
			if m.Expanded[r.id] {
				marker = "- "
			}
		}

		label := nodeLabel(r.node)
		if i == m.Cursor {
			label = formatNode(r.node, listSelectedStyle)
		}
		b.WriteString(cursor + listDimStyle.Render(r.prefix+branch+marker) + label)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.rows))))
	if n := m.current().node; n.Name != "" {
		b.WriteString("  ")
		b.WriteString(StyleHighlight.Render(n.Key()))
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  depth %d · %d children", n.Depth, len(n.Children))))
	}

	return b.String()
}

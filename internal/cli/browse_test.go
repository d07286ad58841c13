package cli

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
)

func key(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func press(m TreeModel, keys ...string) TreeModel {
	for _, k := range keys {
		next, _ := m.Update(key(k))
		m = next.(TreeModel)
	}
	return m
}

func rowNames(m TreeModel) []string {
	names := make([]string, len(m.rows))
	for i, r := range m.rows {
		names[i] = r.node.Name
	}
	return names
}

func TestTreeModelInitialRows(t *testing.T) {
	m := NewTreeModel(sampleForest())

	// Roots expanded, depth 1 collapsed.
	got := strings.Join(rowNames(m), ",")
	if got != "a,b,c,d" {
		t.Errorf("rows = %s, want a,b,c,d", got)
	}
	if m.Cursor != 0 {
		t.Errorf("Cursor = %d", m.Cursor)
	}
}

func TestTreeModelNavigation(t *testing.T) {
	m := NewTreeModel(sampleForest())

	m = press(m, "down", "j")
	if m.Cursor != 2 {
		t.Errorf("after two downs Cursor = %d, want 2", m.Cursor)
	}
	m = press(m, "k")
	if m.Cursor != 1 {
		t.Errorf("after up Cursor = %d, want 1", m.Cursor)
	}
	m = press(m, "G")
	if m.Cursor != len(m.rows)-1 {
		t.Errorf("end Cursor = %d", m.Cursor)
	}
	m = press(m, "down")
	if m.Cursor != len(m.rows)-1 {
		t.Error("cursor should stop at the last row")
	}
	m = press(m, "g", "up")
	if m.Cursor != 0 {
		t.Errorf("home Cursor = %d", m.Cursor)
	}
}

func TestTreeModelToggle(t *testing.T) {
	m := NewTreeModel(sampleForest())

	m = press(m, "down", "enter")
	if got := strings.Join(rowNames(m), ","); got != "a,b,a,c,d" {
		t.Errorf("expanded rows = %s", got)
	}
	if !m.rows[2].node.IsCircular {
		t.Error("row under b should be the circular placeholder")
	}

	m = press(m, "enter")
	if got := strings.Join(rowNames(m), ","); got != "a,b,c,d" {
		t.Errorf("collapsed rows = %s", got)
	}
}

func TestTreeModelLeafToggleIsNoop(t *testing.T) {
	m := NewTreeModel(sampleForest())
	m = press(m, "down", "down", "enter")
	if len(m.rows) != 4 {
		t.Errorf("toggling a leaf changed rows: %v", rowNames(m))
	}
}

func TestTreeModelLeftMovesToParent(t *testing.T) {
	m := NewTreeModel(sampleForest())
	m = press(m, "down", "right", "down")
	if m.rows[m.Cursor].id != "0.0.0" {
		t.Fatalf("cursor on %q, want 0.0.0", m.rows[m.Cursor].id)
	}

	m = press(m, "left")
	if m.rows[m.Cursor].id != "0.0" {
		t.Errorf("left on a leaf should move to parent, got %q", m.rows[m.Cursor].id)
	}
	m = press(m, "h")
	if m.Expanded["0.0"] {
		t.Error("left on an expanded node should collapse it")
	}
}

func TestTreeModelToggleDoesNotShareState(t *testing.T) {
	m := NewTreeModel(sampleForest())
	before := m
	_ = press(m, "down", "enter")
	if before.Expanded["0.0"] {
		t.Error("Update mutated the previous model's expansion set")
	}
}

func TestTreeModelQuit(t *testing.T) {
	m := NewTreeModel(sampleForest())
	for _, k := range []string{"q", "esc"} {
		var msg tea.KeyMsg
		if k == "esc" {
			msg = tea.KeyMsg{Type: tea.KeyEsc}
		} else {
			msg = key(k)
		}
		_, cmd := m.Update(msg)
		if cmd == nil {
			t.Fatalf("%s: expected quit command", k)
		}
		if _, ok := cmd().(tea.QuitMsg); !ok {
			t.Errorf("%s: expected tea.QuitMsg", k)
		}
	}
}

func TestTreeModelScroll(t *testing.T) {
	m := NewTreeModel(sampleForest())
	next, _ := m.Update(tea.WindowSizeMsg{Width: 80, Height: 8})
	m = next.(TreeModel)
	if m.Height != 5 {
		t.Fatalf("Height = %d, want minimum 5", m.Height)
	}
	m.Height = 2
	m = press(m, "G")
	if m.Offset != 2 {
		t.Error("offset should follow the cursor past the window")
	}
}

func TestTreeModelView(t *testing.T) {
	m := NewTreeModel(sampleForest())
	view := m.View()
	for _, want := range []string{"Dependency Trees", "2 trees", "1 circular", "[1/4]", "a@1.0.0"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
}

func TestTreeModelEmpty(t *testing.T) {
	m := NewTreeModel(nil)
	m = press(m, "down", "enter", "left")
	if !strings.Contains(m.View(), "[1/0]") {
		t.Errorf("unexpected view:\n%s", m.View())
	}
}

// Package tui is the interactive tree picker. All state lives in the
// engine; the model only tracks the cursor, expansion and messages.
package tui

import (
	"context"
	"fmt"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/johnwyles/ubootu-sub000/internal/discovery"
	"github.com/johnwyles/ubootu-sub000/internal/engine"
	"github.com/johnwyles/ubootu-sub000/internal/menu"
	"github.com/johnwyles/ubootu-sub000/internal/removal"
	"github.com/johnwyles/ubootu-sub000/internal/selection"
	"github.com/johnwyles/ubootu-sub000/internal/sync"
)

// Action is what the caller runs after the picker exits.
type Action int

const (
	ActionNone Action = iota
	ActionApply
)

// DiscoveryMsg carries a finished refresh back to the model.
type DiscoveryMsg struct {
	Result discovery.Result
	Err    error
}

// reservedLines is the chrome around the tree: title, two spacers, the
// message line and the status bar.
const reservedLines = 5

type row struct {
	id    string
	depth int
}

// TreeModel is the bubbletea model for the selection tree.
type TreeModel struct {
	eng      *engine.Engine
	expanded map[string]bool
	rows     []row
	cursor   int
	offset   int
	width    int
	height   int
	status   StatusBar

	refreshing bool
	confirming bool
	message    string
	isError    bool

	Quitting bool
	Action   Action
}

// NewTreeModel starts with the top-level categories expanded.
func NewTreeModel(eng *engine.Engine) TreeModel {
	m := TreeModel{eng: eng, expanded: map[string]bool{}}
	for _, id := range eng.Tree().Children(menu.RootID) {
		if eng.Tree().IsCategory(id) {
			m.expanded[id] = true
		}
	}
	m.rebuild()
	m.syncStatus()
	return m
}

// Init refreshes discovery when no saved system state exists.
func (m TreeModel) Init() tea.Cmd {
	if _, ok := m.eng.Discovery(); ok {
		return nil
	}
	return m.startRefresh()
}

func (m TreeModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.status.SetWidth(msg.Width)
		m.clampScroll()
		return m, nil

	case DiscoveryMsg:
		m.refreshing = false
		if msg.Err != nil {
			m.setError(fmt.Errorf("refresh: %w", msg.Err))
			return m, nil
		}
		m.eng.ApplyDiscovery(msg.Result)
		m.setInfo(refreshSummary(msg.Result))
		m.syncStatus()
		return m, nil

	case tea.KeyMsg:
		if m.confirming {
			m.updateConfirm(msg)
			return m, nil
		}
		return m.updateKey(msg)
	}
	return m, nil
}

func (m TreeModel) updateKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c", "q":
		m.Quitting = true
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
	case "down", "j":
		m.moveCursor(+1)
	case "right", "l":
		m.setExpanded(m.currentID(), true)
	case "left", "h":
		m.collapseOrParent()
	case "enter":
		id := m.currentID()
		if m.eng.Tree().IsCategory(id) {
			m.setExpanded(id, !m.expanded[id])
		} else {
			m.mutated(m.eng.Toggle(id))
		}
	case " ":
		m.mutated(m.eng.Toggle(m.currentID()))
	case "a":
		m.mutated(m.eng.SelectAll(m.currentID()))
	case "n":
		m.mutated(m.eng.DeselectAll(m.currentID()))
	case "+", "=":
		m.adjust(+1)
	case "-":
		m.adjust(-1)
	case "ctrl+s":
		if err := m.eng.Save(); err != nil {
			m.setError(err)
		} else {
			m.setInfo("Saved")
		}
		m.syncStatus()
	case "r":
		if m.refreshing {
			return m, nil
		}
		m.refreshing = true
		m.setInfo("Refreshing installed packages...")
		return m, m.startRefresh()
	case "m":
		m.switchMode()
	case "A":
		m.Action = ActionApply
		return m, tea.Quit
	}
	return m, nil
}

func (m *TreeModel) updateConfirm(msg tea.KeyMsg) {
	switch msg.String() {
	case "y", "Y":
		m.confirming = false
		m.eng.EnableStrict(func() bool { return true })
		m.setInfo("Strict mode: orphaned packages installed by ubootu will be removed on apply")
	case "n", "N", "esc", "ctrl+c":
		m.confirming = false
		m.setInfo("Staying in additive mode")
	}
	m.syncStatus()
}

func (m *TreeModel) switchMode() {
	if m.eng.Mode() == removal.Strict {
		m.eng.DisableStrict()
		m.setInfo("Additive mode: nothing will be removed")
		m.syncStatus()
		return
	}
	asked := false
	if m.eng.EnableStrict(func() bool { asked = true; return false }) {
		m.setInfo("Strict mode enabled")
		m.syncStatus()
		return
	}
	if asked {
		m.confirming = true
	}
}

// startRefresh runs discovery off the UI goroutine. The result is applied
// in Update.
func (m TreeModel) startRefresh() tea.Cmd {
	eng := m.eng
	return func() tea.Msg {
		res, err := eng.Discover(context.Background())
		return DiscoveryMsg{Result: res, Err: err}
	}
}

func (m *TreeModel) adjust(dir int) {
	id := m.currentID()
	leaf, ok := m.eng.Tree().Leaf(id)
	if !ok || !leaf.Configurable() {
		return
	}
	cur, _ := m.eng.Value(id)
	raw, ok := stepValue(leaf.Config, cur, dir)
	if !ok {
		m.setInfo(fmt.Sprintf("Use 'ubootu set %s <value>' to edit this item", id))
		return
	}
	_, err := m.eng.SetValue(id, raw)
	m.mutated(err)
}

// mutated reports a failed mutation or a failed auto-save.
func (m *TreeModel) mutated(err error) {
	switch {
	case err != nil:
		m.setError(err)
	case m.eng.LastSaveError() != nil:
		m.setError(fmt.Errorf("auto-save failed: %w", m.eng.LastSaveError()))
	default:
		m.message, m.isError = "", false
	}
	m.syncStatus()
}

func (m *TreeModel) setError(err error) {
	m.message = fmt.Sprintf("%s: %v", engine.KindOf(err), err)
	m.isError = true
}

func (m *TreeModel) setInfo(text string) {
	m.message = text
	m.isError = false
}

func (m *TreeModel) syncStatus() {
	selected, total := m.eng.SelectedCount(menu.RootID)
	m.status.Update(selected, total, m.eng.ConfigStatus(), m.eng.Mode())
}

func refreshSummary(res discovery.Result) string {
	installed := 0
	for _, ok := range res.Present {
		if ok {
			installed++
		}
	}
	text := fmt.Sprintf("Refreshed: %d catalog items installed", installed)
	if len(res.Unavailable) > 0 {
		var names []string
		for mgr := range res.Unavailable {
			names = append(names, string(mgr))
		}
		sort.Strings(names)
		text += fmt.Sprintf(" (unavailable: %s)", strings.Join(names, ", "))
	}
	return text
}

// --- Navigation ---

func (m TreeModel) currentID() string {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return ""
	}
	return m.rows[m.cursor].id
}

func (m *TreeModel) rebuild() {
	tree := m.eng.Tree()
	rows := make([]row, 0, len(m.rows))
	var walk func(parent string, depth int)
	walk = func(parent string, depth int) {
		for _, id := range tree.Children(parent) {
			rows = append(rows, row{id: id, depth: depth})
			if tree.IsCategory(id) && m.expanded[id] {
				walk(id, depth+1)
			}
		}
	}
	walk(menu.RootID, 0)
	m.rows = rows
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampScroll()
}

func (m *TreeModel) moveCursor(dir int) {
	next := m.cursor + dir
	if next < 0 || next >= len(m.rows) {
		return
	}
	m.cursor = next
	m.clampScroll()
}

func (m *TreeModel) setExpanded(id string, open bool) {
	if !m.eng.Tree().IsCategory(id) || m.expanded[id] == open {
		return
	}
	if open {
		m.expanded[id] = true
	} else {
		delete(m.expanded, id)
	}
	m.rebuild()
}

func (m *TreeModel) collapseOrParent() {
	id := m.currentID()
	if m.expanded[id] {
		m.setExpanded(id, false)
		return
	}
	parent, ok := m.eng.Tree().Parent(id)
	if !ok || parent == menu.RootID {
		return
	}
	for i, r := range m.rows {
		if r.id == parent {
			m.cursor = i
			break
		}
	}
	m.clampScroll()
}

func (m TreeModel) listHeight() int {
	if m.height == 0 {
		return len(m.rows)
	}
	return max(m.height-reservedLines, 1)
}

func (m *TreeModel) clampScroll() {
	h := m.listHeight()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+h {
		m.offset = m.cursor - h + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// --- Rendering ---

func (m TreeModel) View() string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("ubootu") + " " + DimStyle.Render("Ubuntu setup selection") + "\n\n")

	end := min(m.offset+m.listHeight(), len(m.rows))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.renderRow(i, m.rows[i]) + "\n")
	}
	b.WriteString("\n")

	switch {
	case m.confirming:
		b.WriteString(PromptStyle.Render("Strict mode removes orphaned packages that ubootu installed.\nEnable it for this session? (y/n)") + "\n")
	case m.isError:
		b.WriteString(ErrorStyle.Render(m.message) + "\n")
	default:
		b.WriteString(InfoStyle.Render(m.message) + "\n")
	}

	b.WriteString(m.status.View())
	return b.String()
}

func (m TreeModel) renderRow(i int, r row) string {
	tree := m.eng.Tree()
	node, _ := tree.Node(r.id)
	info := node.Meta()
	label := info.Label
	if label == "" {
		label = info.ID
	}

	cursor := "  "
	if i == m.cursor {
		cursor = "> "
		label = CursorStyle.Render(label)
	}
	indent := strings.Repeat("  ", r.depth)

	if tree.IsCategory(r.id) {
		arrow := "▸"
		if m.expanded[r.id] {
			arrow = "▾"
		}
		selected, total := m.eng.SelectedCount(r.id)
		return cursor + indent + arrow + " " + indicatorBox(m.eng.Indicator(r.id)) + " " +
			CategoryStyle.Render(label) + DimStyle.Render(fmt.Sprintf(" (%d/%d)", selected, total))
	}

	box := UnselectedStyle.Render("[ ]")
	if m.eng.IsSelected(r.id) {
		box = SelectedStyle.Render("[x]")
	}
	line := cursor + indent + "  " + box + " " + label
	if leaf, ok := tree.Leaf(r.id); ok && leaf.Configurable() {
		if v, ok := m.eng.Value(r.id); ok {
			line += " = " + ValueStyle.Render(formatValue(leaf.Config, v))
		}
	}
	if badge := statusBadge(m.eng.Status(r.id)); badge != "" {
		line += "  " + badge
	}
	return line
}

func indicatorBox(ind selection.Indicator) string {
	switch ind {
	case selection.Full:
		return SelectedStyle.Render("[x]")
	case selection.Partial:
		return PartialStyle.Render("[-]")
	default:
		return UnselectedStyle.Render("[ ]")
	}
}

func statusBadge(s sync.Status) string {
	switch s {
	case sync.SyncedSelected:
		return SyncedBadgeStyle.Render("✓ installed")
	case sync.NeedsInstall:
		return InstallBadgeStyle.Render("+ install")
	case sync.Orphaned:
		return OrphanBadgeStyle.Render("! orphaned")
	}
	return ""
}

func formatValue(kind menu.Kind, v menu.Value) string {
	if s, ok := kind.(menu.Slider); ok && s.Unit != "" {
		return v.String() + s.Unit
	}
	if v.Type() == menu.TypeString {
		return fmt.Sprintf("%q", v.Str())
	}
	return v.String()
}

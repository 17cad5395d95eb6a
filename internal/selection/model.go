// Package selection owns the user's selection state over a menu.Tree.
package selection

import (
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/johnwyles/ubootu-sub000/internal/menu"
)

// ErrUnknownItem is returned for ids that are not in the tree.
var ErrUnknownItem = errors.New("unknown item")

// Indicator is the tri-state checkbox shown for a category.
type Indicator int

const (
	None Indicator = iota
	Partial
	Full
)

func (i Indicator) String() string {
	switch i {
	case Partial:
		return "partial"
	case Full:
		return "full"
	default:
		return "none"
	}
}

// Model maps container ids to selections. Root-level leaves are stored as a
// direct boolean; every other selected leaf lives in exactly one category's
// set. Empty sets and false booleans are never retained.
type Model struct {
	tree   *menu.Tree
	direct map[string]bool
	sets   map[string]map[string]struct{}
	// owner maps a selected leaf to the container holding it.
	owner map[string]string
}

// NewModel returns an empty selection over tree.
func NewModel(tree *menu.Tree) *Model {
	return &Model{
		tree:   tree,
		direct: map[string]bool{},
		sets:   map[string]map[string]struct{}{},
		owner:  map[string]string{},
	}
}

// Tree returns the tree the model selects over.
func (m *Model) Tree() *menu.Tree { return m.tree }

// Toggle flips a leaf, or applies the tri-state rule to a category: select
// everything unless everything is already selected.
func (m *Model) Toggle(id string) error {
	if _, ok := m.tree.Node(id); !ok && id != menu.RootID {
		return fmt.Errorf("toggle %q: %w", id, ErrUnknownItem)
	}
	if m.tree.IsLeaf(id) {
		if m.IsSelected(id) {
			m.unselect(id)
		} else {
			m.selectLeaf(id)
		}
		return nil
	}
	if m.Indicator(id) == Full {
		return m.DeselectAll(id)
	}
	return m.SelectAll(id)
}

// SelectAll selects every descendant leaf of id.
func (m *Model) SelectAll(id string) error {
	leaves, err := m.leavesOf(id)
	if err != nil {
		return fmt.Errorf("select all %q: %w", id, err)
	}
	for _, leaf := range leaves {
		m.unselect(leaf)
		m.selectLeaf(leaf)
	}
	return nil
}

// DeselectAll clears every descendant leaf of id.
func (m *Model) DeselectAll(id string) error {
	leaves, err := m.leavesOf(id)
	if err != nil {
		return fmt.Errorf("deselect all %q: %w", id, err)
	}
	for _, leaf := range leaves {
		m.unselect(leaf)
	}
	return nil
}

// Set forces a single leaf on or off.
func (m *Model) Set(id string, selected bool) error {
	if !m.tree.IsLeaf(id) {
		return fmt.Errorf("set %q: %w", id, ErrUnknownItem)
	}
	m.unselect(id)
	if selected {
		m.selectLeaf(id)
	}
	return nil
}

// IsSelected reports whether a leaf is selected anywhere.
func (m *Model) IsSelected(id string) bool {
	_, ok := m.owner[id]
	return ok
}

// Indicator compares selected descendants of a category with its total.
// A category without leaves reports None.
func (m *Model) Indicator(id string) Indicator {
	leaves := m.tree.DescendantLeaves(id)
	if id == menu.RootID {
		leaves = m.tree.Leaves()
	}
	selected := 0
	for _, leaf := range leaves {
		if m.IsSelected(leaf) {
			selected++
		}
	}
	switch {
	case selected == 0:
		return None
	case selected == len(leaves):
		return Full
	default:
		return Partial
	}
}

// SelectedCount returns selected and total leaf counts under id.
func (m *Model) SelectedCount(id string) (selected, total int) {
	leaves, err := m.leavesOf(id)
	if err != nil {
		return 0, 0
	}
	for _, leaf := range leaves {
		if m.IsSelected(leaf) {
			selected++
		}
	}
	return selected, len(leaves)
}

// SelectedLeaves returns selected leaf ids in tree order.
func (m *Model) SelectedLeaves() []string {
	var out []string
	for _, leaf := range m.tree.Leaves() {
		if m.IsSelected(leaf) {
			out = append(out, leaf)
		}
	}
	return out
}

// Clear drops every selection.
func (m *Model) Clear() {
	clear(m.direct)
	clear(m.sets)
	clear(m.owner)
}

// Containers returns a copy of the raw container map: root-level leaves map
// to true, categories map to their sorted member ids.
func (m *Model) Containers() map[string]any {
	out := make(map[string]any, len(m.direct)+len(m.sets))
	for id := range m.direct {
		out[id] = true
	}
	for id, set := range m.sets {
		out[id] = slices.Sorted(maps.Keys(set))
	}
	return out
}

// Clone returns an independent copy over the same tree.
func (m *Model) Clone() *Model {
	c := NewModel(m.tree)
	maps.Copy(c.direct, m.direct)
	maps.Copy(c.owner, m.owner)
	for id, set := range m.sets {
		c.sets[id] = maps.Clone(set)
	}
	return c
}

func (m *Model) leavesOf(id string) ([]string, error) {
	if id == menu.RootID {
		return m.tree.Leaves(), nil
	}
	if _, ok := m.tree.Node(id); !ok {
		return nil, ErrUnknownItem
	}
	return m.tree.DescendantLeaves(id), nil
}

// selectLeaf stores the leaf under its parent container.
func (m *Model) selectLeaf(id string) {
	parent, _ := m.tree.Parent(id)
	if parent == menu.RootID || parent == "" {
		m.direct[id] = true
		m.owner[id] = id
		return
	}
	set, ok := m.sets[parent]
	if !ok {
		set = map[string]struct{}{}
		m.sets[parent] = set
	}
	set[id] = struct{}{}
	m.owner[id] = parent
}

// unselect removes the leaf from whichever container owns it.
func (m *Model) unselect(id string) {
	container, ok := m.owner[id]
	if !ok {
		return
	}
	delete(m.owner, id)
	if container == id {
		delete(m.direct, id)
		return
	}
	set := m.sets[container]
	delete(set, id)
	if len(set) == 0 {
		delete(m.sets, container)
	}
}

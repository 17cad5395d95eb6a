package menu

import (
	"fmt"
	"slices"
	"strings"
)

// ErrorKind classifies a structural problem found while indexing a tree.
type ErrorKind string

const (
	ErrEmptyID       ErrorKind = "empty_id"
	ErrReservedID    ErrorKind = "reserved_id"
	ErrDuplicateID   ErrorKind = "duplicate_id"
	ErrMissingParent ErrorKind = "missing_parent"
	ErrSelfParent    ErrorKind = "self_parent"
	ErrLeafParent    ErrorKind = "leaf_parent"
	ErrCycle         ErrorKind = "cycle"
	ErrUnreachable   ErrorKind = "unreachable"
	ErrBadDefault    ErrorKind = "bad_default"
	ErrBadConfig     ErrorKind = "bad_config"
)

// StructuralError describes one malformed node.
type StructuralError struct {
	Kind   ErrorKind
	ID     string
	Detail string
}

func (e StructuralError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.ID)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Kind, e.ID, e.Detail)
}

// StructuralErrors is returned when a tree fails validation.
type StructuralErrors []StructuralError

func (errs StructuralErrors) Error() string {
	msgs := make([]string, len(errs))
	for i, e := range errs {
		msgs[i] = e.Error()
	}
	return fmt.Sprintf("%d structural error(s): %s", len(errs), strings.Join(msgs, "; "))
}

// Tree is an indexed, read-only view of the catalog hierarchy. All lookups
// are map reads built once by NewTree.
type Tree struct {
	nodes       map[string]Node
	children    map[string][]string
	parent      map[string]string
	descendants map[string][]string
	order       []string
	leaves      []string
	errs        []StructuralError
}

// NewTree indexes nodes under a synthetic root. Nodes with an empty Parent
// hang off the root. Invalid nodes are excluded from the index and reported
// by Validate; NewTree itself never fails.
func NewTree(nodes []Node) *Tree {
	t := &Tree{
		nodes:       map[string]Node{RootID: &Category{Info: Info{ID: RootID, Label: "Root"}}},
		children:    map[string][]string{},
		parent:      map[string]string{},
		descendants: map[string][]string{},
	}

	var accepted []Node
	for _, n := range nodes {
		info := n.Meta()
		switch {
		case strings.TrimSpace(info.ID) == "":
			t.errs = append(t.errs, StructuralError{Kind: ErrEmptyID, Detail: info.Label})
			continue
		case info.ID == RootID:
			t.errs = append(t.errs, StructuralError{Kind: ErrReservedID, ID: info.ID})
			continue
		}
		if _, dup := t.nodes[info.ID]; dup {
			t.errs = append(t.errs, StructuralError{Kind: ErrDuplicateID, ID: info.ID})
			continue
		}
		if leaf, ok := n.(*Leaf); ok && leaf.Default != nil {
			if leaf.Config == nil {
				t.errs = append(t.errs, StructuralError{Kind: ErrBadDefault, ID: info.ID, Detail: "default on a non-configurable item"})
			} else if _, err := leaf.Config.Coerce(info.ID, leaf.Default.Raw()); err != nil {
				t.errs = append(t.errs, StructuralError{Kind: ErrBadDefault, ID: info.ID, Detail: err.Error()})
			}
		}
		t.nodes[info.ID] = n
		accepted = append(accepted, n)
	}

	for _, n := range accepted {
		info := n.Meta()
		p := info.Parent
		if p == "" {
			p = RootID
		}
		switch parent, ok := t.nodes[p]; {
		case p == info.ID:
			t.errs = append(t.errs, StructuralError{Kind: ErrSelfParent, ID: info.ID})
			continue
		case !ok:
			t.errs = append(t.errs, StructuralError{Kind: ErrMissingParent, ID: info.ID, Detail: "parent " + p})
			continue
		default:
			if _, isLeaf := parent.(*Leaf); isLeaf {
				t.errs = append(t.errs, StructuralError{Kind: ErrLeafParent, ID: info.ID, Detail: "parent " + p + " is not a category"})
				continue
			}
		}
		t.parent[info.ID] = p
		t.children[p] = append(t.children[p], info.ID)
	}

	visited := map[string]bool{}
	t.walk(RootID, visited)
	inCycle := t.detectCycles(visited)
	for _, id := range t.orderedUnvisited(visited) {
		if !inCycle[id] {
			t.errs = append(t.errs, StructuralError{Kind: ErrUnreachable, ID: id, Detail: "ancestor is part of a cycle"})
		}
	}

	// Unreachable nodes are not part of the usable tree.
	for id := range t.nodes {
		if !visited[id] {
			delete(t.nodes, id)
			delete(t.parent, id)
			delete(t.children, id)
		}
	}
	return t
}

// walk records preorder ids and returns the descendant leaves of id.
func (t *Tree) walk(id string, visited map[string]bool) []string {
	visited[id] = true
	if id != RootID {
		t.order = append(t.order, id)
	}
	if _, ok := t.nodes[id].(*Leaf); ok {
		t.leaves = append(t.leaves, id)
		return []string{id}
	}
	var leaves []string
	for _, child := range t.children[id] {
		leaves = append(leaves, t.walk(child, visited)...)
	}
	t.descendants[id] = leaves
	return leaves
}

func (t *Tree) detectCycles(visited map[string]bool) map[string]bool {
	reported := map[string]bool{}
	for _, start := range t.orderedUnvisited(visited) {
		if reported[start] {
			continue
		}
		// Follow parents until we hit a visited node (no cycle, the chain
		// hangs off a cyclic ancestor) or revisit one on this path.
		seen := map[string]int{}
		var path []string
		cur := start
		for {
			if visited[cur] || reported[cur] {
				break
			}
			if idx, ok := seen[cur]; ok {
				cycle := path[idx:]
				for _, id := range cycle {
					reported[id] = true
				}
				t.errs = append(t.errs, StructuralError{
					Kind:   ErrCycle,
					ID:     cycle[0],
					Detail: strings.Join(append(cycle, cycle[0]), " -> "),
				})
				break
			}
			seen[cur] = len(path)
			path = append(path, cur)
			next, ok := t.parent[cur]
			if !ok {
				break
			}
			cur = next
		}
	}
	return reported
}

// orderedUnvisited returns unreachable ids in a stable order so cycle
// reports are deterministic.
func (t *Tree) orderedUnvisited(visited map[string]bool) []string {
	var out []string
	for _, ids := range t.children {
		for _, id := range ids {
			if !visited[id] {
				out = append(out, id)
			}
		}
	}
	slices.Sort(out)
	return out
}

// Validate returns the structural errors found at construction.
func (t *Tree) Validate() []StructuralError {
	return append([]StructuralError(nil), t.errs...)
}

// Err returns Validate() as an error, or nil when the tree is well formed.
func (t *Tree) Err() error {
	if len(t.errs) == 0 {
		return nil
	}
	return StructuralErrors(t.Validate())
}

// Node returns the node for id.
func (t *Tree) Node(id string) (Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Leaf returns the leaf for id, or false when id is unknown or a category.
func (t *Tree) Leaf(id string) (*Leaf, bool) {
	l, ok := t.nodes[id].(*Leaf)
	return l, ok
}

func (t *Tree) IsLeaf(id string) bool {
	_, ok := t.nodes[id].(*Leaf)
	return ok
}

func (t *Tree) IsCategory(id string) bool {
	_, ok := t.nodes[id].(*Category)
	return ok
}

// Parent returns the parent id of a non-root node.
func (t *Tree) Parent(id string) (string, bool) {
	p, ok := t.parent[id]
	return p, ok
}

// Children returns the ordered child ids of a category.
func (t *Tree) Children(id string) []string {
	return t.children[id]
}

// DescendantLeaves returns every leaf under id in tree order. For a leaf it
// returns the leaf itself.
func (t *Tree) DescendantLeaves(id string) []string {
	if t.IsLeaf(id) {
		return []string{id}
	}
	return t.descendants[id]
}

// Leaves returns all leaf ids in tree order.
func (t *Tree) Leaves() []string {
	return t.leaves
}

// Order returns every non-root id in preorder.
func (t *Tree) Order() []string {
	return t.order
}

// Depth returns the number of ancestors between id and the root.
func (t *Tree) Depth(id string) int {
	d := 0
	for cur := id; ; d++ {
		p, ok := t.parent[cur]
		if !ok || p == RootID {
			return d
		}
		cur = p
	}
}

// Len returns the number of indexed nodes, excluding the root.
func (t *Tree) Len() int {
	return len(t.nodes) - 1
}

package selection

import (
	"fmt"
	"maps"
	"slices"

	"github.com/johnwyles/ubootu-sub000/internal/menu"
)

// Values holds configurable-item values, independent of selection state.
// Every stored value has passed its leaf's Kind.
type Values struct {
	tree   *menu.Tree
	values map[string]menu.Value
}

func NewValues(tree *menu.Tree) *Values {
	return &Values{tree: tree, values: map[string]menu.Value{}}
}

// DefaultValues seeds every configurable leaf that declares a default.
func DefaultValues(tree *menu.Tree) *Values {
	v := NewValues(tree)
	for _, id := range tree.Leaves() {
		leaf, _ := tree.Leaf(id)
		if leaf.Configurable() && leaf.Default != nil {
			v.values[id] = *leaf.Default
		}
	}
	return v
}

// Set validates raw against the leaf's kind and stores it. Invalid input
// returns a *menu.ValidationError and leaves the previous value in place.
func (v *Values) Set(id string, raw any) (menu.Value, error) {
	leaf, ok := v.tree.Leaf(id)
	if !ok {
		return menu.Value{}, fmt.Errorf("set value %q: %w", id, ErrUnknownItem)
	}
	if !leaf.Configurable() {
		return menu.Value{}, &menu.ValidationError{ID: id, Value: raw, Reason: "item is not configurable"}
	}
	val, err := leaf.Config.Coerce(id, raw)
	if err != nil {
		return menu.Value{}, err
	}
	v.values[id] = val
	return val, nil
}

// Get returns the stored value for id.
func (v *Values) Get(id string) (menu.Value, bool) {
	val, ok := v.values[id]
	return val, ok
}

// Delete drops a stored value.
func (v *Values) Delete(id string) {
	delete(v.values, id)
}

// IDs returns the ids with stored values, sorted.
func (v *Values) IDs() []string {
	return slices.Sorted(maps.Keys(v.values))
}

// Raw returns id -> plain scalar for serialization.
func (v *Values) Raw() map[string]any {
	out := make(map[string]any, len(v.values))
	for id, val := range v.values {
		out[id] = val.Raw()
	}
	return out
}

func (v *Values) Len() int { return len(v.values) }

func (v *Values) Clone() *Values {
	return &Values{tree: v.tree, values: maps.Clone(v.values)}
}

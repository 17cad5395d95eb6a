// Package config persists selection and configurable-value state as YAML.
package config

import (
	"github.com/johnwyles/ubootu-sub000/internal/menu"
	"github.com/johnwyles/ubootu-sub000/internal/selection"
)

// SchemaVersion is written to metadata.version on every save.
const SchemaVersion = "1.0"

// Snapshot represents ~/.ubootu/config.yml.
type Snapshot struct {
	Metadata          Metadata                    `yaml:"metadata"`
	SelectedItems     []string                    `yaml:"selected_items"`
	ConfigurableItems map[string]ConfigurableItem `yaml:"configurable_items"`
}

type Metadata struct {
	Version string `yaml:"version"`
}

// ConfigurableItem holds one value. Value is a plain scalar.
type ConfigurableItem struct {
	ID    string `yaml:"id"`
	Value any    `yaml:"value"`
}

// Flatten builds a snapshot from in-memory state. Ids are emitted in tree
// order; a category appears only when at least one descendant is selected,
// followed by its selected leaves un-nested.
func Flatten(tree *menu.Tree, model *selection.Model, values *selection.Values) Snapshot {
	snap := Snapshot{
		Metadata:          Metadata{Version: SchemaVersion},
		SelectedItems:     []string{},
		ConfigurableItems: map[string]ConfigurableItem{},
	}
	for _, id := range tree.Order() {
		if tree.IsLeaf(id) {
			if model.IsSelected(id) {
				snap.SelectedItems = append(snap.SelectedItems, id)
			}
			continue
		}
		if n, _ := model.SelectedCount(id); n > 0 {
			snap.SelectedItems = append(snap.SelectedItems, id)
		}
	}
	if values != nil {
		for id, raw := range values.Raw() {
			snap.ConfigurableItems[id] = ConfigurableItem{ID: id, Value: raw}
		}
	}
	return snap
}

// Dropped describes a snapshot entry that could not be restored.
type Dropped struct {
	ID     string
	Reason string
}

// Unflatten restores state from a snapshot. Category ids are ignored since
// their selection is derived from leaves. Unknown ids and values that no
// longer validate are skipped and reported; configurable leaves missing from
// the snapshot keep their defaults.
func Unflatten(tree *menu.Tree, snap Snapshot) (*selection.Model, *selection.Values, []Dropped) {
	model := selection.NewModel(tree)
	values := selection.DefaultValues(tree)
	var dropped []Dropped

	for _, id := range snap.SelectedItems {
		switch {
		case id == menu.RootID || tree.IsCategory(id):
		case tree.IsLeaf(id):
			_ = model.Set(id, true)
		default:
			dropped = append(dropped, Dropped{ID: id, Reason: "unknown item"})
		}
	}

	for _, id := range sortedKeys(snap.ConfigurableItems) {
		if _, err := values.Set(id, snap.ConfigurableItems[id].Value); err != nil {
			dropped = append(dropped, Dropped{ID: id, Reason: err.Error()})
		}
	}
	return model, values, dropped
}

// Package apply hands a variable document to ansible-playbook.
package apply

import (
	"maps"
	"slices"

	"go.yaml.in/yaml/v3"

	"github.com/johnwyles/ubootu-sub000/internal/removal"
)

// Keys of the variable document.
const (
	KeySelectedItems    = "selected_items"
	KeyMode             = "ubootu_mode"
	KeyPackagesToRemove = "packages_to_remove"
)

// Variables is the flat key to scalar-or-list document passed to the playbook.
type Variables map[string]any

// BuildVariables assembles the document. values are keyed by item id and
// renamed through varNames; ids without an entry keep their own name.
// packages_to_remove is only present in Strict mode.
func BuildVariables(selected []string, values map[string]any, varNames map[string]string, mode removal.Mode, removals []string) Variables {
	sel := slices.Clone(selected)
	if sel == nil {
		sel = []string{}
	}
	vars := Variables{
		KeySelectedItems: sel,
		KeyMode:          mode.String(),
	}
	for _, id := range slices.Sorted(maps.Keys(values)) {
		name := id
		if mapped, ok := varNames[id]; ok && mapped != "" {
			name = mapped
		}
		if isReserved(name) {
			continue
		}
		vars[name] = values[id]
	}
	if mode == removal.Strict {
		rm := slices.Clone(removals)
		if rm == nil {
			rm = []string{}
		}
		vars[KeyPackagesToRemove] = rm
	}
	return vars
}

func isReserved(name string) bool {
	return name == KeySelectedItems || name == KeyMode || name == KeyPackagesToRemove
}

// Marshal encodes the document as YAML with sorted keys.
func (v Variables) Marshal() ([]byte, error) {
	return yaml.Marshal(map[string]any(v))
}

package config

import (
	"errors"
	"fmt"
	"os"
	"slices"

	"github.com/mitchellh/hashstructure/v2"
)

// Status texts shown next to the tree.
const (
	StatusUnsaved  = "Unsaved changes"
	StatusClean    = "No unsaved changes"
	StatusNotApply = "Saved but not applied"
	StatusApplied  = "Applied"
)

// hashable is the canonical form fed to hashstructure. Selected ids are a set
// and map iteration order does not affect the digest. hashstructure folds set
// members with XOR, so Selected must not hold duplicates.
type hashable struct {
	Version  string
	Selected []string `hash:"set"`
	Values   map[string]any
}

// ContentHash returns a hex digest over the logical content of snap.
// Numeric values are folded to float64 so an integral float decoded back as
// an int hashes the same.
func ContentHash(snap Snapshot) (string, error) {
	h := hashable{
		Version:  snap.Metadata.Version,
		Selected: uniqueSorted(snap.SelectedItems),
		Values:   make(map[string]any, len(snap.ConfigurableItems)),
	}
	if h.Version == "" {
		h.Version = SchemaVersion
	}
	for id, item := range snap.ConfigurableItems {
		h.Values[id] = canonical(item.Value)
	}
	sum, err := hashstructure.Hash(h, hashstructure.FormatV2, nil)
	if err != nil {
		return "", fmt.Errorf("hashing snapshot: %w", err)
	}
	return fmt.Sprintf("%016x", sum), nil
}

func uniqueSorted(ids []string) []string {
	out := slices.Clone(ids)
	slices.Sort(out)
	return slices.Compact(out)
}

// HashFile hashes the snapshot stored at path. A missing file hashes to "".
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("reading %s: %w", path, err)
	}
	snap, err := Parse(data)
	if err != nil {
		return "", fmt.Errorf("hashing %s: %w", path, err)
	}
	return ContentHash(snap)
}

// Status compares the in-memory, saved and applied digests.
func Status(current, saved, applied string) string {
	switch {
	case current != saved:
		return StatusUnsaved
	case applied == "":
		return StatusClean
	case applied != saved:
		return StatusNotApply
	default:
		return StatusApplied
	}
}

func canonical(v any) any {
	switch n := v.(type) {
	case int:
		return float64(n)
	case int8:
		return float64(n)
	case int16:
		return float64(n)
	case int32:
		return float64(n)
	case int64:
		return float64(n)
	case uint:
		return float64(n)
	case uint8:
		return float64(n)
	case uint16:
		return float64(n)
	case uint32:
		return float64(n)
	case uint64:
		return float64(n)
	case float32:
		return float64(n)
	default:
		return v
	}
}

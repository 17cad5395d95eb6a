package removal

import (
	"fmt"
	"maps"
	"os"
	"slices"

	"go.yaml.in/yaml/v3"

	"github.com/johnwyles/ubootu-sub000/internal/fsutil"
)

// ManagedSet is the set of packages ubootu itself installed, persisted in
// ~/.ubootu/managed-packages.yml.
type ManagedSet struct {
	path  string
	names map[string]struct{}
}

type managedFile struct {
	ManagedPackages []string `yaml:"managed_packages"`
}

// LoadManaged reads the set at path. A missing file is an empty set.
func LoadManaged(path string) (*ManagedSet, error) {
	m := &ManagedSet{path: path, names: map[string]struct{}{}}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return nil, fmt.Errorf("reading managed packages: %w", err)
	}
	var f managedFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing managed packages: %w", err)
	}
	m.Add(f.ManagedPackages...)
	return m, nil
}

// NewManaged returns an empty set that saves to path.
func NewManaged(path string, names ...string) *ManagedSet {
	m := &ManagedSet{path: path, names: map[string]struct{}{}}
	m.Add(names...)
	return m
}

func (m *ManagedSet) Add(names ...string) {
	for _, n := range names {
		if n != "" {
			m.names[n] = struct{}{}
		}
	}
}

func (m *ManagedSet) Remove(names ...string) {
	for _, n := range names {
		delete(m.names, n)
	}
}

func (m *ManagedSet) Contains(name string) bool {
	_, ok := m.names[name]
	return ok
}

// Names returns the members sorted.
func (m *ManagedSet) Names() []string {
	return slices.Sorted(maps.Keys(m.names))
}

func (m *ManagedSet) Len() int { return len(m.names) }

// Save writes the set atomically.
func (m *ManagedSet) Save() error {
	data, err := yaml.Marshal(managedFile{ManagedPackages: m.Names()})
	if err != nil {
		return fmt.Errorf("encoding managed packages: %w", err)
	}
	if err := fsutil.WriteFileAtomic(m.path, data, 0o644); err != nil {
		return fmt.Errorf("writing managed packages: %w", err)
	}
	return nil
}

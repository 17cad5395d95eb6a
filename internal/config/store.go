package config

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"go.yaml.in/yaml/v3"

	"github.com/johnwyles/ubootu-sub000/internal/fsutil"
)

// ErrorKind classifies a StoreError.
type ErrorKind int

const (
	NotFound ErrorKind = iota
	Corrupt
	ReadFailed
	WriteFailed
)

func (k ErrorKind) String() string {
	switch k {
	case NotFound:
		return "not found"
	case Corrupt:
		return "corrupt"
	case ReadFailed:
		return "read failed"
	case WriteFailed:
		return "write failed"
	default:
		return "unknown"
	}
}

// StoreError is returned by Store.Load and Store.Save.
type StoreError struct {
	Kind   ErrorKind
	Path   string
	Detail string
	Err    error
}

func (e *StoreError) Error() string {
	msg := fmt.Sprintf("config %s: %s", e.Kind, e.Path)
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *StoreError) Unwrap() error { return e.Err }

// IsKind reports whether err is a *StoreError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var se *StoreError
	return errors.As(err, &se) && se.Kind == kind
}

// Store reads and writes a single snapshot file.
type Store struct {
	Path string
}

func NewStore(path string) *Store {
	return &Store{Path: path}
}

// Save replaces the file atomically. On failure the previous content is intact.
func (s *Store) Save(snap Snapshot) error {
	data, err := Marshal(snap)
	if err != nil {
		return &StoreError{Kind: WriteFailed, Path: s.Path, Detail: "encoding", Err: err}
	}
	if err := fsutil.WriteFileAtomic(s.Path, data, 0o644); err != nil {
		return &StoreError{Kind: WriteFailed, Path: s.Path, Err: err}
	}
	return nil
}

// Load reads the file. It never modifies or removes it.
func (s *Store) Load() (Snapshot, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Snapshot{}, &StoreError{Kind: NotFound, Path: s.Path}
		}
		return Snapshot{}, &StoreError{Kind: ReadFailed, Path: s.Path, Err: err}
	}
	snap, err := Parse(data)
	if err != nil {
		return Snapshot{}, &StoreError{Kind: Corrupt, Path: s.Path, Detail: err.Error()}
	}
	return snap, nil
}

// Marshal serializes a Snapshot to YAML bytes.
func Marshal(snap Snapshot) ([]byte, error) {
	if snap.SelectedItems == nil {
		snap.SelectedItems = []string{}
	}
	if snap.ConfigurableItems == nil {
		snap.ConfigurableItems = map[string]ConfigurableItem{}
	}
	if snap.Metadata.Version == "" {
		snap.Metadata.Version = SchemaVersion
	}
	return yaml.Marshal(snap)
}

// Parse decodes config.yml bytes, checking field shapes on the node tree so
// a wrong type is reported with its line instead of being zeroed.
func Parse(data []byte) (Snapshot, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Snapshot{}, fmt.Errorf("parsing config: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return Snapshot{}, errors.New("empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return Snapshot{}, shapeErr(root, "top level must be a mapping")
	}

	snap := Snapshot{
		SelectedItems:     []string{},
		ConfigurableItems: map[string]ConfigurableItem{},
	}
	for i := 0; i+1 < len(root.Content); i += 2 {
		key, val := root.Content[i], root.Content[i+1]
		var err error
		switch key.Value {
		case "metadata":
			snap.Metadata, err = parseMetadata(val)
		case "selected_items":
			snap.SelectedItems, err = parseSelected(val)
		case "configurable_items":
			snap.ConfigurableItems, err = parseConfigurable(val)
		}
		if err != nil {
			return Snapshot{}, err
		}
	}
	return snap, nil
}

func parseMetadata(n *yaml.Node) (Metadata, error) {
	if isNull(n) {
		return Metadata{}, nil
	}
	if n.Kind != yaml.MappingNode {
		return Metadata{}, shapeErr(n, "metadata must be a mapping")
	}
	var md Metadata
	for i := 0; i+1 < len(n.Content); i += 2 {
		if n.Content[i].Value != "version" {
			continue
		}
		v := n.Content[i+1]
		if v.Kind != yaml.ScalarNode || isNull(v) {
			return Metadata{}, shapeErr(v, "metadata.version must be a scalar")
		}
		md.Version = v.Value
	}
	return md, nil
}

func parseSelected(n *yaml.Node) ([]string, error) {
	if isNull(n) {
		return []string{}, nil
	}
	if n.Kind != yaml.SequenceNode {
		return nil, shapeErr(n, "selected_items must be a list")
	}
	ids := make([]string, 0, len(n.Content))
	for _, item := range n.Content {
		if item.Kind != yaml.ScalarNode || item.ShortTag() != "!!str" {
			return nil, shapeErr(item, "selected_items entries must be strings")
		}
		ids = append(ids, item.Value)
	}
	return ids, nil
}

func parseConfigurable(n *yaml.Node) (map[string]ConfigurableItem, error) {
	out := map[string]ConfigurableItem{}
	if isNull(n) {
		return out, nil
	}
	if n.Kind != yaml.MappingNode {
		return nil, shapeErr(n, "configurable_items must be a mapping")
	}
	for i := 0; i+1 < len(n.Content); i += 2 {
		key, body := n.Content[i], n.Content[i+1]
		if key.Kind != yaml.ScalarNode || key.ShortTag() != "!!str" {
			return nil, shapeErr(key, "configurable_items keys must be strings")
		}
		if body.Kind != yaml.MappingNode {
			return nil, shapeErr(body, fmt.Sprintf("configurable_items.%s must be a mapping", key.Value))
		}
		item := ConfigurableItem{ID: key.Value}
		hasValue := false
		for j := 0; j+1 < len(body.Content); j += 2 {
			field, v := body.Content[j], body.Content[j+1]
			switch field.Value {
			case "id":
				if v.Kind != yaml.ScalarNode || v.ShortTag() != "!!str" {
					return nil, shapeErr(v, fmt.Sprintf("configurable_items.%s.id must be a string", key.Value))
				}
				if v.Value != key.Value {
					return nil, shapeErr(v, fmt.Sprintf("configurable_items.%s.id does not match its key (%s)", key.Value, v.Value))
				}
			case "value":
				if v.Kind != yaml.ScalarNode || isNull(v) {
					return nil, shapeErr(v, fmt.Sprintf("configurable_items.%s.value must be a scalar", key.Value))
				}
				if err := v.Decode(&item.Value); err != nil {
					return nil, shapeErr(v, err.Error())
				}
				hasValue = true
			}
		}
		if !hasValue {
			return nil, shapeErr(body, fmt.Sprintf("configurable_items.%s has no value", key.Value))
		}
		out[key.Value] = item
	}
	return out, nil
}

func isNull(n *yaml.Node) bool {
	return n.Kind == yaml.ScalarNode && n.ShortTag() == "!!null"
}

func shapeErr(n *yaml.Node, msg string) error {
	return fmt.Errorf("line %d: %s", n.Line, msg)
}

func sortedKeys[V any](m map[string]V) []string {
	return slices.Sorted(maps.Keys(m))
}

// Package catalog loads the static item catalog into a menu.Tree.
package catalog

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"regexp"

	"go.yaml.in/yaml/v3"

	"github.com/johnwyles/ubootu-sub000/internal/menu"
)

//go:embed default.yml
var defaultCatalog []byte

// File is the catalog document: a flat item list linked by parent ids.
type File struct {
	Items []Item `yaml:"items"`
}

// Item is one catalog entry. Category marks a grouping node; everything
// else is a leaf.
type Item struct {
	ID          string      `yaml:"id"`
	Label       string      `yaml:"label"`
	Description string      `yaml:"description,omitempty"`
	Parent      string      `yaml:"parent,omitempty"`
	Category    bool        `yaml:"category,omitempty"`
	Packages    []string    `yaml:"packages,omitempty"`
	Variable    string      `yaml:"variable,omitempty"`
	Selected    bool        `yaml:"selected,omitempty"`
	Config      *ConfigSpec `yaml:"config,omitempty"`
	Default     any         `yaml:"default,omitempty"`
}

// ConfigSpec is the tagged form of a menu.Kind.
type ConfigSpec struct {
	Type      string   `yaml:"type"`
	Min       float64  `yaml:"min,omitempty"`
	Max       float64  `yaml:"max,omitempty"`
	Step      float64  `yaml:"step,omitempty"`
	Unit      string   `yaml:"unit,omitempty"`
	Options   []string `yaml:"options,omitempty"`
	MaxLength int      `yaml:"max_length,omitempty"`
	Pattern   string   `yaml:"pattern,omitempty"`
}

// Default returns the embedded catalog.
func Default() (*menu.Tree, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog file, or the embedded one when path is empty.
func Load(path string) (*menu.Tree, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes a catalog and indexes it. Decoding failures are plain
// errors; anything wrong with the items themselves is returned as
// menu.StructuralErrors alongside the usable part of the tree.
func Parse(data []byte) (*menu.Tree, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var f File
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing catalog: %w", err)
	}

	var (
		nodes []menu.Node
		errs  menu.StructuralErrors
	)
	for _, item := range f.Items {
		n, err := item.node()
		if err != nil {
			errs = append(errs, *err)
			continue
		}
		nodes = append(nodes, n)
	}

	tree := menu.NewTree(nodes)
	errs = append(errs, tree.Validate()...)
	if len(errs) > 0 {
		return tree, errs
	}
	return tree, nil
}

func (it Item) node() (menu.Node, *menu.StructuralError) {
	info := menu.Info{ID: it.ID, Label: it.Label, Parent: it.Parent, Description: it.Description}
	if info.Label == "" {
		info.Label = it.ID
	}
	if it.Category {
		if it.Config != nil || it.Default != nil || len(it.Packages) > 0 || it.Selected {
			return nil, &menu.StructuralError{Kind: menu.ErrBadConfig, ID: it.ID, Detail: "category with leaf fields"}
		}
		return &menu.Category{Info: info}, nil
	}

	leaf := &menu.Leaf{
		Info:            info,
		Packages:        it.Packages,
		Variable:        it.Variable,
		DefaultSelected: it.Selected,
	}
	if it.Config != nil {
		kind, err := it.Config.kind()
		if err != nil {
			return nil, &menu.StructuralError{Kind: menu.ErrBadConfig, ID: it.ID, Detail: err.Error()}
		}
		leaf.Config = kind
	}
	if it.Default != nil {
		if leaf.Config == nil {
			return nil, &menu.StructuralError{Kind: menu.ErrBadDefault, ID: it.ID, Detail: "default on a non-configurable item"}
		}
		v, err := leaf.Config.Coerce(it.ID, it.Default)
		if err != nil {
			return nil, &menu.StructuralError{Kind: menu.ErrBadDefault, ID: it.ID, Detail: err.Error()}
		}
		leaf.Default = &v
	}
	return leaf, nil
}

func (c ConfigSpec) kind() (menu.Kind, error) {
	switch c.Type {
	case "slider":
		for _, f := range []float64{c.Min, c.Max, c.Step} {
			if f != math.Trunc(f) {
				return nil, errors.New("slider bounds must be integers")
			}
		}
		if c.Min > c.Max {
			return nil, fmt.Errorf("slider min %g exceeds max %g", c.Min, c.Max)
		}
		return menu.Slider{Min: int(c.Min), Max: int(c.Max), Step: int(c.Step), Unit: c.Unit}, nil
	case "spinner":
		if c.Min > c.Max {
			return nil, fmt.Errorf("spinner min %g exceeds max %g", c.Min, c.Max)
		}
		return menu.Spinner{Min: c.Min, Max: c.Max, Step: c.Step}, nil
	case "dropdown":
		if len(c.Options) == 0 {
			return nil, errors.New("dropdown needs options")
		}
		return menu.Dropdown{Options: c.Options}, nil
	case "select":
		if len(c.Options) == 0 {
			return nil, errors.New("select needs options")
		}
		return menu.Select{Options: c.Options}, nil
	case "toggle":
		return menu.Toggle{}, nil
	case "text":
		if c.Pattern != "" {
			if _, err := regexp.Compile(c.Pattern); err != nil {
				return nil, fmt.Errorf("bad text pattern: %w", err)
			}
		}
		return menu.Text{MaxLength: c.MaxLength, Pattern: c.Pattern}, nil
	case "":
		return nil, errors.New("config type missing")
	default:
		return nil, fmt.Errorf("unknown config type %q", c.Type)
	}
}

// Package menu models the catalog hierarchy: categories, leaf items, their
// configurable kinds and typed values.
package menu

// RootID is the id of the synthetic root category.
const RootID = "root"

// Info is shared by both node variants. Parent is a back-reference only;
// ownership runs from the tree index down.
type Info struct {
	ID          string
	Label       string
	Parent      string
	Description string
}

// Node is either a *Category or a *Leaf.
type Node interface {
	Meta() Info
	isNode()
}

// Category groups other nodes. Its selection state is derived from its
// descendant leaves.
type Category struct {
	Info
}

// Leaf is a selectable unit of install intent.
type Leaf struct {
	Info

	// Packages names the package-manager identifiers that indicate this
	// item is installed. Empty means the leaf id itself.
	Packages []string
	// Variable is the automation variable a configurable value maps to.
	// Empty means the leaf id.
	Variable string
	// DefaultSelected marks leaves selected in the built-in defaults.
	DefaultSelected bool

	// Config is nil for plain items.
	Config Kind
	// Default is the initial value of a configurable item.
	Default *Value
}

func (c *Category) Meta() Info { return c.Info }
func (l *Leaf) Meta() Info     { return l.Info }

func (*Category) isNode() {}
func (*Leaf) isNode()     {}

// Configurable reports whether the leaf carries a value.
func (l *Leaf) Configurable() bool { return l.Config != nil }

// PackageNames returns Packages, or the leaf id when none are declared.
func (l *Leaf) PackageNames() []string {
	if len(l.Packages) == 0 {
		return []string{l.ID}
	}
	return l.Packages
}

// VariableName returns the automation variable for this leaf's value.
func (l *Leaf) VariableName() string {
	if l.Variable == "" {
		return l.ID
	}
	return l.Variable
}

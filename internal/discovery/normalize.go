package discovery

import (
	"slices"
	"strings"

	"github.com/johnwyles/ubootu-sub000/internal/menu"
)

// Normalize reduces a manager-specific package name to a lookup token.
// Names are lower-cased; dpkg ":arch" suffixes are stripped and flatpak
// reverse-DNS ids reduce to their trailing component.
func Normalize(m Manager, name string) string {
	n := strings.ToLower(strings.TrimSpace(name))
	switch m {
	case Native:
		if i := strings.IndexByte(n, ':'); i >= 0 {
			n = n[:i]
		}
	case Flatpak:
		if i := strings.LastIndexByte(n, '.'); i >= 0 {
			n = n[i+1:]
		}
	}
	return n
}

// Lookup maps normalized tokens to the logical ids that claim them.
type Lookup struct {
	tokens map[string][]string
	// trailing holds the last component of reverse-DNS package names. Only
	// flatpak records are matched against it.
	trailing map[string][]string
}

// NewLookup indexes every leaf's package names. A reverse-DNS package name
// (two or more dots) is also indexed by its trailing component so flatpak
// records match.
func NewLookup(tree *menu.Tree) *Lookup {
	l := &Lookup{tokens: map[string][]string{}, trailing: map[string][]string{}}
	for _, id := range tree.Leaves() {
		leaf, _ := tree.Leaf(id)
		for _, pkg := range leaf.PackageNames() {
			add(l.tokens, Normalize(Native, pkg), id)
			if strings.Count(pkg, ".") >= 2 {
				add(l.trailing, Normalize(Flatpak, pkg), id)
			}
		}
	}
	return l
}

func add(index map[string][]string, token, id string) {
	if token == "" {
		return
	}
	ids := index[token]
	if slices.Contains(ids, id) {
		return
	}
	ids = append(ids, id)
	slices.Sort(ids)
	index[token] = ids
}

// Resolve returns the single logical id a record of manager m with token
// maps to. When more than one id claims the token, ambiguous is true and id
// is empty.
func (l *Lookup) Resolve(m Manager, token string) (id string, ambiguous bool) {
	ids := l.Claimants(m, token)
	switch len(ids) {
	case 0:
		return "", false
	case 1:
		return ids[0], false
	default:
		return "", true
	}
}

// Claimants returns every logical id indexed under token for manager m.
func (l *Lookup) Claimants(m Manager, token string) []string {
	ids := slices.Clone(l.tokens[token])
	if m != Flatpak {
		return ids
	}
	for _, id := range l.trailing[token] {
		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids
}

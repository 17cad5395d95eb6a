// Package removal decides which orphaned packages may be removed.
package removal

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/johnwyles/ubootu-sub000/internal/discovery"
)

// Reason texts returned by IsSafeToRemove.
const (
	ReasonProtected  = "Protected system package"
	ReasonNotManaged = "Not installed by ubootu"
	ReasonSafe       = "Safe to remove"
)

// maxNamedDependents caps how many dependents are listed in a reason.
const maxNamedDependents = 3

// protected packages are never removable, whatever installed them.
var protected = map[string]struct{}{
	"apt":                 {},
	"apt-utils":           {},
	"base-files":          {},
	"base-passwd":         {},
	"bash":                {},
	"coreutils":           {},
	"dash":                {},
	"dpkg":                {},
	"flatpak":             {},
	"init":                {},
	"init-system-helpers": {},
	"libc6":               {},
	"linux-generic":       {},
	"linux-image-generic": {},
	"login":               {},
	"mount":               {},
	"passwd":              {},
	"snapd":               {},
	"sudo":                {},
	"systemd":             {},
	"systemd-sysv":        {},
	"ubuntu-minimal":      {},
	"ubuntu-standard":     {},
	"util-linux":          {},
}

// IsProtected reports whether pkg is in the protected set.
func IsProtected(pkg string) bool {
	_, ok := protected[strings.ToLower(pkg)]
	return ok
}

// Membership answers whether ubootu installed a package.
type Membership interface {
	Contains(pkg string) bool
}

// DependentsLookup lists installed packages that depend on pkg.
type DependentsLookup interface {
	Dependents(ctx context.Context, pkg string) ([]string, error)
}

// IsSafeToRemove checks, in order: the protected set, installed reverse
// dependencies, and managed membership. A failed dependency lookup is unsafe.
func IsSafeToRemove(ctx context.Context, pkg string, managed Membership, deps DependentsLookup) (bool, string) {
	if IsProtected(pkg) {
		return false, ReasonProtected
	}
	if deps != nil {
		dependents, err := deps.Dependents(ctx, pkg)
		if err != nil {
			return false, fmt.Sprintf("Could not check dependents: %v", err)
		}
		if len(dependents) > 0 {
			return false, requiredBy(dependents)
		}
	}
	if managed == nil || !managed.Contains(pkg) {
		return false, ReasonNotManaged
	}
	return true, ReasonSafe
}

func requiredBy(dependents []string) string {
	if len(dependents) <= maxNamedDependents {
		return "Required by: " + strings.Join(dependents, ", ")
	}
	return fmt.Sprintf("Required by: %s and %d more",
		strings.Join(dependents[:maxNamedDependents], ", "), len(dependents)-maxNamedDependents)
}

// AptDependents asks apt-cache for installed reverse dependencies.
type AptDependents struct {
	Runner discovery.Runner
}

func (a AptDependents) Dependents(ctx context.Context, pkg string) ([]string, error) {
	out, err := a.Runner.Run(ctx, "apt-cache", "rdepends", "--installed", "--no-recommends", "--no-suggests", pkg)
	if err != nil {
		return nil, err
	}
	return ParseRdepends(pkg, out)
}

// ParseRdepends parses apt-cache rdepends output:
//
//	git
//	Reverse Depends:
//	  git-man
//	 |git-email
func ParseRdepends(pkg string, data []byte) ([]string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	var out []string
	header := false
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}
		if !header {
			if trimmed == "Reverse Depends:" {
				header = true
			}
			continue
		}
		name := strings.TrimSpace(strings.TrimPrefix(trimmed, "|"))
		if i := strings.IndexByte(name, ':'); i >= 0 {
			name = name[:i]
		}
		if name == "" || name == pkg || slices.Contains(out, name) {
			continue
		}
		out = append(out, name)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning rdepends output: %w", err)
	}
	if !header && len(bytes.TrimSpace(data)) > 0 {
		return nil, fmt.Errorf("unexpected rdepends output for %s", pkg)
	}
	return out, nil
}

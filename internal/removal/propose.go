package removal

import (
	"context"
	"strings"

	"github.com/johnwyles/ubootu-sub000/internal/discovery"
)

// Proposal is the analyzer's verdict on one package.
type Proposal struct {
	Package   string
	Source    discovery.Manager
	LogicalID string
	Reason    string
}

// Removals splits orphaned packages into approved and rejected.
type Removals struct {
	Approved []Proposal
	Rejected []Proposal
}

// Packages returns the approved package names.
func (r Removals) Packages() []string {
	out := make([]string, 0, len(r.Approved))
	for _, p := range r.Approved {
		out = append(out, p.Package)
	}
	return out
}

// ProposeRemovals runs the analyzer over orphaned records in Strict mode. In
// Additive mode nothing is proposed and the analyzer is not consulted.
// Reverse dependencies are only looked up for native packages.
func ProposeRemovals(ctx context.Context, mode Mode, orphans []discovery.PackageRecord, managed Membership, deps DependentsLookup) Removals {
	var out Removals
	if mode != Strict {
		return out
	}
	seen := map[string]bool{}
	for _, rec := range orphans {
		name := PackageName(rec)
		if seen[name] {
			continue
		}
		seen[name] = true

		lookup := deps
		if rec.Source != discovery.Native {
			lookup = nil
		}
		ok, reason := IsSafeToRemove(ctx, name, managed, lookup)
		p := Proposal{Package: name, Source: rec.Source, LogicalID: rec.LogicalID, Reason: reason}
		if ok {
			out.Approved = append(out.Approved, p)
		} else {
			out.Rejected = append(out.Rejected, p)
		}
	}
	return out
}

// PackageName is the name a record is removed and managed under: dpkg
// architecture qualifiers are stripped.
func PackageName(rec discovery.PackageRecord) string {
	if rec.Source == discovery.Native {
		if name, _, ok := strings.Cut(rec.Name, ":"); ok {
			return name
		}
	}
	return rec.Name
}

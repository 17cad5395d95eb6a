// Package sync classifies leaves by comparing selection with discovery.
package sync

// Status is the sync classification of one leaf.
type Status int

const (
	SyncedUnselected Status = iota // Not selected, not installed
	SyncedSelected                 // Selected and installed
	NeedsInstall                   // Selected but not installed
	Orphaned                       // Installed but not selected
)

// Statuses lists every Status in display order.
var Statuses = []Status{SyncedSelected, NeedsInstall, Orphaned, SyncedUnselected}

func (s Status) String() string {
	switch s {
	case SyncedSelected:
		return "synced"
	case NeedsInstall:
		return "needs install"
	case Orphaned:
		return "orphaned"
	default:
		return "not selected"
	}
}

// InSync reports whether the leaf needs no action.
func (s Status) InSync() bool {
	return s == SyncedSelected || s == SyncedUnselected
}

// Selector answers whether a leaf is selected.
type Selector interface {
	IsSelected(id string) bool
}

// StatusOf is the classification table.
func StatusOf(selected, installed bool) Status {
	switch {
	case selected && installed:
		return SyncedSelected
	case selected:
		return NeedsInstall
	case installed:
		return Orphaned
	default:
		return SyncedUnselected
	}
}

// StatusFor classifies a single leaf. Ids missing from present count as not
// installed.
func StatusFor(id string, sel Selector, present map[string]bool) Status {
	return StatusOf(sel.IsSelected(id), present[id])
}

// Diff partitions leaves by status. Each leaf is in exactly one bucket and
// buckets keep the order of the input leaves.
type Diff struct {
	ToInstall []string
	Orphaned  []string
	InSync    []string
	status    map[string]Status
}

// ComputeDiff classifies every leaf.
func ComputeDiff(leaves []string, sel Selector, present map[string]bool) Diff {
	diff := Diff{status: make(map[string]Status, len(leaves))}
	for _, id := range leaves {
		st := StatusFor(id, sel, present)
		diff.status[id] = st
		switch st {
		case NeedsInstall:
			diff.ToInstall = append(diff.ToInstall, id)
		case Orphaned:
			diff.Orphaned = append(diff.Orphaned, id)
		default:
			diff.InSync = append(diff.InSync, id)
		}
	}
	return diff
}

// Status returns the classification recorded for id.
func (d Diff) Status(id string) (Status, bool) {
	st, ok := d.status[id]
	return st, ok
}

// Counts returns the number of leaves per status.
func (d Diff) Counts() map[Status]int {
	out := make(map[Status]int, len(Statuses))
	for _, st := range Statuses {
		out[st] = 0
	}
	for _, st := range d.status {
		out[st]++
	}
	return out
}

// Clean reports whether nothing needs installing or removing.
func (d Diff) Clean() bool {
	return len(d.ToInstall) == 0 && len(d.Orphaned) == 0
}

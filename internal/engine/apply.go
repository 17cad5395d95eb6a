package engine

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/johnwyles/ubootu-sub000/internal/apply"
	"github.com/johnwyles/ubootu-sub000/internal/discovery"
	"github.com/johnwyles/ubootu-sub000/internal/fsutil"
	"github.com/johnwyles/ubootu-sub000/internal/removal"
	"github.com/johnwyles/ubootu-sub000/internal/sync"
)

// Plan is what an apply will do, computed against a fresh scan. Apply runs
// exactly the removals in it.
type Plan struct {
	Diff     sync.Diff
	Removals removal.Removals

	before  discovery.Result
	scanned bool
}

// ApplyReport describes a finished apply.
type ApplyReport struct {
	Result   apply.Result
	Removals removal.Removals
	// Installed lists the packages that appeared during the run and were
	// added to the managed set.
	Installed []string
	// ManagedErr is set when the run succeeded but managed-packages.yml
	// could not be updated.
	ManagedErr error
}

// Plan rescans the package sources and computes the diff and, in Strict
// mode, the removal decisions. A cancelled ctx keeps the previous scan.
func (e *Engine) Plan(ctx context.Context) (Plan, error) {
	res, err := e.Discover(ctx)
	if err != nil {
		return Plan{}, err
	}
	e.ApplyDiscovery(res)
	return Plan{
		Diff:     e.Diff(),
		Removals: e.ProposeRemovals(ctx),
		before:   res,
		scanned:  true,
	}, nil
}

// Variables builds the document handed to the playbook.
func (e *Engine) Variables(removals removal.Removals) apply.Variables {
	varNames := map[string]string{}
	for _, id := range e.values.IDs() {
		if leaf, ok := e.tree.Leaf(id); ok {
			varNames[id] = leaf.VariableName()
		}
	}
	return apply.BuildVariables(e.Snapshot().SelectedItems, e.values.Raw(), varNames, e.gate.Mode(), removals.Packages())
}

// Apply saves, runs the orchestrator with plan and, only on success, records
// the applied copy and updates the managed set. A zero plan is computed
// first. The run and the rescan after it are not cancelled with ctx.
//
// A package becomes managed only when a source that was available before the
// run did not list it and lists it afterwards.
func (e *Engine) Apply(ctx context.Context, orch apply.Orchestrator, plan Plan, password string, out io.Writer) (ApplyReport, error) {
	var report ApplyReport
	if !plan.scanned {
		p, err := e.Plan(ctx)
		if err != nil {
			return report, fmt.Errorf("scanning before apply: %w", err)
		}
		plan = p
	}
	if err := e.Save(); err != nil {
		return report, fmt.Errorf("saving before apply: %w", err)
	}

	report.Removals = plan.Removals
	for _, p := range report.Removals.Rejected {
		e.log.Info().Str("package", p.Package).Str("reason", p.Reason).Msg("keeping orphaned package")
	}

	runCtx := context.WithoutCancel(ctx)
	res, err := orch.Run(runCtx, apply.Request{
		Variables: e.Variables(report.Removals),
		Password:  password,
		Output:    out,
	})
	report.Result = res
	if err != nil {
		return report, err
	}

	if err := fsutil.CopyFileAtomic(e.files.Config, e.files.Applied, 0o644); err != nil {
		return report, fmt.Errorf("recording applied config: %w", err)
	}
	e.appliedHash = e.savedHash

	after, err := e.Discover(runCtx)
	if err != nil {
		e.log.Warn().Err(err).Msg("rescanning after apply")
	} else {
		e.ApplyDiscovery(after)
		report.Installed = newlyInstalled(plan.Diff.ToInstall, plan.before, after)
	}
	e.managed.Add(report.Installed...)
	e.managed.Remove(report.Removals.Packages()...)
	if err := e.managed.Save(); err != nil {
		report.ManagedErr = err
		e.log.Error().Err(err).Msg("updating managed packages")
	}
	return report, nil
}

// newlyInstalled returns the packages of ids listed in after but not in
// before, skipping sources that could not be queried before.
func newlyInstalled(ids []string, before, after discovery.Result) []string {
	type key struct {
		source discovery.Manager
		name   string
	}
	had := make(map[key]bool, len(before.Records))
	for _, rec := range before.Records {
		had[key{rec.Source, removal.PackageName(rec)}] = true
	}

	var out []string
	seen := map[string]bool{}
	for _, id := range ids {
		for _, rec := range after.RecordsFor(id) {
			if _, down := before.Unavailable[rec.Source]; down {
				continue
			}
			name := removal.PackageName(rec)
			if had[key{rec.Source, name}] || seen[name] {
				continue
			}
			seen[name] = true
			out = append(out, name)
		}
	}
	return out
}

func applyKind(err error) (Kind, bool) {
	var aerr *apply.Error
	if !errors.As(err, &aerr) {
		return KindUnknown, false
	}
	switch aerr.Kind {
	case apply.ToolUnavailable:
		return KindExternalToolUnavailable, true
	case apply.PermissionDenied:
		return KindPermissionDenied, true
	}
	return KindUnknown, true
}

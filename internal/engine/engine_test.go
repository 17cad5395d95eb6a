package engine_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/johnwyles/ubootu-sub000/internal/apply"
	"github.com/johnwyles/ubootu-sub000/internal/config"
	"github.com/johnwyles/ubootu-sub000/internal/discovery"
	"github.com/johnwyles/ubootu-sub000/internal/engine"
	"github.com/johnwyles/ubootu-sub000/internal/menu"
	"github.com/johnwyles/ubootu-sub000/internal/paths"
	"github.com/johnwyles/ubootu-sub000/internal/removal"
	"github.com/johnwyles/ubootu-sub000/internal/selection"
	"github.com/johnwyles/ubootu-sub000/internal/settings"
	"github.com/johnwyles/ubootu-sub000/internal/sync"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	outputs map[string]string
}

func (f *fakeRunner) Run(_ context.Context, name string, _ ...string) ([]byte, error) {
	out, ok := f.outputs[name]
	if !ok {
		return nil, errors.New("exit status 1")
	}
	return []byte(out), nil
}

type countingDeps struct {
	calls int
}

func (d *countingDeps) Dependents(context.Context, string) ([]string, error) {
	d.calls++
	return nil, nil
}

type fakeOrchestrator struct {
	req    apply.Request
	ctxErr error
	err    error
	// onRun changes the system the way the playbook would.
	onRun func()
}

func (f *fakeOrchestrator) Run(ctx context.Context, req apply.Request) (apply.Result, error) {
	f.req = req
	f.ctxErr = ctx.Err()
	if f.onRun != nil && f.err == nil {
		f.onRun()
	}
	return apply.Result{Output: "ok"}, f.err
}

func testTree(t *testing.T) *menu.Tree {
	t.Helper()
	swap := menu.IntValue(10)
	tree := menu.NewTree([]menu.Node{
		&menu.Category{Info: menu.Info{ID: "dev"}},
		&menu.Leaf{Info: menu.Info{ID: "git", Parent: "dev"}, DefaultSelected: true},
		&menu.Leaf{Info: menu.Info{ID: "docker", Parent: "dev"}, Packages: []string{"docker.io"}},
		&menu.Category{Info: menu.Info{ID: "system"}},
		&menu.Leaf{Info: menu.Info{ID: "swappiness", Parent: "system"}, Variable: "vm_swappiness", Config: menu.Slider{Min: 0, Max: 100, Step: 10}, Default: &swap},
	})
	require.NoError(t, tree.Err())
	return tree
}

const (
	dockerInstalled = "Package: docker.io\nVersion: 24.0.7\nArchitecture: amd64\nStatus: install ok installed\n"
	gitInstalled    = "Package: git\nVersion: 1:2.43.0\nArchitecture: amd64\nStatus: install ok installed\n"
)

func testOptions(t *testing.T, deps removal.DependentsLookup) engine.Options {
	t.Helper()
	return engine.Options{
		Files:      paths.Under(t.TempDir()),
		Settings:   settings.Default(),
		Tree:       testTree(t),
		Runner:     &fakeRunner{outputs: map[string]string{"dpkg-query": dockerInstalled}},
		Dependents: deps,
		Logger:     zerolog.Nop(),
	}
}

func TestOpenDefaults(t *testing.T) {
	opts := testOptions(t, &countingDeps{})
	e, err := engine.Open(opts)
	require.NoError(t, err)

	assert.True(t, e.IsSelected("git"))
	assert.Equal(t, selection.Partial, e.Indicator("dev"))
	assert.Equal(t, config.StatusUnsaved, e.ConfigStatus())
	_, statErr := os.Stat(opts.Files.Config)
	assert.True(t, os.IsNotExist(statErr), "open does not write")

	require.NoError(t, e.Toggle("docker"))
	assert.Equal(t, selection.Full, e.Indicator("dev"))
	assert.NoError(t, e.LastSaveError())
	assert.Equal(t, config.StatusClean, e.ConfigStatus())

	reopened, err := engine.Open(opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"git", "docker"}, reopened.SelectedLeaves())
	assert.Equal(t, config.StatusClean, reopened.ConfigStatus())
}

func TestMutationErrors(t *testing.T) {
	e, err := engine.Open(testOptions(t, &countingDeps{}))
	require.NoError(t, err)

	err = e.Toggle("nope")
	assert.ErrorIs(t, err, selection.ErrUnknownItem)
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	_, err = e.SetValue("swappiness", 101)
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))
	v, _ := e.Value("swappiness")
	assert.Equal(t, int64(10), v.Int())

	v, err = e.SetValue("swappiness", "60")
	require.NoError(t, err)
	assert.Equal(t, int64(60), v.Int())
}

func TestAutoSaveFailureDoesNotBlock(t *testing.T) {
	opts := testOptions(t, &countingDeps{})
	e, err := engine.Open(opts)
	require.NoError(t, err)

	// A non-empty directory where the file belongs makes the rename fail.
	require.NoError(t, os.MkdirAll(filepath.Join(opts.Files.Config, "child"), 0o755))

	require.NoError(t, e.Toggle("docker"))
	assert.True(t, e.IsSelected("docker"))
	assert.True(t, config.IsKind(e.LastSaveError(), config.WriteFailed))
	assert.Equal(t, config.StatusUnsaved, e.ConfigStatus())
}

func TestCorruptConfigIsNotTouched(t *testing.T) {
	opts := testOptions(t, &countingDeps{})
	content := "selected_items: {git: true}\n"
	require.NoError(t, os.MkdirAll(opts.Files.Dir, 0o755))
	require.NoError(t, os.WriteFile(opts.Files.Config, []byte(content), 0o644))

	e, err := engine.Open(opts)
	assert.Nil(t, e)
	assert.True(t, config.IsKind(err, config.Corrupt))
	assert.Equal(t, engine.KindStructural, engine.KindOf(err))

	data, readErr := os.ReadFile(opts.Files.Config)
	require.NoError(t, readErr)
	assert.Equal(t, content, string(data))

	e, err = engine.Reset(opts)
	require.NoError(t, err)
	assert.Equal(t, []string{"git"}, e.SelectedLeaves())

	backup, readErr := os.ReadFile(opts.Files.Config + ".bak")
	require.NoError(t, readErr)
	assert.Equal(t, content, string(backup))

	_, err = config.NewStore(opts.Files.Config).Load()
	assert.NoError(t, err)
}

func TestOpenStructuralTree(t *testing.T) {
	opts := testOptions(t, &countingDeps{})
	opts.Tree = menu.NewTree([]menu.Node{&menu.Leaf{Info: menu.Info{ID: "x", Parent: "missing"}}})
	_, err := engine.Open(opts)
	assert.Equal(t, engine.KindStructural, engine.KindOf(err))
}

func TestOrphanedInAdditiveMode(t *testing.T) {
	deps := &countingDeps{}
	opts := testOptions(t, deps)
	e, err := engine.Open(opts)
	require.NoError(t, err)

	require.NoError(t, e.Refresh(context.Background()))
	assert.False(t, e.IsSelected("docker"))
	assert.Equal(t, sync.Orphaned, e.Status("docker"))
	assert.Equal(t, sync.NeedsInstall, e.Status("git"))

	diff := e.Diff()
	assert.Equal(t, []string{"docker"}, diff.Orphaned)
	assert.Equal(t, []string{"git"}, diff.ToInstall)

	assert.Equal(t, removal.Additive, e.Mode())
	assert.Empty(t, e.ProposeRemovals(context.Background()).Approved)
	assert.Zero(t, deps.calls, "analyzer not consulted")

	res, ok := e.Discovery()
	require.True(t, ok)
	assert.Contains(t, res.Unavailable, discovery.Snap)

	reopened, err := engine.Open(opts)
	require.NoError(t, err)
	assert.Equal(t, sync.Orphaned, reopened.Status("docker"), "state file reloaded")
}

func TestRefreshCanceledKeepsPrevious(t *testing.T) {
	e, err := engine.Open(testOptions(t, &countingDeps{}))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, e.Refresh(ctx), context.Canceled)
	_, ok := e.Discovery()
	assert.False(t, ok)
	assert.Equal(t, sync.SyncedUnselected, e.Status("docker"))
}

func TestApplyStrict(t *testing.T) {
	deps := &countingDeps{}
	opts := testOptions(t, deps)
	runner := opts.Runner.(*fakeRunner)
	require.NoError(t, removal.NewManaged(opts.Files.Managed, "docker.io").Save())

	e, err := engine.Open(opts)
	require.NoError(t, err)
	require.True(t, e.EnableStrict(func() bool { return true }))

	plan, err := e.Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"git"}, plan.Diff.ToInstall)
	assert.Equal(t, []string{"docker.io"}, plan.Removals.Packages())
	assert.Equal(t, 1, deps.calls)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	orch := &fakeOrchestrator{onRun: func() {
		runner.outputs["dpkg-query"] = gitInstalled
	}}
	report, err := e.Apply(ctx, orch, plan, "secret", nil)
	require.NoError(t, err)

	assert.NoError(t, orch.ctxErr, "orchestrator runs without cancellation")
	assert.Equal(t, "secret", orch.req.Password)
	assert.Equal(t, []string{"docker.io"}, orch.req.Variables["packages_to_remove"])
	assert.Equal(t, "strict", orch.req.Variables["ubootu_mode"])
	assert.Equal(t, int64(10), orch.req.Variables["vm_swappiness"])
	assert.Equal(t, []string{"dev", "git"}, orch.req.Variables["selected_items"])
	assert.Equal(t, 1, deps.calls, "removals are not recomputed")

	assert.Equal(t, []string{"git"}, report.Installed)
	assert.Equal(t, []string{"git"}, e.ManagedPackages())
	assert.Equal(t, config.StatusApplied, e.ConfigStatus())
	assert.Equal(t, sync.SyncedSelected, e.Status("git"), "rescanned after the run")

	saved, err := os.ReadFile(opts.Files.Config)
	require.NoError(t, err)
	applied, err := os.ReadFile(opts.Files.Applied)
	require.NoError(t, err)
	assert.Equal(t, saved, applied)

	require.NoError(t, e.Toggle("docker"))
	assert.Equal(t, config.StatusNotApply, e.ConfigStatus())
}

func TestApplyDoesNotClaimPreinstalledPackages(t *testing.T) {
	opts := testOptions(t, &countingDeps{})
	opts.Runner = &fakeRunner{outputs: map[string]string{"dpkg-query": gitInstalled}}
	e, err := engine.Open(opts)
	require.NoError(t, err)
	_, ok := e.Discovery()
	require.False(t, ok, "never scanned")

	report, err := e.Apply(context.Background(), &fakeOrchestrator{}, engine.Plan{}, "", nil)
	require.NoError(t, err)
	assert.Empty(t, report.Installed)
	assert.Empty(t, e.ManagedPackages())

	require.NoError(t, e.Toggle("git"))
	require.True(t, e.EnableStrict(func() bool { return true }))
	plan, err := e.Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"git"}, plan.Diff.Orphaned)
	assert.Empty(t, plan.Removals.Approved)
	require.Len(t, plan.Removals.Rejected, 1)
	assert.Equal(t, "git", plan.Removals.Rejected[0].Package)
	assert.Equal(t, removal.ReasonNotManaged, plan.Removals.Rejected[0].Reason)
}

func TestApplySkipsSourcesUnavailableBeforeRun(t *testing.T) {
	opts := testOptions(t, &countingDeps{})
	runner := &fakeRunner{outputs: map[string]string{}}
	opts.Runner = runner
	e, err := engine.Open(opts)
	require.NoError(t, err)

	plan, err := e.Plan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"git"}, plan.Diff.ToInstall)

	orch := &fakeOrchestrator{onRun: func() {
		runner.outputs["dpkg-query"] = gitInstalled
	}}
	report, err := e.Apply(context.Background(), orch, plan, "", nil)
	require.NoError(t, err)
	assert.Empty(t, report.Installed, "dpkg could not be queried before the run")
	assert.Empty(t, e.ManagedPackages())
	assert.Equal(t, sync.SyncedSelected, e.Status("git"))
}

func TestApplyFailureRecordsNothing(t *testing.T) {
	opts := testOptions(t, &countingDeps{})
	e, err := engine.Open(opts)
	require.NoError(t, err)

	orch := &fakeOrchestrator{err: &apply.Error{Kind: apply.PermissionDenied, Output: "Incorrect sudo password", Err: errors.New("exit status 2")}}
	_, err = e.Apply(context.Background(), orch, engine.Plan{}, "wrong", nil)
	require.Error(t, err)
	assert.Equal(t, engine.KindPermissionDenied, engine.KindOf(err))
	assert.NotContains(t, orch.req.Variables, "packages_to_remove")

	_, statErr := os.Stat(opts.Files.Applied)
	assert.True(t, os.IsNotExist(statErr))
	assert.Empty(t, e.ManagedPackages())
	assert.Equal(t, config.StatusClean, e.ConfigStatus())
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, engine.KindUnknown, engine.KindOf(nil))
	assert.Equal(t, engine.KindUnknown, engine.KindOf(errors.New("boom")))
	assert.Equal(t, engine.KindExternalToolUnavailable, engine.KindOf(&apply.Error{Kind: apply.ToolUnavailable, Err: errors.New("not found")}))
	assert.Equal(t, engine.KindPermissionDenied, engine.KindOf(&os.PathError{Op: "open", Path: "/x", Err: os.ErrPermission}))
	assert.Equal(t, "structural error", engine.KindStructural.String())
}

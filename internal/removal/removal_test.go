package removal_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/johnwyles/ubootu-sub000/internal/discovery"
	"github.com/johnwyles/ubootu-sub000/internal/removal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeDeps struct {
	deps  map[string][]string
	err   error
	calls int
}

func (f *fakeDeps) Dependents(_ context.Context, pkg string) ([]string, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.deps[pkg], nil
}

type fakeRunner struct {
	out  string
	err  error
	args []string
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	f.args = append([]string{name}, args...)
	return []byte(f.out), f.err
}

func TestIsSafeToRemove(t *testing.T) {
	ctx := context.Background()
	managed := removal.NewManaged("", "old-tool", "bash", "libfoo", "shared")

	tests := []struct {
		name   string
		pkg    string
		deps   *fakeDeps
		safe   bool
		reason string
	}{
		{"safe", "old-tool", &fakeDeps{}, true, "Safe to remove"},
		{"protected even if managed", "bash", &fakeDeps{}, false, "Protected system package"},
		{"not managed", "vim", &fakeDeps{}, false, "Not installed by ubootu"},
		{"required by few", "libfoo", &fakeDeps{deps: map[string][]string{"libfoo": {"a", "b"}}}, false, "Required by: a, b"},
		{"required by many", "shared", &fakeDeps{deps: map[string][]string{"shared": {"a", "b", "c", "d", "e"}}}, false, "Required by: a, b, c and 2 more"},
		{"lookup failure", "old-tool", &fakeDeps{err: errors.New("apt locked")}, false, "Could not check dependents: apt locked"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			safe, reason := removal.IsSafeToRemove(ctx, tt.pkg, managed, tt.deps)
			assert.Equal(t, tt.safe, safe)
			assert.Equal(t, tt.reason, reason)
		})
	}
}

func TestProtectedShortCircuits(t *testing.T) {
	deps := &fakeDeps{}
	_, reason := removal.IsSafeToRemove(context.Background(), "systemd", removal.NewManaged(""), deps)
	assert.Equal(t, removal.ReasonProtected, reason)
	assert.Zero(t, deps.calls)
}

func TestParseRdepends(t *testing.T) {
	out := "git\nReverse Depends:\n  git-man\n |git-email\n  gitk\n  git-man\n  git:i386\n"
	got, err := removal.ParseRdepends("git", []byte(out))
	require.NoError(t, err)
	assert.Equal(t, []string{"git-man", "git-email", "gitk"}, got)

	got, err = removal.ParseRdepends("old-tool", []byte("old-tool\nReverse Depends:\n"))
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = removal.ParseRdepends("x", []byte("E: No packages found\n"))
	assert.Error(t, err)
}

func TestAptDependents(t *testing.T) {
	r := &fakeRunner{out: "curl\nReverse Depends:\n  wget2\n"}
	got, err := removal.AptDependents{Runner: r}.Dependents(context.Background(), "curl")
	require.NoError(t, err)
	assert.Equal(t, []string{"wget2"}, got)
	assert.Equal(t, "apt-cache", r.args[0])
	assert.Contains(t, r.args, "--installed")
	assert.Equal(t, "curl", r.args[len(r.args)-1])
}

func TestManagedSet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "managed-packages.yml")

	m, err := removal.LoadManaged(path)
	require.NoError(t, err)
	assert.Zero(t, m.Len())

	m.Add("zsh", "git", "zsh")
	m.Remove("missing")
	require.NoError(t, m.Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "managed_packages:\n    - git\n    - zsh\n", string(data))

	loaded, err := removal.LoadManaged(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"git", "zsh"}, loaded.Names())
	assert.True(t, loaded.Contains("git"))

	loaded.Remove("git")
	assert.False(t, loaded.Contains("git"))
}

func TestManagedSetCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "managed-packages.yml")
	require.NoError(t, os.WriteFile(path, []byte("managed_packages: {a: 1}\n"), 0o644))
	_, err := removal.LoadManaged(path)
	assert.Error(t, err)
}

func TestModeGate(t *testing.T) {
	var g removal.ModeGate
	assert.Equal(t, removal.Additive, g.Mode())

	asked := 0
	deny := func() bool { asked++; return false }
	allow := func() bool { asked++; return true }

	assert.False(t, g.EnableStrict(deny))
	assert.Equal(t, removal.Additive, g.Mode())

	assert.True(t, g.EnableStrict(allow))
	assert.Equal(t, removal.Strict, g.Mode())
	assert.Equal(t, 2, asked)

	g.Disable()
	assert.Equal(t, removal.Additive, g.Mode())

	assert.True(t, g.EnableStrict(deny), "confirmation is remembered for the session")
	assert.Equal(t, 2, asked)
	assert.Equal(t, "strict", g.Mode().String())
}

func TestProposeRemovals(t *testing.T) {
	orphans := []discovery.PackageRecord{
		{Source: discovery.Native, Name: "docker.io:amd64", LogicalID: "docker"},
		{Source: discovery.Native, Name: "docker.io", LogicalID: "docker"},
		{Source: discovery.Native, Name: "libfoo", LogicalID: "foo"},
		{Source: discovery.Flatpak, Name: "org.gimp.GIMP", LogicalID: "gimp"},
	}
	managed := removal.NewManaged("", "docker.io", "libfoo", "org.gimp.GIMP")

	t.Run("additive never consults the analyzer", func(t *testing.T) {
		deps := &fakeDeps{}
		got := removal.ProposeRemovals(context.Background(), removal.Additive, orphans, managed, deps)
		assert.Empty(t, got.Approved)
		assert.Empty(t, got.Rejected)
		assert.Zero(t, deps.calls)
	})

	t.Run("strict gates each package", func(t *testing.T) {
		deps := &fakeDeps{deps: map[string][]string{"libfoo": {"bar"}}}
		got := removal.ProposeRemovals(context.Background(), removal.Strict, orphans, managed, deps)

		assert.Equal(t, []string{"docker.io", "org.gimp.GIMP"}, got.Packages())
		require.Len(t, got.Rejected, 1)
		assert.Equal(t, "libfoo", got.Rejected[0].Package)
		assert.Equal(t, "Required by: bar", got.Rejected[0].Reason)
		assert.Equal(t, 2, deps.calls, "flatpak records skip the apt lookup")
	})
}

package discovery_test

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/johnwyles/ubootu-sub000/internal/discovery"
	"github.com/johnwyles/ubootu-sub000/internal/menu"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	outputs map[string]string
	errs    map[string]error
	block   map[string]bool
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if f.block[name] {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err, ok := f.errs[name]; ok {
		return nil, err
	}
	return []byte(f.outputs[name]), nil
}

const dpkgOut = `Package: git
Version: 1:2.43.0-1ubuntu7
Architecture: amd64
Status: install ok installed

Package: docker.io
Version: 24.0.7
Architecture: amd64
Status: deinstall ok config-files

Package: tzdata
Version: 2024a
Architecture: all
Status: install ok installed
`

const snapOut = `Name      Version    Rev    Tracking         Publisher   Notes
code      1.85.1     151    latest/stable    vscode✓     classic
core22    20231123   1033   latest/stable    canonical✓  base
`

const flatpakOut = "org.gimp.GIMP\t2.10.36\ncom.spotify.Client\t1.2.25\n"

func catalogTree(t *testing.T) *menu.Tree {
	t.Helper()
	tree := menu.NewTree([]menu.Node{
		&menu.Category{Info: menu.Info{ID: "dev"}},
		&menu.Leaf{Info: menu.Info{ID: "git", Parent: "dev"}},
		&menu.Leaf{Info: menu.Info{ID: "docker", Parent: "dev"}, Packages: []string{"docker.io", "docker-ce"}},
		&menu.Leaf{Info: menu.Info{ID: "vscode", Parent: "dev"}, Packages: []string{"code"}},
		&menu.Category{Info: menu.Info{ID: "media"}},
		&menu.Leaf{Info: menu.Info{ID: "gimp", Parent: "media"}, Packages: []string{"org.gimp.GIMP"}},
		&menu.Leaf{Info: menu.Info{ID: "spotify", Parent: "media"}, Packages: []string{"spotify-client"}},
		&menu.Leaf{Info: menu.Info{ID: "spotify-flatpak", Parent: "media"}, Packages: []string{"client"}},
		&menu.Leaf{Info: menu.Info{ID: "spotify-web", Parent: "media"}, Packages: []string{"com.spotify.Client"}},
	})
	require.NoError(t, tree.Err())
	return tree
}

func newDiscoverer(t *testing.T, r discovery.Runner) (*discovery.Discoverer, []string) {
	t.Helper()
	tree := catalogTree(t)
	sources, err := discovery.SourcesFor([]string{"native", "snap", "flatpak"}, r)
	require.NoError(t, err)
	return &discovery.Discoverer{
		Sources: sources,
		Lookup:  discovery.NewLookup(tree),
		Timeout: time.Second,
		Logger:  zerolog.Nop(),
		Now:     func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	}, tree.Leaves()
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		m    discovery.Manager
		in   string
		want string
	}{
		{discovery.Native, "libc6:amd64", "libc6"},
		{discovery.Native, "Git", "git"},
		{discovery.Flatpak, "org.gimp.GIMP", "gimp"},
		{discovery.Flatpak, "Firefox", "firefox"},
		{discovery.Snap, " Code ", "code"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, discovery.Normalize(tt.m, tt.in), "%s %s", tt.m, tt.in)
	}
}

func TestParseDpkg(t *testing.T) {
	recs, err := discovery.ParseDpkg([]byte(dpkgOut))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, discovery.PackageRecord{Source: discovery.Native, Name: "git:amd64", Version: "1:2.43.0-1ubuntu7"}, recs[0])
	assert.Equal(t, "tzdata", recs[1].Name)

	_, err = discovery.ParseDpkg([]byte("garbage without colon\n"))
	assert.Error(t, err)
}

func TestParseSnapList(t *testing.T) {
	recs, err := discovery.ParseSnapList([]byte(snapOut))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "code", recs[0].Name)
	assert.Equal(t, "1.85.1", recs[0].Version)

	recs, err = discovery.ParseSnapList(nil)
	require.NoError(t, err)
	assert.Empty(t, recs)

	_, err = discovery.ParseSnapList([]byte("error: cannot communicate with server\n"))
	assert.Error(t, err)
}

func TestParseFlatpakList(t *testing.T) {
	recs, err := discovery.ParseFlatpakList([]byte("Application ID\tVersion\n" + flatpakOut))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, discovery.PackageRecord{Source: discovery.Flatpak, Name: "org.gimp.GIMP", Version: "2.10.36"}, recs[0])

	_, err = discovery.ParseFlatpakList([]byte("not a flatpak row at all\n"))
	assert.Error(t, err)
}

func TestRefresh(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{
		"dpkg-query": dpkgOut,
		"snap":       snapOut,
		"flatpak":    flatpakOut,
	}}
	d, known := newDiscoverer(t, r)

	res, err := d.Refresh(context.Background(), known)
	require.NoError(t, err)

	assert.Len(t, res.Present, len(known), "every known id has an entry")
	assert.True(t, res.Present["git"])
	assert.True(t, res.Present["vscode"])
	assert.True(t, res.Present["gimp"])
	assert.False(t, res.Present["docker"], "config-files only is not installed")
	assert.False(t, res.Present["spotify-flatpak"], "ambiguous token is not classified")
	assert.False(t, res.Present["spotify-web"])
	assert.Equal(t, []string{"spotify-flatpak", "spotify-web"}, res.Ambiguous["client"])
	assert.Empty(t, res.Unavailable)
	assert.Equal(t, time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC), res.RefreshedAt)

	gimp := res.RecordsFor("gimp")
	require.Len(t, gimp, 1)
	assert.Equal(t, "org.gimp.GIMP", gimp[0].Name)
}

func TestRefreshIsolatesSourceFailures(t *testing.T) {
	r := &fakeRunner{
		outputs: map[string]string{"dpkg-query": dpkgOut, "flatpak": "bad row with spaces\n"},
		errs:    map[string]error{"snap": &discovery.CommandError{Command: "snap list", Err: exec.ErrNotFound}},
	}
	d, known := newDiscoverer(t, r)

	res, err := d.Refresh(context.Background(), known)
	require.NoError(t, err)
	assert.True(t, res.Present["git"])
	require.Len(t, res.Unavailable, 2)
	assert.ErrorIs(t, res.Unavailable[discovery.Snap], discovery.ErrSourceUnavailable)
	assert.ErrorIs(t, res.Unavailable[discovery.Snap], exec.ErrNotFound)
	assert.ErrorIs(t, res.Unavailable[discovery.Flatpak], discovery.ErrSourceUnavailable)
}

func TestRefreshTimeoutIsUnavailable(t *testing.T) {
	r := &fakeRunner{
		outputs: map[string]string{"dpkg-query": dpkgOut},
		block:   map[string]bool{"snap": true, "flatpak": true},
	}
	d, known := newDiscoverer(t, r)
	d.Timeout = 20 * time.Millisecond

	res, err := d.Refresh(context.Background(), known)
	require.NoError(t, err)
	assert.True(t, res.Present["git"])
	assert.ErrorIs(t, res.Unavailable[discovery.Snap], context.DeadlineExceeded)
	assert.ErrorIs(t, res.Unavailable[discovery.Flatpak], discovery.ErrSourceUnavailable)
}

func TestRefreshCanceledByCaller(t *testing.T) {
	r := &fakeRunner{outputs: map[string]string{"dpkg-query": dpkgOut}}
	d, known := newDiscoverer(t, r)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := d.Refresh(ctx, known)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLookupTrailingTokenIsFlatpakOnly(t *testing.T) {
	tree := menu.NewTree([]menu.Node{
		&menu.Leaf{Info: menu.Info{ID: "spotify"}, Packages: []string{"com.spotify.Client"}},
		&menu.Leaf{Info: menu.Info{ID: "obs"}, Packages: []string{"com.obsproject.Studio"}},
	})
	require.NoError(t, tree.Err())
	l := discovery.NewLookup(tree)

	id, ambiguous := l.Resolve(discovery.Flatpak, "client")
	assert.Equal(t, "spotify", id)
	assert.False(t, ambiguous)

	for _, m := range []discovery.Manager{discovery.Native, discovery.Snap} {
		id, ambiguous = l.Resolve(m, "studio")
		assert.Empty(t, id, "%s studio", m)
		assert.False(t, ambiguous)
	}
	assert.Empty(t, l.Claimants(discovery.Native, "client"))

	id, _ = l.Resolve(discovery.Native, "com.spotify.client")
	assert.Equal(t, "spotify", id, "the full name still matches")

	r := &fakeRunner{outputs: map[string]string{
		"dpkg-query": "Package: client\nVersion: 1.0\nArchitecture: amd64\nStatus: install ok installed\n",
		"snap":       "Name Version Rev Tracking Publisher Notes\nstudio 1.0 1 latest/stable someone -\n",
	}}
	sources, err := discovery.SourcesFor([]string{"native", "snap", "flatpak"}, r)
	require.NoError(t, err)
	d := &discovery.Discoverer{Sources: sources, Lookup: l, Timeout: time.Second, Logger: zerolog.Nop()}
	res, err := d.Refresh(context.Background(), tree.Leaves())
	require.NoError(t, err)
	assert.False(t, res.Present["spotify"])
	assert.False(t, res.Present["obs"])
}

func TestExecRunnerWaitDelay(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}

	// The background sleep keeps stdout open after sh exits.
	start := time.Now()
	_, err := discovery.ExecRunner{WaitDelay: 200 * time.Millisecond}.Run(context.Background(), "sh", "-c", "sleep 5 & echo hi")
	assert.Less(t, time.Since(start), 4*time.Second)
	assert.ErrorIs(t, err, exec.ErrWaitDelay)
}

func TestSourcesForUnknown(t *testing.T) {
	_, err := discovery.SourcesFor([]string{"native", "brew"}, &fakeRunner{})
	assert.Error(t, err)
}

func TestStateRoundTrip(t *testing.T) {
	r := &fakeRunner{
		outputs: map[string]string{"dpkg-query": dpkgOut, "flatpak": flatpakOut},
		errs:    map[string]error{"snap": errors.New("exit status 1")},
	}
	d, known := newDiscoverer(t, r)
	res, err := d.Refresh(context.Background(), known)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "system-state.yml")
	_, ok, err := discovery.LoadState(path, known)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, discovery.SaveState(path, res))
	loaded, ok, err := discovery.LoadState(path, known)
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, res.Present, loaded.Present)
	assert.Equal(t, res.Records, loaded.Records)
	assert.True(t, res.RefreshedAt.Equal(loaded.RefreshedAt))
	assert.ErrorIs(t, loaded.Unavailable[discovery.Snap], discovery.ErrSourceUnavailable)
	assert.True(t, strings.Contains(fmt.Sprint(loaded.Unavailable[discovery.Snap]), "exit status 1"))
}

package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/johnwyles/ubootu-sub000/internal/engine"
	"github.com/johnwyles/ubootu-sub000/internal/paths"
)

func run(t *testing.T, args ...string) error {
	t.Helper()
	isInteractive = func() bool { return false }
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func withHome(t *testing.T) paths.Layout {
	t.Helper()
	dir := t.TempDir()
	t.Setenv(paths.EnvHome, dir)
	return paths.Under(dir)
}

func TestSelectAndSetWriteConfig(t *testing.T) {
	files := withHome(t)

	require.NoError(t, run(t, "select", "docker", "containers"))
	require.NoError(t, run(t, "set", "swappiness", "30"))

	data, err := os.ReadFile(files.Config)
	require.NoError(t, err)
	assert.Contains(t, string(data), "docker")
	assert.Contains(t, string(data), "value: 30")

	require.NoError(t, run(t, "deselect", "containers"))
	data, err = os.ReadFile(files.Config)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "docker")
}

func TestSetRejectsInvalidValue(t *testing.T) {
	withHome(t)

	err := run(t, "set", "swappiness", "35")
	require.Error(t, err)
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))

	err = run(t, "toggle", "no-such-item")
	require.Error(t, err)
	assert.Equal(t, engine.KindValidation, engine.KindOf(err))
}

func TestResetWithYesKeepsBackup(t *testing.T) {
	files := withHome(t)
	require.NoError(t, os.MkdirAll(files.Dir, 0o755))
	require.NoError(t, os.WriteFile(files.Config, []byte("selected_items: {broken"), 0o644))

	err := run(t, "status")
	require.Error(t, err, "a corrupt config is reported, not replaced")
	assert.Equal(t, engine.KindStructural, engine.KindOf(err))

	require.NoError(t, run(t, "reset", "--yes"))
	resetYes = false

	backup, err := os.ReadFile(files.Config + ".bak")
	require.NoError(t, err)
	assert.Equal(t, "selected_items: {broken", string(backup))
	assert.NoError(t, run(t, "status"))
}

func TestApplyDryRunRecordsNothing(t *testing.T) {
	files := withHome(t)

	require.NoError(t, run(t, "apply", "--dry-run"))
	applyFlags = applyOptions{}

	_, err := os.Stat(files.Applied)
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(files.Managed)
	assert.True(t, os.IsNotExist(err))
}

func TestAskBecomePassIsOptIn(t *testing.T) {
	flag := applyCmd.Flags().Lookup("ask-become-pass")
	require.NotNil(t, flag)
	assert.Equal(t, "false", flag.DefValue)
	assert.Equal(t, "K", flag.Shorthand)

	t.Cleanup(func() { applyFlags = applyOptions{} })
	require.NoError(t, applyCmd.ParseFlags([]string{"-K"}))
	assert.True(t, applyFlags.askPass)
}

func TestValidateReportsStructuralErrors(t *testing.T) {
	withHome(t)
	bad := filepath.Join(t.TempDir(), "catalog.yml")
	require.NoError(t, os.WriteFile(bad, []byte("items:\n  - id: a\n    parent: missing\n"), 0o644))

	err := run(t, "validate", bad)
	require.Error(t, err)
	assert.Equal(t, engine.KindStructural, engine.KindOf(err))

	assert.NoError(t, run(t, "validate"))
}

func TestManagedListEmpty(t *testing.T) {
	withHome(t)
	assert.NoError(t, run(t, "managed", "list"))
}

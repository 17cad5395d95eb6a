package paths

import (
	"os"
	"path/filepath"
)

// EnvHome overrides the state directory (default ~/.ubootu).
const EnvHome = "UBOOTU_HOME"

func home() string {
	h, _ := os.UserHomeDir()
	return h
}

// StateDir returns $UBOOTU_HOME or ~/.ubootu.
func StateDir() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}
	return filepath.Join(home(), ".ubootu")
}

// ConfigFile returns the selection config, StateDir()/config.yml.
func ConfigFile() string {
	return filepath.Join(StateDir(), "config.yml")
}

// AppliedConfigFile returns the copy of config.yml written after a
// successful apply.
func AppliedConfigFile() string {
	return filepath.Join(StateDir(), "applied-config.yml")
}

// ManagedPackagesFile returns StateDir()/managed-packages.yml.
func ManagedPackagesFile() string {
	return filepath.Join(StateDir(), "managed-packages.yml")
}

// SystemStateFile returns the last discovery snapshot, StateDir()/system-state.yml.
func SystemStateFile() string {
	return filepath.Join(StateDir(), "system-state.yml")
}

// SettingsFile returns StateDir()/settings.toml.
func SettingsFile() string {
	return filepath.Join(StateDir(), "settings.toml")
}

// Layout names every state file under one directory.
type Layout struct {
	Dir      string
	Config   string
	Applied  string
	Managed  string
	State    string
	Settings string
}

// Under returns the layout rooted at dir.
func Under(dir string) Layout {
	return Layout{
		Dir:      dir,
		Config:   filepath.Join(dir, "config.yml"),
		Applied:  filepath.Join(dir, "applied-config.yml"),
		Managed:  filepath.Join(dir, "managed-packages.yml"),
		State:    filepath.Join(dir, "system-state.yml"),
		Settings: filepath.Join(dir, "settings.toml"),
	}
}

// Default returns Under(StateDir()).
func Default() Layout {
	return Under(StateDir())
}

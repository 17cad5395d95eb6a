// Package settings loads engine settings from settings.toml.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

const (
	DefaultDiscoveryTimeout = 15 * time.Second
	DefaultPlaybook         = "site.yml"
	DefaultAnsibleBinary    = "ansible-playbook"
)

// DefaultSources lists the discovery sources queried when settings omit them.
var DefaultSources = []string{"native", "snap", "flatpak"}

// Settings holds tunables that are not part of the user's selection.
type Settings struct {
	// DiscoveryTimeout bounds every package-manager query, e.g. "15s".
	DiscoveryTimeout string   `toml:"discovery_timeout"`
	Playbook         string   `toml:"playbook"`
	AnsibleBinary    string   `toml:"ansible_binary"`
	Catalog          string   `toml:"catalog"`
	Sources          []string `toml:"sources"`

	timeout time.Duration
}

// Default returns settings with every field filled in.
func Default() Settings {
	s := Settings{}
	applyDefaults(&s)
	return s
}

// Load reads path. A missing file yields Default().
func Load(path string) (Settings, error) {
	var s Settings
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return Settings{}, fmt.Errorf("settings load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, &s); err != nil {
		return Settings{}, fmt.Errorf("settings parse failed (%s): %w", path, err)
	}
	applyDefaults(&s)
	if err := Validate(&s); err != nil {
		return Settings{}, fmt.Errorf("settings invalid (%s): %w", path, err)
	}
	return s, nil
}

// Timeout returns the parsed discovery timeout.
func (s Settings) Timeout() time.Duration {
	if s.timeout > 0 {
		return s.timeout
	}
	if d, err := time.ParseDuration(s.DiscoveryTimeout); err == nil && d > 0 {
		return d
	}
	return DefaultDiscoveryTimeout
}

func applyDefaults(s *Settings) {
	if strings.TrimSpace(s.DiscoveryTimeout) == "" {
		s.DiscoveryTimeout = DefaultDiscoveryTimeout.String()
	}
	if strings.TrimSpace(s.Playbook) == "" {
		s.Playbook = DefaultPlaybook
	}
	if strings.TrimSpace(s.AnsibleBinary) == "" {
		s.AnsibleBinary = DefaultAnsibleBinary
	}
	if len(s.Sources) == 0 {
		s.Sources = append([]string(nil), DefaultSources...)
	}
}

// Validate checks field values and caches the parsed timeout.
func Validate(s *Settings) error {
	d, err := time.ParseDuration(s.DiscoveryTimeout)
	if err != nil {
		return fmt.Errorf("discovery_timeout: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("discovery_timeout must be positive, got %s", s.DiscoveryTimeout)
	}
	s.timeout = d
	for _, src := range s.Sources {
		switch src {
		case "native", "snap", "flatpak":
		default:
			return fmt.Errorf("unknown source %q", src)
		}
	}
	return nil
}

package discovery

import (
	"fmt"
	"maps"
	"os"
	"slices"
	"strings"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/johnwyles/ubootu-sub000/internal/fsutil"
)

// State is the persisted form of a Result, ~/.ubootu/system-state.yml.
type State struct {
	RefreshedAt time.Time         `yaml:"refreshed_at"`
	Present     []string          `yaml:"present"`
	Unavailable map[string]string `yaml:"unavailable,omitempty"`
	Packages    []PackageRecord   `yaml:"packages"`
}

// SaveState writes the last discovery result atomically.
func SaveState(path string, res Result) error {
	st := State{
		RefreshedAt: res.RefreshedAt.UTC(),
		Present:     []string{},
		Packages:    res.Records,
	}
	for _, id := range slices.Sorted(maps.Keys(res.Present)) {
		if res.Present[id] {
			st.Present = append(st.Present, id)
		}
	}
	if len(res.Unavailable) > 0 {
		st.Unavailable = make(map[string]string, len(res.Unavailable))
		for m, err := range res.Unavailable {
			st.Unavailable[string(m)] = err.Error()
		}
	}
	if st.Packages == nil {
		st.Packages = []PackageRecord{}
	}
	data, err := yaml.Marshal(st)
	if err != nil {
		return fmt.Errorf("encoding system state: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return fmt.Errorf("writing system state: %w", err)
	}
	return nil
}

// LoadState reads a saved state as a Result over knownIDs. ok is false when
// no state has been saved yet.
func LoadState(path string, knownIDs []string) (res Result, ok bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{}, false, nil
		}
		return Result{}, false, fmt.Errorf("reading system state: %w", err)
	}
	var st State
	if err := yaml.Unmarshal(data, &st); err != nil {
		return Result{}, false, fmt.Errorf("parsing system state: %w", err)
	}

	res = Result{
		Present:     make(map[string]bool, len(knownIDs)),
		Records:     st.Packages,
		Unavailable: map[Manager]error{},
		Ambiguous:   map[string][]string{},
		RefreshedAt: st.RefreshedAt,
	}
	for _, id := range knownIDs {
		res.Present[id] = false
	}
	for _, id := range st.Present {
		if _, known := res.Present[id]; known {
			res.Present[id] = true
		}
	}
	for m, msg := range st.Unavailable {
		msg = strings.TrimPrefix(msg, ErrSourceUnavailable.Error()+": ")
		res.Unavailable[Manager(m)] = fmt.Errorf("%w: %s", ErrSourceUnavailable, msg)
	}
	return res, true, nil
}

package discovery

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrSourceUnavailable marks a package source that could not be queried:
// tool missing, non-zero exit, timeout or unparsable output.
var ErrSourceUnavailable = errors.New("package source unavailable")

// Manager identifies a package source.
type Manager string

const (
	Native  Manager = "native"
	Snap    Manager = "snap"
	Flatpak Manager = "flatpak"
)

// Managers lists every supported source in query order.
var Managers = []Manager{Native, Snap, Flatpak}

// ParseManager maps a settings name to a Manager.
func ParseManager(s string) (Manager, bool) {
	switch m := Manager(strings.ToLower(strings.TrimSpace(s))); m {
	case Native, Snap, Flatpak:
		return m, true
	}
	return "", false
}

// PackageRecord is one installed package reported by a source.
type PackageRecord struct {
	Source    Manager `yaml:"source"`
	Name      string  `yaml:"name"`
	Version   string  `yaml:"version,omitempty"`
	LogicalID string  `yaml:"logical_id,omitempty"`
}

// Source lists the packages installed through one manager.
type Source interface {
	Manager() Manager
	List(ctx context.Context) ([]PackageRecord, error)
}

// NewSource returns the command-backed source for m.
func NewSource(m Manager, r Runner) (Source, error) {
	switch m {
	case Native:
		return &DpkgSource{Runner: r}, nil
	case Snap:
		return &SnapSource{Runner: r}, nil
	case Flatpak:
		return &FlatpakSource{Runner: r}, nil
	}
	return nil, fmt.Errorf("unknown package source %q", m)
}

// SourcesFor builds sources from settings names, preserving order.
func SourcesFor(names []string, r Runner) ([]Source, error) {
	out := make([]Source, 0, len(names))
	for _, name := range names {
		m, ok := ParseManager(name)
		if !ok {
			return nil, fmt.Errorf("unknown package source %q", name)
		}
		src, err := NewSource(m, r)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

func unavailable(m Manager, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, m, err)
}

// DpkgSource queries dpkg-query for installed Debian packages.
type DpkgSource struct {
	Runner Runner
}

const dpkgFormat = `Package: ${Package}\nVersion: ${Version}\nArchitecture: ${Architecture}\nStatus: ${Status}\n\n`

func (s *DpkgSource) Manager() Manager { return Native }

func (s *DpkgSource) List(ctx context.Context) ([]PackageRecord, error) {
	out, err := s.Runner.Run(ctx, "dpkg-query", "-W", "-f="+dpkgFormat)
	if err != nil {
		return nil, unavailable(Native, err)
	}
	recs, err := ParseDpkg(out)
	if err != nil {
		return nil, unavailable(Native, err)
	}
	return recs, nil
}

// ParseDpkg parses dpkg-query stanzas separated by blank lines. Only
// packages whose status is "install ok installed" are returned.
func ParseDpkg(data []byte) ([]PackageRecord, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	type stanza struct {
		name, version, status string
		hasStatus             bool
	}
	var (
		recs    []PackageRecord
		current *stanza
		lineNo  int
	)
	flush := func() {
		if current == nil {
			return
		}
		if !current.hasStatus || strings.HasSuffix(current.status, " installed") {
			recs = append(recs, PackageRecord{Source: Native, Name: current.name, Version: current.version})
		}
		current = nil
	}

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			flush()
			continue
		}
		if strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t") {
			continue
		}
		field, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("line %d: expected field: value", lineNo)
		}
		field, value = strings.TrimSpace(field), strings.TrimSpace(value)

		if field == "Package" {
			flush()
			if value == "" {
				return nil, fmt.Errorf("line %d: empty package name", lineNo)
			}
			current = &stanza{name: value}
			continue
		}
		if current == nil {
			continue
		}
		switch field {
		case "Version":
			current.version = value
		case "Architecture":
			if value != "" && value != "all" {
				current.name += ":" + value
			}
		case "Status":
			current.status = value
			current.hasStatus = true
		}
	}
	flush()
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning dpkg output: %w", err)
	}
	return recs, nil
}

// SnapSource queries `snap list`.
type SnapSource struct {
	Runner Runner
}

func (s *SnapSource) Manager() Manager { return Snap }

func (s *SnapSource) List(ctx context.Context) ([]PackageRecord, error) {
	out, err := s.Runner.Run(ctx, "snap", "list")
	if err != nil {
		return nil, unavailable(Snap, err)
	}
	recs, err := ParseSnapList(out)
	if err != nil {
		return nil, unavailable(Snap, err)
	}
	return recs, nil
}

// ParseSnapList parses the column output of `snap list`. Empty output means
// no snaps are installed.
func ParseSnapList(data []byte) ([]PackageRecord, error) {
	lines := nonBlankLines(data)
	if len(lines) == 0 {
		return nil, nil
	}
	header := strings.Fields(lines[0])
	if len(header) < 2 || header[0] != "Name" || header[1] != "Version" {
		return nil, fmt.Errorf("unexpected snap list header %q", lines[0])
	}
	recs := make([]PackageRecord, 0, len(lines)-1)
	for i, line := range lines[1:] {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: expected name and version", i+2)
		}
		recs = append(recs, PackageRecord{Source: Snap, Name: fields[0], Version: fields[1]})
	}
	return recs, nil
}

// FlatpakSource queries installed flatpak applications.
type FlatpakSource struct {
	Runner Runner
}

func (s *FlatpakSource) Manager() Manager { return Flatpak }

func (s *FlatpakSource) List(ctx context.Context) ([]PackageRecord, error) {
	out, err := s.Runner.Run(ctx, "flatpak", "list", "--app", "--columns=application,version")
	if err != nil {
		return nil, unavailable(Flatpak, err)
	}
	recs, err := ParseFlatpakList(out)
	if err != nil {
		return nil, unavailable(Flatpak, err)
	}
	return recs, nil
}

// ParseFlatpakList parses tab separated application,version rows. A
// header row is skipped when present.
func ParseFlatpakList(data []byte) ([]PackageRecord, error) {
	var recs []PackageRecord
	for i, line := range nonBlankLines(data) {
		cols := strings.Split(line, "\t")
		app := strings.TrimSpace(cols[0])
		if i == 0 && strings.EqualFold(app, "Application ID") {
			continue
		}
		if len(cols) > 2 || strings.ContainsAny(app, " ") {
			return nil, fmt.Errorf("line %d: expected application<TAB>version", i+1)
		}
		rec := PackageRecord{Source: Flatpak, Name: app}
		if len(cols) == 2 {
			rec.Version = strings.TrimSpace(cols[1])
		}
		recs = append(recs, rec)
	}
	return recs, nil
}

func nonBlankLines(data []byte) []string {
	var out []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}

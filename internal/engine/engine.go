// Package engine ties the selection model, store, discovery, reconciliation
// and removal analysis together. An Engine is single-threaded: only Discover
// may run off the owning goroutine.
package engine

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/rs/zerolog"

	"github.com/johnwyles/ubootu-sub000/internal/catalog"
	"github.com/johnwyles/ubootu-sub000/internal/config"
	"github.com/johnwyles/ubootu-sub000/internal/discovery"
	"github.com/johnwyles/ubootu-sub000/internal/menu"
	"github.com/johnwyles/ubootu-sub000/internal/paths"
	"github.com/johnwyles/ubootu-sub000/internal/removal"
	"github.com/johnwyles/ubootu-sub000/internal/selection"
	"github.com/johnwyles/ubootu-sub000/internal/settings"
	"github.com/johnwyles/ubootu-sub000/internal/sync"
)

// Options configures Open.
type Options struct {
	Files      paths.Layout
	Settings   settings.Settings
	// Tree overrides the catalog named in Settings.
	Tree       *menu.Tree
	// Runner executes discovery commands. Nil uses discovery.ExecRunner.
	Runner     discovery.Runner
	// Dependents overrides the apt-cache reverse dependency lookup.
	Dependents removal.DependentsLookup
	Logger     zerolog.Logger
}

// DefaultOptions reads settings from the default state directory.
func DefaultOptions(logger zerolog.Logger) (Options, error) {
	files := paths.Default()
	s, err := settings.Load(files.Settings)
	if err != nil {
		return Options{}, err
	}
	return Options{Files: files, Settings: s, Logger: logger}, nil
}

// Engine owns all mutable state for one session.
type Engine struct {
	tree     *menu.Tree
	files    paths.Layout
	settings settings.Settings
	log      zerolog.Logger

	store   *config.Store
	model   *selection.Model
	values  *selection.Values
	dropped []config.Dropped

	managed *removal.ManagedSet
	deps    removal.DependentsLookup
	gate    removal.ModeGate

	discoverer *discovery.Discoverer
	discovery  discovery.Result
	hasState   bool

	savedHash   string
	appliedHash string
	lastSaveErr error
}

// Open builds an engine from the catalog and state files. A missing config
// starts from the catalog defaults. A corrupt config is returned as a
// *config.StoreError and the file is left as is; the caller picks Reset or
// aborts.
func Open(opts Options) (*Engine, error) {
	e, err := newEngine(opts)
	if err != nil {
		return nil, err
	}

	snap, err := e.store.Load()
	switch {
	case err == nil:
		e.model, e.values, e.dropped = config.Unflatten(e.tree, snap)
		for _, d := range e.dropped {
			e.log.Warn().Str("id", d.ID).Str("reason", d.Reason).Msg("dropping saved entry")
		}
	case config.IsKind(err, config.NotFound):
		e.model, e.values = defaults(e.tree)
	default:
		return nil, err
	}

	if e.managed, err = removal.LoadManaged(e.files.Managed); err != nil {
		return nil, err
	}

	res, ok, err := discovery.LoadState(e.files.State, e.tree.Leaves())
	if err != nil {
		e.log.Warn().Err(err).Msg("ignoring saved system state")
	} else if ok {
		e.discovery, e.hasState = res, true
	}
	if !e.hasState {
		e.discovery = emptyResult(e.tree.Leaves())
	}

	e.savedHash = hashOrEmpty(e.log, e.files.Config)
	e.appliedHash = hashOrEmpty(e.log, e.files.Applied)
	return e, nil
}

// Reset moves an existing config aside to <name>.bak, starts from the
// catalog defaults and saves them.
func Reset(opts Options) (*Engine, error) {
	path := opts.Files.Config
	if _, err := os.Stat(path); err == nil {
		if err := os.Rename(path, path+".bak"); err != nil {
			return nil, fmt.Errorf("backing up %s: %w", path, err)
		}
	}
	e, err := Open(opts)
	if err != nil {
		return nil, err
	}
	if err := e.Save(); err != nil {
		return nil, err
	}
	return e, nil
}

func newEngine(opts Options) (*Engine, error) {
	tree := opts.Tree
	if tree == nil {
		t, err := catalog.Load(opts.Settings.Catalog)
		if err != nil {
			return nil, err
		}
		tree = t
	}
	if err := tree.Err(); err != nil {
		return nil, err
	}

	runner := opts.Runner
	if runner == nil {
		runner = discovery.ExecRunner{}
	}
	names := opts.Settings.Sources
	if len(names) == 0 {
		names = settings.DefaultSources
	}
	sources, err := discovery.SourcesFor(names, runner)
	if err != nil {
		return nil, err
	}
	deps := opts.Dependents
	if deps == nil {
		deps = removal.AptDependents{Runner: runner}
	}

	return &Engine{
		tree:     tree,
		files:    opts.Files,
		settings: opts.Settings,
		log:      opts.Logger,
		store:    config.NewStore(opts.Files.Config),
		deps:     deps,
		discoverer: &discovery.Discoverer{
			Sources: sources,
			Lookup:  discovery.NewLookup(tree),
			Timeout: opts.Settings.Timeout(),
			Logger:  opts.Logger,
		},
	}, nil
}

func defaults(tree *menu.Tree) (*selection.Model, *selection.Values) {
	m := selection.NewModel(tree)
	for _, id := range tree.Leaves() {
		if leaf, _ := tree.Leaf(id); leaf.DefaultSelected {
			_ = m.Set(id, true)
		}
	}
	return m, selection.DefaultValues(tree)
}

func emptyResult(ids []string) discovery.Result {
	present := make(map[string]bool, len(ids))
	for _, id := range ids {
		present[id] = false
	}
	return discovery.Result{Present: present, Unavailable: map[discovery.Manager]error{}, Ambiguous: map[string][]string{}}
}

func hashOrEmpty(log zerolog.Logger, path string) string {
	h, err := config.HashFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("cannot hash file")
		return ""
	}
	return h
}

func (e *Engine) Tree() *menu.Tree            { return e.tree }
func (e *Engine) Files() paths.Layout         { return e.files }
func (e *Engine) Settings() settings.Settings { return e.settings }

// Dropped lists saved entries that no longer match the catalog.
func (e *Engine) Dropped() []config.Dropped { return e.dropped }

// Toggle flips a leaf or applies the tri-state rule to a category, then
// saves.
func (e *Engine) Toggle(id string) error {
	if err := e.model.Toggle(id); err != nil {
		return err
	}
	e.autosave()
	return nil
}

func (e *Engine) SelectAll(id string) error {
	if err := e.model.SelectAll(id); err != nil {
		return err
	}
	e.autosave()
	return nil
}

func (e *Engine) DeselectAll(id string) error {
	if err := e.model.DeselectAll(id); err != nil {
		return err
	}
	e.autosave()
	return nil
}

// SetValue validates and stores a configurable value, then saves.
func (e *Engine) SetValue(id string, raw any) (menu.Value, error) {
	v, err := e.values.Set(id, raw)
	if err != nil {
		return menu.Value{}, err
	}
	e.autosave()
	return v, nil
}

func (e *Engine) Value(id string) (menu.Value, bool) { return e.values.Get(id) }

// Save writes the current state and returns any failure.
func (e *Engine) Save() error {
	snap := e.Snapshot()
	if err := e.store.Save(snap); err != nil {
		e.lastSaveErr = err
		return err
	}
	e.lastSaveErr = nil
	if h, err := config.ContentHash(snap); err == nil {
		e.savedHash = h
	}
	return nil
}

// autosave never fails the caller; the error is logged and kept for
// LastSaveError.
func (e *Engine) autosave() {
	if err := e.Save(); err != nil {
		e.log.Error().Err(err).Msg("auto-save failed")
	}
}

// LastSaveError returns the error from the most recent save, or nil.
func (e *Engine) LastSaveError() error { return e.lastSaveErr }

// Snapshot flattens the in-memory state.
func (e *Engine) Snapshot() config.Snapshot {
	return config.Flatten(e.tree, e.model, e.values)
}

// ConfigStatus is the status-bar text comparing memory, disk and the last
// applied copy.
func (e *Engine) ConfigStatus() string {
	current, err := config.ContentHash(e.Snapshot())
	if err != nil {
		return config.StatusUnsaved
	}
	return config.Status(current, e.savedHash, e.appliedHash)
}

func (e *Engine) IsSelected(id string) bool { return e.model.IsSelected(id) }

func (e *Engine) Indicator(id string) selection.Indicator { return e.model.Indicator(id) }

func (e *Engine) SelectedCount(id string) (int, int) { return e.model.SelectedCount(id) }

func (e *Engine) SelectedLeaves() []string { return e.model.SelectedLeaves() }

// Discover queries the package sources. It reads only immutable engine
// fields and may run on a worker goroutine; hand the result to
// ApplyDiscovery on the engine goroutine.
func (e *Engine) Discover(ctx context.Context) (discovery.Result, error) {
	return e.discoverer.Refresh(ctx, e.tree.Leaves())
}

// ApplyDiscovery replaces the presence map in one step and persists it.
func (e *Engine) ApplyDiscovery(res discovery.Result) {
	e.discovery = res
	e.hasState = true
	if err := discovery.SaveState(e.files.State, res); err != nil {
		e.log.Warn().Err(err).Msg("saving system state")
	}
}

// Refresh runs Discover and ApplyDiscovery. A cancelled context leaves the
// previous result in place.
func (e *Engine) Refresh(ctx context.Context) error {
	res, err := e.Discover(ctx)
	if err != nil {
		return err
	}
	e.ApplyDiscovery(res)
	return nil
}

// Discovery returns the current result and whether one has been loaded or
// refreshed.
func (e *Engine) Discovery() (discovery.Result, bool) { return e.discovery, e.hasState }

// Status classifies one leaf.
func (e *Engine) Status(id string) sync.Status {
	return sync.StatusFor(id, e.model, e.discovery.Present)
}

// Diff classifies every leaf in tree order.
func (e *Engine) Diff() sync.Diff {
	return sync.ComputeDiff(e.tree.Leaves(), e.model, e.discovery.Present)
}

func (e *Engine) Mode() removal.Mode { return e.gate.Mode() }

// EnableStrict asks confirm the first time in a session.
func (e *Engine) EnableStrict(confirm func() bool) bool { return e.gate.EnableStrict(confirm) }

func (e *Engine) DisableStrict() { e.gate.Disable() }

// ManagedPackages returns the packages ubootu installed.
func (e *Engine) ManagedPackages() []string { return e.managed.Names() }

// IsSafeToRemove runs the analyzer against the managed set.
func (e *Engine) IsSafeToRemove(ctx context.Context, pkg string) (bool, string) {
	return removal.IsSafeToRemove(ctx, pkg, e.managed, e.deps)
}

// ProposeRemovals gates orphaned packages in Strict mode. In Additive mode
// it returns nothing without consulting the analyzer.
func (e *Engine) ProposeRemovals(ctx context.Context) removal.Removals {
	if e.gate.Mode() != removal.Strict {
		return removal.Removals{}
	}
	var orphans []discovery.PackageRecord
	for _, id := range e.Diff().Orphaned {
		orphans = append(orphans, e.discovery.RecordsFor(id)...)
	}
	return removal.ProposeRemovals(ctx, e.gate.Mode(), orphans, e.managed, e.deps)
}

// Kind is the user-facing error class.
type Kind int

const (
	KindUnknown Kind = iota
	KindStructural
	KindExternalToolUnavailable
	KindPermissionDenied
	KindValidation
)

func (k Kind) String() string {
	switch k {
	case KindStructural:
		return "structural error"
	case KindExternalToolUnavailable:
		return "external tool unavailable"
	case KindPermissionDenied:
		return "permission denied"
	case KindValidation:
		return "validation error"
	default:
		return "error"
	}
}

// KindOf classifies err for presentation.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var (
		structural menu.StructuralErrors
		single     menu.StructuralError
		invalid    *menu.ValidationError
		store      *config.StoreError
	)
	switch {
	case errors.As(err, &structural), errors.As(err, &single):
		return KindStructural
	case errors.As(err, &store) && store.Kind == config.Corrupt:
		return KindStructural
	case errors.As(err, &invalid), errors.Is(err, selection.ErrUnknownItem):
		return KindValidation
	}
	if k, ok := applyKind(err); ok {
		return k
	}
	switch {
	case errors.Is(err, discovery.ErrSourceUnavailable):
		return KindExternalToolUnavailable
	case errors.Is(err, os.ErrPermission):
		return KindPermissionDenied
	}
	return KindUnknown
}

package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/x/term"

	"github.com/johnwyles/ubootu-sub000/internal/config"
	"github.com/johnwyles/ubootu-sub000/internal/engine"
	"github.com/johnwyles/ubootu-sub000/internal/logging"
	"github.com/johnwyles/ubootu-sub000/internal/menu"
)

// isInteractive reports whether prompts can be shown.
var isInteractive = func() bool {
	return term.IsTerminal(os.Stdin.Fd())
}

func engineOptions() (engine.Options, error) {
	return engine.DefaultOptions(logging.Configure(logging.ProfileRuntime))
}

// openEngine opens the session engine. A corrupt config is never
// overwritten silently: on a terminal the user picks reset or abort,
// otherwise the error is returned.
func openEngine() (*engine.Engine, error) {
	opts, err := engineOptions()
	if err != nil {
		return nil, err
	}
	e, err := engine.Open(opts)
	if err == nil {
		return e, nil
	}
	if !config.IsKind(err, config.Corrupt) || !isInteractive() {
		return nil, err
	}

	fmt.Fprintf(os.Stderr, "%v\n", err)
	reset, promptErr := promptResetCorrupt()
	if promptErr != nil || !reset {
		return nil, err
	}
	return engine.Reset(opts)
}

// promptResetCorrupt asks whether to replace a corrupt config with defaults.
func promptResetCorrupt() (bool, error) {
	var choice string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("The saved configuration cannot be read. What would you like to do?").
				Options(
					huh.NewOption("Reset to defaults (keeps a .bak copy)", "reset"),
					huh.NewOption("Abort and fix the file by hand", "abort"),
				).
				Value(&choice),
		),
	).Run()
	if err != nil {
		return false, err
	}
	return choice == "reset", nil
}

// confirmStrict is the one-time strict-mode confirmation.
func confirmStrict() bool {
	if !isInteractive() {
		return false
	}
	var ok bool
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Enable strict mode?").
				Description("Orphaned packages that ubootu installed will be removed on apply.").
				Affirmative("Enable").
				Negative("Cancel").
				Value(&ok),
		),
	).Run()
	return err == nil && ok
}

func promptPassword() (string, error) {
	var pw string
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("sudo password").
				Description("Passed to the playbook through a private temp file.").
				EchoMode(huh.EchoModePassword).
				Value(&pw),
		),
	).Run()
	return pw, err
}

// reportError prints err with its user-facing kind.
func reportError(err error) {
	var structural menu.StructuralErrors
	if errors.As(err, &structural) {
		fmt.Fprintf(os.Stderr, "Error (%s):\n", engine.KindStructural)
		for _, e := range structural {
			fmt.Fprintf(os.Stderr, "  • %v\n", e)
		}
		return
	}
	fmt.Fprintf(os.Stderr, "Error (%s): %v\n", engine.KindOf(err), err)
}

// saved returns the auto-save failure of the last mutation, if any.
func saved(e *engine.Engine) error {
	if err := e.LastSaveError(); err != nil {
		return fmt.Errorf("auto-save failed: %w", err)
	}
	return nil
}

// label returns the display name for id.
func label(e *engine.Engine, id string) string {
	if n, ok := e.Tree().Node(id); ok && n.Meta().Label != "" {
		return n.Meta().Label
	}
	return id
}

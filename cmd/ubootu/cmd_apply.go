package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/johnwyles/ubootu-sub000/internal/apply"
	"github.com/johnwyles/ubootu-sub000/internal/config"
	"github.com/johnwyles/ubootu-sub000/internal/engine"
	"github.com/johnwyles/ubootu-sub000/internal/logging"
)

type applyOptions struct {
	strict  bool
	yes     bool
	dryRun  bool
	askPass bool
}

var applyFlags applyOptions

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Run the playbook for the current selection",
	Long: `Apply saves the selection, runs the Ansible playbook with it and records
the result. In strict mode orphaned packages that ubootu installed are
removed too, after a per-package safety check.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		return runApply(cmd.Context(), e, applyFlags)
	},
}

func runApply(ctx context.Context, e *engine.Engine, opts applyOptions) error {
	if opts.strict {
		if !e.EnableStrict(func() bool { return opts.yes || confirmStrict() }) {
			fmt.Println("Strict mode not confirmed; applying in additive mode.")
		}
	}

	plan, err := e.Plan(ctx)
	if err != nil {
		return err
	}
	printPlan(e, plan.Diff, plan.Removals)

	if opts.dryRun {
		data, err := e.Variables(plan.Removals).Marshal()
		if err != nil {
			return err
		}
		fmt.Println("\nPlaybook variables:")
		fmt.Print(string(data))
		return nil
	}

	if plan.Diff.Clean() && len(plan.Removals.Approved) == 0 && e.ConfigStatus() == config.StatusApplied {
		fmt.Println("Nothing to apply.")
		return nil
	}

	var password string
	if opts.askPass && isInteractive() {
		pw, err := promptPassword()
		if err != nil {
			return err
		}
		password = pw
	}

	s := e.Settings()
	orch := apply.NewAnsible(s.AnsibleBinary, s.Playbook, logging.Logger())
	fmt.Println()
	report, err := e.Apply(ctx, orch, plan, password, os.Stdout)
	if err != nil {
		return err
	}

	fmt.Printf("\n✓ Applied in %s\n", report.Result.Duration.Round(time.Millisecond))
	if len(report.Installed) > 0 {
		fmt.Printf("  Now managing %d new package(s)\n", len(report.Installed))
	}
	if n := len(report.Removals.Approved); n > 0 {
		fmt.Printf("  Removed %d orphaned package(s)\n", n)
	}
	if report.ManagedErr != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not update managed packages: %v\n", report.ManagedErr)
	}
	return nil
}

func init() {
	applyCmd.Flags().BoolVar(&applyFlags.strict, "strict", false, "Also remove orphaned packages that ubootu installed")
	applyCmd.Flags().BoolVarP(&applyFlags.yes, "yes", "y", false, "Skip the strict mode confirmation")
	applyCmd.Flags().BoolVar(&applyFlags.dryRun, "dry-run", false, "Print the plan and playbook variables without running")
	applyCmd.Flags().BoolVarP(&applyFlags.askPass, "ask-become-pass", "K", false, "Prompt for the sudo password")
}

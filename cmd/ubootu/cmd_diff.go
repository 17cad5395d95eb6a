package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnwyles/ubootu-sub000/internal/engine"
	"github.com/johnwyles/ubootu-sub000/internal/removal"
	"github.com/johnwyles/ubootu-sub000/internal/sync"
)

var diffCmd = &cobra.Command{
	Use:   "diff",
	Short: "Show what an apply would install and what is orphaned",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		if _, ok := e.Discovery(); !ok {
			fmt.Println("Installed packages have not been scanned yet; everything selected counts as missing.")
			fmt.Println("Run 'ubootu refresh' for an accurate diff.")
			fmt.Println()
		}
		printPlan(e, e.Diff(), removal.Removals{})
		return nil
	},
}

// printPlan lists installs, orphans and the removal decisions for them.
func printPlan(e *engine.Engine, diff sync.Diff, removals removal.Removals) {
	if diff.Clean() {
		fmt.Println("✓ Installed software matches the selection.")
		return
	}

	if len(diff.ToInstall) > 0 {
		fmt.Printf("To install (%d):\n", len(diff.ToInstall))
		for _, id := range diff.ToInstall {
			fmt.Printf("  + %s\n", label(e, id))
		}
	}

	if len(diff.Orphaned) == 0 {
		return
	}
	fmt.Printf("Orphaned (%d):\n", len(diff.Orphaned))
	for _, id := range diff.Orphaned {
		fmt.Printf("  ! %s\n", label(e, id))
	}

	if e.Mode() != removal.Strict {
		fmt.Println("Additive mode keeps orphaned packages. Use 'ubootu apply --strict' to remove them.")
		return
	}
	for _, p := range removals.Approved {
		fmt.Printf("  - remove %s (%s)\n", p.Package, p.Source)
	}
	for _, p := range removals.Rejected {
		fmt.Printf("  = keep %s: %s\n", p.Package, p.Reason)
	}
}

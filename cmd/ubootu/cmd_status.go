package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/johnwyles/ubootu-sub000/internal/menu"
	"github.com/johnwyles/ubootu-sub000/internal/sync"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show config and sync status",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}

		selected, total := e.SelectedCount(menu.RootID)
		fmt.Printf("Config:   %s (%s)\n", e.ConfigStatus(), e.Files().Config)
		fmt.Printf("Selected: %d/%d items\n", selected, total)
		fmt.Printf("Mode:     %s\n", e.Mode())

		res, ok := e.Discovery()
		if !ok {
			fmt.Println("\nInstalled packages have not been scanned yet. Run 'ubootu refresh'.")
			return nil
		}
		fmt.Printf("Scanned:  %s\n", res.RefreshedAt.Local().Format("2006-01-02 15:04"))

		diff := e.Diff()
		counts := diff.Counts()
		fmt.Println()
		for _, s := range sync.Statuses {
			fmt.Printf("  %-14s %d\n", s.String()+":", counts[s])
		}

		if len(diff.ToInstall) > 0 {
			fmt.Println("\nTo install:")
			for _, id := range diff.ToInstall {
				fmt.Printf("  + %s\n", label(e, id))
			}
		}
		if len(diff.Orphaned) > 0 {
			fmt.Println("\nInstalled but not selected:")
			for _, id := range diff.Orphaned {
				fmt.Printf("  ! %s\n", label(e, id))
			}
		}

		if len(res.Unavailable) > 0 {
			var names []string
			for m := range res.Unavailable {
				names = append(names, string(m))
			}
			sort.Strings(names)
			fmt.Println("\nUnavailable sources (their packages count as not installed):")
			for _, n := range names {
				fmt.Printf("  • %s\n", n)
			}
		}
		return nil
	},
}

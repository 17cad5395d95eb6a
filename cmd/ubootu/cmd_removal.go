package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removalCmd = &cobra.Command{
	Use:   "removal",
	Short: "Inspect removal safety",
}

var removalCheckCmd = &cobra.Command{
	Use:   "check <package>...",
	Short: "Check whether packages could be removed in strict mode",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		for _, pkg := range args {
			safe, reason := e.IsSafeToRemove(cmd.Context(), pkg)
			mark := "✗"
			if safe {
				mark = "✓"
			}
			fmt.Printf("%s %s: %s\n", mark, pkg, reason)
		}
		return nil
	},
}

var managedCmd = &cobra.Command{
	Use:   "managed",
	Short: "Inspect packages installed by ubootu",
}

var managedListCmd = &cobra.Command{
	Use:   "list",
	Short: "List packages installed by ubootu",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		names := e.ManagedPackages()
		if len(names) == 0 {
			fmt.Println("No packages have been installed by ubootu yet.")
			return nil
		}
		for _, n := range names {
			fmt.Println(n)
		}
		return nil
	},
}

func init() {
	removalCmd.AddCommand(removalCheckCmd)
	managedCmd.AddCommand(managedListCmd)
}

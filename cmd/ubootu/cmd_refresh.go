package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/johnwyles/ubootu-sub000/internal/discovery"
)

var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Scan installed packages",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		if err := e.Refresh(cmd.Context()); err != nil {
			return err
		}

		res, _ := e.Discovery()
		installed := 0
		for _, ok := range res.Present {
			if ok {
				installed++
			}
		}
		fmt.Printf("✓ Scanned %d packages; %d catalog items installed\n", len(res.Records), installed)

		if len(res.Unavailable) > 0 {
			fmt.Println("\nUnavailable sources:")
			var names []string
			for m := range res.Unavailable {
				names = append(names, string(m))
			}
			sort.Strings(names)
			for _, n := range names {
				fmt.Printf("  • %s: %v\n", n, res.Unavailable[discovery.Manager(n)])
			}
		}

		if len(res.Ambiguous) > 0 {
			fmt.Println("\nPackages claimed by more than one item (not counted):")
			tokens := make([]string, 0, len(res.Ambiguous))
			for tok := range res.Ambiguous {
				tokens = append(tokens, tok)
			}
			sort.Strings(tokens)
			for _, tok := range tokens {
				fmt.Printf("  • %s: %v\n", tok, res.Ambiguous[tok])
			}
		}
		return nil
	},
}

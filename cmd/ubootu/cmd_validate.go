package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnwyles/ubootu-sub000/internal/catalog"
	"github.com/johnwyles/ubootu-sub000/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate [catalog]",
	Short: "Check the catalog and the saved config",
	Long:  "Validate loads the catalog (the configured one, or the file given) and the saved config, and reports structural problems and entries that would be dropped.",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := engineOptions()
		if err != nil {
			return err
		}
		path := opts.Settings.Catalog
		if len(args) == 1 {
			path = args[0]
		}

		tree, err := catalog.Load(path)
		if err != nil {
			return err
		}
		name := path
		if name == "" {
			name = "built-in catalog"
		}
		fmt.Printf("✓ %s: %d items, %d selectable\n", name, tree.Len(), len(tree.Leaves()))

		snap, err := config.NewStore(opts.Files.Config).Load()
		switch {
		case config.IsKind(err, config.NotFound):
			fmt.Println("  No saved config yet.")
			return nil
		case err != nil:
			return err
		}

		_, _, dropped := config.Unflatten(tree, snap)
		if len(dropped) == 0 {
			fmt.Printf("✓ %s matches the catalog\n", opts.Files.Config)
			return nil
		}
		fmt.Printf("%s has %d entr(ies) the catalog does not accept:\n", opts.Files.Config, len(dropped))
		for _, d := range dropped {
			fmt.Printf("  • %s: %s\n", d.ID, d.Reason)
		}
		return errors.New("saved config does not match the catalog")
	},
}

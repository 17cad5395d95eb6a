package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/johnwyles/ubootu-sub000/internal/engine"
)

var resetYes bool

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Replace the saved selection with the catalog defaults",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts, err := engineOptions()
		if err != nil {
			return err
		}

		if !resetYes {
			if !isInteractive() {
				return errors.New("refusing to reset without --yes")
			}
			var ok bool
			err := huh.NewForm(
				huh.NewGroup(
					huh.NewConfirm().
						Title("Reset the selection to the catalog defaults?").
						Value(&ok),
				),
			).Run()
			if err != nil || !ok {
				fmt.Println("Reset cancelled.")
				return nil
			}
		}

		_, statErr := os.Stat(opts.Files.Config)
		if _, err := engine.Reset(opts); err != nil {
			return err
		}
		fmt.Println("✓ Selection reset to defaults")
		if statErr == nil {
			fmt.Printf("  Previous config kept at %s.bak\n", opts.Files.Config)
		}
		return nil
	},
}

func init() {
	resetCmd.Flags().BoolVarP(&resetYes, "yes", "y", false, "Reset without asking")
}

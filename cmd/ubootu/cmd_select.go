package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/johnwyles/ubootu-sub000/internal/engine"
	"github.com/johnwyles/ubootu-sub000/internal/selection"
)

var toggleCmd = &cobra.Command{
	Use:   "toggle <id>...",
	Short: "Toggle items or categories",
	Long:  "Toggle flips a leaf. For a category it selects every item below it unless all are already selected, in which case it clears them.",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(args, func(e *engine.Engine, id string) error {
			if err := e.Toggle(id); err != nil {
				return err
			}
			state := "deselected"
			if e.IsSelected(id) || e.Indicator(id) == selection.Full {
				state = "selected"
			}
			fmt.Printf("✓ %s %s\n", label(e, id), state)
			return nil
		})
	},
}

var selectCmd = &cobra.Command{
	Use:   "select <id>...",
	Short: "Select items, or every item under a category",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(args, func(e *engine.Engine, id string) error {
			if err := e.SelectAll(id); err != nil {
				return err
			}
			fmt.Printf("✓ Selected %s\n", label(e, id))
			return nil
		})
	},
}

var deselectCmd = &cobra.Command{
	Use:   "deselect <id>...",
	Short: "Deselect items, or every item under a category",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return mutate(args, func(e *engine.Engine, id string) error {
			if err := e.DeselectAll(id); err != nil {
				return err
			}
			fmt.Printf("✓ Deselected %s\n", label(e, id))
			return nil
		})
	},
}

var setCmd = &cobra.Command{
	Use:   "set <id> <value>",
	Short: "Set the value of a configurable item",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		v, err := e.SetValue(args[0], args[1])
		if err != nil {
			return err
		}
		if err := saved(e); err != nil {
			return err
		}
		fmt.Printf("✓ %s = %s\n", label(e, args[0]), v)
		return nil
	},
}

// mutate applies fn to each id, stopping at the first failure.
func mutate(ids []string, fn func(e *engine.Engine, id string) error) error {
	e, err := openEngine()
	if err != nil {
		return err
	}
	for _, id := range ids {
		if err := fn(e, id); err != nil {
			return fmt.Errorf("%s: %w", id, err)
		}
		if err := saved(e); err != nil {
			return err
		}
	}
	return nil
}

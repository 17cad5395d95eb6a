package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/johnwyles/ubootu-sub000/internal/engine"
	"github.com/johnwyles/ubootu-sub000/internal/menu"
	"github.com/johnwyles/ubootu-sub000/internal/selection"
	"github.com/johnwyles/ubootu-sub000/internal/sync"
)

var treeShowIDs bool

var treeCmd = &cobra.Command{
	Use:   "tree",
	Short: "Print the selection tree",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine()
		if err != nil {
			return err
		}
		printTree(e, menu.RootID, 0)
		return nil
	},
}

func printTree(e *engine.Engine, parent string, depth int) {
	tree := e.Tree()
	for _, id := range tree.Children(parent) {
		indent := strings.Repeat("  ", depth)
		name := label(e, id)
		if treeShowIDs && name != id {
			name += " (" + id + ")"
		}

		if tree.IsCategory(id) {
			selected, total := e.SelectedCount(id)
			fmt.Printf("%s%s %s  %d/%d\n", indent, indicatorText(e.Indicator(id)), name, selected, total)
			printTree(e, id, depth+1)
			continue
		}

		box := "[ ]"
		if e.IsSelected(id) {
			box = "[x]"
		}
		line := fmt.Sprintf("%s%s %s", indent, box, name)
		if v, ok := e.Value(id); ok {
			line += " = " + v.String()
		}
		if s := e.Status(id); s != sync.SyncedUnselected {
			line += "  (" + s.String() + ")"
		}
		fmt.Println(line)
	}
}

func indicatorText(ind selection.Indicator) string {
	switch ind {
	case selection.Full:
		return "[x]"
	case selection.Partial:
		return "[-]"
	default:
		return "[ ]"
	}
}

func init() {
	treeCmd.Flags().BoolVar(&treeShowIDs, "ids", false, "Show item ids next to labels")
}

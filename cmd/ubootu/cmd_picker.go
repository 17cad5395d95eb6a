package main

import (
	"bufio"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/johnwyles/ubootu-sub000/cmd/ubootu/tui"
)

func runPicker(cmd *cobra.Command, args []string) error {
	// TTY guard: fall back to status when stdin is not a terminal
	// (piping, CI, scripts, etc.)
	if !isInteractive() {
		return statusCmd.RunE(cmd, args)
	}

	e, err := openEngine()
	if err != nil {
		return err
	}

	for {
		p := tea.NewProgram(tui.NewTreeModel(e), tea.WithAltScreen())
		finalModel, err := p.Run()
		if err != nil {
			return err
		}

		picker := finalModel.(tui.TreeModel)
		if picker.Quitting || picker.Action != tui.ActionApply {
			return nil
		}

		if err := runApply(cmd.Context(), e, applyOptions{askPass: true}); err != nil {
			reportError(err)
		}
		fmt.Print("\nPress Enter to return to the tree...")
		bufio.NewReader(os.Stdin).ReadBytes('\n')
	}
}

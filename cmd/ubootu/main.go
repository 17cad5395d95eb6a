package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "ubootu",
	Short: "Pick and reconcile the software on an Ubuntu machine",
	Long:  "ubootu keeps a hierarchical selection of software and settings, compares it with what is installed, and applies it through an Ansible playbook.",
	// Errors are printed once in main with their kind.
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE:          runPicker,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("ubootu %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(treeCmd)
	rootCmd.AddCommand(toggleCmd)
	rootCmd.AddCommand(selectCmd)
	rootCmd.AddCommand(deselectCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(diffCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(removalCmd)
	rootCmd.AddCommand(managedCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(resetCmd)
	rootCmd.AddCommand(refreshCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		reportError(err)
		os.Exit(1)
	}
}

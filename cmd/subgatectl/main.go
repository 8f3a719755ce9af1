package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "subgatectl",
		Short:   "SubGate operator tool",
		Long:    "Inspect and manage subscriber access directly against the configured database and cache.",
		Version: Version,
	}

	rootCmd.AddCommand(statusCmd())
	rootCmd.AddCommand(deactivateCmd())
	rootCmd.AddCommand(overrideCmd())
	rootCmd.AddCommand(subscribersCmd())
	rootCmd.AddCommand(statsCmd())
	rootCmd.AddCommand(hashKeyCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

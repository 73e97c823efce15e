// Package main provides the entry point for the pyfix CLI tool.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/Sumatoshi-tech/pyfix/cmd/pyfix/commands"
	"github.com/Sumatoshi-tech/pyfix/pkg/version"
)

func main() {
	version.InitBinaryVersion()

	rootCmd := commands.NewFixCommand()
	rootCmd.AddCommand(versionCmd())

	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(os.Stdout, "pyfix %s (commit: %s, built: %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

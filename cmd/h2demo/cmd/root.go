package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "h2demo",
	Short: "Exercise the h2 protocol engine as a standalone server or client",
}

// Execute runs the requested subcommand, returning any error instead
// of exiting directly so main can control the process exit code.
func Execute() error {
	return rootCmd.Execute()
}

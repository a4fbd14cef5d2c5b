package cmd

import (
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "bpxserver",
	Short: "BPX binary-delta polling server",
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

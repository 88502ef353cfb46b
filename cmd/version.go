package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/nicolad/nomadically.work/cmd.version=...".
var version = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version and the default extraction version",
	Run: func(cmd *cobra.Command, _ []string) {
		_, config := setup()
		fmt.Fprintf(cmd.OutOrStdout(), "%s version: %s (extraction %s)\n", app, version, config.Extraction.Version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Package cmd implements the command-line front end: thin cobra commands
// delegating straight into internal/pipeline, following the root-command
// composition pattern of the teacher's CLI.
package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "normalize-core",
	Short: "Normalize scanned book pages into a clean, aligned page corpus",
	Long: `normalize-core scans a directory of scanned page images, infers their
physical size and DPI, corrects skew and shading, crops to content, and
writes a normalized PNG plus a sidecar JSON for every page.`,
}

// Execute runs the root command, exiting non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

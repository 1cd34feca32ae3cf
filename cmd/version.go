package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/asteria-studio/normalize-core/internal/constants"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("normalize-core %s\n", constants.AppVersion)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

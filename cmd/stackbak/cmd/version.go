package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/stackmeld/stackbak/pkg/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print stackbak version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(version.Describe())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

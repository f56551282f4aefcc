package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

// version is stamped at build time via -ldflags.
var version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the reposcope version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("reposcope %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

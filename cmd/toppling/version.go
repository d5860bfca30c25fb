package main

import (
	"fmt"
	"strings"

	toppling "github.com/JaumeRibas/Aether2DImgMaker-sub016"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of toppling",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "toppling version %s\n", strings.TrimSpace(toppling.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

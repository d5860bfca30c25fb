package main

import (
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/cli"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a model against the dense reference",
	Long: `Steps the configured model next to a plain full-lattice implementation and compares
every cell after each step. The reference holds the whole cube, so keep the step count small.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		steps, _ := cmd.Flags().GetInt64("steps")
		return cli.Verify(cmd.Context(), cfg.Model(), steps, cmd.OutOrStdout())
	},
}

var guardCmd = &cobra.Command{
	Use:   "guard",
	Short: "Print the overflow limits of a configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		return cli.GuardReport(cfg.Model(), cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(guardCmd)

	addModelFlags(verifyCmd)
	verifyCmd.Flags().Int64P("steps", "s", 20, "Steps to compare")

	addModelFlags(guardCmd)
}

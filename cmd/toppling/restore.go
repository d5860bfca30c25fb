package main

import (
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/cli"
	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Continue a saved run",
	Long: `Loads the run saved in the store and keeps stepping it. The saved mode and thread
count are kept unless --mode or --threads are given.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if !cmd.Flags().Changed("mode") {
			cfg.Mode = ""
		}
		if !cmd.Flags().Changed("threads") {
			cfg.Threads = 0
		}
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.Run(ctx, runOptions(cmd, cfg, true))
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)

	addModeFlags(restoreCmd)
	addStoreFlags(restoreCmd)
	addRunFlags(restoreCmd)
	addOutputFlags(restoreCmd)
}

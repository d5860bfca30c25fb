package main

import (
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/cli"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/config"
	"github.com/spf13/cobra"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start a new run and step it",
	Long: `Creates a model from the configuration and flags and steps it until it is stable,
the step limit is reached, or the process is interrupted. Interrupted runs are saved to the
store and can be continued with restore.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.Run(ctx, runOptions(cmd, cfg, false))
	},
}

func init() {
	rootCmd.AddCommand(runCmd)

	addModelFlags(runCmd)
	addStoreFlags(runCmd)
	addRunFlags(runCmd)
	addOutputFlags(runCmd)
}

func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().BoolP("quiet", "q", false, "Print neither progress nor the summary")
	cmd.Flags().Int64("progress-every", 100, "Print a status line every n steps")
}

func runOptions(cmd *cobra.Command, cfg config.Config, restore bool) cli.RunOptions {
	debug, _ := cmd.Flags().GetBool("debug")
	quiet, _ := cmd.Flags().GetBool("quiet")
	every, _ := cmd.Flags().GetInt64("progress-every")
	return cli.RunOptions{
		Config:        cfg,
		Restore:       restore,
		Debug:         debug,
		Quiet:         quiet,
		ProgressEvery: every,
		Out:           cmd.OutOrStdout(),
	}
}

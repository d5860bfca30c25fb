package main

import (
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve a saved run over HTTP",
	Long: `Restores the run saved in the store and answers value and property queries over
HTTP, with step events on /events and Prometheus metrics on /metrics. With --steps the run
keeps stepping while it is served.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		addr, _ := cmd.Flags().GetString("addr")
		debug, _ := cmd.Flags().GetBool("debug")

		ctx := cli.NewSignalContext(cmd.Context())
		defer ctx.Cancel()
		return cli.Serve(ctx, cli.ServeOptions{
			Store:       cfg.Store,
			Addr:        addr,
			LogLevel:    cfg.LogLevel,
			Debug:       debug,
			Steps:       cfg.Steps,
			BackupEvery: cfg.BackupEvery,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", ":8080", "Listen address")
	addStoreFlags(serveCmd)
	addRunFlags(serveCmd)
}

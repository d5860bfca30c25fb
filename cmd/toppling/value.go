package main

import (
	"fmt"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/cli"
	httpAdapter "github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/adapters/http"
	"github.com/spf13/cobra"
)

var valueCmd = &cobra.Command{
	Use:     "value COORD...",
	Short:   "Print cell values of a saved run",
	Example: `  toppling value --store-dir ./run 0,0 3,-1`,
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		coords := make([][]int, len(args))
		for i, arg := range args {
			if coords[i], err = httpAdapter.ParseCoord(arg); err != nil {
				return fmt.Errorf("argument %d: %w", i+1, err)
			}
		}
		return cli.Value(cmd.Context(), cfg.Store, coords, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(valueCmd)
	addStoreFlags(valueCmd)
}

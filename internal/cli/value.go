package cli

import (
	"context"
	"fmt"
	"io"

	toppling "github.com/JaumeRibas/Aether2DImgMaker-sub016"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/config"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// Value prints the value of each coordinate in the run saved in store. Fixed width runs are
// opened in swap mode, so only the blocks holding the queried slices are read. Arbitrary
// precision runs are loaded into memory.
func Value(ctx context.Context, store config.StoreConfig, coords [][]int, out io.Writer) (err error) {
	src, err := OpenStore(ctx, store, false)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := src.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()

	props, err := src.LoadProperties(ctx)
	if err != nil {
		return fmt.Errorf("failed to load run properties: %w", err)
	}
	mode := domain.ModeSwap
	if props.Width == toppling.WidthArbitrary {
		mode = domain.ModeMemory
	}
	model, err := toppling.Restore(ctx, src, toppling.WithMode(mode))
	if err != nil {
		return err
	}
	for _, c := range coords {
		v, err := model.BigValueAt(ctx, c)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%v\t%s\n", c, v)
	}
	return nil
}

package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/big"

	toppling "github.com/JaumeRibas/Aether2DImgMaker-sub016"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/reference"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// ErrMismatch is returned by Verify when the model and the dense reference disagree.
var ErrMismatch = errors.New("model differs from the dense reference")

// Verify steps a model built from cfg next to the dense reference for steps steps and
// compares every lattice cell after each one.
func Verify(ctx context.Context, cfg toppling.Config, steps int64, out io.Writer) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	model, err := toppling.New(ctx, cfg)
	if err != nil {
		return err
	}
	defer model.Close(context.WithoutCancel(ctx))
	ref, err := reference.NewBig(cfg.Variant, cfg.Dimension, big.NewInt(cfg.InitialValue), big.NewInt(cfg.Background))
	if err != nil {
		return err
	}

	for step := int64(1); step <= steps; step++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		res, err := model.Step(ctx)
		if err != nil {
			return err
		}
		refChanged := ref.Step()
		if res.Changed != refChanged {
			return fmt.Errorf("%w: step %d changed=%t, reference changed=%t", ErrMismatch, step, res.Changed, refChanged)
		}
		if err := compareCells(ctx, model, ref, max(ref.Bound(), res.Bound)+1); err != nil {
			return fmt.Errorf("step %d: %w", step, err)
		}
		if !res.Changed {
			fmt.Fprintf(out, "stable after %d steps\n", step-1)
			break
		}
	}
	fmt.Fprintf(out, "%s %dD from %d: matches the reference for %d steps\n", cfg.Variant, cfg.Dimension, cfg.InitialValue, model.Properties().Step)
	return nil
}

// compareCells visits every coordinate with max |c| ≤ r.
func compareCells(ctx context.Context, model toppling.Model, ref *reference.BigModel, r int) error {
	dim := model.Properties().Dimension
	c := make([]int, dim)
	for i := range c {
		c[i] = -r
	}
	for {
		got, err := model.BigValueAt(ctx, c)
		if err != nil {
			return err
		}
		if want := ref.ValueAt(c); got.Cmp(want) != 0 {
			return fmt.Errorf("%w: value at %v is %s, reference %s", ErrMismatch, c, got, want)
		}
		k := dim - 1
		for ; k >= 0; k-- {
			if c[k]++; c[k] <= r {
				break
			}
			c[k] = -r
		}
		if k < 0 {
			return nil
		}
	}
}

// GuardReport prints the overflow limits of single-source runs for each width.
func GuardReport(cfg toppling.Config, out io.Writer) error {
	for _, width := range []int{16, 32, 64} {
		min, err := toppling.MinInitialValue(cfg.Dimension, width)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%2d bits: aether %dD accepts initial values down to %s\n", width, cfg.Dimension, min)
	}
	fmt.Fprintf(out, "arbitrary precision (width %d) accepts any initial value in memory mode\n", toppling.WidthArbitrary)
	if cfg.InitialValue != 0 {
		if err := toppling.Guard(cfg); err != nil {
			return err
		}
		variant := cfg.Variant
		if variant == "" {
			variant = domain.VariantAether
		}
		if cfg.Width == toppling.WidthArbitrary {
			fmt.Fprintf(out, "%s %dD from %d over %d runs at arbitrary precision\n", variant, cfg.Dimension, cfg.InitialValue, cfg.Background)
		} else {
			fmt.Fprintf(out, "%s %dD from %d over %d fits %d bits\n", variant, cfg.Dimension, cfg.InitialValue, cfg.Background, cfg.Width)
		}
	}
	return nil
}

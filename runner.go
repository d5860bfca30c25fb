package toppling

import (
	"context"
	"fmt"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
)

// RunOptions controls Run.
type RunOptions struct {
	// Steps stops the run after this many steps of this call. Zero runs until a step
	// changes nothing.
	Steps int64

	// BackupEvery saves the model into Store whenever its step count is a multiple of it.
	BackupEvery int64

	// Store receives the periodic backups and a final one when the run stops.
	Store ports.RunStore

	// OnStep, if set, is called after every step.
	OnStep func(domain.StepResult)
}

// Run steps model until it stops changing, opts.Steps steps have run, or ctx is done.
// A canceled run still writes its final backup.
func Run(ctx context.Context, model Model, opts RunOptions) (domain.StepResult, error) {
	last := model.Properties()
	res := domain.StepResult{
		Step:          last.Step,
		Changed:       last.Changed,
		BoundsReached: last.BoundsReached,
		Bound:         last.Bound,
		Maxima:        last.Maxima,
	}

	var runErr error
	for n := int64(0); opts.Steps == 0 || n < opts.Steps; n++ {
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}
		next, err := model.Step(ctx)
		if err != nil {
			runErr = err
			break
		}
		res = next
		if opts.OnStep != nil {
			opts.OnStep(res)
		}
		if !res.Changed {
			break
		}
		if opts.Store != nil && opts.BackupEvery > 0 && res.Step%opts.BackupEvery == 0 {
			if err := model.Backup(ctx, opts.Store); err != nil {
				return res, fmt.Errorf("backup at step %d failed: %w", res.Step, err)
			}
		}
	}

	if opts.Store != nil && (runErr == nil || ctx.Err() != nil) {
		if err := model.Backup(context.WithoutCancel(ctx), opts.Store); err != nil {
			return res, fmt.Errorf("final backup failed: %w", err)
		}
	}
	return res, runErr
}

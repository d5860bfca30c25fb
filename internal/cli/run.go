// Package cli implements the toppling commands on top of the library.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	toppling "github.com/JaumeRibas/Aether2DImgMaker-sub016"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/config"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/logging"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/presentation/tui"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
	"golang.org/x/term"
)

// RunOptions are the inputs shared by the run and restore commands.
type RunOptions struct {
	Config config.Config

	// Restore resumes the run saved in Config.Store instead of creating one. Mode and
	// Threads of Config override the saved ones when set.
	Restore bool

	Debug bool
	Quiet bool
	// ProgressEvery prints a status line every n steps.
	ProgressEvery int64
	Out           io.Writer
}

// Run creates or restores a model and steps it until it is stable, the step limit is
// reached, or ctx is canceled. An interrupted run is saved and is not an error.
func Run(ctx context.Context, opts RunOptions) (err error) {
	cfg := opts.Config
	if opts.Out == nil {
		opts.Out = os.Stdout
	}
	logger := createLogger(cfg.LogLevel, opts.Debug)

	work, err := OpenStore(ctx, cfg.Store, true)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := work.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()

	var backup ports.RunStore
	switch {
	case cfg.Backup.Kind != "":
		b, err := OpenStore(ctx, cfg.Backup, true)
		if err != nil {
			return err
		}
		defer b.Close(context.WithoutCancel(ctx))
		backup = b
	case cfg.Store.Kind != config.StoreMemory:
		backup = work
	}

	modelOpts := []toppling.Option{toppling.WithLogger(logger), toppling.WithStore(work)}
	if opts.Debug {
		modelOpts = append(modelOpts, toppling.WithHooks(debugHooks(logger)))
	}

	var model toppling.Model
	if opts.Restore {
		if cfg.Mode != "" {
			modelOpts = append(modelOpts, toppling.WithMode(domain.Mode(cfg.Mode)))
		}
		if cfg.Threads > 0 {
			modelOpts = append(modelOpts, toppling.WithThreads(cfg.Threads))
		}
		model, err = toppling.Restore(ctx, work, modelOpts...)
	} else {
		if err := cfg.Validate(); err != nil {
			return err
		}
		model, err = toppling.New(ctx, cfg.Model(), modelOpts...)
	}
	if err != nil {
		return err
	}
	defer func() {
		if cerr := model.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()

	if !opts.Quiet && isTerminal(opts.Out) {
		tui.PrintBanner(opts.Out)
	}
	runOpts := toppling.RunOptions{Steps: cfg.Steps, BackupEvery: cfg.BackupEvery, Store: backup}
	if !opts.Quiet {
		runOpts.OnStep = tui.NewProgress(opts.Out, opts.ProgressEvery).Step
	}

	res, err := toppling.Run(ctx, model, runOpts)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			return err
		}
		logger.Info("run interrupted", "step", res.Step, "signal", signalOf(ctx))
	}
	logger.Info("run finished", "step", res.Step, "bound", res.Bound, "changed", res.Changed)
	if !opts.Quiet {
		printSummary(opts.Out, model.Properties())
	}
	return nil
}

func printSummary(w io.Writer, props domain.Properties) {
	md := tui.Summary(props)
	if isTerminal(w) {
		if rendered, err := tui.NewRenderer()(md); err == nil {
			md = rendered
		}
	}
	fmt.Fprintln(w, md)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

func signalOf(ctx context.Context) string {
	if sc, ok := ctx.(*SignalContext); ok && sc.Signal() != nil {
		return sc.Signal().String()
	}
	return ""
}

// createLogger configures the application logger. Debug overrides the configured level.
func createLogger(level string, debug bool) *slog.Logger {
	if debug {
		return logging.New(slog.LevelDebug)
	}
	return logging.New(logging.ParseLevel(level))
}

func debugHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnd: func(_ context.Context, e *domain.StepEvent) {
			logger.Debug("step", "step", e.Step, "bound", e.Bound, "changed", e.Changed, "duration", e.Duration)
		},
		OnGrow: func(_ context.Context, e *domain.GrowEvent) {
			logger.Debug("grow", "step", e.Step, "bound", e.NewBound)
		},
	}
}

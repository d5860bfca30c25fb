package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	toppling "github.com/JaumeRibas/Aether2DImgMaker-sub016"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/config"
	httpAdapter "github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/adapters/http"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/observability"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// ServeOptions configures Serve.
type ServeOptions struct {
	Store    config.StoreConfig
	Addr     string
	LogLevel string
	Debug    bool

	// Steps, when positive, keeps stepping the run in the background while serving,
	// saving it every BackupEvery steps and when done.
	Steps       int64
	BackupEvery int64
}

// Serve restores the run saved in Store and answers HTTP queries about it until ctx is
// canceled.
func Serve(ctx context.Context, opts ServeOptions) (err error) {
	logger := createLogger(opts.LogLevel, opts.Debug)
	store, err := OpenStore(ctx, opts.Store, opts.Steps > 0)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := store.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics, err := observability.NewMetrics(reg)
	if err != nil {
		return err
	}

	lock := &sync.Mutex{}
	srv := httpAdapter.NewServer(nil,
		httpAdapter.WithLock(lock),
		httpAdapter.WithLogger(logger),
		httpAdapter.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
	)
	model, err := toppling.Restore(ctx, store,
		toppling.WithLogger(logger),
		toppling.WithHooks(metrics.Hooks()),
		toppling.WithHooks(srv.Hooks()),
	)
	if err != nil {
		return err
	}
	srv.Model = model
	defer func() {
		if cerr := model.Close(context.WithoutCancel(ctx)); cerr != nil && err == nil {
			err = cerr
		}
	}()

	httpSrv := &http.Server{Addr: opts.Addr, Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("serving run", "addr", opts.Addr, "run_id", model.Properties().RunID)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		if err := httpSrv.Shutdown(sctx); err != nil {
			logger.Warn("graceful shutdown did not complete", "error", err)
			return httpSrv.Close()
		}
		logger.Info("server stopped")
		return nil
	})
	if opts.Steps > 0 {
		g.Go(func() error {
			return stepInBackground(gctx, model, lock, opts.Steps, opts.BackupEvery, store)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// stepInBackground steps model under lock so that queries see whole steps only.
func stepInBackground(ctx context.Context, model toppling.Model, lock sync.Locker, steps, backupEvery int64, store ports.RunStore) error {
	for n := int64(0); n < steps; n++ {
		if ctx.Err() != nil {
			break
		}
		lock.Lock()
		res, err := model.Step(ctx)
		if err == nil && backupEvery > 0 && res.Step%backupEvery == 0 {
			err = model.Backup(ctx, store)
		}
		lock.Unlock()
		if err != nil {
			return err
		}
		if !res.Changed {
			break
		}
	}
	lock.Lock()
	defer lock.Unlock()
	return model.Backup(context.WithoutCancel(ctx), store)
}

package toppling

import (
	"context"
	"fmt"
	"math/big"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/arbitrary"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/engine"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
)

// buildArbitrary creates an arbitrary precision model, or restores it from src when props
// is set.
func buildArbitrary(ctx context.Context, cfg Config, s settings, src ports.RunStore, props *domain.Properties) (Model, error) {
	lat, err := lattice.New(cfg.Dimension)
	if err != nil {
		return nil, err
	}
	r, err := arbitrary.NewRule(cfg.Variant, cfg.Dimension)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("run_id", s.runID, "variant", cfg.Variant, "dimension", cfg.Dimension)
	eopts := []engine.Option{engine.WithLogger(logger), engine.WithHooks(s.hooks), engine.WithRunID(s.runID)}
	initial, background := big.NewInt(cfg.InitialValue), big.NewInt(cfg.Background)

	var e *arbitrary.Engine
	if props == nil {
		e = arbitrary.New(lat, r, initial, background, eopts...)
	} else {
		g, err := arbitrary.ImportGrid(ctx, lat, src, props.Bound)
		if err != nil {
			return nil, fmt.Errorf("failed to import grid: %w", err)
		}
		state := engine.State{
			Step:          props.Step,
			Changed:       props.Changed,
			BoundsReached: props.BoundsReached,
			Maxima:        append([]int(nil), props.Maxima...),
		}
		e = arbitrary.Restore(lat, r, g, state, background, eopts...)
	}
	logger.Info("run ready", "mode", cfg.Mode, "width", "arbitrary", "step", e.State().Step)
	return &bigModel{base: base{cfg: cfg, runID: s.runID, logger: logger}, engine: e}, nil
}

// bigModel steps arbitrary precision cells in memory.
type bigModel struct {
	base
	engine *arbitrary.Engine
}

func (m *bigModel) Step(ctx context.Context) (domain.StepResult, error) {
	return m.engine.Step(ctx)
}

func (m *bigModel) ValueAt(ctx context.Context, coord []int) (int64, error) {
	v, err := m.BigValueAt(ctx, coord)
	if err != nil {
		return 0, err
	}
	if !v.IsInt64() {
		return 0, fmt.Errorf("%w: %s at %v does not fit 64 bits", domain.ErrValueRange, v, coord)
	}
	return v.Int64(), nil
}

func (m *bigModel) BigValueAt(_ context.Context, coord []int) (*big.Int, error) {
	if err := m.checkCoord(coord); err != nil {
		return nil, err
	}
	return m.engine.ValueAt(coord), nil
}

func (m *bigModel) Properties() domain.Properties {
	return m.properties(m.engine.Result())
}

func (m *bigModel) Backup(ctx context.Context, store ports.RunStore) error {
	if err := arbitrary.ExportGrid(ctx, m.engine.Grid(), store, m.cfg.blockSize()); err != nil {
		return fmt.Errorf("failed to back up grid: %w", err)
	}
	if err := store.SaveProperties(ctx, m.Properties()); err != nil {
		return fmt.Errorf("failed to save run properties: %w", err)
	}
	m.logger.Info("run backed up", "step", m.engine.Result().Step)
	return nil
}

func (m *bigModel) Close(context.Context) error {
	return nil
}

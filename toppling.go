package toppling

import (
	"context"
	"fmt"
	"log/slog"
	"math/big"
	"runtime"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/engine"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/grid"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/logging"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/overflow"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/parallel"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/rule"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/swap"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/adapters/memory"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
	"github.com/google/uuid"
)

// Model is a running automaton. It is not safe for concurrent use.
type Model interface {
	// Step computes the next step.
	Step(ctx context.Context) (domain.StepResult, error)

	// ValueAt returns the value of any lattice cell, canonical or not. It fails with
	// domain.ErrValueRange when an arbitrary precision value does not fit 64 bits.
	ValueAt(ctx context.Context, coord []int) (int64, error)

	// BigValueAt returns the value of any lattice cell at any width.
	BigValueAt(ctx context.Context, coord []int) (*big.Int, error)

	// Properties describes the run after the last completed step.
	Properties() domain.Properties

	// Backup saves the blocks and then the properties of the run into store.
	Backup(ctx context.Context, store ports.RunStore) error

	// Close releases the model. Swap runs flush their blocks and save their properties.
	Close(ctx context.Context) error
}

// New creates a model holding cfg.InitialValue at the origin. Invalid or overflow-prone
// configurations are rejected before any grid is allocated.
func New(ctx context.Context, cfg Config, opts ...Option) (Model, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := Guard(cfg); err != nil {
		return nil, err
	}
	s := newSettings(opts)
	if s.runID == "" {
		s.runID = uuid.NewString()
	}
	switch cfg.Width {
	case WidthArbitrary:
		return buildArbitrary(ctx, cfg, s, nil, nil)
	case 16:
		return build[int16](ctx, cfg, s, nil, nil)
	case 32:
		return build[int32](ctx, cfg, s, nil, nil)
	default:
		return build[int64](ctx, cfg, s, nil, nil)
	}
}

// Restore resumes the run saved in store by Backup or Close.
func Restore(ctx context.Context, store ports.RunStore, opts ...Option) (Model, error) {
	props, err := store.LoadProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load run properties: %w", err)
	}
	if err := props.Validate(); err != nil {
		return nil, err
	}
	cfg := configFromProperties(props)
	s := newSettings(opts)
	if s.runID == "" {
		s.runID = props.RunID
	}
	if s.mode != "" {
		cfg.Mode = s.mode
	}
	switch {
	case s.threads > 0:
		cfg.Threads = s.threads
	case cfg.Mode == domain.ModeParallel:
		cfg.Threads = runtime.GOMAXPROCS(0)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrIncompatibleRun, err)
	}
	if err := Guard(cfg); err != nil {
		return nil, err
	}
	switch cfg.Width {
	case WidthArbitrary:
		return buildArbitrary(ctx, cfg, s, store, &props)
	case 16:
		return build[int16](ctx, cfg, s, store, &props)
	case 32:
		return build[int32](ctx, cfg, s, store, &props)
	default:
		return build[int64](ctx, cfg, s, store, &props)
	}
}

// Guard runs the overflow check for cfg. Arbitrary precision runs always pass.
func Guard(cfg Config) error {
	if cfg.Width == WidthArbitrary {
		return nil
	}
	if cfg.Variant == domain.VariantSIV {
		return overflow.CheckSIV(cfg.Dimension, cfg.Width, cfg.InitialValue, cfg.Background)
	}
	return overflow.CheckAether(cfg.Dimension, cfg.Width, cfg.InitialValue)
}

func newSettings(opts []Option) settings {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = logging.NewNop()
	}
	return s
}

// build creates a model, or restores it from src when props is set.
func build[V grid.Value](ctx context.Context, cfg Config, s settings, src ports.RunStore, props *domain.Properties) (Model, error) {
	lat, err := lattice.New(cfg.Dimension)
	if err != nil {
		return nil, err
	}
	factory, err := rule.NewFactory[V](cfg.Variant, cfg.Dimension)
	if err != nil {
		return nil, err
	}
	logger := s.logger.With("run_id", s.runID, "variant", cfg.Variant, "dimension", cfg.Dimension)
	eopts := []engine.Option{engine.WithLogger(logger), engine.WithHooks(s.hooks), engine.WithRunID(s.runID)}
	b := base{cfg: cfg, runID: s.runID, logger: logger}
	initial, background := V(cfg.InitialValue), V(cfg.Background)

	var state engine.State
	if props != nil {
		state = engine.State{
			Step:          props.Step,
			Changed:       props.Changed,
			BoundsReached: props.BoundsReached,
			Maxima:        append([]int(nil), props.Maxima...),
		}
	}

	if cfg.Mode == domain.ModeSwap {
		store := s.store
		if store == nil {
			if src != nil {
				store = src
			} else {
				store = memory.NewStore()
			}
		}
		var m *swap.Manager[V]
		if props == nil {
			m, err = swap.New(ctx, lat, factory(), initial, background, store, cfg.blockSize(), eopts...)
		} else {
			if store != src {
				if err := swap.CopyBlocks(ctx, src, store); err != nil {
					return nil, err
				}
			}
			m, err = swap.Restore(ctx, lat, factory(), background, store, cfg.blockSize(), props.Bound, state, eopts...)
		}
		if err != nil {
			return nil, err
		}
		logger.Info("swap run ready", "step", state.Step, "block_size_bytes", cfg.blockSize())
		return &swapModel[V]{base: b, manager: m, store: store}, nil
	}

	var strategy engine.Strategy[V]
	if cfg.Mode == domain.ModeParallel {
		strategy = parallel.New(lat, cfg.Threads, factory, background)
	} else {
		strategy = engine.NewSequential(lat, factory(), background)
	}
	var e *engine.Engine[V]
	if props == nil {
		e = engine.New(lat, strategy, initial, background, eopts...)
	} else {
		g, err := swap.ImportGrid[V](ctx, lat, src, props.Bound)
		if err != nil {
			return nil, fmt.Errorf("failed to import grid: %w", err)
		}
		e = engine.Restore(lat, strategy, g, state, background, eopts...)
	}
	logger.Info("run ready", "mode", cfg.Mode, "step", state.Step, "threads", cfg.Threads)
	return &memoryModel[V]{base: b, engine: e}, nil
}

type base struct {
	cfg    Config
	runID  string
	logger *slog.Logger
}

func (b base) properties(res domain.StepResult) domain.Properties {
	return domain.Properties{
		RunID:         b.runID,
		Variant:       b.cfg.Variant,
		Dimension:     b.cfg.Dimension,
		Width:         b.cfg.Width,
		InitialValue:  b.cfg.InitialValue,
		Background:    b.cfg.Background,
		Step:          res.Step,
		Bound:         res.Bound,
		Maxima:        res.Maxima,
		BoundsReached: res.BoundsReached,
		Changed:       res.Changed,
		BlockSize:     b.cfg.blockSize(),
		Mode:          b.cfg.Mode,
	}
}

func (b base) checkCoord(coord []int) error {
	if len(coord) != b.cfg.Dimension {
		return fmt.Errorf("%w: coordinate %v for a %d-dimensional run", domain.ErrInvalidDimension, coord, b.cfg.Dimension)
	}
	return nil
}

// memoryModel backs the memory and parallel modes.
type memoryModel[V grid.Value] struct {
	base
	engine *engine.Engine[V]
}

func (m *memoryModel[V]) Step(ctx context.Context) (domain.StepResult, error) {
	return m.engine.Step(ctx)
}

func (m *memoryModel[V]) ValueAt(_ context.Context, coord []int) (int64, error) {
	if err := m.checkCoord(coord); err != nil {
		return 0, err
	}
	return int64(m.engine.ValueAt(coord)), nil
}

func (m *memoryModel[V]) BigValueAt(ctx context.Context, coord []int) (*big.Int, error) {
	v, err := m.ValueAt(ctx, coord)
	if err != nil {
		return nil, err
	}
	return big.NewInt(v), nil
}

func (m *memoryModel[V]) Properties() domain.Properties {
	return m.properties(m.engine.Result())
}

func (m *memoryModel[V]) Backup(ctx context.Context, store ports.RunStore) error {
	if err := swap.ExportGrid(ctx, m.engine.Grid(), store, m.cfg.blockSize()); err != nil {
		return fmt.Errorf("failed to back up grid: %w", err)
	}
	if err := store.SaveProperties(ctx, m.Properties()); err != nil {
		return fmt.Errorf("failed to save run properties: %w", err)
	}
	m.logger.Info("run backed up", "step", m.engine.Result().Step)
	return nil
}

func (m *memoryModel[V]) Close(context.Context) error {
	return nil
}

type swapModel[V grid.Value] struct {
	base
	manager *swap.Manager[V]
	store   ports.RunStore
}

func (m *swapModel[V]) Step(ctx context.Context) (domain.StepResult, error) {
	return m.manager.Step(ctx)
}

func (m *swapModel[V]) ValueAt(ctx context.Context, coord []int) (int64, error) {
	if err := m.checkCoord(coord); err != nil {
		return 0, err
	}
	v, err := m.manager.ValueAt(ctx, coord)
	return int64(v), err
}

func (m *swapModel[V]) BigValueAt(ctx context.Context, coord []int) (*big.Int, error) {
	v, err := m.ValueAt(ctx, coord)
	if err != nil {
		return nil, err
	}
	return big.NewInt(v), nil
}

func (m *swapModel[V]) Properties() domain.Properties {
	return m.properties(m.manager.Result())
}

func (m *swapModel[V]) Backup(ctx context.Context, store ports.RunStore) error {
	if err := m.manager.Backup(ctx, store); err != nil {
		return fmt.Errorf("failed to back up blocks: %w", err)
	}
	if err := store.SaveProperties(ctx, m.Properties()); err != nil {
		return fmt.Errorf("failed to save run properties: %w", err)
	}
	m.logger.Info("run backed up", "step", m.manager.Result().Step)
	return nil
}

func (m *swapModel[V]) Close(ctx context.Context) error {
	if err := m.manager.Flush(ctx); err != nil {
		return err
	}
	return m.store.SaveProperties(ctx, m.Properties())
}

// MinInitialValue returns the most negative initial value an Aether run of the given
// dimension and cell width accepts.
func MinInitialValue(dim, width int) (*big.Int, error) {
	max, err := overflow.MaxValue(width)
	if err != nil {
		return nil, err
	}
	return overflow.MinSingleSource(dim, max)
}

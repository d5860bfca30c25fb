package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/grid"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/rule"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// InitialBound is the bound of a freshly seeded domain: two plies of margin around the origin.
const InitialBound = 2

// Strategy computes the next step of src into dst. dst is zeroed, except for a slice added by
// growth, which holds the background.
type Strategy[V grid.Value] interface {
	Compute(ctx context.Context, src, dst *grid.Grid[V]) (Result, error)
}

// Sequential topples every slice in order with a single stepper.
type Sequential[V grid.Value] struct {
	stepper *Stepper[V]
}

// NewSequential returns the single-worker strategy.
func NewSequential[V grid.Value](lat *lattice.Lattice, r rule.Rule[V], background V) *Sequential[V] {
	return &Sequential[V]{stepper: NewStepper(lat, r, background)}
}

// Compute implements Strategy.
func (s *Sequential[V]) Compute(_ context.Context, src, dst *grid.Grid[V]) (Result, error) {
	res := NewResult(src.Dimension())
	for x := 0; x <= src.Bound(); x++ {
		s.stepper.ToppleSlice(src, x, dst, &res)
	}
	return res, nil
}

// State is the step bookkeeping that survives a backup.
type State struct {
	Step          int64
	Changed       bool
	BoundsReached bool
	Maxima        []int
}

// Engine steps a fully resident grid.
type Engine[V grid.Value] struct {
	lat        *lattice.Lattice
	strategy   Strategy[V]
	background V
	settings   Settings

	current *grid.Grid[V]
	spare   *grid.Grid[V]
	state   State
}

// New seeds a grid holding initial at the origin and background everywhere else.
func New[V grid.Value](lat *lattice.Lattice, strategy Strategy[V], initial, background V, opts ...Option) *Engine[V] {
	g := grid.New(lat, InitialBound, background)
	g.Set(make([]int, lat.Dimension()), initial)
	return Restore(lat, strategy, g, State{Maxima: make([]int, lat.Dimension())}, background, opts...)
}

// Restore resumes stepping from a previously computed grid.
func Restore[V grid.Value](lat *lattice.Lattice, strategy Strategy[V], g *grid.Grid[V], state State, background V, opts ...Option) *Engine[V] {
	if state.Maxima == nil {
		state.Maxima = make([]int, lat.Dimension())
	}
	return &Engine[V]{
		lat:        lat,
		strategy:   strategy,
		background: background,
		settings:   NewSettings(opts...),
		current:    g,
		state:      state,
	}
}

// Step computes the next step. On error the committed grid is left untouched.
func (e *Engine[V]) Step(ctx context.Context) (domain.StepResult, error) {
	start := time.Now()
	bound := e.current.Bound()
	if h := e.settings.Hooks.OnStepStart; h != nil {
		h(ctx, &domain.StepEvent{
			EventBase: domain.EventBase{Timestamp: start, Type: domain.EventStepStart, RunID: e.settings.RunID},
			Step:      e.state.Step + 1,
			Bound:     bound,
		})
	}

	grow := e.state.BoundsReached
	dst := e.spare
	e.spare = nil
	if dst == nil {
		dst = grid.New[V](e.lat, bound, 0)
	} else {
		dst.Reset(bound, 0)
	}
	if grow {
		dst.Grow(e.background)
	}

	res, err := e.strategy.Compute(ctx, e.current, dst)
	if err != nil {
		e.spare = dst
		return domain.StepResult{}, fmt.Errorf("failed to compute step %d: %w", e.state.Step+1, err)
	}

	e.spare, e.current = e.current, dst
	e.state.Step++
	e.state.Changed = res.Changed
	e.state.BoundsReached = res.BoundsReached
	mergeMaxima(e.state.Maxima, res.Maxima)

	if grow {
		e.settings.Logger.Debug("domain grown", "step", e.state.Step, "bound", dst.Bound())
		if h := e.settings.Hooks.OnGrow; h != nil {
			h(ctx, &domain.GrowEvent{
				EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventGrow, RunID: e.settings.RunID},
				Step:      e.state.Step,
				OldBound:  bound,
				NewBound:  dst.Bound(),
			})
		}
	}
	out := e.Result()
	if h := e.settings.Hooks.OnStepEnd; h != nil {
		h(ctx, &domain.StepEvent{
			EventBase: domain.EventBase{Timestamp: time.Now(), Type: domain.EventStepEnd, RunID: e.settings.RunID},
			Step:      out.Step,
			Bound:     out.Bound,
			Changed:   out.Changed,
			Duration:  time.Since(start),
		})
	}
	return out, nil
}

// Result reports the state after the last completed step.
func (e *Engine[V]) Result() domain.StepResult {
	return domain.StepResult{
		Step:          e.state.Step,
		Changed:       e.state.Changed,
		BoundsReached: e.state.BoundsReached,
		Bound:         e.current.Bound(),
		Maxima:        append([]int(nil), e.state.Maxima...),
	}
}

// State returns a copy of the step bookkeeping.
func (e *Engine[V]) State() State {
	s := e.state
	s.Maxima = append([]int(nil), e.state.Maxima...)
	return s
}

// Grid returns the committed grid. It must not be modified.
func (e *Engine[V]) Grid() *grid.Grid[V] {
	return e.current
}

// ValueAt returns the value of any lattice cell.
func (e *Engine[V]) ValueAt(coord []int) V {
	c, _ := lattice.Canonicalize(nil, coord)
	if c[0] > e.current.Bound() {
		return e.background
	}
	return e.current.Get(c)
}

func mergeMaxima(dst, src []int) {
	for i, m := range src {
		if m > dst[i] {
			dst[i] = m
		}
	}
}

package arbitrary

import (
	"context"
	"math/big"
	"time"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/engine"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// Engine steps a fully resident grid of arbitrary precision cells on one goroutine. It is not
// safe for concurrent use.
type Engine struct {
	lat        *lattice.Lattice
	rule       Rule
	folder     *lattice.Folder
	background big.Int
	settings   engine.Settings

	current *Grid
	spare   *Grid
	state   engine.State

	coord     []int
	folds     []lattice.Fold
	neighbors []Neighbor
	dst       *Grid
	res       *engine.Result
	emit      Emit
}

// New seeds a grid holding initial at the origin and background everywhere else.
func New(lat *lattice.Lattice, r Rule, initial, background *big.Int, opts ...engine.Option) *Engine {
	g := NewGrid(lat, engine.InitialBound, background)
	g.Cell(make([]int, lat.Dimension())).Set(initial)
	return Restore(lat, r, g, engine.State{Maxima: make([]int, lat.Dimension())}, background, opts...)
}

// Restore resumes stepping from a previously computed grid.
func Restore(lat *lattice.Lattice, r Rule, g *Grid, state engine.State, background *big.Int, opts ...engine.Option) *Engine {
	if state.Maxima == nil {
		state.Maxima = make([]int, lat.Dimension())
	}
	e := &Engine{
		lat:       lat,
		rule:      r,
		folder:    lat.NewFolder(),
		settings:  engine.NewSettings(opts...),
		current:   g,
		state:     state,
		coord:     make([]int, lat.Dimension()),
		neighbors: make([]Neighbor, 0, 2*lat.Dimension()),
	}
	e.background.Set(background)
	e.emit = e.deliver
	return e
}

// Step computes the next step. Canceling ctx before the step returns its error.
func (e *Engine) Step(ctx context.Context) (domain.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.StepResult{}, err
	}
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
	if dst == nil {
		dst = NewGrid(e.lat, bound, new(big.Int))
	} else {
		dst.reset(bound)
	}
	if grow {
		dst.grow(&e.background)
	}
	res := engine.NewResult(e.lat.Dimension())
	for x := 0; x <= bound; x++ {
		e.toppleSlice(x, dst, &res)
	}

	e.spare, e.current = e.current, dst
	e.state.Step++
	e.state.Changed = res.Changed
	e.state.BoundsReached = res.BoundsReached
	for i, m := range res.Maxima {
		e.state.Maxima[i] = max(e.state.Maxima[i], m)
	}

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

// toppleSlice topples every cell of slice x of the current grid into dst.
func (e *Engine) toppleSlice(x int, dst *Grid, res *engine.Result) {
	src := e.current
	bound := src.Bound()
	cur := src.Slice(x)
	next := dst.Slice(x)
	nearEdge := x >= bound-1
	e.dst, e.res = dst, res
	defer func() { e.dst, e.res = nil, nil }()

	clear(e.coord)
	e.coord[0] = x
	tail := e.coord[1:]
	for r := range cur {
		e.folds = e.folder.Folds(e.coord)
		e.neighbors = e.neighbors[:0]
		for _, f := range e.folds {
			e.neighbors = append(e.neighbors, Neighbor{
				Value:      e.read(f.Target, bound),
				Symmetry:   f.Symmetry,
				Multiplier: f.Multiplier,
			})
		}
		keep, toppled := e.rule.Topple(&cur[r], e.neighbors, e.emit)
		next[r].Add(&next[r], keep)
		if toppled {
			res.Changed = true
			if nearEdge {
				res.BoundsReached = true
			}
		}
		lattice.NextTail(tail, x)
	}
}

func (e *Engine) read(t []int, bound int) *big.Int {
	if t[0] > bound {
		return &e.background
	}
	return &e.current.Slice(t[0])[e.lat.Rank(t[1:])]
}

func (e *Engine) deliver(i int, amount *big.Int) {
	t := e.folds[i].Target
	cell := &e.dst.Slice(t[0])[e.lat.Rank(t[1:])]
	cell.Add(cell, amount)
	for axis, c := range t {
		if c > e.res.Maxima[axis] {
			e.res.Maxima[axis] = c
		}
	}
}

// Result reports the state after the last completed step.
func (e *Engine) Result() domain.StepResult {
	return domain.StepResult{
		Step:          e.state.Step,
		Changed:       e.state.Changed,
		BoundsReached: e.state.BoundsReached,
		Bound:         e.current.Bound(),
		Maxima:        append([]int(nil), e.state.Maxima...),
	}
}

// State returns a copy of the step bookkeeping.
func (e *Engine) State() engine.State {
	s := e.state
	s.Maxima = append([]int(nil), e.state.Maxima...)
	return s
}

// Grid returns the committed grid. It must not be modified.
func (e *Engine) Grid() *Grid {
	return e.current
}

// ValueAt returns a copy of the value of any lattice cell.
func (e *Engine) ValueAt(coord []int) *big.Int {
	c, _ := lattice.Canonicalize(nil, coord)
	if c[0] > e.current.Bound() {
		return new(big.Int).Set(&e.background)
	}
	return new(big.Int).Set(e.current.Cell(c))
}

package parallel

import (
	"context"
	"sync"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/engine"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/grid"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/rule"
	"golang.org/x/sync/errgroup"
)

// Strategy computes a step with up to Threads workers. It implements engine.Strategy.
type Strategy[V grid.Value] struct {
	lat        *lattice.Lattice
	threads    int
	newRule    rule.Factory[V]
	background V
	steppers   []*engine.Stepper[V]
}

// New returns a strategy running up to threads workers.
func New[V grid.Value](lat *lattice.Lattice, threads int, newRule rule.Factory[V], background V) *Strategy[V] {
	if threads < 1 {
		threads = 1
	}
	return &Strategy[V]{lat: lat, threads: threads, newRule: newRule, background: background}
}

func (s *Strategy[V]) stepper(i int) *engine.Stepper[V] {
	for len(s.steppers) <= i {
		s.steppers = append(s.steppers, engine.NewStepper(s.lat, s.newRule(), s.background))
	}
	return s.steppers[i]
}

// Compute implements engine.Strategy. Workers share the read-only source grid. The next-step
// slices on both sides of every range boundary are written by two workers and are guarded
// by one mutex each; every other slice has a single writer.
func (s *Strategy[V]) Compute(ctx context.Context, src, dst *grid.Grid[V]) (engine.Result, error) {
	ranges := Partition(s.lat, src.Bound(), s.threads)
	if len(ranges) == 1 {
		res := engine.NewResult(s.lat.Dimension())
		st := s.stepper(0)
		for x := 0; x <= src.Bound(); x++ {
			st.ToppleSlice(src, x, dst, &res)
		}
		return res, nil
	}

	guards := make(map[int]*sync.Mutex, 2*(len(ranges)-1))
	for _, r := range ranges[:len(ranges)-1] {
		guards[r[1]] = &sync.Mutex{}
		guards[r[1]+1] = &sync.Mutex{}
	}

	results := make([]engine.Result, len(ranges))
	for i := range ranges {
		s.stepper(i)
	}
	g, _ := errgroup.WithContext(ctx)
	for i, r := range ranges {
		st := s.steppers[i]
		g.Go(func() error {
			res := engine.NewResult(s.lat.Dimension())
			held := make([]*sync.Mutex, 0, 3)
			for x := r[0]; x <= r[1]; x++ {
				held = held[:0]
				// ascending order: no two workers wait on each other
				for y := x - 1; y <= x+1; y++ {
					if m := guards[y]; m != nil {
						m.Lock()
						held = append(held, m)
					}
				}
				st.ToppleSlice(src, x, dst, &res)
				for _, m := range held {
					m.Unlock()
				}
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return engine.Result{}, err
	}

	res := engine.NewResult(s.lat.Dimension())
	for _, r := range results {
		res.Merge(r)
	}
	return res, nil
}

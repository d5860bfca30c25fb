// Package engine computes toppling steps over the canonical domain.
//
// A Stepper topples one source slice at a time, reading the previous step through a Source
// and accumulating the next step into a Target. Engine drives a whole in-memory grid, either
// sequentially or through a pluggable Strategy.
package engine

import (
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/grid"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/rule"
)

// Source is the read-only previous step. Slices 0..Bound must be reachable; cells beyond
// Bound hold the background.
type Source[V grid.Value] interface {
	Bound() int
	Slice(i int) []V
}

// Target receives the next step. Slice(i) must return a slice the stepper may add into.
type Target[V grid.Value] interface {
	Slice(i int) []V
}

// Result summarizes the toppling of one or more slices.
type Result struct {
	Changed       bool
	BoundsReached bool
	Maxima        []int
}

// NewResult returns an empty result for the given dimension.
func NewResult(dim int) Result {
	return Result{Maxima: make([]int, dim)}
}

// Merge folds other into r.
func (r *Result) Merge(other Result) {
	r.Changed = r.Changed || other.Changed
	r.BoundsReached = r.BoundsReached || other.BoundsReached
	for i, m := range other.Maxima {
		if m > r.Maxima[i] {
			r.Maxima[i] = m
		}
	}
}

// Stepper topples cells of the canonical domain. It is not safe for concurrent use.
type Stepper[V grid.Value] struct {
	lat        *lattice.Lattice
	rule       rule.Rule[V]
	folder     *lattice.Folder
	background V

	coord     []int
	folds     []lattice.Fold
	neighbors []rule.Neighbor[V]
	dst       Target[V]
	res       *Result
	emit      rule.Emit[V]
}

// NewStepper returns a stepper applying r on lat, reading background beyond the source bound.
func NewStepper[V grid.Value](lat *lattice.Lattice, r rule.Rule[V], background V) *Stepper[V] {
	s := &Stepper[V]{
		lat:        lat,
		rule:       r,
		folder:     lat.NewFolder(),
		background: background,
		coord:      make([]int, lat.Dimension()),
		neighbors:  make([]rule.Neighbor[V], 0, 2*lat.Dimension()),
	}
	s.emit = s.deliver
	return s
}

// ToppleSlice topples every cell of source slice x. The next-step slices x-1, x and x+1 of
// dst receive the results; res accumulates the flags and maxima.
func (s *Stepper[V]) ToppleSlice(src Source[V], x int, dst Target[V], res *Result) {
	bound := src.Bound()
	cur := src.Slice(x)
	next := dst.Slice(x)
	nearEdge := x >= bound-1
	s.dst, s.res = dst, res
	defer func() { s.dst, s.res = nil, nil }()

	clear(s.coord)
	s.coord[0] = x
	tail := s.coord[1:]
	for r, v := range cur {
		s.folds = s.folder.Folds(s.coord)
		s.neighbors = s.neighbors[:0]
		for _, f := range s.folds {
			s.neighbors = append(s.neighbors, rule.Neighbor[V]{
				Value:      s.read(src, f.Target, bound),
				Symmetry:   f.Symmetry,
				Multiplier: f.Multiplier,
			})
		}
		keep, toppled := s.rule.Topple(v, s.neighbors, s.emit)
		next[r] += keep
		if toppled {
			res.Changed = true
			if nearEdge {
				res.BoundsReached = true
			}
		}
		lattice.NextTail(tail, x)
	}
}

func (s *Stepper[V]) read(src Source[V], t []int, bound int) V {
	if t[0] > bound {
		return s.background
	}
	return src.Slice(t[0])[s.lat.Rank(t[1:])]
}

func (s *Stepper[V]) deliver(i int, amount V) {
	t := s.folds[i].Target
	s.dst.Slice(t[0])[s.lat.Rank(t[1:])] += amount
	for axis, c := range t {
		if c > s.res.Maxima[axis] {
			s.res.Maxima[axis] = c
		}
	}
}

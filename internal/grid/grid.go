// Package grid stores the fundamental domain of a toppling run as a list of slices, one per
// leading coordinate.
package grid

import (
	"fmt"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
)

// Value is the set of cell value types.
type Value interface {
	~int16 | ~int32 | ~int64
}

// Grid holds canonical cells with leading coordinate 0..Bound.
type Grid[V Value] struct {
	lat    *lattice.Lattice
	slices [][]V
}

// New returns a grid of the given bound with every cell set to fill.
func New[V Value](lat *lattice.Lattice, bound int, fill V) *Grid[V] {
	g := &Grid[V]{lat: lat, slices: make([][]V, 0, bound+2)}
	for i := 0; i <= bound; i++ {
		g.slices = append(g.slices, NewSlice(lat, i, fill))
	}
	return g
}

// FromSlices wraps already built slices. Slice i must hold lat.SliceSize(i) cells.
func FromSlices[V Value](lat *lattice.Lattice, slices [][]V) (*Grid[V], error) {
	for i, s := range slices {
		if len(s) != lat.SliceSize(i) {
			return nil, fmt.Errorf("slice %d holds %d cells, want %d", i, len(s), lat.SliceSize(i))
		}
	}
	return &Grid[V]{lat: lat, slices: slices}, nil
}

// NewSlice returns slice i with every cell set to fill.
func NewSlice[V Value](lat *lattice.Lattice, i int, fill V) []V {
	s := make([]V, lat.SliceSize(i))
	if fill != 0 {
		for j := range s {
			s[j] = fill
		}
	}
	return s
}

// Lattice returns the lattice the grid is laid out for.
func (g *Grid[V]) Lattice() *lattice.Lattice {
	return g.lat
}

// Dimension returns the lattice dimension.
func (g *Grid[V]) Dimension() int {
	return g.lat.Dimension()
}

// Bound returns the largest leading coordinate held.
func (g *Grid[V]) Bound() int {
	return len(g.slices) - 1
}

// Slice returns slice i. It panics when i is outside the domain.
func (g *Grid[V]) Slice(i int) []V {
	if i < 0 || i >= len(g.slices) {
		panic(fmt.Sprintf("grid: slice %d outside domain [0, %d]", i, len(g.slices)-1))
	}
	return g.slices[i]
}

// SetSlice replaces slice i.
func (g *Grid[V]) SetSlice(i int, s []V) {
	if len(s) != g.lat.SliceSize(i) {
		panic(fmt.Sprintf("grid: slice %d holds %d cells, want %d", i, len(s), g.lat.SliceSize(i)))
	}
	g.slices[i] = s
}

// Grow appends one slice filled with fill. Existing slices are kept as they are.
func (g *Grid[V]) Grow(fill V) {
	g.slices = append(g.slices, NewSlice(g.lat, len(g.slices), fill))
}

// Reset resizes the grid to bound and sets every cell to fill, reusing the existing storage.
func (g *Grid[V]) Reset(bound int, fill V) {
	if len(g.slices) > bound+1 {
		g.slices = g.slices[:bound+1]
	}
	for i := range g.slices {
		s := g.slices[i]
		for j := range s {
			s[j] = fill
		}
	}
	for len(g.slices) <= bound {
		g.Grow(fill)
	}
}

func (g *Grid[V]) index(c []int) (int, int) {
	if len(c) != g.lat.Dimension() || !lattice.IsCanonical(c) {
		panic(fmt.Sprintf("grid: %v is not a canonical %d-dimensional coordinate", c, g.lat.Dimension()))
	}
	if c[0] >= len(g.slices) {
		panic(fmt.Sprintf("grid: %v outside domain [0, %d]", c, len(g.slices)-1))
	}
	return c[0], g.lat.Rank(c[1:])
}

// Get returns the value of the canonical cell c.
func (g *Grid[V]) Get(c []int) V {
	i, r := g.index(c)
	return g.slices[i][r]
}

// Set stores v at the canonical cell c.
func (g *Grid[V]) Set(c []int, v V) {
	i, r := g.index(c)
	g.slices[i][r] = v
}

// Add adds delta to the canonical cell c.
func (g *Grid[V]) Add(c []int, delta V) {
	i, r := g.index(c)
	g.slices[i][r] += delta
}

// Clone returns a deep copy.
func (g *Grid[V]) Clone() *Grid[V] {
	c := &Grid[V]{lat: g.lat, slices: make([][]V, len(g.slices), cap(g.slices))}
	for i, s := range g.slices {
		c.slices[i] = append([]V(nil), s...)
	}
	return c
}

// Each calls fn for every canonical cell in rank order. c is reused between calls.
func (g *Grid[V]) Each(fn func(c []int, v V)) {
	c := make([]int, g.lat.Dimension())
	for i, s := range g.slices {
		clear(c)
		c[0] = i
		for _, v := range s {
			fn(c, v)
			lattice.NextTail(c[1:], i)
		}
	}
}

// Total returns the sum over the whole lattice, each canonical cell weighted by its orbit.
func (g *Grid[V]) Total() int64 {
	var total int64
	g.Each(func(c []int, v V) {
		total += int64(v) * int64(lattice.OrbitSize(c))
	})
	return total
}

// Package arbitrary steps runs whose cells hold arbitrary precision integers. It mirrors the
// fixed-width engine on math/big values: same canonical domain, same rules, same block layout
// for backups, so no configuration ever has to be rejected for overflow.
package arbitrary

import (
	"fmt"
	"math/big"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
)

// Grid holds canonical cells with leading coordinate 0..Bound. Cells are addressed in place
// and must never be copied by value.
type Grid struct {
	lat    *lattice.Lattice
	slices [][]big.Int
}

// NewGrid returns a grid of the given bound with every cell set to fill.
func NewGrid(lat *lattice.Lattice, bound int, fill *big.Int) *Grid {
	g := &Grid{lat: lat, slices: make([][]big.Int, 0, bound+2)}
	for i := 0; i <= bound; i++ {
		g.slices = append(g.slices, NewSlice(lat, i, fill))
	}
	return g
}

// FromSlices wraps already built slices. Slice i must hold lat.SliceSize(i) cells.
func FromSlices(lat *lattice.Lattice, slices [][]big.Int) (*Grid, error) {
	for i, s := range slices {
		if len(s) != lat.SliceSize(i) {
			return nil, fmt.Errorf("slice %d holds %d cells, want %d", i, len(s), lat.SliceSize(i))
		}
	}
	return &Grid{lat: lat, slices: slices}, nil
}

// NewSlice returns slice i with every cell set to fill.
func NewSlice(lat *lattice.Lattice, i int, fill *big.Int) []big.Int {
	s := make([]big.Int, lat.SliceSize(i))
	if fill.Sign() != 0 {
		for j := range s {
			s[j].Set(fill)
		}
	}
	return s
}

// Lattice returns the lattice the grid is laid out for.
func (g *Grid) Lattice() *lattice.Lattice {
	return g.lat
}

// Bound returns the largest leading coordinate held.
func (g *Grid) Bound() int {
	return len(g.slices) - 1
}

// Slice returns slice i. It panics when i is outside the domain.
func (g *Grid) Slice(i int) []big.Int {
	if i < 0 || i >= len(g.slices) {
		panic(fmt.Sprintf("arbitrary: slice %d outside domain [0, %d]", i, len(g.slices)-1))
	}
	return g.slices[i]
}

// Cell returns the canonical cell c in place.
func (g *Grid) Cell(c []int) *big.Int {
	if len(c) != g.lat.Dimension() || !lattice.IsCanonical(c) {
		panic(fmt.Sprintf("arbitrary: %v is not a canonical %d-dimensional coordinate", c, g.lat.Dimension()))
	}
	return &g.Slice(c[0])[g.lat.Rank(c[1:])]
}

func (g *Grid) grow(fill *big.Int) {
	g.slices = append(g.slices, NewSlice(g.lat, len(g.slices), fill))
}

// reset resizes the grid to bound and zeroes every cell, keeping the allocated words.
func (g *Grid) reset(bound int) {
	if len(g.slices) > bound+1 {
		g.slices = g.slices[:bound+1]
	}
	for _, s := range g.slices {
		for j := range s {
			s[j].SetInt64(0)
		}
	}
	zero := new(big.Int)
	for len(g.slices) <= bound {
		g.grow(zero)
	}
}

// Total returns the sum over the whole lattice, each canonical cell weighted by its orbit.
func (g *Grid) Total() *big.Int {
	total, term := new(big.Int), new(big.Int)
	c := make([]int, g.lat.Dimension())
	for i, s := range g.slices {
		clear(c)
		c[0] = i
		for j := range s {
			term.SetInt64(int64(lattice.OrbitSize(c)))
			total.Add(total, term.Mul(term, &s[j]))
			lattice.NextTail(c[1:], i)
		}
	}
	return total
}

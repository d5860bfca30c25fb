// Package reference is a straightforward dense implementation of the toppling rules. It
// stores the whole hypercube around the origin and applies the rules to every lattice cell
// without using any symmetry. It exists to cross-check the canonical engines.
package reference

import (
	"fmt"
	"slices"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/grid"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

const initialSide = 5

// Model is a dense toppling automaton.
type Model[V grid.Value] struct {
	variant    domain.Variant
	dim        int
	background V

	side          int
	origin        int
	cells         []V
	strides       []int
	step          int64
	boundsReached bool
}

// New returns a dense model with initial at the origin.
func New[V grid.Value](variant domain.Variant, dim int, initial, background V) (*Model[V], error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("%w: unknown variant %q", domain.ErrInvalidConfig, variant)
	}
	if dim < 1 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidDimension, dim)
	}
	if variant == domain.VariantAether {
		background = 0
	}
	m := &Model[V]{variant: variant, dim: dim, background: background}
	m.cells, m.strides = allocate[V](dim, initialSide)
	m.side = initialSide
	m.origin = initialSide / 2
	for i := range m.cells {
		m.cells[i] = background
	}
	center := 0
	for _, s := range m.strides {
		center += m.origin * s
	}
	m.cells[center] = initial
	return m, nil
}

func allocate[V grid.Value](dim, side int) ([]V, []int) {
	strides := make([]int, dim)
	size := 1
	for k := dim - 1; k >= 0; k-- {
		strides[k] = size
		size *= side
	}
	return make([]V, size), strides
}

// Step computes the next step and reports whether any cell changed.
func (m *Model[V]) Step() bool {
	side, offset := m.side, 0
	if m.boundsReached {
		m.boundsReached = false
		side, offset = m.side+2, 1
	}
	next, nextStrides := allocate[V](m.dim, side)
	if offset == 1 && m.variant == domain.VariantSIV && m.background != 0 {
		padEdges(next, nextStrides, side, m.background)
	}

	pos := make([]int, m.dim)
	changed := false
	for idx, v := range m.cells {
		newIdx := 0
		for k, p := range pos {
			newIdx += (p + offset) * nextStrides[k]
		}
		var c bool
		if m.variant == domain.VariantAether {
			c = m.aether(idx, pos, v, next, newIdx, nextStrides)
		} else {
			c = m.siv(idx, pos, v, next, newIdx, nextStrides)
		}
		changed = changed || c
		advance(pos, m.side)
	}

	m.cells, m.strides, m.side = next, nextStrides, side
	m.origin += offset
	m.step++
	return changed
}

func (m *Model[V]) aether(idx int, pos []int, v V, next []V, newIdx int, nextStrides []int) bool {
	type neighbor struct {
		value V
		index int
	}
	relevant := make([]neighbor, 0, 2*m.dim)
	closeToEdge := false
	for k, p := range pos {
		if p <= 1 || p >= m.side-2 {
			closeToEdge = true
		}
		var upper, lower V
		if p < m.side-1 {
			upper = m.cells[idx+m.strides[k]]
		}
		if p > 0 {
			lower = m.cells[idx-m.strides[k]]
		}
		if upper < v {
			relevant = append(relevant, neighbor{upper, newIdx + nextStrides[k]})
		}
		if lower < v {
			relevant = append(relevant, neighbor{lower, newIdx - nextStrides[k]})
		}
	}

	changed := false
	if len(relevant) > 0 {
		slices.SortStableFunc(relevant, func(a, b neighbor) int {
			switch {
			case a.value > b.value:
				return -1
			case a.value < b.value:
				return 1
			}
			return 0
		})
		shareCount := V(len(relevant) + 1)
		for i := 0; i < len(relevant); i, shareCount = i+1, shareCount-1 {
			g := relevant[i].value
			if i > 0 && g == relevant[i-1].value {
				continue
			}
			toShare := v - g
			share := toShare / shareCount
			if share != 0 {
				if closeToEdge {
					m.boundsReached = true
				}
				changed = true
				v = v - toShare + toShare%shareCount + share
				for _, n := range relevant[i:] {
					next[n.index] += share
				}
			}
		}
	}
	next[newIdx] += v
	return changed
}

func (m *Model[V]) siv(idx int, pos []int, v V, next []V, newIdx int, nextStrides []int) bool {
	if v == 0 {
		return false
	}
	shareCount := V(2*m.dim + 1)
	if v < shareCount && v > -shareCount {
		next[newIdx] += v
		return false
	}
	closeToEdge := false
	allEqual := true
	upper := make([]V, m.dim)
	lower := make([]V, m.dim)
	for k, p := range pos {
		if p == 1 || p == m.side-2 {
			closeToEdge = true
		}
		upper[k], lower[k] = m.background, m.background
		if p < m.side-1 {
			upper[k] = m.cells[idx+m.strides[k]]
		}
		if p > 0 {
			lower[k] = m.cells[idx-m.strides[k]]
		}
		allEqual = allEqual && upper[k] == v && lower[k] == v
	}
	if allEqual {
		next[newIdx] += v
		return false
	}
	share := v / shareCount
	if closeToEdge {
		m.boundsReached = true
	}
	next[newIdx] += v%shareCount + share
	for k := range pos {
		if upper[k] == v {
			next[newIdx] += share
		} else {
			next[newIdx+nextStrides[k]] += share
		}
		if lower[k] == v {
			next[newIdx] += share
		} else {
			next[newIdx-nextStrides[k]] += share
		}
	}
	return true
}

// padEdges sets every cell with an index on the outer ring to fill.
func padEdges[V grid.Value](cells []V, strides []int, side int, fill V) {
	pos := make([]int, len(strides))
	for i := range cells {
		for _, p := range pos {
			if p == 0 || p == side-1 {
				cells[i] = fill
				break
			}
		}
		advance(pos, side)
	}
}

func advance(pos []int, side int) {
	for k := len(pos) - 1; k >= 0; k-- {
		pos[k]++
		if pos[k] < side {
			return
		}
		pos[k] = 0
	}
}

// ValueAt returns the value at a lattice coordinate relative to the origin.
func (m *Model[V]) ValueAt(coord []int) V {
	idx := 0
	for k, c := range coord {
		p := c + m.origin
		if p < 0 || p >= m.side {
			return m.background
		}
		idx += p * m.strides[k]
	}
	return m.cells[idx]
}

// Bound returns the largest |coordinate| held on any axis.
func (m *Model[V]) Bound() int {
	return m.side - 1 - m.origin
}

// StepCount returns the number of steps computed.
func (m *Model[V]) StepCount() int64 {
	return m.step
}

// Total returns the sum of every held cell.
func (m *Model[V]) Total() int64 {
	var total int64
	for _, v := range m.cells {
		total += int64(v)
	}
	return total
}

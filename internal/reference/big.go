package reference

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// BigModel is Model on arbitrary precision cells.
type BigModel struct {
	variant    domain.Variant
	dim        int
	background *big.Int

	side          int
	origin        int
	cells         []*big.Int
	strides       []int
	step          int64
	boundsReached bool
}

// NewBig returns a dense arbitrary precision model with initial at the origin.
func NewBig(variant domain.Variant, dim int, initial, background *big.Int) (*BigModel, error) {
	if !variant.Valid() {
		return nil, fmt.Errorf("%w: unknown variant %q", domain.ErrInvalidConfig, variant)
	}
	if dim < 1 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidDimension, dim)
	}
	bg := new(big.Int)
	if variant == domain.VariantSIV {
		bg.Set(background)
	}
	m := &BigModel{variant: variant, dim: dim, background: bg, side: initialSide, origin: initialSide / 2}
	m.cells, m.strides = allocateBig(dim, initialSide, bg)
	center := 0
	for _, s := range m.strides {
		center += m.origin * s
	}
	m.cells[center].Set(initial)
	return m, nil
}

func allocateBig(dim, side int, fill *big.Int) ([]*big.Int, []int) {
	strides := make([]int, dim)
	size := 1
	for k := dim - 1; k >= 0; k-- {
		strides[k] = size
		size *= side
	}
	out := make([]*big.Int, size)
	for i := range out {
		out[i] = new(big.Int).Set(fill)
	}
	return out, strides
}

// Step computes the next step and reports whether any cell changed.
func (m *BigModel) Step() bool {
	side, offset := m.side, 0
	if m.boundsReached {
		m.boundsReached = false
		side, offset = m.side+2, 1
	}
	next, nextStrides := allocateBig(m.dim, side, new(big.Int))
	if offset == 1 && m.variant == domain.VariantSIV && m.background.Sign() != 0 {
		pos := make([]int, m.dim)
		for i := range next {
			for _, p := range pos {
				if p == 0 || p == side-1 {
					next[i].Set(m.background)
					break
				}
			}
			advance(pos, side)
		}
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
			c = m.aether(idx, pos, new(big.Int).Set(v), next, newIdx, nextStrides)
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

// aether consumes v.
func (m *BigModel) aether(idx int, pos []int, v *big.Int, next []*big.Int, newIdx int, nextStrides []int) bool {
	type neighbor struct {
		value *big.Int
		index int
	}
	zero := new(big.Int)
	relevant := make([]neighbor, 0, 2*m.dim)
	closeToEdge := false
	for k, p := range pos {
		if p <= 1 || p >= m.side-2 {
			closeToEdge = true
		}
		upper, lower := zero, zero
		if p < m.side-1 {
			upper = m.cells[idx+m.strides[k]]
		}
		if p > 0 {
			lower = m.cells[idx-m.strides[k]]
		}
		if upper.Cmp(v) < 0 {
			relevant = append(relevant, neighbor{upper, newIdx + nextStrides[k]})
		}
		if lower.Cmp(v) < 0 {
			relevant = append(relevant, neighbor{lower, newIdx - nextStrides[k]})
		}
	}

	changed := false
	if len(relevant) > 0 {
		slices.SortStableFunc(relevant, func(a, b neighbor) int {
			return b.value.Cmp(a.value)
		})
		toShare, share, rem, count := new(big.Int), new(big.Int), new(big.Int), new(big.Int)
		for i := range relevant {
			g := relevant[i].value
			if i > 0 && g.Cmp(relevant[i-1].value) == 0 {
				continue
			}
			count.SetInt64(int64(len(relevant) - i + 1))
			toShare.Sub(v, g)
			share.QuoRem(toShare, count, rem)
			if share.Sign() != 0 {
				if closeToEdge {
					m.boundsReached = true
				}
				changed = true
				v.Add(g, rem)
				v.Add(v, share)
				for _, n := range relevant[i:] {
					next[n.index].Add(next[n.index], share)
				}
			}
		}
	}
	next[newIdx].Add(next[newIdx], v)
	return changed
}

func (m *BigModel) siv(idx int, pos []int, v *big.Int, next []*big.Int, newIdx int, nextStrides []int) bool {
	if v.Sign() == 0 {
		return false
	}
	shareCount := big.NewInt(int64(2*m.dim + 1))
	if v.CmpAbs(shareCount) < 0 {
		next[newIdx].Add(next[newIdx], v)
		return false
	}
	closeToEdge := false
	allEqual := true
	upper := make([]*big.Int, m.dim)
	lower := make([]*big.Int, m.dim)
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
		allEqual = allEqual && upper[k].Cmp(v) == 0 && lower[k].Cmp(v) == 0
	}
	if allEqual {
		next[newIdx].Add(next[newIdx], v)
		return false
	}
	share, rem := new(big.Int).QuoRem(v, shareCount, new(big.Int))
	if closeToEdge {
		m.boundsReached = true
	}
	next[newIdx].Add(next[newIdx], rem)
	next[newIdx].Add(next[newIdx], share)
	for k := range pos {
		for _, n := range []struct {
			value *big.Int
			index int
		}{{upper[k], newIdx + nextStrides[k]}, {lower[k], newIdx - nextStrides[k]}} {
			if n.value.Cmp(v) == 0 {
				next[newIdx].Add(next[newIdx], share)
			} else {
				next[n.index].Add(next[n.index], share)
			}
		}
	}
	return true
}

// ValueAt returns a copy of the value at a lattice coordinate relative to the origin.
func (m *BigModel) ValueAt(coord []int) *big.Int {
	idx := 0
	for k, c := range coord {
		p := c + m.origin
		if p < 0 || p >= m.side {
			return new(big.Int).Set(m.background)
		}
		idx += p * m.strides[k]
	}
	return new(big.Int).Set(m.cells[idx])
}

// Bound returns the largest |coordinate| held on any axis.
func (m *BigModel) Bound() int {
	return m.side - 1 - m.origin
}

// Total returns the sum of every held cell.
func (m *BigModel) Total() *big.Int {
	total := new(big.Int)
	for _, v := range m.cells {
		total.Add(total, v)
	}
	return total
}

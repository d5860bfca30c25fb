package rule

import "github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/grid"

// SIV (Spread Integer Value) splits the value evenly between the cell and its 2n neighbors.
// Shares meant for neighbors holding the same value stay in the cell.
type SIV[V grid.Value] struct {
	shareCount V
}

// NewSIV returns the rule for a lattice of dimension dim.
func NewSIV[V grid.Value](dim int) *SIV[V] {
	return &SIV[V]{shareCount: V(2*dim + 1)}
}

// Topple implements Rule.
func (s *SIV[V]) Topple(v V, neighbors []Neighbor[V], emit Emit[V]) (V, bool) {
	if v < s.shareCount && v > -s.shareCount {
		return v, false
	}
	allEqual := true
	for i := range neighbors {
		if neighbors[i].Value != v {
			allEqual = false
			break
		}
	}
	if allEqual {
		return v, false
	}

	share := v / s.shareCount
	keep := v%s.shareCount + share
	for i := range neighbors {
		if neighbors[i].Value == v {
			keep += share * V(neighbors[i].Symmetry)
		} else {
			emit(i, share*V(neighbors[i].Multiplier))
		}
	}
	return keep, true
}

package rule

import (
	"cmp"
	"slices"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/grid"
)

// Aether shares the difference with every strictly smaller neighbor, one group of equal
// neighbors at a time, from the largest to the smallest.
type Aether[V grid.Value] struct {
	order []int
}

// Topple implements Rule. A group whose share truncates to zero keeps its part, and the
// smaller groups after it are still visited.
func (a *Aether[V]) Topple(v V, neighbors []Neighbor[V], emit Emit[V]) (V, bool) {
	a.order = a.order[:0]
	shareCount := 1
	for i := range neighbors {
		if neighbors[i].Value < v {
			a.order = append(a.order, i)
			shareCount += neighbors[i].Symmetry
		}
	}
	if len(a.order) == 0 {
		return v, false
	}
	slices.SortFunc(a.order, func(x, y int) int {
		return cmp.Compare(neighbors[y].Value, neighbors[x].Value)
	})

	toppled := false
	for start := 0; start < len(a.order); {
		g := neighbors[a.order[start]].Value
		end := start
		groupSymmetry := 0
		for end < len(a.order) && neighbors[a.order[end]].Value == g {
			groupSymmetry += neighbors[a.order[end]].Symmetry
			end++
		}

		toShare := v - g
		share := toShare / V(shareCount)
		if share != 0 {
			toppled = true
			v = v - toShare + toShare%V(shareCount) + share
			for _, i := range a.order[start:] {
				emit(i, share*V(neighbors[i].Multiplier))
			}
		}
		shareCount -= groupSymmetry
		start = end
	}
	return v, toppled
}

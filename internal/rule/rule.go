// Package rule implements the per-cell toppling rules on the canonical domain.
//
// A rule sees the value of a cell and its distinct canonical neighbors. It delivers shares to
// neighbors through an emit callback (already scaled by the neighbor's multiplier) and returns
// what the cell keeps.
package rule

import (
	"fmt"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/grid"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// Neighbor is the view a rule has of one distinct canonical neighbor.
type Neighbor[V grid.Value] struct {
	Value      V
	Symmetry   int
	Multiplier int
}

// Emit adds amount to the next-step value of neighbor i.
type Emit[V grid.Value] func(i int, amount V)

// Rule computes the toppling of one cell. Implementations may keep scratch state and are not
// safe for concurrent use.
type Rule[V grid.Value] interface {
	Topple(v V, neighbors []Neighbor[V], emit Emit[V]) (keep V, toppled bool)
}

// Factory builds an independent Rule, one per worker.
type Factory[V grid.Value] func() Rule[V]

// NewFactory returns the factory for a variant on a lattice of the given dimension.
func NewFactory[V grid.Value](variant domain.Variant, dim int) (Factory[V], error) {
	switch variant {
	case domain.VariantAether:
		return func() Rule[V] { return &Aether[V]{} }, nil
	case domain.VariantSIV:
		return func() Rule[V] { return NewSIV[V](dim) }, nil
	}
	return nil, fmt.Errorf("%w: unknown variant %q", domain.ErrInvalidConfig, variant)
}

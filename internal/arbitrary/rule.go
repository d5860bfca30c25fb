package arbitrary

import (
	"fmt"
	"math/big"
	"slices"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// Neighbor is the view a rule has of one distinct canonical neighbor.
type Neighbor struct {
	Value      *big.Int
	Symmetry   int
	Multiplier int
}

// Emit adds amount to the next-step value of neighbor i. amount is only valid during the call.
type Emit func(i int, amount *big.Int)

// Rule computes the toppling of one cell. The returned keep is valid until the next call.
// Implementations keep scratch values and are not safe for concurrent use.
type Rule interface {
	Topple(v *big.Int, neighbors []Neighbor, emit Emit) (keep *big.Int, toppled bool)
}

// NewRule returns the rule of a variant on a lattice of dimension dim.
func NewRule(variant domain.Variant, dim int) (Rule, error) {
	switch variant {
	case domain.VariantAether:
		return &Aether{}, nil
	case domain.VariantSIV:
		return NewSIV(dim), nil
	}
	return nil, fmt.Errorf("%w: unknown variant %q", domain.ErrInvalidConfig, variant)
}

// Aether shares the difference with every strictly smaller neighbor, one group of equal
// neighbors at a time, from the largest to the smallest.
type Aether struct {
	order                            []int
	keep, toShare, share, rem, count big.Int
	factor, amount                   big.Int
}

// Topple implements Rule. A group whose share truncates to zero keeps its part, and the
// smaller groups after it are still visited.
func (a *Aether) Topple(v *big.Int, neighbors []Neighbor, emit Emit) (*big.Int, bool) {
	a.order = a.order[:0]
	shareCount := 1
	for i := range neighbors {
		if neighbors[i].Value.Cmp(v) < 0 {
			a.order = append(a.order, i)
			shareCount += neighbors[i].Symmetry
		}
	}
	if len(a.order) == 0 {
		return v, false
	}
	slices.SortFunc(a.order, func(x, y int) int {
		return neighbors[y].Value.Cmp(neighbors[x].Value)
	})

	a.keep.Set(v)
	toppled := false
	for start := 0; start < len(a.order); {
		g := neighbors[a.order[start]].Value
		end := start
		groupSymmetry := 0
		for end < len(a.order) && neighbors[a.order[end]].Value.Cmp(g) == 0 {
			groupSymmetry += neighbors[a.order[end]].Symmetry
			end++
		}
		a.toShare.Sub(&a.keep, g)
		a.count.SetInt64(int64(shareCount))
		a.share.QuoRem(&a.toShare, &a.count, &a.rem)
		if a.share.Sign() != 0 {
			toppled = true
			// keep - toShare is g
			a.keep.Add(g, &a.rem)
			a.keep.Add(&a.keep, &a.share)
			for _, i := range a.order[start:] {
				a.factor.SetInt64(int64(neighbors[i].Multiplier))
				emit(i, a.amount.Mul(&a.share, &a.factor))
			}
		}
		shareCount -= groupSymmetry
		start = end
	}
	return &a.keep, toppled
}

// SIV (Spread Integer Value) splits the value evenly between the cell and its 2n neighbors.
// Shares meant for neighbors holding the same value stay in the cell.
type SIV struct {
	shareCount                       big.Int
	share, rem, keep, factor, amount big.Int
}

// NewSIV returns the rule for a lattice of dimension dim.
func NewSIV(dim int) *SIV {
	s := &SIV{}
	s.shareCount.SetInt64(int64(2*dim + 1))
	return s
}

// Topple implements Rule.
func (s *SIV) Topple(v *big.Int, neighbors []Neighbor, emit Emit) (*big.Int, bool) {
	if v.CmpAbs(&s.shareCount) < 0 {
		return v, false
	}
	allEqual := true
	for i := range neighbors {
		if neighbors[i].Value.Cmp(v) != 0 {
			allEqual = false
			break
		}
	}
	if allEqual {
		return v, false
	}
	s.share.QuoRem(v, &s.shareCount, &s.rem)
	s.keep.Add(&s.rem, &s.share)
	for i := range neighbors {
		if neighbors[i].Value.Cmp(v) == 0 {
			s.factor.SetInt64(int64(neighbors[i].Symmetry))
			s.keep.Add(&s.keep, s.amount.Mul(&s.share, &s.factor))
		} else {
			s.factor.SetInt64(int64(neighbors[i].Multiplier))
			emit(i, s.amount.Mul(&s.share, &s.factor))
		}
	}
	return &s.keep, true
}

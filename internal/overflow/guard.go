// Package overflow decides, before any grid is allocated, whether a single-source
// configuration can be simulated with a given value width without overflowing.
package overflow

import (
	"fmt"
	"math"
	"math/big"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// MaxValue returns the largest value representable by a signed integer of the given width.
func MaxValue(width int) (*big.Int, error) {
	switch width {
	case 16:
		return big.NewInt(math.MaxInt16), nil
	case 32:
		return big.NewInt(math.MaxInt32), nil
	case 64:
		return big.NewInt(math.MaxInt64), nil
	}
	return nil, fmt.Errorf("%w: unsupported value width %d", domain.ErrInvalidConfig, width)
}

// MaxNeighborDifference returns the largest difference between neighboring cells that an
// Aether run started from a single source of the given value can produce.
func MaxNeighborDifference(dim int, source *big.Int) *big.Int {
	if source.Sign() >= 0 {
		return new(big.Int).Set(source)
	}
	if dim == 1 {
		return new(big.Int).Neg(source)
	}
	half := new(big.Int).Quo(new(big.Int).Neg(source), big.NewInt(2))
	d := new(big.Int).Mul(half, big.NewInt(int64(2*dim+1)))
	d.Add(d, source)
	return d.Abs(d)
}

// MinSingleSource returns the most negative Aether source value whose run keeps every
// neighboring difference within max.
func MinSingleSource(dim int, max *big.Int) (*big.Int, error) {
	if dim <= 0 {
		return nil, fmt.Errorf("%w: %d", domain.ErrInvalidDimension, dim)
	}
	switch max.Sign() {
	case -1:
		return nil, fmt.Errorf("%w: negative maximum %s", domain.ErrInvalidConfig, max)
	case 0:
		return new(big.Int), nil
	}
	if dim == 1 {
		return new(big.Int).Neg(max), nil
	}
	d := big.NewInt(int64(2*dim - 1))
	if max.Cmp(d) < 0 {
		return big.NewInt(-1), nil
	}
	// value -> difference: 0 -> 0, -1 -> 1, -2 -> 2n-1, then alternately -1 and +2n
	min1 := new(big.Int).Mul(max, big.NewInt(2))
	min1.Quo(min1, new(big.Int).Neg(d))
	// off by one at most
	min2 := new(big.Int).Sub(min1, big.NewInt(1))
	if MaxNeighborDifference(dim, min2).Cmp(max) > 0 {
		return min1, nil
	}
	return min2, nil
}

// CheckAether verifies that an Aether run of the given dimension and width started from
// initial cannot overflow.
func CheckAether(dim, width int, initial int64) error {
	max, err := MaxValue(width)
	if err != nil {
		return err
	}
	v := big.NewInt(initial)
	if v.Sign() >= 0 {
		if v.Cmp(max) > 0 {
			return fmt.Errorf("%w: initial value %d exceeds the %d-bit maximum %s", domain.ErrOverflowRisk, initial, width, max)
		}
		return nil
	}
	min, err := MinSingleSource(dim, max)
	if err != nil {
		return err
	}
	if v.Cmp(min) < 0 {
		return fmt.Errorf("%w: initial value %d is below the %d-bit minimum %s for dimension %d", domain.ErrOverflowRisk, initial, width, min, dim)
	}
	return nil
}

// SIVRange returns the interval every cell of a Spread Integer Value run started from initial
// over background stays in, for a lattice of dimension dim.
//
// With s = 2n+1 and q the share (v/s truncated), the next value of a cell is
// v%s + q(v) + the shares of its 2n neighbors: s shares plus a remainder of magnitude below s.
// So [s*ceil(lo/s) - (s-1), s*floor(hi/s) + (s-1)], widened from the initial values, is closed
// under a step, and so is every partial sum the step accumulates.
func SIVRange(dim int, initial, background int64) (lo, hi *big.Int) {
	s := big.NewInt(int64(2*dim + 1))
	margin := new(big.Int).Sub(s, big.NewInt(1))
	a, b := big.NewInt(initial), big.NewInt(background)
	if a.Cmp(b) > 0 {
		a, b = b, a
	}

	hi = new(big.Int)
	if b.Sign() > 0 {
		hi.Quo(b, s)
		hi.Mul(hi, s)
		hi.Add(hi, margin)
	}
	lo = new(big.Int)
	if a.Sign() < 0 {
		lo.Quo(a, s)
		lo.Mul(lo, s)
		lo.Sub(lo, margin)
	}
	return lo, hi
}

// CheckSIV verifies that a Spread Integer Value run of the given dimension started from
// initial over background cannot overflow: every value in SIVRange must fit the width.
func CheckSIV(dim, width int, initial, background int64) error {
	if dim <= 0 {
		return fmt.Errorf("%w: %d", domain.ErrInvalidDimension, dim)
	}
	max, err := MaxValue(width)
	if err != nil {
		return err
	}
	lo, hi := SIVRange(dim, initial, background)
	min := new(big.Int).Neg(max)
	min.Sub(min, big.NewInt(1))
	if hi.Cmp(max) > 0 || lo.Cmp(min) < 0 {
		return fmt.Errorf("%w: initial value %d over background %d reaches [%s, %s], beyond %d bits", domain.ErrOverflowRisk, initial, background, lo, hi, width)
	}
	return nil
}

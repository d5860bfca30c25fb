// Package lattice maps coordinates of the n-dimensional integer lattice onto the fundamental
// domain of its hyperoctahedral symmetry group, and addresses that domain slice by slice.
//
// A coordinate is canonical when its components are non-negative and non-increasing. The
// canonical cells with leading coordinate i form slice i; inside a slice a cell is addressed by
// the rank of its tail (c[1:]) in the combinatorial number system.
package lattice

import (
	"fmt"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"gonum.org/v1/gonum/stat/combin"
)

// MaxDimension is the largest supported dimension. Orbit sizes (2^n * n!) must fit an int.
const MaxDimension = 8

// Lattice holds the dimension-dependent arithmetic.
type Lattice struct {
	dim int
}

// New returns the lattice of the given dimension.
func New(dim int) (*Lattice, error) {
	if dim < 1 || dim > MaxDimension {
		return nil, fmt.Errorf("%w: %d (supported: 1..%d)", domain.ErrInvalidDimension, dim, MaxDimension)
	}
	return &Lattice{dim: dim}, nil
}

// Dimension returns n.
func (l *Lattice) Dimension() int {
	return l.dim
}

// SliceSize returns the number of canonical cells whose leading coordinate is i.
func (l *Lattice) SliceSize(i int) int {
	if i < 0 {
		return 0
	}
	return combin.Binomial(i+l.dim-1, l.dim-1)
}

// Volume returns the number of canonical cells whose leading coordinate is at most x.
func (l *Lattice) Volume(x int) int {
	if x < 0 {
		return 0
	}
	return combin.Binomial(x+l.dim, l.dim)
}

// Rank returns the position of a non-increasing, non-negative tail inside its slice.
func (l *Lattice) Rank(tail []int) int {
	m := len(tail)
	r := 0
	for k, c := range tail {
		r += multichoose(c, m-k)
	}
	return r
}

// multichoose counts the non-increasing sequences of length j with values below c.
func multichoose(c, j int) int {
	if c == 0 {
		return 0
	}
	return combin.Binomial(c+j-1, j)
}

// NextTail advances tail to the next cell of slice lead in rank order. It returns false,
// leaving tail zeroed, once the slice is exhausted.
func NextTail(tail []int, lead int) bool {
	for k := len(tail) - 1; k >= 0; k-- {
		limit := lead
		if k > 0 {
			limit = tail[k-1]
		}
		if tail[k] < limit {
			tail[k]++
			clear(tail[k+1:])
			return true
		}
	}
	clear(tail)
	return false
}

// Canonicalize writes the canonical image of coord into dst (reallocated if too short) and
// reports whether coord was already canonical.
func Canonicalize(dst, coord []int) ([]int, bool) {
	if cap(dst) < len(coord) {
		dst = make([]int, len(coord))
	}
	dst = dst[:len(coord)]
	canonical := true
	for i, c := range coord {
		if c < 0 {
			c = -c
			canonical = false
		}
		if i > 0 && c > coord[i-1] {
			canonical = false
		}
		dst[i] = c
	}
	if canonical {
		return dst, true
	}
	// insertion sort, descending; n is small
	for i := 1; i < len(dst); i++ {
		v := dst[i]
		j := i
		for j > 0 && dst[j-1] < v {
			dst[j] = dst[j-1]
			j--
		}
		dst[j] = v
	}
	return dst, false
}

// IsCanonical reports whether c is non-negative and non-increasing.
func IsCanonical(c []int) bool {
	for i, v := range c {
		if v < 0 || (i > 0 && v > c[i-1]) {
			return false
		}
	}
	return true
}

// OrbitSize returns the number of lattice cells equivalent to the canonical cell c:
// 2^{nonzero} * n! / prod(multiplicity!).
func OrbitSize(c []int) int {
	size := 1
	for i := 2; i <= len(c); i++ {
		size *= i
	}
	run := 1
	for i, v := range c {
		if v != 0 {
			size *= 2
		}
		if i > 0 && v == c[i-1] {
			run++
			size /= run
		} else {
			run = 1
		}
	}
	return size
}

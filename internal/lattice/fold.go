package lattice

// Fold describes one distinct canonical neighbor of a canonical cell s.
type Fold struct {
	// Target is the canonical image of the neighbor.
	Target []int

	// Symmetry is how many of the 2n unit moves from s land on Target.
	Symmetry int

	// Multiplier is how many lattice neighbors of Target lie in the orbit of s. A share sent
	// from s along each move delivers Multiplier shares to the stored Target.
	Multiplier int
}

// Folder computes folds. It reuses its buffers between calls and is not safe for concurrent
// use; give every worker its own.
type Folder struct {
	dim   int
	folds []Fold
	buf   []int
}

// NewFolder returns a Folder for l.
func (l *Lattice) NewFolder() *Folder {
	n := l.dim
	return &Folder{
		dim:   n,
		folds: make([]Fold, 0, 2*n),
		buf:   make([]int, 2*n*n),
	}
}

// Folds returns the distinct canonical neighbors of the canonical cell s, in move order
// (axis 0 up, axis 0 down, axis 1 up, ...). The result is valid until the next call.
func (f *Folder) Folds(s []int) []Fold {
	n := f.dim
	f.folds = f.folds[:0]
	next := 0
	for axis := 0; axis < n; axis++ {
		for _, delta := range [2]int{1, -1} {
			t := f.buf[next*n : (next+1)*n]
			copy(t, s)
			t[axis] += delta
			resort(t, axis)

			merged := false
			for i := range f.folds {
				if equal(f.folds[i].Target, t) {
					f.folds[i].Symmetry++
					merged = true
					break
				}
			}
			if !merged {
				f.folds = append(f.folds, Fold{Target: t, Symmetry: 1})
				next++
			}
		}
	}
	orbit := OrbitSize(s)
	for i := range f.folds {
		f.folds[i].Multiplier = f.folds[i].Symmetry * orbit / OrbitSize(f.folds[i].Target)
	}
	return f.folds
}

// resort restores canonical order after t[k] alone was moved by one unit.
func resort(t []int, k int) {
	v := t[k]
	if v < 0 {
		v = -v
	}
	for k > 0 && t[k-1] < v {
		t[k] = t[k-1]
		k--
	}
	for k < len(t)-1 && t[k+1] > v {
		t[k] = t[k+1]
		k++
	}
	t[k] = v
}

func equal(a, b []int) bool {
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

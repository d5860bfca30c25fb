package domain

import "fmt"

// StepResult is the outcome of a single step.
type StepResult struct {
	// Step is the step counter after the step completed.
	Step int64 `json:"step"`

	// Changed reports whether any cell toppled.
	Changed bool `json:"changed"`

	// BoundsReached reports whether a toppling cell was close enough to the edge of the
	// domain that the next step has to grow it.
	BoundsReached bool `json:"bounds_reached"`

	// Bound is the largest leading coordinate held by the domain after the step.
	Bound int `json:"bound"`

	// Maxima is the per-axis largest canonical coordinate that has received a share so far.
	Maxima []int `json:"maxima"`
}

// BlockKey identifies a block by the inclusive range of slices it holds.
type BlockKey struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Contains reports whether slice x lies inside the block.
func (k BlockKey) Contains(x int) bool {
	return x >= k.Min && x <= k.Max
}

func (k BlockKey) String() string {
	return fmt.Sprintf("[%d,%d]", k.Min, k.Max)
}

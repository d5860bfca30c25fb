// Package parallel steps an in-memory grid with several workers, each owning a contiguous,
// volume-balanced range of source slices.
package parallel

import "github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"

// MinRangeLength is the smallest number of source slices a worker may own. Ranges shorter than
// that would let two non-adjacent workers write the same next-step slice.
const MinRangeLength = 3

// Partition splits source slices 0..maxIndex into at most threads contiguous ranges holding
// roughly the same number of cells. It falls back to a single range when threads <= 1 or
// when any range would be shorter than MinRangeLength.
func Partition(lat *lattice.Lattice, maxIndex, threads int) [][2]int {
	single := [][2]int{{0, maxIndex}}
	if threads <= 1 || maxIndex+1 < MinRangeLength*threads {
		return single
	}
	total := lat.Volume(maxIndex)
	ranges := make([][2]int, 0, threads)
	start := 0
	for j := 1; j < threads; j++ {
		end := invertVolume(lat, total/threads*j+total%threads*j/threads, start, maxIndex)
		ranges = append(ranges, [2]int{start, end})
		start = end + 1
	}
	ranges = append(ranges, [2]int{start, maxIndex})
	for _, r := range ranges {
		if r[1]-r[0]+1 < MinRangeLength {
			return single
		}
	}
	return ranges
}

// invertVolume returns the smallest x in [lo, hi] with Volume(x) >= target, or hi.
func invertVolume(lat *lattice.Lattice, target, lo, hi int) int {
	for lo < hi {
		mid := lo + (hi-lo)/2
		if lat.Volume(mid) >= target {
			hi = mid
		} else {
			lo = mid + 1
		}
	}
	return lo
}

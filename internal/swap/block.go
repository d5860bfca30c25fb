package swap

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
	"unsafe"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/grid"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// MinBlockLength is the fewest slices a block may hold. With two, the three-slice source
// window never spans more than two resident blocks.
const MinBlockLength = 2

// MaxBlockLength caps the slices of one block when the byte limit alone would allow more.
const MaxBlockLength = 1 << 16

// sliceOverhead approximates the per-slice bookkeeping (slice header) counted against the limit.
const sliceOverhead = int64(unsafe.Sizeof([]byte(nil)))

// Block is a contiguous run of slices, the unit of streaming I/O.
type Block[V grid.Value] struct {
	Min    int
	Max    int
	Slices [][]V

	// dirty is set while the block differs from its stored copy.
	dirty bool
}

// Dirty reports whether the block changed since it was last stored or decoded.
func (b *Block[V]) Dirty() bool {
	return b.dirty
}

// Key returns the store key of the block.
func (b *Block[V]) Key() domain.BlockKey {
	return domain.BlockKey{Min: b.Min, Max: b.Max}
}

// Contains reports whether slice x belongs to the block.
func (b *Block[V]) Contains(x int) bool {
	return b != nil && x >= b.Min && x <= b.Max
}

// Slice returns slice x. It panics if x is not in the block.
func (b *Block[V]) Slice(x int) []V {
	if !b.Contains(x) {
		panic(fmt.Sprintf("swap: slice %d outside block [%d, %d]", x, b.Min, b.Max))
	}
	return b.Slices[x-b.Min]
}

// SetSlice replaces slice x.
func (b *Block[V]) SetSlice(x int, s []V) {
	if !b.Contains(x) {
		panic(fmt.Sprintf("swap: slice %d outside block [%d, %d]", x, b.Min, b.Max))
	}
	b.Slices[x-b.Min] = s
	b.dirty = true
}

// SliceBytes returns the memory slice i of a V grid takes on lat.
func SliceBytes[V grid.Value](lat *lattice.Lattice, i int) int64 {
	var v V
	return CellSliceBytes(lat, i, int64(unsafe.Sizeof(v)))
}

// CellSliceBytes returns the memory slice i takes on lat when every cell takes cellBytes.
func CellSliceBytes(lat *lattice.Lattice, i int, cellBytes int64) int64 {
	return int64(lat.SliceSize(i))*cellBytes + sliceOverhead
}

// BlockLength returns how many slices starting at min fit in maxBytes, up to MaxBlockLength.
func BlockLength[V grid.Value](lat *lattice.Lattice, min int, maxBytes int64) (int, error) {
	var v V
	return CellBlockLength(lat, min, maxBytes, int64(unsafe.Sizeof(v)))
}

// CellBlockLength is BlockLength for cells taking cellBytes each.
func CellBlockLength(lat *lattice.Lattice, min int, maxBytes, cellBytes int64) (int, error) {
	n := 0
	for used := int64(0); n < MaxBlockLength; n++ {
		used += CellSliceBytes(lat, min+n, cellBytes)
		if used > maxBytes {
			break
		}
	}
	if n < MinBlockLength {
		return 0, fmt.Errorf("%w: %d bytes cannot hold %d slices from %d", domain.ErrBlockTooSmall, maxBytes, MinBlockLength, min)
	}
	return n, nil
}

// BuildBlock allocates the largest block starting at min that fits in maxBytes, every cell set
// to fill.
func BuildBlock[V grid.Value](lat *lattice.Lattice, min int, maxBytes int64, fill V) (*Block[V], error) {
	n, err := BlockLength[V](lat, min, maxBytes)
	if err != nil {
		return nil, err
	}
	b := &Block[V]{Min: min, Max: min + n - 1, Slices: make([][]V, n), dirty: true}
	for i := range b.Slices {
		b.Slices[i] = grid.NewSlice(lat, min+i, fill)
	}
	return b, nil
}

type payload[V grid.Value] struct {
	Dimension int
	Min       int
	Max       int
	Slices    [][]V
}

// Encode serializes the block wholesale as a gob+gzip blob.
func Encode[V grid.Value](lat *lattice.Lattice, b *Block[V]) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(payload[V]{Dimension: lat.Dimension(), Min: b.Min, Max: b.Max, Slices: b.Slices}); err != nil {
		gz.Close()
		return nil, fmt.Errorf("failed to encode block: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress block: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads a block written by Encode and checks it against key and lat.
func Decode[V grid.Value](lat *lattice.Lattice, key domain.BlockKey, blob []byte) (*Block[V], error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: empty blob for %d-%d", domain.ErrCorruptBlock, key.Min, key.Max)
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorruptBlock, err)
	}
	defer gz.Close()

	var p payload[V]
	if err := gob.NewDecoder(gz).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: failed to decode block %d-%d: %w", domain.ErrCorruptBlock, key.Min, key.Max, err)
	}
	if p.Dimension != lat.Dimension() || p.Min != key.Min || p.Max != key.Max || len(p.Slices) != p.Max-p.Min+1 {
		return nil, fmt.Errorf("%w: block %d-%d holds dimension %d slices %d-%d", domain.ErrCorruptBlock, key.Min, key.Max, p.Dimension, p.Min, p.Max)
	}
	for i, s := range p.Slices {
		if len(s) != lat.SliceSize(p.Min+i) {
			return nil, fmt.Errorf("%w: slice %d of block %d-%d holds %d cells", domain.ErrCorruptBlock, p.Min+i, key.Min, key.Max, len(s))
		}
	}
	return &Block[V]{Min: p.Min, Max: p.Max, Slices: p.Slices}, nil
}

package arbitrary

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/gob"
	"fmt"
	"math/big"
	"unsafe"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/swap"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
)

// CellBytes approximates the memory of one cell holding a single word, the figure block sizes
// are computed with.
const CellBytes = int64(unsafe.Sizeof(big.Int{})) + 8

// payload is the gob form of a block. big.Int encodes itself; cells are never nil.
type payload struct {
	Dimension int
	Min       int
	Max       int
	Slices    [][]*big.Int
}

// Encode serializes slices min..max of g as a gob+gzip blob. Slices past the bound of g are
// written as zeros.
func Encode(g *Grid, min, max int) ([]byte, error) {
	lat := g.Lattice()
	p := payload{Dimension: lat.Dimension(), Min: min, Max: max, Slices: make([][]*big.Int, max-min+1)}
	zero := new(big.Int)
	for i := range p.Slices {
		x := min + i
		cells := make([]*big.Int, lat.SliceSize(x))
		for j := range cells {
			if x <= g.Bound() {
				cells[j] = &g.Slice(x)[j]
			} else {
				cells[j] = zero
			}
		}
		p.Slices[i] = cells
	}

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if err := gob.NewEncoder(gz).Encode(p); err != nil {
		gz.Close()
		return nil, fmt.Errorf("failed to encode block: %w", err)
	}
	if err := gz.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress block: %w", err)
	}
	return buf.Bytes(), nil
}

// Decode reads the slices of a block written by Encode and checks them against key and lat.
func Decode(lat *lattice.Lattice, key domain.BlockKey, blob []byte) ([][]big.Int, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("%w: empty blob for %d-%d", domain.ErrCorruptBlock, key.Min, key.Max)
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrCorruptBlock, err)
	}
	defer gz.Close()

	var p payload
	if err := gob.NewDecoder(gz).Decode(&p); err != nil {
		return nil, fmt.Errorf("%w: failed to decode block %d-%d: %w", domain.ErrCorruptBlock, key.Min, key.Max, err)
	}
	if p.Dimension != lat.Dimension() || p.Min != key.Min || p.Max != key.Max || len(p.Slices) != p.Max-p.Min+1 {
		return nil, fmt.Errorf("%w: block %d-%d holds dimension %d slices %d-%d", domain.ErrCorruptBlock, key.Min, key.Max, p.Dimension, p.Min, p.Max)
	}
	out := make([][]big.Int, len(p.Slices))
	for i, cells := range p.Slices {
		if len(cells) != lat.SliceSize(p.Min+i) {
			return nil, fmt.Errorf("%w: slice %d of block %d-%d holds %d cells", domain.ErrCorruptBlock, p.Min+i, key.Min, key.Max, len(cells))
		}
		out[i] = make([]big.Int, len(cells))
		for j, c := range cells {
			if c != nil {
				out[i][j].Set(c)
			}
		}
	}
	return out, nil
}

// ExportGrid writes g to store as blocks of at most maxBytes, replacing whatever blocks store
// held. ImportGrid reads them back.
func ExportGrid(ctx context.Context, g *Grid, store ports.BlockStore, maxBytes int64) error {
	length := func(min int) (int, error) { return swap.CellBlockLength(g.Lattice(), min, maxBytes, CellBytes) }
	return swap.WriteBlocks(ctx, store, g.Bound(), length, func(min, max int) ([]byte, error) {
		return Encode(g, min, max)
	})
}

// ImportGrid reads slices 0..bound from the blocks in store into a grid.
func ImportGrid(ctx context.Context, lat *lattice.Lattice, store ports.BlockStore, bound int) (*Grid, error) {
	slices := make([][]big.Int, 0, bound+1)
	err := swap.ReadBlocks(ctx, store, bound, func(k domain.BlockKey, data []byte) error {
		blk, err := Decode(lat, k, data)
		if err != nil {
			return err
		}
		for i := 0; i < len(blk) && k.Min+i <= bound; i++ {
			slices = append(slices, blk[i])
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return FromSlices(lat, slices)
}

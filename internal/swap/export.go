package swap

import (
	"context"
	"errors"
	"fmt"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/grid"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
)

// ExportGrid writes an in-memory grid to store as blocks of at most maxBytes, replacing
// whatever blocks store held. The result can be resumed by Restore or read back by ImportGrid.
func ExportGrid[V grid.Value](ctx context.Context, g *grid.Grid[V], store ports.BlockStore, maxBytes int64) error {
	lat := g.Lattice()
	length := func(min int) (int, error) { return BlockLength[V](lat, min, maxBytes) }
	return WriteBlocks(ctx, store, g.Bound(), length, func(min, max int) ([]byte, error) {
		blk := &Block[V]{Min: min, Max: max, Slices: make([][]V, max-min+1)}
		for i := range blk.Slices {
			if x := min + i; x <= g.Bound() {
				blk.Slices[i] = g.Slice(x)
			} else {
				blk.Slices[i] = grid.NewSlice[V](lat, x, 0)
			}
		}
		return Encode(lat, blk)
	})
}

// ImportGrid reads slices 0..bound from the blocks in store into an in-memory grid.
func ImportGrid[V grid.Value](ctx context.Context, lat *lattice.Lattice, store ports.BlockStore, bound int) (*grid.Grid[V], error) {
	slices := make([][]V, 0, bound+1)
	err := ReadBlocks(ctx, store, bound, func(k domain.BlockKey, data []byte) error {
		blk, err := Decode[V](lat, k, data)
		if err != nil {
			return err
		}
		for x := blk.Min; x <= blk.Max && x <= bound; x++ {
			slices = append(slices, blk.Slice(x))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return grid.FromSlices(lat, slices)
}

// WriteBlocks replaces the blocks of store with consecutive blocks covering slices 0..bound.
// length sizes the block starting at a slice and encode serializes slices min..max.
func WriteBlocks(ctx context.Context, store ports.BlockStore, bound int, length func(min int) (int, error), encode func(min, max int) ([]byte, error)) error {
	stale, err := store.ListBlocks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list blocks: %w", err)
	}
	written := make(map[domain.BlockKey]bool)
	for min := 0; min <= bound; {
		n, err := length(min)
		if err != nil {
			return err
		}
		key := domain.BlockKey{Min: min, Max: min + n - 1}
		data, err := encode(key.Min, key.Max)
		if err != nil {
			return err
		}
		if err := store.PutBlock(ctx, key, data); err != nil {
			return fmt.Errorf("failed to write block %d-%d: %w", key.Min, key.Max, err)
		}
		written[key] = true
		min = key.Max + 1
	}

	var errs []error
	for _, k := range stale {
		if !written[k] {
			errs = append(errs, store.DeleteBlock(ctx, k))
		}
	}
	return errors.Join(errs...)
}

// ReadBlocks hands decode the chain of stored blocks starting at slice 0, in order, until
// slice bound is covered.
func ReadBlocks(ctx context.Context, store ports.BlockStore, bound int, decode func(k domain.BlockKey, data []byte) error) error {
	keys, err := store.ListBlocks(ctx)
	if err != nil {
		return fmt.Errorf("failed to list blocks: %w", err)
	}
	next := 0
	for _, k := range keys {
		if next > bound {
			break
		}
		if k.Min != next {
			continue
		}
		data, err := store.GetBlock(ctx, k)
		if err != nil {
			return fmt.Errorf("failed to read block %d-%d: %w", k.Min, k.Max, err)
		}
		if err := decode(k, data); err != nil {
			return err
		}
		next = k.Max + 1
	}
	if next <= bound {
		return fmt.Errorf("%w: no block starts at slice %d", domain.ErrBlockNotFound, next)
	}
	return nil
}

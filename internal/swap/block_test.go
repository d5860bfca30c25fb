package swap_test

import (
	"testing"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/swap"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLattice(t *testing.T, dim int) *lattice.Lattice {
	t.Helper()
	lat, err := lattice.New(dim)
	require.NoError(t, err)
	return lat
}

func TestBlockLength_FitsLimit(t *testing.T) {
	lat := newLattice(t, 2)
	// 2D int64 slice i takes 8(i+1) bytes plus the header.
	n, err := swap.BlockLength[int64](lat, 0, 640)
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	var used int64
	for i := range n {
		used += swap.SliceBytes[int64](lat, i)
	}
	assert.LessOrEqual(t, used, int64(640))
	assert.Greater(t, used+swap.SliceBytes[int64](lat, n), int64(640))
}

func TestBlockLength_TooSmall(t *testing.T) {
	lat := newLattice(t, 3)
	_, err := swap.BlockLength[int32](lat, 40, 1024)
	assert.ErrorIs(t, err, domain.ErrBlockTooSmall)

	_, err = swap.BuildBlock[int32](lat, 0, 10, 0)
	assert.ErrorIs(t, err, domain.ErrBlockTooSmall)
}

func TestBlockLength_Capped(t *testing.T) {
	lat := newLattice(t, 1)
	n, err := swap.BlockLength[int16](lat, 0, 1<<40)
	require.NoError(t, err)
	assert.Equal(t, swap.MaxBlockLength, n)
}

func TestBuildBlock_Fill(t *testing.T) {
	lat := newLattice(t, 3)
	blk, err := swap.BuildBlock[int32](lat, 4, 4096, -7)
	require.NoError(t, err)
	assert.Equal(t, 4, blk.Min)
	assert.Equal(t, domain.BlockKey{Min: blk.Min, Max: blk.Max}, blk.Key())
	for x := blk.Min; x <= blk.Max; x++ {
		s := blk.Slice(x)
		require.Len(t, s, lat.SliceSize(x))
		for _, v := range s {
			require.Equal(t, int32(-7), v)
		}
	}
	assert.False(t, blk.Contains(blk.Min-1))
	assert.False(t, blk.Contains(blk.Max+1))
	assert.Panics(t, func() { blk.Slice(blk.Max + 1) })
}

func TestEncodeDecode(t *testing.T) {
	lat := newLattice(t, 4)
	blk, err := swap.BuildBlock[int64](lat, 2, 1<<12, 3)
	require.NoError(t, err)
	blk.Slice(2)[1] = -42

	data, err := swap.Encode(lat, blk)
	require.NoError(t, err)
	got, err := swap.Decode[int64](lat, blk.Key(), data)
	require.NoError(t, err)
	assert.Equal(t, blk.Key(), got.Key())
	if diff := cmp.Diff(blk.Slices, got.Slices); diff != "" {
		t.Errorf("decoded block mismatch (-want +got):\n%s", diff)
	}
}

func TestBlock_Dirty(t *testing.T) {
	lat := newLattice(t, 2)
	blk, err := swap.BuildBlock[int16](lat, 0, 256, 0)
	require.NoError(t, err)
	assert.True(t, blk.Dirty(), "a built block is not stored yet")

	data, err := swap.Encode(lat, blk)
	require.NoError(t, err)
	got, err := swap.Decode[int16](lat, blk.Key(), data)
	require.NoError(t, err)
	assert.False(t, got.Dirty())

	got.SetSlice(1, []int16{4, 4})
	assert.True(t, got.Dirty())
}

func TestDecode_Corrupt(t *testing.T) {
	lat := newLattice(t, 2)
	blk, err := swap.BuildBlock[int32](lat, 0, 256, 0)
	require.NoError(t, err)
	data, err := swap.Encode(lat, blk)
	require.NoError(t, err)

	cases := map[string]struct {
		lat  *lattice.Lattice
		key  domain.BlockKey
		blob []byte
	}{
		"empty":         {lat, blk.Key(), nil},
		"not gzip":      {lat, blk.Key(), []byte("definitely not a block")},
		"truncated":     {lat, blk.Key(), data[:len(data)/2]},
		"wrong key":     {lat, domain.BlockKey{Min: 1, Max: blk.Max + 1}, data},
		"wrong lattice": {newLattice(t, 3), blk.Key(), data},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := swap.Decode[int32](tc.lat, tc.key, tc.blob)
			assert.ErrorIs(t, err, domain.ErrCorruptBlock)
		})
	}
}

package arbitrary_test

import (
	"context"
	"math"
	"math/big"
	"testing"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/arbitrary"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/engine"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/reference"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/rule"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/swap"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/adapters/memory"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type collector map[int]string

func (c collector) emit(i int, amount *big.Int) {
	v := new(big.Int)
	if s, ok := c[i]; ok {
		v.SetString(s, 10)
	}
	c[i] = v.Add(v, amount).String()
}

func newBigEngine(t *testing.T, variant domain.Variant, dim int, initial, background *big.Int) *arbitrary.Engine {
	t.Helper()
	lat, err := lattice.New(dim)
	require.NoError(t, err)
	r, err := arbitrary.NewRule(variant, dim)
	require.NoError(t, err)
	return arbitrary.New(lat, r, initial, background)
}

func TestAether_Topple(t *testing.T) {
	a := &arbitrary.Aether{}
	got := collector{}
	keep, toppled := a.Topple(big.NewInt(1_000_000), []arbitrary.Neighbor{{Value: big.NewInt(0), Symmetry: 4, Multiplier: 1}}, got.emit)
	assert.True(t, toppled)
	assert.Equal(t, "200000", keep.String())
	assert.Equal(t, collector{0: "200000"}, got)

	// a zero share in the first group does not stop the second
	got = collector{}
	keep, toppled = a.Topple(big.NewInt(10), []arbitrary.Neighbor{
		{Value: big.NewInt(0), Symmetry: 1, Multiplier: 1},
		{Value: big.NewInt(9), Symmetry: 1, Multiplier: 1},
	}, got.emit)
	assert.True(t, toppled)
	assert.Equal(t, "5", keep.String())
	assert.Equal(t, collector{0: "5"}, got)
}

func TestSIV_Topple(t *testing.T) {
	s := arbitrary.NewSIV(1)
	got := collector{}
	keep, toppled := s.Topple(big.NewInt(-7), []arbitrary.Neighbor{{Value: big.NewInt(0), Symmetry: 2, Multiplier: 1}}, got.emit)
	assert.True(t, toppled)
	// share -2, remainder -1
	assert.Equal(t, "-3", keep.String())
	assert.Equal(t, collector{0: "-2"}, got)

	keep, toppled = s.Topple(big.NewInt(2), []arbitrary.Neighbor{{Value: big.NewInt(0), Symmetry: 2, Multiplier: 1}}, got.emit)
	assert.False(t, toppled)
	assert.Equal(t, "2", keep.String())
}

func TestNewRule_UnknownVariant(t *testing.T) {
	_, err := arbitrary.NewRule("sandpile", 2)
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

// Within 64 bits the arbitrary precision engine and the int64 engine agree cell by cell.
func TestEngine_MatchesFixedWidth(t *testing.T) {
	tests := []struct {
		name       string
		variant    domain.Variant
		dim        int
		initial    int64
		background int64
		steps      int
	}{
		{"aether 2D", domain.VariantAether, 2, 1_000_000, 0, 30},
		{"aether 3D negative", domain.VariantAether, 3, -200, 0, 20},
		{"siv 2D background", domain.VariantSIV, 2, 20_000, -3, 25},
		{"siv 4D", domain.VariantSIV, 4, -900, 0, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			lat, err := lattice.New(tt.dim)
			require.NoError(t, err)
			factory, err := rule.NewFactory[int64](tt.variant, tt.dim)
			require.NoError(t, err)
			fixed := engine.New(lat, engine.NewSequential(lat, factory(), tt.background), tt.initial, tt.background)
			e := newBigEngine(t, tt.variant, tt.dim, big.NewInt(tt.initial), big.NewInt(tt.background))

			for step := 1; step <= tt.steps; step++ {
				want, err := fixed.Step(ctx)
				require.NoError(t, err)
				got, err := e.Step(ctx)
				require.NoError(t, err)
				require.Equal(t, want, got, "step %d", step)
				for x := 0; x <= got.Bound; x++ {
					ws, gs := fixed.Grid().Slice(x), e.Grid().Slice(x)
					for j := range ws {
						require.Truef(t, gs[j].IsInt64() && gs[j].Int64() == ws[j], "step %d slice %d cell %d: %s, want %d", step, x, j, &gs[j], ws[j])
					}
				}
			}
		})
	}
}

// From the most negative int64 source the first step already leaves 64 bits: the origin
// collects four halves of 2^63.
func TestEngine_BeyondInt64MatchesReference(t *testing.T) {
	ctx := context.Background()
	initial := big.NewInt(math.MinInt64)
	e := newBigEngine(t, domain.VariantAether, 2, initial, new(big.Int))
	ref, err := reference.NewBig(domain.VariantAether, 2, initial, new(big.Int))
	require.NoError(t, err)

	_, err = e.Step(ctx)
	require.NoError(t, err)
	ref.Step()
	want := new(big.Int).Lsh(big.NewInt(1), 63)
	assert.Equal(t, 0, e.ValueAt([]int{0, 0}).Cmp(want), "origin holds %s", e.ValueAt([]int{0, 0}))
	assert.False(t, e.ValueAt([]int{0, 0}).IsInt64())

	for step := 2; step <= 20; step++ {
		res, err := e.Step(ctx)
		require.NoError(t, err)
		assert.Equal(t, res.Changed, ref.Step(), "step %d", step)
		r := max(ref.Bound(), res.Bound) + 1
		for x := -r; x <= r; x++ {
			for y := -r; y <= r; y++ {
				c := []int{x, y}
				require.Zero(t, e.ValueAt(c).Cmp(ref.ValueAt(c)), "step %d at %v: %s, reference %s", step, c, e.ValueAt(c), ref.ValueAt(c))
			}
		}
		require.Zero(t, e.Grid().Total().Cmp(initial), "step %d total %s", step, e.Grid().Total())
	}
}

func TestEngine_SIVBeyondInt64MatchesReference(t *testing.T) {
	ctx := context.Background()
	initial := big.NewInt(math.MaxInt64)
	background := big.NewInt(math.MinInt64)
	e := newBigEngine(t, domain.VariantSIV, 1, initial, background)
	ref, err := reference.NewBig(domain.VariantSIV, 1, initial, background)
	require.NoError(t, err)
	for step := 1; step <= 30; step++ {
		res, err := e.Step(ctx)
		require.NoError(t, err)
		assert.Equal(t, res.Changed, ref.Step(), "step %d", step)
		r := max(ref.Bound(), res.Bound) + 2
		for x := -r; x <= r; x++ {
			c := []int{x}
			require.Zero(t, e.ValueAt(c).Cmp(ref.ValueAt(c)), "step %d at %v: %s, reference %s", step, c, e.ValueAt(c), ref.ValueAt(c))
		}
	}
}

func TestEngine_CanceledStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	e := newBigEngine(t, domain.VariantAether, 2, big.NewInt(100), new(big.Int))
	_, err := e.Step(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, e.Result().Step)
}

func TestExportImportGrid(t *testing.T) {
	ctx := context.Background()
	e := newBigEngine(t, domain.VariantAether, 3, big.NewInt(math.MinInt64), new(big.Int))
	for range 12 {
		_, err := e.Step(ctx)
		require.NoError(t, err)
	}
	lat := e.Grid().Lattice()
	b := e.Grid().Bound()
	require.GreaterOrEqual(t, b, 6)
	store := memory.NewStore()
	require.NoError(t, store.PutBlock(ctx, domain.BlockKey{Min: 90, Max: 95}, []byte("stale")))

	// room for the two largest slices only
	limit := swap.CellSliceBytes(lat, b, arbitrary.CellBytes) + swap.CellSliceBytes(lat, b+1, arbitrary.CellBytes)
	require.NoError(t, arbitrary.ExportGrid(ctx, e.Grid(), store, limit))
	keys, err := store.ListBlocks(ctx)
	require.NoError(t, err)
	require.Greater(t, len(keys), 1)
	assert.Zero(t, keys[0].Min)
	for _, k := range keys {
		assert.NotEqual(t, 90, k.Min, "stale block kept")
	}

	g, err := arbitrary.ImportGrid(ctx, lat, store, e.Grid().Bound())
	require.NoError(t, err)
	require.Equal(t, e.Grid().Bound(), g.Bound())
	for x := 0; x <= g.Bound(); x++ {
		want, got := e.Grid().Slice(x), g.Slice(x)
		for j := range want {
			require.Zero(t, want[j].Cmp(&got[j]), "slice %d cell %d", x, j)
		}
	}

	_, err = arbitrary.ImportGrid(ctx, lat, store, keys[len(keys)-1].Max+1)
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)
}

func TestDecode_RejectsOtherBlocks(t *testing.T) {
	lat, err := lattice.New(2)
	require.NoError(t, err)
	fixed, err := swap.BuildBlock[int64](lat, 0, 512, 5)
	require.NoError(t, err)
	data, err := swap.Encode(lat, fixed)
	require.NoError(t, err)
	_, err = arbitrary.Decode(lat, fixed.Key(), data)
	assert.ErrorIs(t, err, domain.ErrCorruptBlock, "a fixed-width block")

	g := arbitrary.NewGrid(lat, 3, big.NewInt(-1))
	data, err = arbitrary.Encode(g, 0, 4)
	require.NoError(t, err)
	slices, err := arbitrary.Decode(lat, domain.BlockKey{Min: 0, Max: 4}, data)
	require.NoError(t, err)
	assert.Equal(t, "-1", slices[3][0].String())
	assert.Equal(t, "0", slices[4][0].String(), "slices past the bound are zero")

	for name, key := range map[string]domain.BlockKey{"wrong key": {Min: 1, Max: 4}, "empty": {Min: 0, Max: 4}} {
		blob := data
		if name == "empty" {
			blob = nil
		}
		_, err := arbitrary.Decode(lat, key, blob)
		assert.ErrorIs(t, err, domain.ErrCorruptBlock, name)
	}
}

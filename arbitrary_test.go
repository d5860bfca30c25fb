package toppling_test

import (
	"context"
	"math"
	"math/big"
	"testing"

	toppling "github.com/JaumeRibas/Aether2DImgMaker-sub016"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/reference"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/adapters/file"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func arbitraryConfig() toppling.Config {
	cfg := toppling.DefaultConfig()
	cfg.Width = toppling.WidthArbitrary
	cfg.InitialValue = math.MinInt64
	return cfg
}

// sampleBig reads every cell of the square [-r, r]^2.
func sampleBig(t *testing.T, m toppling.Model, r int) map[[2]int]string {
	t.Helper()
	out := make(map[[2]int]string)
	for x := -r; x <= r; x++ {
		for y := -r; y <= r; y++ {
			v, err := m.BigValueAt(context.Background(), []int{x, y})
			require.NoError(t, err)
			out[[2]int{x, y}] = v.String()
		}
	}
	return out
}

func TestNew_ArbitraryPassesGuard(t *testing.T) {
	ctx := context.Background()
	cfg := arbitraryConfig()
	cfg.Width = 64
	_, err := toppling.New(ctx, cfg)
	require.ErrorIs(t, err, domain.ErrOverflowRisk)

	m, err := toppling.New(ctx, arbitraryConfig())
	require.NoError(t, err)
	stepN(t, m, 1)

	origin, err := m.BigValueAt(ctx, []int{0, 0})
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).Lsh(big.NewInt(1), 63).String(), origin.String())
	_, err = m.ValueAt(ctx, []int{0, 0})
	assert.ErrorIs(t, err, domain.ErrValueRange)

	v, err := m.ValueAt(ctx, []int{0, -1})
	require.NoError(t, err)
	assert.Equal(t, int64(-1<<62), v)
	_, err = m.BigValueAt(ctx, []int{0})
	assert.ErrorIs(t, err, domain.ErrInvalidDimension)

	props := m.Properties()
	assert.Equal(t, toppling.WidthArbitrary, props.Width)
	assert.Equal(t, domain.ModeMemory, props.Mode)
}

func TestNew_ArbitraryMatchesReference(t *testing.T) {
	ctx := context.Background()
	m, err := toppling.New(ctx, arbitraryConfig())
	require.NoError(t, err)
	ref, err := reference.NewBig(domain.VariantAether, 2, big.NewInt(math.MinInt64), new(big.Int))
	require.NoError(t, err)

	for step := 1; step <= 15; step++ {
		res := stepN(t, m, 1)
		assert.Equal(t, ref.Step(), res.Changed, "step %d", step)
		r := max(ref.Bound(), res.Bound) + 1
		want := make(map[[2]int]string)
		for x := -r; x <= r; x++ {
			for y := -r; y <= r; y++ {
				want[[2]int{x, y}] = ref.ValueAt([]int{x, y}).String()
			}
		}
		require.Equal(t, want, sampleBig(t, m, r), "step %d", step)
	}
}

func TestNew_ArbitraryMemoryOnly(t *testing.T) {
	for _, mode := range []domain.Mode{domain.ModeParallel, domain.ModeSwap} {
		cfg := arbitraryConfig()
		cfg.Mode = mode
		cfg.Threads = 2
		_, err := toppling.New(context.Background(), cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig, mode)
	}
}

func TestBackupRestore_Arbitrary(t *testing.T) {
	ctx := context.Background()
	cfg := arbitraryConfig()
	cfg.BlockSizeBytes = 4096
	m, err := toppling.New(ctx, cfg, toppling.WithRunID("run-big"))
	require.NoError(t, err)
	stepN(t, m, 10)

	backup := file.New(t.TempDir())
	require.NoError(t, m.Backup(ctx, backup))

	_, err = toppling.Restore(ctx, backup, toppling.WithMode(domain.ModeSwap))
	assert.ErrorIs(t, err, domain.ErrIncompatibleRun)

	r, err := toppling.Restore(ctx, backup)
	require.NoError(t, err)
	assert.Equal(t, m.Properties(), r.Properties())

	want := stepN(t, m, 5)
	assert.Equal(t, want, stepN(t, r, 5))
	assert.Equal(t, sampleBig(t, m, want.Bound+1), sampleBig(t, r, want.Bound+1))
}

func TestBigValueAt_FixedWidth(t *testing.T) {
	ctx := context.Background()
	for _, mode := range []domain.Mode{domain.ModeMemory, domain.ModeSwap} {
		m, err := toppling.New(ctx, config3D(mode))
		require.NoError(t, err)
		stepN(t, m, 6)
		for _, c := range [][]int{{0, 0, 0}, {2, -1, 0}, {-3, 0, 1}} {
			v, err := m.ValueAt(ctx, c)
			require.NoError(t, err)
			b, err := m.BigValueAt(ctx, c)
			require.NoError(t, err)
			assert.Equal(t, v, b.Int64(), "%s %v", mode, c)
		}
		require.NoError(t, m.Close(ctx))
	}
}

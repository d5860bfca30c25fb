package swap_test

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/engine"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/grid"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/logging"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/rule"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/swap"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/adapters/memory"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPair[V grid.Value](t *testing.T, variant domain.Variant, dim int, initial, background V, store ports.BlockStore, maxBytes int64, opts ...engine.Option) (*engine.Engine[V], *swap.Manager[V]) {
	t.Helper()
	lat := newLattice(t, dim)
	factory, err := rule.NewFactory[V](variant, dim)
	require.NoError(t, err)
	e := engine.New(lat, engine.NewSequential(lat, factory(), background), initial, background)
	m, err := swap.New(context.Background(), lat, factory(), initial, background, store, maxBytes, opts...)
	require.NoError(t, err)
	return e, m
}

func slicesOf[V grid.Value](t *testing.T, m *swap.Manager[V]) [][]V {
	t.Helper()
	var out [][]V
	require.NoError(t, m.EachSlice(context.Background(), func(x int, s []V) error {
		require.Equal(t, len(out), x)
		out = append(out, append([]V(nil), s...))
		return nil
	}))
	return out
}

func gridSlices[V grid.Value](g *grid.Grid[V]) [][]V {
	out := make([][]V, g.Bound()+1)
	for i := range out {
		out[i] = append([]V(nil), g.Slice(i)...)
	}
	return out
}

func TestManager_MatchesMemoryEngine(t *testing.T) {
	// Step counts keep the bound small enough for two slices to fit in maxBytes.
	t.Run("aether 2D", func(t *testing.T) {
		testMatchesEngine[int64](t, domain.VariantAether, 2, 1_000_000, 0, 640, 30)
	})
	t.Run("aether 2D background", func(t *testing.T) {
		testMatchesEngine[int64](t, domain.VariantAether, 2, 100_000, 7, 640, 30)
	})
	t.Run("aether 3D", func(t *testing.T) {
		testMatchesEngine[int32](t, domain.VariantAether, 3, 5000, 0, 2048, 15)
	})
	t.Run("aether 3D negative", func(t *testing.T) {
		testMatchesEngine[int32](t, domain.VariantAether, 3, -200, 0, 2048, 15)
	})
	t.Run("aether 3D negative 50 steps", func(t *testing.T) {
		testMatchesEngine[int32](t, domain.VariantAether, 3, -200, 0, 12<<10, 50)
	})
	t.Run("siv 2D", func(t *testing.T) {
		testMatchesEngine[int64](t, domain.VariantSIV, 2, 20_000, 0, 640, 30)
	})
}

func testMatchesEngine[V grid.Value](t *testing.T, variant domain.Variant, dim int, initial, background V, maxBytes int64, steps int) {
	ctx := context.Background()
	e, m := newPair(t, variant, dim, initial, background, memory.NewStore(), maxBytes)
	for step := 1; step <= steps; step++ {
		want, err := e.Step(ctx)
		require.NoError(t, err)
		got, err := m.Step(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got, "step %d", step)
		if diff := cmp.Diff(gridSlices(e.Grid()), slicesOf(t, m)); diff != "" {
			t.Fatalf("step %d: grid mismatch (-memory +swap):\n%s", step, diff)
		}
	}
}

func TestManager_StreamsSeveralBlocks(t *testing.T) {
	ctx := context.Background()
	var flushes, loads int
	hooks := domain.LifecycleHooks{
		OnBlockFlush: func(context.Context, *domain.BlockEvent) { flushes++ },
		OnBlockLoad:  func(context.Context, *domain.BlockEvent) { loads++ },
	}
	store := memory.NewStore()
	_, m := newPair[int64](t, domain.VariantAether, 2, 1_000_000, 0, store, 640, engine.WithHooks(hooks))
	for range 30 {
		_, err := m.Step(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, m.Flush(ctx))

	keys, err := store.ListBlocks(ctx)
	require.NoError(t, err)
	assert.Greater(t, len(keys), 1)
	for i := 1; i < len(keys); i++ {
		assert.Equal(t, keys[i-1].Max+1, keys[i].Min)
	}
	assert.Positive(t, flushes)
	assert.Positive(t, loads)
}

func TestManager_ValueAt(t *testing.T) {
	ctx := context.Background()
	e, m := newPair[int64](t, domain.VariantAether, 2, 1_000_000, 0, memory.NewStore(), 640)
	for range 25 {
		_, err := e.Step(ctx)
		require.NoError(t, err)
		_, err = m.Step(ctx)
		require.NoError(t, err)
	}

	bound := m.Bound() + 2
	for x := -bound; x <= bound; x++ {
		for y := -bound; y <= bound; y += 3 {
			c := []int{x, y}
			got, err := m.ValueAt(ctx, c)
			require.NoError(t, err)
			require.Equal(t, e.ValueAt(c), got, "value at %v", c)
		}
	}

	// Reads evicted resident blocks; stepping must still agree.
	_, err := e.Step(ctx)
	require.NoError(t, err)
	_, err = m.Step(ctx)
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(gridSlices(e.Grid()), slicesOf(t, m)))
}

func TestManager_ReadsDoNotWrite(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	e, m := newPair[int64](t, domain.VariantAether, 2, 1_000_000, 0, store, 640)
	for range 25 {
		_, err := e.Step(ctx)
		require.NoError(t, err)
		_, err = m.Step(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, m.Flush(ctx))

	var flushes, loads int
	hooks := domain.LifecycleHooks{
		OnBlockFlush: func(context.Context, *domain.BlockEvent) { flushes++ },
		OnBlockLoad:  func(context.Context, *domain.BlockEvent) { loads++ },
	}
	lat := newLattice(t, 2)
	factory, err := rule.NewFactory[int64](domain.VariantAether, 2)
	require.NoError(t, err)
	restored, err := swap.Restore(ctx, lat, factory(), 0, store, 640, m.Bound(), m.State(), engine.WithHooks(hooks))
	require.NoError(t, err)

	for x := m.Bound(); x >= 0; x-- {
		c := []int{x, x / 2}
		got, err := restored.ValueAt(ctx, c)
		require.NoError(t, err)
		require.Equal(t, e.ValueAt(c), got, "value at %v", c)
	}
	require.NoError(t, restored.Flush(ctx))
	assert.Zero(t, flushes, "point queries rewrote blocks")
	assert.Greater(t, loads, 1)

	_, err = restored.Step(ctx)
	require.NoError(t, err)
	assert.Positive(t, flushes)
}

func TestManager_WarnsBeforeOutgrowingBlocks(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer
	_, m := newPair[int32](t, domain.VariantAether, 3, -200, 0, memory.NewStore(), 2048,
		engine.WithLogger(logging.NewWithWriter(&logs, slog.LevelWarn, true)))

	const warning = "block size limit nearly exhausted"
	warnedAt := 0
	var err error
	step := 1
	for ; step <= 80; step++ {
		if _, err = m.Step(ctx); err != nil {
			break
		}
		if warnedAt == 0 && strings.Contains(logs.String(), warning) {
			warnedAt = step
		}
	}
	require.ErrorIs(t, err, domain.ErrBlockTooSmall)
	require.NotZero(t, warnedAt, "no warning before step %d failed", step)
	assert.Less(t, warnedAt, step)
	assert.Equal(t, 1, strings.Count(logs.String(), warning))
}

func TestManager_RestoreAndBackup(t *testing.T) {
	ctx := context.Background()
	lat := newLattice(t, 3)
	factory, err := rule.NewFactory[int32](domain.VariantAether, 3)
	require.NoError(t, err)

	store := memory.NewStore()
	m, err := swap.New(ctx, lat, factory(), -200, 0, store, 2048)
	require.NoError(t, err)
	for range 8 {
		_, err := m.Step(ctx)
		require.NoError(t, err)
	}

	backup := memory.NewStore()
	require.NoError(t, m.Backup(ctx, backup))
	restored, err := swap.Restore(ctx, lat, factory(), 0, backup, 2048, m.Bound(), m.State())
	require.NoError(t, err)
	assert.Equal(t, m.Result(), restored.Result())

	for step := 9; step <= 15; step++ {
		want, err := m.Step(ctx)
		require.NoError(t, err)
		got, err := restored.Step(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got, "step %d", step)
	}
	assert.Empty(t, cmp.Diff(slicesOf(t, m), slicesOf(t, restored)))
}

func TestManager_RejectsUsedStore(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.PutBlock(ctx, domain.BlockKey{Min: 0, Max: 3}, []byte{1}))

	lat := newLattice(t, 2)
	factory, err := rule.NewFactory[int64](domain.VariantAether, 2)
	require.NoError(t, err)
	_, err = swap.New(ctx, lat, factory(), 100, 0, store, 640)
	assert.ErrorIs(t, err, domain.ErrIncompatibleRun)
}

func TestManager_RestoreMissingHead(t *testing.T) {
	lat := newLattice(t, 2)
	factory, err := rule.NewFactory[int64](domain.VariantAether, 2)
	require.NoError(t, err)
	_, err = swap.Restore(context.Background(), lat, factory(), 0, memory.NewStore(), 640, 2, engine.State{})
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)
}

func TestManager_ValueAtMissingBlock(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	_, m := newPair[int64](t, domain.VariantAether, 2, 1_000_000, 0, store, 640)
	for range 20 {
		_, err := m.Step(ctx)
		require.NoError(t, err)
	}
	require.NoError(t, m.Flush(ctx))
	keys, err := store.ListBlocks(ctx)
	require.NoError(t, err)
	require.Greater(t, m.Bound(), keys[0].Max+1, "head block must not be resident")

	require.NoError(t, store.DeleteBlock(ctx, keys[0]))
	_, err = m.ValueAt(ctx, []int{0, 0})
	assert.ErrorIs(t, err, domain.ErrBlockNotFound)
}

type failingStore struct {
	ports.BlockStore
	puts int
}

var errDiskFull = errors.New("disk full")

func (s *failingStore) PutBlock(ctx context.Context, key domain.BlockKey, data []byte) error {
	if s.puts == 0 {
		return errDiskFull
	}
	s.puts--
	return s.BlockStore.PutBlock(ctx, key, data)
}

func TestManager_FailedStepIsFatal(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{BlockStore: memory.NewStore(), puts: 1 << 20}
	_, m := newPair[int64](t, domain.VariantAether, 2, 1_000_000, 0, store, 640)
	for range 20 {
		_, err := m.Step(ctx)
		require.NoError(t, err)
	}

	store.puts = 0
	_, err := m.Step(ctx)
	require.ErrorIs(t, err, errDiskFull)

	store.puts = 1 << 20
	_, err = m.Step(ctx)
	assert.ErrorIs(t, err, errDiskFull)
	_, err = m.ValueAt(ctx, []int{0, 0})
	assert.ErrorIs(t, err, errDiskFull)
}

func TestExportImportGrid(t *testing.T) {
	ctx := context.Background()
	lat := newLattice(t, 3)
	factory, err := rule.NewFactory[int32](domain.VariantAether, 3)
	require.NoError(t, err)
	e := engine.New(lat, engine.NewSequential(lat, factory(), 0), 5000, 0)
	for range 12 {
		_, err := e.Step(ctx)
		require.NoError(t, err)
	}

	store := memory.NewStore()
	require.NoError(t, store.PutBlock(ctx, domain.BlockKey{Min: 500, Max: 501}, []byte("stale")))
	require.NoError(t, swap.ExportGrid(ctx, e.Grid(), store, 2048))

	keys, err := store.ListBlocks(ctx)
	require.NoError(t, err)
	assert.NotContains(t, keys, domain.BlockKey{Min: 500, Max: 501})

	g, err := swap.ImportGrid[int32](ctx, lat, store, e.Grid().Bound())
	require.NoError(t, err)
	assert.Empty(t, cmp.Diff(gridSlices(e.Grid()), gridSlices(g)))

	m, err := swap.Restore(ctx, lat, factory(), 0, store, 2048, e.Grid().Bound(), e.State())
	require.NoError(t, err)
	want, err := e.Step(ctx)
	require.NoError(t, err)
	got, err := m.Step(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Empty(t, cmp.Diff(gridSlices(e.Grid()), slicesOf(t, m)))
}

// ctxStore fails every call made with a done context, like a network store would.
type ctxStore struct {
	*memory.Store
}

func (s ctxStore) PutBlock(ctx context.Context, key domain.BlockKey, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.Store.PutBlock(ctx, key, data)
}

func (s ctxStore) GetBlock(ctx context.Context, key domain.BlockKey) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Store.GetBlock(ctx, key)
}

func TestManager_CancelDuringStep(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	armed := false
	hooks := domain.LifecycleHooks{
		OnBlockFlush: func(context.Context, *domain.BlockEvent) {
			if armed {
				cancel()
			}
		},
	}
	e, m := newPair[int64](t, domain.VariantAether, 2, 1_000_000, 0, ctxStore{memory.NewStore()}, 640, engine.WithHooks(hooks))
	for step := 1; step <= 20; step++ {
		want, err := e.Step(ctx)
		require.NoError(t, err)
		got, err := m.Step(ctx)
		require.NoError(t, err)
		require.Equal(t, want, got)
	}

	armed = true
	want, err := e.Step(context.Background())
	require.NoError(t, err)
	got, err := m.Step(ctx)
	require.NoError(t, err, "a started step runs to the end")
	require.Error(t, ctx.Err())
	assert.Equal(t, want, got)

	_, err = m.Step(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	armed = false
	want, err = e.Step(context.Background())
	require.NoError(t, err)
	got, err = m.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	if diff := cmp.Diff(gridSlices(e.Grid()), slicesOf(t, m)); diff != "" {
		t.Errorf("slices differ (-engine +swap):\n%s", diff)
	}
}

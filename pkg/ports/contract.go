package ports

import (
	"context"
	"testing"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunRunStoreContract runs a suite of tests to verify that a RunStore implementation
// adheres to the defined interface contract. The store must start empty.
func RunRunStoreContract(t *testing.T, store RunStore) {
	ctx := context.Background()

	t.Run("Put and Get", func(t *testing.T) {
		key := domain.BlockKey{Min: 0, Max: 3}
		data := []byte{0x1f, 0x8b, 0x00, 0xff, 0x10}

		err := store.PutBlock(ctx, key, data)
		require.NoError(t, err, "PutBlock should not return error")

		loaded, err := store.GetBlock(ctx, key)
		require.NoError(t, err, "GetBlock should not return error")
		assert.Equal(t, data, loaded)

		// Overwrite
		err = store.PutBlock(ctx, key, []byte("second"))
		require.NoError(t, err)
		loaded, err = store.GetBlock(ctx, key)
		require.NoError(t, err)
		assert.Equal(t, []byte("second"), loaded)

		require.NoError(t, store.DeleteBlock(ctx, key))
	})

	t.Run("Get Non-Existent", func(t *testing.T) {
		_, err := store.GetBlock(ctx, domain.BlockKey{Min: 97, Max: 99})
		assert.ErrorIs(t, err, domain.ErrBlockNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		key := domain.BlockKey{Min: 4, Max: 6}
		require.NoError(t, store.PutBlock(ctx, key, []byte("x")))

		err := store.DeleteBlock(ctx, key)
		require.NoError(t, err, "DeleteBlock should not return error")

		_, err = store.GetBlock(ctx, key)
		assert.ErrorIs(t, err, domain.ErrBlockNotFound, "GetBlock after DeleteBlock should return ErrBlockNotFound")

		assert.NoError(t, store.DeleteBlock(ctx, key), "deleting a missing block is not an error")
	})

	t.Run("List", func(t *testing.T) {
		keys := []domain.BlockKey{{Min: 12, Max: 20}, {Min: 0, Max: 5}, {Min: 6, Max: 11}}
		for _, k := range keys {
			require.NoError(t, store.PutBlock(ctx, k, []byte("block")))
		}
		defer func() {
			for _, k := range keys {
				_ = store.DeleteBlock(ctx, k)
			}
		}()

		listed, err := store.ListBlocks(ctx)
		require.NoError(t, err)
		assert.Equal(t, []domain.BlockKey{{Min: 0, Max: 5}, {Min: 6, Max: 11}, {Min: 12, Max: 20}}, listed)
	})

	t.Run("Properties", func(t *testing.T) {
		_, err := store.LoadProperties(ctx)
		assert.ErrorIs(t, err, domain.ErrPropertiesNotFound)

		props := domain.Properties{
			RunID:        "contract-run",
			Variant:      domain.VariantAether,
			Dimension:    3,
			Width:        64,
			InitialValue: -200,
			Step:         50,
			Bound:        14,
			Maxima:       []int{13, 10, 7},
			Changed:      true,
			BlockSize:    4096,
			Mode:         domain.ModeSwap,
		}
		require.NoError(t, store.SaveProperties(ctx, props))

		loaded, err := store.LoadProperties(ctx)
		require.NoError(t, err)
		assert.Equal(t, props, loaded)
	})
}

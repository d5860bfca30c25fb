package memory_test

import (
	"context"
	"testing"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/adapters/memory"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	ports.RunRunStoreContract(t, memory.NewStore())
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	key := domain.BlockKey{Min: 0, Max: 1}

	data := []byte{1, 2, 3}
	require.NoError(t, store.PutBlock(ctx, key, data))
	data[0] = 9

	loaded, err := store.GetBlock(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, loaded)

	loaded[1] = 9
	again, err := store.GetBlock(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3}, again)
}

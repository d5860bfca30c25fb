package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/adapters/file"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore_Contract(t *testing.T) {
	ports.RunRunStoreContract(t, file.New(t.TempDir()))
}

func TestFileStore_Layout(t *testing.T) {
	dir := t.TempDir()
	store := file.New(dir)
	ctx := context.Background()

	require.NoError(t, store.PutBlock(ctx, domain.BlockKey{Min: 7, Max: 12}, []byte("data")))
	_, err := os.Stat(filepath.Join(dir, "grid", "minX=7_maxX=12.blk"))
	assert.NoError(t, err)

	// stray files are ignored, and no temp files are left behind
	require.NoError(t, os.WriteFile(filepath.Join(dir, "grid", "notes.txt"), []byte("x"), 0644))
	entries, err := os.ReadDir(filepath.Join(dir, "grid"))
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	keys, err := store.ListBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, []domain.BlockKey{{Min: 7, Max: 12}}, keys)
}

func TestFileStore_ListMissingDirectory(t *testing.T) {
	keys, err := file.New(filepath.Join(t.TempDir(), "absent")).ListBlocks(context.Background())
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestParseBlockFileName(t *testing.T) {
	key, ok := file.ParseBlockFileName("minX=0_maxX=41.blk")
	assert.True(t, ok)
	assert.Equal(t, domain.BlockKey{Min: 0, Max: 41}, key)

	for _, name := range []string{"minX=5_maxX=2.blk", "minX=1_maxX=2.json", "tmp-minX=1_maxX=2.blk-123", "minX=01_maxX=2.blk"} {
		_, ok := file.ParseBlockFileName(name)
		assert.False(t, ok, name)
	}
}

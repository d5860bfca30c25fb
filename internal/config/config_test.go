package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/config"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_YAML(t *testing.T) {
	path := write(t, "run.yaml", `
variant: siv
dimension: 3
width: 32
initial_value: 7000
background: -40
mode: swap
block_size_bytes: 65536
steps: 100
backup_every: 10
store:
  kind: file
  dir: /tmp/run
backup:
  kind: sqlite
  sqlite_path: /tmp/run.db
`)
	cfg, err := config.Load(path)
	require.NoError(t, err)

	m := cfg.Model()
	assert.Equal(t, domain.VariantSIV, m.Variant)
	assert.Equal(t, 3, m.Dimension)
	assert.Equal(t, int64(-40), m.Background)
	assert.Equal(t, domain.ModeSwap, m.Mode)
	assert.Equal(t, int64(65536), m.BlockSizeBytes)
	assert.Equal(t, int64(10), cfg.BackupEvery)
	assert.Equal(t, config.StoreFile, cfg.Store.Kind)
	assert.Equal(t, "/tmp/run.db", cfg.Backup.SQLitePath)
	// omitted fields keep their default
	assert.Equal(t, 1, cfg.Threads)
	assert.Equal(t, "info", cfg.LogLevel)
}

func TestLoad_JSON(t *testing.T) {
	path := write(t, "run.json", `{"dimension": 4, "initial_value": -1000, "store": {"kind": "redis", "redis_addr": "localhost:6379"}}`)
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 4, cfg.Dimension)
	assert.Equal(t, "aether", cfg.Variant)
	assert.Equal(t, "localhost:6379", cfg.Store.RedisAddr)
}

func TestLoad_Errors(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = config.Load(write(t, "bad.yaml", "dimension: [1"))
	assert.Error(t, err)

	_, err = config.Load(write(t, "dim.yaml", "dimension: 12"))
	assert.ErrorIs(t, err, domain.ErrInvalidDimension)

	_, err = config.Load(write(t, "store.yaml", "store: {kind: file}"))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)

	_, err = config.Load(write(t, "kind.yaml", "store: {kind: s3}"))
	assert.ErrorIs(t, err, domain.ErrInvalidConfig)
}

func TestStoreConfig_Encryption(t *testing.T) {
	enc, err := config.StoreConfig{Kind: config.StoreMemory}.Encryption()
	require.NoError(t, err)
	assert.Nil(t, enc)

	key := strings.Repeat("a1", 32)
	old := strings.Repeat("b2", 32)
	enc, err = config.StoreConfig{Kind: config.StoreMemory, EncryptionKey: key, FallbackKeys: []string{old}}.Encryption()
	require.NoError(t, err)
	assert.Len(t, enc.ActiveKey, 32)
	assert.Len(t, enc.FallbackKeys, 1)

	for _, bad := range []config.StoreConfig{
		{Kind: config.StoreMemory, EncryptionKey: "abc"},
		{Kind: config.StoreMemory, EncryptionKey: strings.Repeat("a1", 16)},
		{Kind: config.StoreMemory, EncryptionKey: key, FallbackKeys: []string{"zz"}},
		{Kind: config.StoreMemory, FallbackKeys: []string{old}},
	} {
		assert.ErrorIs(t, bad.Validate(), domain.ErrInvalidConfig)
	}
}

func TestDefault_IsValid(t *testing.T) {
	assert.NoError(t, config.Default().Validate())
}

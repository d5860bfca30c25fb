package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

const (
	gridDir        = "grid"
	blockExt       = ".blk"
	propertiesFile = "properties.json"
)

// Store implements ports.RunStore using the local filesystem.
// Blocks live in BasePath/grid as "minX=<min>_maxX=<max>.blk" files and the run properties
// in BasePath/properties.json.
type Store struct {
	BasePath string
}

// New creates a new Store with the given base path.
// If basePath is empty, it defaults to ".toppling/run".
func New(basePath string) *Store {
	if basePath == "" {
		basePath = filepath.Join(".toppling", "run")
	}
	return &Store{BasePath: basePath}
}

// BlockFileName returns the file name a block is stored under.
func BlockFileName(key domain.BlockKey) string {
	return fmt.Sprintf("minX=%d_maxX=%d%s", key.Min, key.Max, blockExt)
}

// ParseBlockFileName extracts the key from a block file name.
func ParseBlockFileName(name string) (domain.BlockKey, bool) {
	var key domain.BlockKey
	if !strings.HasSuffix(name, blockExt) {
		return key, false
	}
	n, err := fmt.Sscanf(strings.TrimSuffix(name, blockExt), "minX=%d_maxX=%d", &key.Min, &key.Max)
	if err != nil || n != 2 || key.Min > key.Max || BlockFileName(key) != name {
		return key, false
	}
	return key, true
}

func (s *Store) gridPath() string {
	return filepath.Join(s.BasePath, gridDir)
}

// writeAtomic writes data to dir/name atomically.
// It writes to a temporary file first, syncs via fsync, and then renames it to the destination.
func writeAtomic(dir, name string, data []byte) error {
	// Ensure directory exists
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to ensure directory: %w", err)
	}

	destPath := filepath.Join(dir, name)

	// 1. Create Temp File
	// we use the same directory to ensure we are on the same filesystem (required for atomic rename)
	tmpFile, err := os.CreateTemp(dir, "tmp-"+name+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	// Cleanup temp file in case of failure
	defer func() {
		_ = tmpFile.Close()
		_ = os.Remove(tmpPath)
	}()

	// 2. Write Data
	if _, err := tmpFile.Write(data); err != nil {
		return fmt.Errorf("failed to write to temp file: %w", err)
	}

	// 3. Fsync to ensure durability
	if err := tmpFile.Sync(); err != nil {
		return fmt.Errorf("failed to fsync temp file: %w", err)
	}

	// 4. Close File (cannot rename open file on Windows)
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	// 5. Atomic Rename
	// On Windows, os.Rename fails if dest exists. We must remove it first.
	if _, err := os.Stat(destPath); err == nil {
		if err := os.Remove(destPath); err != nil {
			return fmt.Errorf("failed to remove existing file for overwrite: %w", err)
		}
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return fmt.Errorf("failed to rename temp file into place: %w", err)
	}
	return nil
}

// PutBlock persists a block file atomically.
func (s *Store) PutBlock(ctx context.Context, key domain.BlockKey, data []byte) error {
	if err := writeAtomic(s.gridPath(), BlockFileName(key), data); err != nil {
		return fmt.Errorf("failed to save block %d-%d: %w", key.Min, key.Max, err)
	}
	return nil
}

// GetBlock reads a block file.
func (s *Store) GetBlock(ctx context.Context, key domain.BlockKey) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(s.gridPath(), BlockFileName(key)))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.ErrBlockNotFound
		}
		return nil, fmt.Errorf("failed to read block file: %w", err)
	}
	return data, nil
}

// ListBlocks scans the grid directory for block files.
func (s *Store) ListBlocks(ctx context.Context) ([]domain.BlockKey, error) {
	entries, err := os.ReadDir(s.gridPath())
	if err != nil {
		if os.IsNotExist(err) {
			return []domain.BlockKey{}, nil
		}
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}

	keys := []domain.BlockKey{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if key, ok := ParseBlockFileName(entry.Name()); ok {
			keys = append(keys, key)
		}
	}
	slices.SortFunc(keys, func(a, b domain.BlockKey) int { return a.Min - b.Min })
	return keys, nil
}

// DeleteBlock removes a block file.
func (s *Store) DeleteBlock(ctx context.Context, key domain.BlockKey) error {
	err := os.Remove(filepath.Join(s.gridPath(), BlockFileName(key)))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete block file: %w", err)
	}
	return nil
}

// SaveProperties persists the run properties as JSON.
func (s *Store) SaveProperties(ctx context.Context, props domain.Properties) error {
	data, err := json.MarshalIndent(props.ToMap(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal properties: %w", err)
	}
	if err := writeAtomic(s.BasePath, propertiesFile, data); err != nil {
		return fmt.Errorf("failed to save properties: %w", err)
	}
	return nil
}

// LoadProperties reads the run properties.
func (s *Store) LoadProperties(ctx context.Context) (domain.Properties, error) {
	data, err := os.ReadFile(filepath.Join(s.BasePath, propertiesFile))
	if err != nil {
		if os.IsNotExist(err) {
			return domain.Properties{}, domain.ErrPropertiesNotFound
		}
		return domain.Properties{}, fmt.Errorf("failed to read properties file: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Properties{}, fmt.Errorf("failed to unmarshal properties: %w", err)
	}
	return domain.PropertiesFromMap(m)
}

// Package sqlite stores run blocks and properties in a single SQLite database file, using the
// pure Go modernc.org/sqlite driver.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS blocks (
	min_x INTEGER NOT NULL,
	max_x INTEGER NOT NULL,
	data BLOB NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
	PRIMARY KEY (min_x, max_x)
);
CREATE TABLE IF NOT EXISTS properties (
	id INTEGER PRIMARY KEY CHECK (id = 1),
	data TEXT NOT NULL,
	updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// Store implements ports.RunStore on SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// a single connection serializes writers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &Store{db: db}, nil
}

// PutBlock inserts or replaces a block.
func (s *Store) PutBlock(ctx context.Context, key domain.BlockKey, data []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO blocks (min_x, max_x, data) VALUES (?, ?, ?)
		 ON CONFLICT (min_x, max_x) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		key.Min, key.Max, data)
	if err != nil {
		return fmt.Errorf("failed to save block %d-%d: %w", key.Min, key.Max, err)
	}
	return nil
}

// GetBlock retrieves a block.
func (s *Store) GetBlock(ctx context.Context, key domain.BlockKey) ([]byte, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM blocks WHERE min_x = ? AND max_x = ?`, key.Min, key.Max).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrBlockNotFound
		}
		return nil, fmt.Errorf("failed to read block: %w", err)
	}
	return data, nil
}

// ListBlocks returns the stored keys ordered by Min.
func (s *Store) ListBlocks(ctx context.Context) ([]domain.BlockKey, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT min_x, max_x FROM blocks ORDER BY min_x, max_x`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}
	defer rows.Close()

	keys := []domain.BlockKey{}
	for rows.Next() {
		var k domain.BlockKey
		if err := rows.Scan(&k.Min, &k.Max); err != nil {
			return nil, fmt.Errorf("failed to scan block key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// DeleteBlock removes a block.
func (s *Store) DeleteBlock(ctx context.Context, key domain.BlockKey) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blocks WHERE min_x = ? AND max_x = ?`, key.Min, key.Max); err != nil {
		return fmt.Errorf("failed to delete block: %w", err)
	}
	return nil
}

// SaveProperties stores the run properties as a JSON document.
func (s *Store) SaveProperties(ctx context.Context, props domain.Properties) error {
	data, err := json.Marshal(props.ToMap())
	if err != nil {
		return fmt.Errorf("failed to marshal properties: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO properties (id, data) VALUES (1, ?)
		 ON CONFLICT (id) DO UPDATE SET data = excluded.data, updated_at = CURRENT_TIMESTAMP`,
		string(data))
	if err != nil {
		return fmt.Errorf("failed to save properties: %w", err)
	}
	return nil
}

// LoadProperties retrieves the run properties.
func (s *Store) LoadProperties(ctx context.Context) (domain.Properties, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT data FROM properties WHERE id = 1`).Scan(&data)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Properties{}, domain.ErrPropertiesNotFound
		}
		return domain.Properties{}, fmt.Errorf("failed to read properties: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(data), &m); err != nil {
		return domain.Properties{}, fmt.Errorf("failed to unmarshal properties: %w", err)
	}
	return domain.PropertiesFromMap(m)
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// Store implements ports.RunStore in memory.
// Safe for concurrent use.
type Store struct {
	blocks map[domain.BlockKey][]byte
	props  *domain.Properties
	mu     sync.RWMutex
}

// NewStore creates a new in-memory store.
func NewStore() *Store {
	return &Store{
		blocks: make(map[domain.BlockKey][]byte),
	}
}

// PutBlock stores a copy of data.
func (s *Store) PutBlock(ctx context.Context, key domain.BlockKey, data []byte) error {
	// Copy to ensure isolation, similar to serialization
	copied := slices.Clone(data)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.blocks[key] = copied
	return nil
}

// GetBlock retrieves a copy of the stored data.
func (s *Store) GetBlock(ctx context.Context, key domain.BlockKey) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.blocks[key]
	if !ok {
		return nil, domain.ErrBlockNotFound
	}
	return slices.Clone(data), nil
}

// ListBlocks returns the stored keys ordered by Min.
func (s *Store) ListBlocks(ctx context.Context) ([]domain.BlockKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	keys := make([]domain.BlockKey, 0, len(s.blocks))
	for k := range s.blocks {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b domain.BlockKey) int { return a.Min - b.Min })
	return keys, nil
}

// DeleteBlock removes a block.
func (s *Store) DeleteBlock(ctx context.Context, key domain.BlockKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.blocks, key)
	return nil
}

// SaveProperties stores a copy of props.
func (s *Store) SaveProperties(ctx context.Context, props domain.Properties) error {
	props.Maxima = slices.Clone(props.Maxima)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.props = &props
	return nil
}

// LoadProperties returns a copy of the stored properties.
func (s *Store) LoadProperties(ctx context.Context) (domain.Properties, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.props == nil {
		return domain.Properties{}, domain.ErrPropertiesNotFound
	}
	ret := *s.props
	ret.Maxima = slices.Clone(s.props.Maxima)
	return ret, nil
}

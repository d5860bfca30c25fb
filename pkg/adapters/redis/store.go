package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	backend "github.com/redis/go-redis/v9"
)

const defaultPrefix = "toppling:run:"

// Store implements ports.RunStore using Redis.
// Blocks are plain string keys; a sorted set scored by Min indexes them.
type Store struct {
	client *backend.Client
	prefix string
}

type Option func(*Store)

// WithPrefix sets the key prefix, typically one per run.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		s.prefix = prefix
	}
}

// New creates a new Redis store with options.
func New(address, password string, db int, opts ...Option) *Store {
	rdb := backend.NewClient(&backend.Options{
		Addr:     address,
		Password: password,
		DB:       db,
	})
	return NewFromClient(rdb, opts...)
}

// NewFromClient creates a new Redis store from an existing client.
func NewFromClient(client *backend.Client, opts ...Option) *Store {
	store := &Store{
		client: client,
		prefix: defaultPrefix,
	}

	for _, opt := range opts {
		opt(store)
	}

	return store
}

// Client returns the underlying client, e.g. to build a Locker sharing the connection.
func (s *Store) Client() *backend.Client {
	return s.client
}

func member(key domain.BlockKey) string {
	return fmt.Sprintf("%d:%d", key.Min, key.Max)
}

func (s *Store) blockKey(key domain.BlockKey) string {
	return s.prefix + "block:" + member(key)
}

func (s *Store) indexKey() string {
	return s.prefix + "blocks"
}

func (s *Store) propertiesKey() string {
	return s.prefix + "properties"
}

// PutBlock stores the block and indexes it.
func (s *Store) PutBlock(ctx context.Context, key domain.BlockKey, data []byte) error {
	pipe := s.client.Pipeline()

	pipe.Set(ctx, s.blockKey(key), data, 0)
	pipe.ZAdd(ctx, s.indexKey(), backend.Z{
		Score:  float64(key.Min),
		Member: member(key),
	})

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save block to redis: %w", err)
	}
	return nil
}

// GetBlock retrieves a block.
func (s *Store) GetBlock(ctx context.Context, key domain.BlockKey) ([]byte, error) {
	data, err := s.client.Get(ctx, s.blockKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return nil, domain.ErrBlockNotFound
		}
		return nil, fmt.Errorf("failed to get block from redis: %w", err)
	}
	return data, nil
}

// ListBlocks returns the indexed keys ordered by Min.
func (s *Store) ListBlocks(ctx context.Context) ([]domain.BlockKey, error) {
	members, err := s.client.ZRange(ctx, s.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list blocks: %w", err)
	}

	keys := make([]domain.BlockKey, 0, len(members))
	for _, m := range members {
		var k domain.BlockKey
		if _, err := fmt.Sscanf(m, "%d:%d", &k.Min, &k.Max); err != nil {
			return nil, fmt.Errorf("%w: bad index member %q", domain.ErrCorruptBlock, m)
		}
		keys = append(keys, k)
	}
	// members sharing a score come back in lexical order
	slices.SortStableFunc(keys, func(a, b domain.BlockKey) int { return a.Min - b.Min })
	return keys, nil
}

// DeleteBlock removes a block and its index entry.
func (s *Store) DeleteBlock(ctx context.Context, key domain.BlockKey) error {
	pipe := s.client.Pipeline()

	pipe.Del(ctx, s.blockKey(key))
	pipe.ZRem(ctx, s.indexKey(), member(key))

	_, err := pipe.Exec(ctx)
	return err
}

// SaveProperties stores the run properties as JSON.
func (s *Store) SaveProperties(ctx context.Context, props domain.Properties) error {
	data, err := json.Marshal(props.ToMap())
	if err != nil {
		return fmt.Errorf("failed to marshal properties: %w", err)
	}
	if err := s.client.Set(ctx, s.propertiesKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("failed to save properties to redis: %w", err)
	}
	return nil
}

// LoadProperties retrieves the run properties.
func (s *Store) LoadProperties(ctx context.Context) (domain.Properties, error) {
	val, err := s.client.Get(ctx, s.propertiesKey()).Result()
	if err != nil {
		if errors.Is(err, backend.Nil) {
			return domain.Properties{}, domain.ErrPropertiesNotFound
		}
		return domain.Properties{}, fmt.Errorf("failed to get properties from redis: %w", err)
	}

	var m map[string]any
	if err := json.Unmarshal([]byte(val), &m); err != nil {
		return domain.Properties{}, fmt.Errorf("failed to unmarshal properties: %w", err)
	}
	return domain.PropertiesFromMap(m)
}

// Close closes the redis client.
func (s *Store) Close() error {
	return s.client.Close()
}

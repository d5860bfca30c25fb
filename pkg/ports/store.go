package ports

import (
	"context"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// BlockStore persists serialized blocks of slices.
// This is what lets a run stream a domain larger than memory, and survive a restart.
type BlockStore interface {
	// PutBlock stores data under key, replacing any previous content.
	PutBlock(ctx context.Context, key domain.BlockKey, data []byte) error

	// GetBlock retrieves the data stored under key.
	// Returns domain.ErrBlockNotFound if the block does not exist.
	GetBlock(ctx context.Context, key domain.BlockKey) ([]byte, error)

	// ListBlocks returns the keys of every stored block, ordered by Min.
	ListBlocks(ctx context.Context) ([]domain.BlockKey, error)

	// DeleteBlock removes the block stored under key. Deleting a missing block is not an error.
	DeleteBlock(ctx context.Context, key domain.BlockKey) error
}

// PropertiesStore persists the properties of a run.
type PropertiesStore interface {
	// SaveProperties stores the run properties, replacing any previous content.
	SaveProperties(ctx context.Context, props domain.Properties) error

	// LoadProperties retrieves the run properties.
	// Returns domain.ErrPropertiesNotFound if none were saved.
	LoadProperties(ctx context.Context) (domain.Properties, error)
}

// RunStore holds everything needed to restore a run.
type RunStore interface {
	BlockStore
	PropertiesStore
}

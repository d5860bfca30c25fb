package toppling

import (
	"log/slog"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/ports"
)

type settings struct {
	logger  *slog.Logger
	hooks   domain.LifecycleHooks
	store   ports.RunStore
	runID   string
	mode    domain.Mode
	threads int
}

// Option defines a functional option for configuring a Model.
type Option func(*settings)

// WithLogger sets a custom structured logger for the model.
func WithLogger(logger *slog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithHooks registers observability hooks. Repeated calls merge the hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *settings) {
		s.hooks = s.hooks.Merge(hooks)
	}
}

// WithStore sets the store that holds the blocks of a swap run. It defaults to an in-memory
// store. Close saves the run properties next to the blocks, making the store restorable.
func WithStore(store ports.RunStore) Option {
	return func(s *settings) {
		s.store = store
	}
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(s *settings) {
		s.runID = id
	}
}

// WithMode makes Restore resume the run in a different mode than it was saved in.
func WithMode(mode domain.Mode) Option {
	return func(s *settings) {
		s.mode = mode
	}
}

// WithThreads sets the workers of a parallel run resumed by Restore.
func WithThreads(threads int) Option {
	return func(s *settings) {
		s.threads = threads
	}
}

package engine

import (
	"log/slog"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/logging"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// Settings holds the ambient collaborators shared by every model implementation.
type Settings struct {
	Logger *slog.Logger
	Hooks  domain.LifecycleHooks
	RunID  string
}

// Option configures Settings.
type Option func(*Settings)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Settings) {
		s.Logger = logger
	}
}

// WithHooks registers lifecycle hooks.
func WithHooks(hooks domain.LifecycleHooks) Option {
	return func(s *Settings) {
		s.Hooks = hooks
	}
}

// WithRunID tags emitted events with the run identifier.
func WithRunID(id string) Option {
	return func(s *Settings) {
		s.RunID = id
	}
}

// NewSettings applies opts over the defaults.
func NewSettings(opts ...Option) Settings {
	s := Settings{Logger: logging.NewNop()}
	for _, opt := range opts {
		opt(&s)
	}
	if s.Logger == nil {
		s.Logger = logging.NewNop()
	}
	return s
}

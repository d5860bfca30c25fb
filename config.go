package toppling

import (
	"fmt"

	"github.com/JaumeRibas/Aether2DImgMaker-sub016/internal/lattice"
	"github.com/JaumeRibas/Aether2DImgMaker-sub016/pkg/domain"
)

// DefaultBlockSize is the block byte limit used when none is configured.
const DefaultBlockSize = 64 << 20

// WidthArbitrary selects arbitrary precision cells. Such runs never overflow and are only
// available in memory mode.
const WidthArbitrary = 0

// Config describes a new run.
type Config struct {
	Variant      domain.Variant
	Dimension    int
	Width        int // bits per cell: 16, 32, 64 or WidthArbitrary
	InitialValue int64
	Background   int64 // SIV only; Aether always runs over 0
	Mode         domain.Mode
	Threads      int // parallel mode workers

	// BlockSizeBytes bounds each block in swap mode and in backups. Every block holds at
	// least two slices and slices grow with the domain, so a swap run fails with
	// domain.ErrBlockTooSmall at the first step whose slices outgrow the limit. The run logs
	// a warning when fewer than three slices past its bound still fit.
	BlockSizeBytes int64
}

// DefaultConfig returns a 2D Aether run of 64-bit cells in memory.
func DefaultConfig() Config {
	return Config{
		Variant:        domain.VariantAether,
		Dimension:      2,
		Width:          64,
		InitialValue:   1_000_000,
		Mode:           domain.ModeMemory,
		Threads:        1,
		BlockSizeBytes: DefaultBlockSize,
	}
}

// Validate checks the configuration for consistency. It does not run the overflow guard.
func (c Config) Validate() error {
	if !c.Variant.Valid() {
		return fmt.Errorf("%w: unknown variant %q", domain.ErrInvalidConfig, c.Variant)
	}
	if c.Dimension < 1 || c.Dimension > lattice.MaxDimension {
		return fmt.Errorf("%w: %d, want 1 to %d", domain.ErrInvalidDimension, c.Dimension, lattice.MaxDimension)
	}
	switch c.Width {
	case WidthArbitrary, 16, 32, 64:
	default:
		return fmt.Errorf("%w: width %d, want 0, 16, 32 or 64", domain.ErrInvalidConfig, c.Width)
	}
	if !c.Mode.Valid() {
		return fmt.Errorf("%w: unknown mode %q", domain.ErrInvalidConfig, c.Mode)
	}
	if c.Width == WidthArbitrary && c.Mode != domain.ModeMemory {
		return fmt.Errorf("%w: arbitrary precision runs in memory mode only, not %s", domain.ErrInvalidConfig, c.Mode)
	}
	if c.Variant == domain.VariantAether && c.Background != 0 {
		return fmt.Errorf("%w: aether runs over a zero background", domain.ErrInvalidConfig)
	}
	if c.InitialValue == 0 {
		return fmt.Errorf("%w: initial value must not be zero", domain.ErrInvalidConfig)
	}
	if c.Mode == domain.ModeParallel && c.Threads < 1 {
		return fmt.Errorf("%w: parallel mode needs at least one thread", domain.ErrInvalidConfig)
	}
	if c.BlockSizeBytes < 0 {
		return fmt.Errorf("%w: negative block size", domain.ErrInvalidConfig)
	}
	return nil
}

func (c Config) blockSize() int64 {
	if c.BlockSizeBytes == 0 {
		return DefaultBlockSize
	}
	return c.BlockSizeBytes
}

func configFromProperties(p domain.Properties) Config {
	return Config{
		Variant:        p.Variant,
		Dimension:      p.Dimension,
		Width:          p.Width,
		InitialValue:   p.InitialValue,
		Background:     p.Background,
		Mode:           p.Mode,
		Threads:        1,
		BlockSizeBytes: p.BlockSize,
	}
}

package domain

// Variant names a toppling rule.
type Variant string

const (
	VariantAether Variant = "aether" // Aether: share with strictly smaller neighbors
	VariantSIV    Variant = "siv"    // Spread Integer Value: share evenly with every neighbor
)

// Valid reports whether v names a known rule.
func (v Variant) Valid() bool {
	return v == VariantAether || v == VariantSIV
}

// Mode selects how a model computes its steps.
type Mode string

const (
	ModeMemory   Mode = "memory"   // whole domain resident, single worker
	ModeSwap     Mode = "swap"     // domain streamed through size-limited blocks
	ModeParallel Mode = "parallel" // whole domain resident, volume-balanced workers
)

// Valid reports whether m names a known mode.
func (m Mode) Valid() bool {
	return m == ModeMemory || m == ModeSwap || m == ModeParallel
}

// Field constants for mapstructure and JSON standardization of Properties.
const (
	KeyRunID         = "run_id"
	KeyVariant       = "variant"
	KeyDimension     = "dimension"
	KeyWidth         = "width"
	KeyInitialValue  = "initial_value"
	KeyBackground    = "background"
	KeyStep          = "step"
	KeyBound         = "bound"
	KeyMaxima        = "maxima"
	KeyBoundsReached = "bounds_reached"
	KeyChanged       = "changed"
	KeyBlockSize     = "block_size_bytes"
	KeyMode          = "mode"
)

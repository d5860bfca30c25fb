package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Properties is the persisted state of a run. Together with the stored blocks it is enough
// to restore a model and continue stepping.
type Properties struct {
	RunID         string  `json:"run_id" mapstructure:"run_id"`
	Variant       Variant `json:"variant" mapstructure:"variant"`
	Dimension     int     `json:"dimension" mapstructure:"dimension"`
	Width         int     `json:"width" mapstructure:"width"`
	InitialValue  int64   `json:"initial_value" mapstructure:"initial_value"`
	Background    int64   `json:"background" mapstructure:"background"`
	Step          int64   `json:"step" mapstructure:"step"`
	Bound         int     `json:"bound" mapstructure:"bound"`
	Maxima        []int   `json:"maxima" mapstructure:"maxima"`
	BoundsReached bool    `json:"bounds_reached" mapstructure:"bounds_reached"`
	Changed       bool    `json:"changed" mapstructure:"changed"`
	BlockSize     int64   `json:"block_size_bytes" mapstructure:"block_size_bytes"`
	Mode          Mode    `json:"mode" mapstructure:"mode"`
}

// ToMap flattens the properties into a generic map, the form stores persist.
func (p Properties) ToMap() map[string]any {
	maxima := make([]any, len(p.Maxima))
	for i, m := range p.Maxima {
		maxima[i] = m
	}
	return map[string]any{
		KeyRunID:         p.RunID,
		KeyVariant:       string(p.Variant),
		KeyDimension:     p.Dimension,
		KeyWidth:         p.Width,
		KeyInitialValue:  p.InitialValue,
		KeyBackground:    p.Background,
		KeyStep:          p.Step,
		KeyBound:         p.Bound,
		KeyMaxima:        maxima,
		KeyBoundsReached: p.BoundsReached,
		KeyChanged:       p.Changed,
		KeyBlockSize:     p.BlockSize,
		KeyMode:          string(p.Mode),
	}
}

// PropertiesFromMap decodes a generic map (typically a decoded JSON object, where every
// number is a float64) back into Properties.
func PropertiesFromMap(m map[string]any) (Properties, error) {
	var p Properties
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      false,
		Result:           &p,
	})
	if err != nil {
		return p, fmt.Errorf("failed to build properties decoder: %w", err)
	}
	if err := decoder.Decode(m); err != nil {
		return p, fmt.Errorf("failed to decode properties: %w", err)
	}
	return p, nil
}

// Validate checks the internal consistency of decoded properties.
func (p Properties) Validate() error {
	if !p.Variant.Valid() {
		return fmt.Errorf("%w: unknown variant %q", ErrIncompatibleRun, p.Variant)
	}
	if p.Dimension < 1 || len(p.Maxima) != p.Dimension {
		return fmt.Errorf("%w: dimension %d with %d maxima", ErrIncompatibleRun, p.Dimension, len(p.Maxima))
	}
	if p.Bound < 0 || p.Step < 0 {
		return fmt.Errorf("%w: negative bound or step", ErrIncompatibleRun)
	}
	return nil
}

// Package layers decides which board layers receive a pixel's polygon.
package layers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/MeKo-Tech/silkgen/internal/raster"
)

// Side selects the board side the footprint is placed on.
type Side string

const (
	Front Side = "front"
	Back  Side = "back"
)

// ErrInvalidSide is returned for an unknown side name.
var ErrInvalidSide = errors.New("invalid board side")

// ParseSide accepts "front"/"back" and the short forms "f"/"b".
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "front", "f":
		return Front, nil
	case "back", "b":
		return Back, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidSide, s)
	}
}

func (s Side) prefix() string {
	if s == Back {
		return "B."
	}
	return "F."
}

// Layer names without side prefix.
const (
	silkscreen = "SilkS"
	copper     = "Cu"
	mask       = "Mask"
)

// Policy maps pixel kinds onto layers. It never affects geometry.
type Policy struct {
	// Invert swaps the layers of Light and Dark pixels.
	Invert bool
	Side   Side
}

// DefaultPolicy is the front side without inversion.
func DefaultPolicy() Policy {
	return Policy{Side: Front}
}

// Validate checks the side.
func (p Policy) Validate() error {
	if p.Side != Front && p.Side != Back {
		return fmt.Errorf("%w: %q", ErrInvalidSide, p.Side)
	}
	return nil
}

// Layers returns the layers a pixel of kind k is drawn on, in output order.
// Transparent pixels are drawn on none.
func (p Policy) Layers(k raster.Kind) []string {
	if p.Invert {
		switch k {
		case raster.Light:
			k = raster.Dark
		case raster.Dark:
			k = raster.Light
		}
	}
	pre := p.Side.prefix()
	switch k {
	case raster.Light:
		return []string{pre + silkscreen}
	case raster.Dark:
		return []string{pre + copper, pre + mask}
	default:
		return nil
	}
}

// All returns every layer the policy can emit.
func (p Policy) All() []string {
	pre := p.Side.prefix()
	return []string{pre + silkscreen, pre + copper, pre + mask}
}

// FootprintLayer is the layer named in the footprint header.
func (p Policy) FootprintLayer() string {
	return p.Side.prefix() + "Silkscreen"
}

// FabLayer is the layer of the reference and value texts.
func (p Policy) FabLayer() string {
	return p.Side.prefix() + "Fab"
}

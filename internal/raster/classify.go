package raster

import "math"

// Kind is the ternary classification of a pixel.
type Kind uint8

const (
	// Transparent pixels are not significant and produce no geometry.
	Transparent Kind = iota
	// Light pixels receive clearance from adjacent Dark pixels.
	Light
	// Dark pixels always fill their whole cell.
	Dark
)

// half is the integer midpoint of an 8-bit channel.
const half = math.MaxUint8 / 2

// Classify maps one sample to its kind: alpha below half is Transparent,
// otherwise luminance above half is Light and everything else Dark.
func Classify(s Sample) Kind {
	switch {
	case s.Alpha < half:
		return Transparent
	case s.Luma > half:
		return Light
	default:
		return Dark
	}
}

// Significant reports whether the kind produces geometry.
func (k Kind) Significant() bool {
	return k == Light || k == Dark
}

func (k Kind) String() string {
	switch k {
	case Transparent:
		return "transparent"
	case Light:
		return "light"
	case Dark:
		return "dark"
	default:
		return "unknown"
	}
}

// MarshalText encodes the kind by name.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

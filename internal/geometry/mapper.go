// Package geometry turns classified pixels into physical polygon outlines.
//
// A Generator is created once per image from the extents of its significant
// pixels. Polygon is then a pure function of one pixel, its kind and its
// neighborhood, so pixels can be processed in any order or concurrently.
package geometry

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/silkgen/internal/raster"
	"github.com/MeKo-Tech/silkgen/internal/units"
)

// MaxPixelPitch bounds the pitch to one meter per pixel.
var MaxPixelPitch = units.FromMillimeters(1000)

var (
	// ErrInvalidPitch is returned for a pixel pitch that is not positive.
	ErrInvalidPitch = errors.New("pixel pitch must be positive")
	// ErrPitchTooLarge is returned for a pitch above MaxPixelPitch.
	ErrPitchTooLarge = errors.New("pixel pitch too large")
	// ErrOutlineTooLarge is returned when the artwork spans more than a Dim
	// can hold at the configured pitch.
	ErrOutlineTooLarge = errors.New("artwork too large for the pixel pitch")
	// ErrNegativeClearance is returned for a clearance below zero.
	ErrNegativeClearance = errors.New("clearance must not be negative")
)

// Config holds the physical parameters of a run.
type Config struct {
	// PixelPitch is the physical size of one grid cell.
	PixelPitch units.Dim
	// Clearance is carved from Light pixels where they meet Dark ones.
	Clearance units.Dim
}

// DefaultConfig returns a 1mm pitch with 0.1mm clearance.
func DefaultConfig() Config {
	return Config{
		PixelPitch: units.Millimeter,
		Clearance:  units.MustParseDim("0.1mm"),
	}
}

// Validate checks the pitch and clearance ranges.
func (c Config) Validate() error {
	if c.PixelPitch <= 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPitch, c.PixelPitch)
	}
	if c.PixelPitch > MaxPixelPitch {
		return fmt.Errorf("%w: %s > %s", ErrPitchTooLarge, c.PixelPitch, MaxPixelPitch)
	}
	if c.Clearance < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeClearance, c.Clearance)
	}
	return nil
}

// CheckExtents reports whether every coordinate of an image with the given
// extents fits into a Dim. Pixel edges lie at most ext.Width() (or Height)
// pixels from the origin.
func (c Config) CheckExtents(ext raster.Extents) error {
	span := max(ext.Width(), ext.Height())
	reach, err := c.PixelPitch.MulIntChecked(span)
	if err == nil && reach > units.MaxDim-c.Clearance {
		err = units.ErrOutOfRange
	}
	if err != nil {
		return fmt.Errorf("%w: %d pixels at %s: %w", ErrOutlineTooLarge, span, c.PixelPitch, err)
	}
	return nil
}

// Mapper converts grid coordinates into physical coordinates around a
// center.
type Mapper struct {
	Pitch units.Dim
}

// Physical returns pitch * |p - center|, negated when p lies before the
// center.
func (m Mapper) Physical(p, center uint32) units.Dim {
	return m.Pitch.MulInt(units.AbsDiff(p, center)).NegIf(p < center)
}

// Position maps both axes of p.
func (m Mapper) Position(p, center units.PixelPos) units.Pos {
	return units.Pos{
		X: m.Physical(p.X, center.X),
		Y: m.Physical(p.Y, center.Y),
	}
}

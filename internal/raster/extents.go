package raster

import (
	"errors"
	"fmt"
	"math"

	"github.com/MeKo-Tech/silkgen/internal/units"
)

// ErrNoSignificantPixels means the grid contains only transparent pixels, so
// there is no center to map coordinates around.
var ErrNoSignificantPixels = errors.New("image has no significant (non-transparent) pixels")

// Extents is the bounding box of all significant pixels, inclusive on both
// ends.
type Extents struct {
	Min units.PixelPos `json:"min" yaml:"min"`
	Max units.PixelPos `json:"max" yaml:"max"`
}

// Center is the floor of the componentwise midpoint.
func (e Extents) Center() units.PixelPos {
	return units.PixelPos{
		X: e.Min.X + (e.Max.X-e.Min.X)/2,
		Y: e.Min.Y + (e.Max.Y-e.Min.Y)/2,
	}
}

// Width returns the number of pixel columns covered.
func (e Extents) Width() uint32 { return e.Max.X - e.Min.X + 1 }

// Height returns the number of pixel rows covered.
func (e Extents) Height() uint32 { return e.Max.Y - e.Min.Y + 1 }

func (e Extents) String() string {
	return fmt.Sprintf("%s-%s", e.Min, e.Max)
}

// ComputeExtents scans the grid once and folds every significant pixel into
// a running bounding box. A grid without significant pixels yields
// ErrNoSignificantPixels rather than a degenerate box.
func ComputeExtents(g *Grid) (Extents, error) {
	if g == nil {
		return Extents{}, ErrNoSignificantPixels
	}

	minX, minY := uint32(math.MaxUint32), uint32(math.MaxUint32)
	var maxX, maxY uint32
	found := false

	for y := range g.Height {
		for x := range g.Width {
			if !Classify(g.At(x, y)).Significant() {
				continue
			}
			found = true
			ux, uy := uint32(x), uint32(y) //nolint:gosec // G115: grid indices are non-negative
			minX, maxX = min(minX, ux), max(maxX, ux)
			minY, maxY = min(minY, uy), max(maxY, uy)
		}
	}

	if !found {
		return Extents{}, ErrNoSignificantPixels
	}
	return Extents{
		Min: units.PixelPos{X: minX, Y: minY},
		Max: units.PixelPos{X: maxX, Y: maxY},
	}, nil
}

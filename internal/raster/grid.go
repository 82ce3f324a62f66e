// Package raster holds the normalized luminance+alpha grid and the
// per-pixel analysis that runs on it: classification, the bounding extents
// of significant pixels and 8-connected neighborhood sampling.
package raster

import (
	"errors"
	"image"
	"image/color"
)

// Sample is one normalized pixel: 8-bit luminance and 8-bit alpha.
type Sample struct {
	Luma  uint8
	Alpha uint8
}

// Grid is a width x height raster of samples. Pix holds two bytes per pixel
// (luma, alpha), rows are Stride bytes apart, like image.Gray16 but split
// into two 8-bit channels.
type Grid struct {
	Pix    []uint8
	Stride int
	Width  int
	Height int
}

// NewGrid returns a fully transparent grid.
func NewGrid(width, height int) *Grid {
	if width < 0 || height < 0 {
		width, height = 0, 0
	}
	return &Grid{
		Pix:    make([]uint8, 2*width*height),
		Stride: 2 * width,
		Width:  width,
		Height: height,
	}
}

// InBounds reports whether (x, y) addresses a pixel of the grid.
func (g *Grid) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < g.Width && y < g.Height
}

// At returns the sample at (x, y). Out of range coordinates yield the zero
// (fully transparent) sample.
func (g *Grid) At(x, y int) Sample {
	if !g.InBounds(x, y) {
		return Sample{}
	}
	i := y*g.Stride + 2*x
	return Sample{Luma: g.Pix[i], Alpha: g.Pix[i+1]}
}

// Set stores a sample. Out of range coordinates are ignored.
func (g *Grid) Set(x, y int, s Sample) {
	if !g.InBounds(x, y) {
		return
	}
	i := y*g.Stride + 2*x
	g.Pix[i] = s.Luma
	g.Pix[i+1] = s.Alpha
}

// KindAt classifies the pixel at (x, y); anything outside the grid is
// Transparent.
func (g *Grid) KindAt(x, y int) Kind {
	if !g.InBounds(x, y) {
		return Transparent
	}
	return Classify(g.At(x, y))
}

// ErrNilImage is returned by FromImage for a nil input.
var ErrNilImage = errors.New("input image is nil")

// FromImage normalizes a decoded image into a Grid. Color images are reduced
// to Rec. 709 luminance on straight (non-premultiplied) 8-bit channels; gray
// images keep their value and are fully opaque. The grid origin is the
// image's Bounds().Min.
func FromImage(img image.Image) (*Grid, error) {
	if img == nil {
		return nil, ErrNilImage
	}
	b := img.Bounds()
	g := NewGrid(b.Dx(), b.Dy())

	switch src := img.(type) {
	case *image.Gray:
		for y := range g.Height {
			for x := range g.Width {
				v := src.GrayAt(b.Min.X+x, b.Min.Y+y).Y
				g.Set(x, y, Sample{Luma: v, Alpha: 0xff})
			}
		}
	default:
		for y := range g.Height {
			for x := range g.Width {
				c := color.NRGBAModel.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
				g.Set(x, y, Sample{Luma: Luminance(c.R, c.G, c.B), Alpha: c.A})
			}
		}
	}
	return g, nil
}

// Luminance computes Rec. 709 luma from 8-bit RGB with integer weights.
func Luminance(r, g, b uint8) uint8 {
	l := (2126*uint32(r) + 7152*uint32(g) + 722*uint32(b)) / 10000
	return uint8(l) //nolint:gosec // G115: weights sum to 10000, l <= 255
}

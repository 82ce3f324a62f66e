package testutil

import (
	"image"
	"image/color"

	"github.com/MeKo-Tech/silkgen/internal/raster"
)

// Pixel art runes understood by GridFromRows and ImageFromRows.
const (
	RuneTransparent = '.'
	RuneLight       = 'o'
	RuneDark        = '#'
)

var (
	// LightColor classifies as raster.Light.
	LightColor = color.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}
	// DarkColor classifies as raster.Dark.
	DarkColor = color.NRGBA{R: 0x00, G: 0x00, B: 0x00, A: 0xff}
	// ClearColor classifies as raster.Transparent.
	ClearColor = color.NRGBA{}
)

// GridFromRows builds a grid from pixel art, one string per row:
// '.' is transparent, 'o' light and '#' dark. Short rows are padded with
// transparent pixels.
func GridFromRows(rows ...string) *raster.Grid {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	g := raster.NewGrid(width, len(rows))
	for y, r := range rows {
		for x := 0; x < len(r); x++ {
			g.Set(x, y, sampleFor(r[x]))
		}
	}
	return g
}

// ImageFromRows renders the same pixel art as GridFromRows into an NRGBA
// image, which exercises the decoding path.
func ImageFromRows(rows ...string) *image.NRGBA {
	width := 0
	for _, r := range rows {
		width = max(width, len(r))
	}
	img := image.NewNRGBA(image.Rect(0, 0, width, len(rows)))
	for y, r := range rows {
		for x := 0; x < len(r); x++ {
			img.SetNRGBA(x, y, colorFor(r[x]))
		}
	}
	return img
}

// FilledGrid returns a width x height grid of a single kind.
func FilledGrid(width, height int, kind raster.Kind) *raster.Grid {
	g := raster.NewGrid(width, height)
	s := sampleForKind(kind)
	for y := range height {
		for x := range width {
			g.Set(x, y, s)
		}
	}
	return g
}

func sampleFor(r byte) raster.Sample {
	switch r {
	case RuneLight:
		return sampleForKind(raster.Light)
	case RuneDark:
		return sampleForKind(raster.Dark)
	default:
		return sampleForKind(raster.Transparent)
	}
}

func sampleForKind(k raster.Kind) raster.Sample {
	switch k {
	case raster.Light:
		return raster.Sample{Luma: 0xff, Alpha: 0xff}
	case raster.Dark:
		return raster.Sample{Luma: 0x00, Alpha: 0xff}
	default:
		return raster.Sample{}
	}
}

func colorFor(r byte) color.NRGBA {
	switch r {
	case RuneLight:
		return LightColor
	case RuneDark:
		return DarkColor
	default:
		return ClearColor
	}
}

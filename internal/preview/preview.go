// Package preview rasterizes footprint polygons into a PNG for a quick look.
package preview

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"maps"
	"math"
	"slices"
	"strings"

	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/vector"
)

var (
	// ErrNothingToRender is returned when there are no polygons.
	ErrNothingToRender = errors.New("no polygons to render")
	// ErrCanvasTooLarge is returned when the scaled footprint exceeds MaxPixels.
	ErrCanvasTooLarge = errors.New("preview canvas too large")
)

// MaxPixels caps the preview canvas area.
const MaxPixels = 64 << 20

// LayerStyle is the fill of one layer suffix ("Cu", "Mask", "SilkS").
type LayerStyle struct {
	Color string // hex, e.g. "#c83434"
	Alpha uint8
}

// Options controls rendering.
type Options struct {
	// Scale is the number of preview pixels per millimeter.
	Scale float64
	// Margin is added around the footprint, in preview pixels.
	Margin     int
	Background string
	// Styles is keyed by layer name without side prefix.
	Styles map[string]LayerStyle
	// Order lists layer suffixes bottom to top.
	Order []string
}

// DefaultOptions draws copper, then mask, then silkscreen on a dark board.
func DefaultOptions() Options {
	return Options{
		Scale:      20,
		Margin:     10,
		Background: "#001023",
		Styles: map[string]LayerStyle{
			"Cu":    {Color: "#c83434", Alpha: 0xff},
			"Mask":  {Color: "#d864ff", Alpha: 0x66},
			"SilkS": {Color: "#f2eda1", Alpha: 0xff},
		},
		Order: []string{"Cu", "Mask", "SilkS"},
	}
}

type bounds struct {
	minX, minY, maxX, maxY float64
}

func measure(records []pipeline.Record) (bounds, bool) {
	b := bounds{minX: math.Inf(1), minY: math.Inf(1), maxX: math.Inf(-1), maxY: math.Inf(-1)}
	found := false
	for _, rec := range records {
		for _, p := range rec.Points {
			x, y := p.X.Float64(), p.Y.Float64()
			b.minX, b.maxX = math.Min(b.minX, x), math.Max(b.maxX, x)
			b.minY, b.maxY = math.Min(b.minY, y), math.Max(b.maxY, y)
			found = true
		}
	}
	return b, found
}

// suffix strips the side prefix of a layer name.
func suffix(layer string) string {
	if i := strings.IndexByte(layer, '.'); i >= 0 {
		return layer[i+1:]
	}
	return layer
}

func parseColor(hex string, alpha uint8) (color.NRGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", hex, err)
	}
	r, g, b := c.Clamped().RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// Render draws the records. Layers missing from opts.Order are drawn last
// in a neutral gray.
func Render(records []pipeline.Record, opts Options) (*image.NRGBA, error) {
	if opts.Scale <= 0 {
		return nil, fmt.Errorf("preview scale must be positive: %v", opts.Scale)
	}
	b, ok := measure(records)
	if !ok {
		return nil, ErrNothingToRender
	}

	margin := max(opts.Margin, 0)
	width := int(math.Ceil((b.maxX-b.minX)*opts.Scale)) + 2*margin
	height := int(math.Ceil((b.maxY-b.minY)*opts.Scale)) + 2*margin
	if width <= 0 || height <= 0 || width*height > MaxPixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrCanvasTooLarge, width, height)
	}

	bg, err := parseColor(opts.Background, 0xff)
	if err != nil {
		return nil, err
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	draw.Draw(dst, dst.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	groups := map[string][]pipeline.Record{}
	for _, rec := range records {
		groups[suffix(rec.Layer)] = append(groups[suffix(rec.Layer)], rec)
	}

	order := slices.Clone(opts.Order)
	for _, name := range slices.Sorted(maps.Keys(groups)) {
		if !slices.Contains(order, name) {
			order = append(order, name)
		}
	}

	toCanvas := func(x, y float64) (float32, float32) {
		return float32((x-b.minX)*opts.Scale + float64(margin)),
			float32((y-b.minY)*opts.Scale + float64(margin))
	}

	var r vector.Rasterizer
	for _, name := range order {
		recs := groups[name]
		if len(recs) == 0 {
			continue
		}
		style, ok := opts.Styles[name]
		if !ok {
			style = LayerStyle{Color: "#808080", Alpha: 0xc0}
		}
		fill, err := parseColor(style.Color, style.Alpha)
		if err != nil {
			return nil, err
		}

		r.Reset(width, height)
		for _, rec := range recs {
			if len(rec.Points) < 3 {
				continue
			}
			r.MoveTo(toCanvas(rec.Points[0].X.Float64(), rec.Points[0].Y.Float64()))
			for _, p := range rec.Points[1:] {
				r.LineTo(toCanvas(p.X.Float64(), p.Y.Float64()))
			}
			r.ClosePath()
		}
		r.Draw(dst, dst.Bounds(), image.NewUniform(fill), image.Point{})
	}

	return dst, nil
}

// WritePNG renders the records and encodes them as PNG.
func WritePNG(w io.Writer, records []pipeline.Record, opts Options) error {
	img, err := Render(records, opts)
	if err != nil {
		return err
	}
	if err := png.Encode(w, img); err != nil {
		return fmt.Errorf("encode preview: %w", err)
	}
	return nil
}

// Package pipeline converts classified rasters into layered polygon records.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/MeKo-Tech/silkgen/internal/geometry"
	"github.com/MeKo-Tech/silkgen/internal/layers"
	"github.com/MeKo-Tech/silkgen/internal/raster"
	"github.com/MeKo-Tech/silkgen/internal/units"
)

// Config holds the settings of a Converter.
type Config struct {
	Geometry geometry.Config
	Layers   layers.Policy
	Parallel ParallelConfig
}

// DefaultConfig returns 1mm pitch, 0.1mm clearance, front side, no inversion.
func DefaultConfig() Config {
	return Config{
		Geometry: geometry.DefaultConfig(),
		Layers:   layers.DefaultPolicy(),
		Parallel: DefaultParallelConfig(),
	}
}

// Validate checks geometry and layer settings.
func (c Config) Validate() error {
	if err := c.Geometry.Validate(); err != nil {
		return err
	}
	return c.Layers.Validate()
}

// Builder constructs a Converter with fluent configuration.
type Builder struct {
	cfg Config
}

// NewBuilder creates a new builder with defaults.
func NewBuilder() *Builder { return &Builder{cfg: DefaultConfig()} }

// WithPixelPitch sets the physical size of one pixel.
func (b *Builder) WithPixelPitch(pitch units.Dim) *Builder {
	b.cfg.Geometry.PixelPitch = pitch
	return b
}

// WithClearance sets the gap carved from Light pixels next to Dark ones.
func (b *Builder) WithClearance(clearance units.Dim) *Builder {
	b.cfg.Geometry.Clearance = clearance
	return b
}

// WithInvert swaps the layers of Light and Dark pixels.
func (b *Builder) WithInvert(invert bool) *Builder {
	b.cfg.Layers.Invert = invert
	return b
}

// WithSide selects the board side.
func (b *Builder) WithSide(side layers.Side) *Builder {
	if side != "" {
		b.cfg.Layers.Side = side
	}
	return b
}

// WithWorkers sets the number of row workers (0 = runtime.NumCPU()).
func (b *Builder) WithWorkers(n int) *Builder {
	if n >= 0 {
		b.cfg.Parallel.MaxWorkers = n
	}
	return b
}

// WithProgress sets the progress callback used by parallel runs.
func (b *Builder) WithProgress(cb ProgressCallback) *Builder {
	b.cfg.Parallel.ProgressCallback = cb
	return b
}

// Config returns the current configuration.
func (b *Builder) Config() Config { return b.cfg }

// Validate checks the current configuration.
func (b *Builder) Validate() error { return b.cfg.Validate() }

// Build validates the configuration and returns a Converter.
func (b *Builder) Build() (*Converter, error) {
	return New(b.cfg)
}

// Converter turns grids into polygon records. It holds no per-image state
// and is safe for concurrent use.
type Converter struct {
	cfg Config
}

// New returns a Converter for cfg.
func New(cfg Config) (*Converter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid converter config: %w", err)
	}
	return &Converter{cfg: cfg}, nil
}

// Config returns the converter configuration.
func (c *Converter) Config() Config { return c.cfg }

// ConvertImage normalizes img and converts it.
func (c *Converter) ConvertImage(ctx context.Context, img image.Image) (*Result, error) {
	grid, err := raster.FromImage(img)
	if err != nil {
		return nil, err
	}
	return c.ConvertParallel(ctx, grid, c.cfg.Parallel)
}

// Convert processes the grid row by row on the calling goroutine.
func (c *Converter) Convert(grid *raster.Grid) (*Result, error) {
	return c.ConvertContext(context.Background(), grid)
}

// ConvertContext is like Convert but checks ctx between rows.
func (c *Converter) ConvertContext(ctx context.Context, grid *raster.Grid) (*Result, error) {
	return c.convertRows(ctx, grid, nil)
}

// convertRows is the sequential conversion. progress, when set, sees every
// row just like the parallel path reports them.
func (c *Converter) convertRows(ctx context.Context, grid *raster.Grid, progress ProgressCallback) (*Result, error) {
	start := time.Now()
	res, gen, err := c.prepare(grid)
	if err != nil {
		return nil, err
	}

	if progress != nil {
		progress.OnStart(grid.Height)
		defer progress.OnComplete()
	}

	for y := range grid.Height {
		if err := ctx.Err(); err != nil {
			if progress != nil {
				progress.OnError(y, err)
			}
			return nil, err
		}
		res.Records = c.appendRow(res.Records, grid, gen, y)
		if progress != nil {
			progress.OnProgress(y+1, grid.Height)
		}
	}

	c.finish(res, start)
	return res, nil
}

// prepare computes the extents and logs the image layout.
func (c *Converter) prepare(grid *raster.Grid) (*Result, *geometry.Generator, error) {
	if grid == nil {
		return nil, nil, errors.New("grid is nil")
	}

	slog.Info("Total image dimensions", "width", grid.Width, "height", grid.Height)

	ext, err := raster.ComputeExtents(grid)
	if err != nil {
		return nil, nil, fmt.Errorf("compute extents: %w", err)
	}
	slog.Info("Extent of significant pixels", "extents", ext.String(), "width", ext.Width(), "height", ext.Height())
	slog.Info("Center of significant pixels", "center", ext.Center().String())
	if err := c.cfg.Geometry.CheckExtents(ext); err != nil {
		return nil, nil, err
	}

	gen := geometry.NewGenerator(ext, c.cfg.Geometry)
	return &Result{
		Width:   grid.Width,
		Height:  grid.Height,
		Extents: ext,
		Origin:  gen.Origin(),
	}, gen, nil
}

// appendRow emits the records of row y in column order.
func (c *Converter) appendRow(dst []Record, grid *raster.Grid, gen *geometry.Generator, y int) []Record {
	for x := range grid.Width {
		kind := grid.KindAt(x, y)
		if !kind.Significant() {
			continue
		}
		pixel := units.PixelPos{X: uint32(x), Y: uint32(y)}
		points := gen.Polygon(pixel, kind, raster.SampleNeighborhood(grid, x, y))
		for _, layer := range c.cfg.Layers.Layers(kind) {
			dst = append(dst, Record{Layer: layer, Kind: kind, Pixel: pixel, Points: points})
		}
	}
	return dst
}

// finish computes the stats. Every layer the policy can emit is listed,
// with zero for unused ones.
func (c *Converter) finish(res *Result, start time.Time) {
	stats := Stats{Layers: make(map[string]int)}
	for _, layer := range c.cfg.Layers.All() {
		stats.Layers[layer] = 0
	}
	for i, rec := range res.Records {
		if i == 0 || res.Records[i-1].Pixel != rec.Pixel {
			stats.countPixel(rec.Kind)
		}
		stats.add(rec)
	}
	stats.Duration = time.Since(start)
	res.Stats = stats

	slog.Debug("Conversion completed",
		"polygons", stats.Polygons,
		"light_pixels", stats.LightPixels,
		"dark_pixels", stats.DarkPixels,
		"duration_ms", stats.Duration.Milliseconds())
}

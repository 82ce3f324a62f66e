package pipeline

import (
	"time"

	"github.com/MeKo-Tech/silkgen/internal/raster"
	"github.com/MeKo-Tech/silkgen/internal/units"
)

// Record is one polygon on one layer. Dark pixels yield one record per
// associated layer; those records share the same Points slice.
type Record struct {
	Layer  string         `json:"layer" yaml:"layer"`
	Kind   raster.Kind    `json:"kind" yaml:"kind"`
	Pixel  units.PixelPos `json:"pixel" yaml:"pixel"`
	Points []units.Pos    `json:"points" yaml:"points"`
}

// Result is the converted form of one image.
type Result struct {
	Width   int            `json:"width"`
	Height  int            `json:"height"`
	Extents raster.Extents `json:"extents"`
	Origin  units.PixelPos `json:"origin"` // grid boundary mapped to physical (0, 0)
	Records []Record       `json:"records"`
	Stats   Stats          `json:"stats"`
}

// Stats summarizes a conversion.
type Stats struct {
	LightPixels int            `json:"light_pixels"`
	DarkPixels  int            `json:"dark_pixels"`
	Polygons    int            `json:"polygons"`
	Points      int            `json:"points"`
	Layers      map[string]int `json:"layers"`
	Duration    time.Duration  `json:"duration_ns"`
}

func (s *Stats) add(rec Record) {
	if s.Layers == nil {
		s.Layers = make(map[string]int)
	}
	s.Polygons++
	s.Points += len(rec.Points)
	s.Layers[rec.Layer]++
}

func (s *Stats) countPixel(k raster.Kind) {
	switch k {
	case raster.Light:
		s.LightPixels++
	case raster.Dark:
		s.DarkPixels++
	}
}

// Package export encodes conversion results as KiCad footprints or as JSON
// and YAML documents.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/MeKo-Tech/silkgen/internal/kicad"
	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/MeKo-Tech/silkgen/internal/raster"
	"github.com/MeKo-Tech/silkgen/internal/units"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	FormatKiCad Format = "kicad"
	FormatJSON  Format = "json"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts the format names case-insensitively; "yml" is YAML.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "kicad", "kicad_mod":
		return FormatKiCad, nil
	case "json":
		return FormatJSON, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format: %q", s)
	}
}

// Extension returns the file extension including the dot.
func (f Format) Extension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatYAML:
		return ".yaml"
	default:
		return ".kicad_mod"
	}
}

// Settings records the parameters a document was produced with.
type Settings struct {
	PixelPitch units.Dim `json:"pixel_pitch" yaml:"pixel_pitch"`
	Clearance  units.Dim `json:"clearance" yaml:"clearance"`
	Invert     bool      `json:"invert" yaml:"invert"`
	Side       string    `json:"side" yaml:"side"`
}

// Polygon is one record in document form.
type Polygon struct {
	Layer  string         `json:"layer" yaml:"layer"`
	Kind   raster.Kind    `json:"kind" yaml:"kind"`
	Pixel  units.PixelPos `json:"pixel" yaml:"pixel,flow"`
	Points []units.Pos    `json:"points" yaml:"points,flow"`
}

// Document is the serialized form of a conversion.
type Document struct {
	Name     string         `json:"name" yaml:"name"`
	Width    int            `json:"width" yaml:"width"`
	Height   int            `json:"height" yaml:"height"`
	Settings Settings       `json:"settings" yaml:"settings"`
	Extents  raster.Extents `json:"extents" yaml:"extents"`
	Center   units.PixelPos `json:"center" yaml:"center,flow"`
	Polygons []Polygon      `json:"polygons" yaml:"polygons"`
}

// NewDocument converts a pipeline result.
func NewDocument(name string, res *pipeline.Result, cfg pipeline.Config) Document {
	doc := Document{
		Name:   name,
		Width:  res.Width,
		Height: res.Height,
		Settings: Settings{
			PixelPitch: cfg.Geometry.PixelPitch,
			Clearance:  cfg.Geometry.Clearance,
			Invert:     cfg.Layers.Invert,
			Side:       string(cfg.Layers.Side),
		},
		Extents:  res.Extents,
		Center:   res.Extents.Center(),
		Polygons: make([]Polygon, 0, len(res.Records)),
	}
	for _, rec := range res.Records {
		doc.Polygons = append(doc.Polygons, Polygon(rec))
	}
	return doc
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}

// WriteYAML writes doc as YAML.
func WriteYAML(w io.Writer, doc Document) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return nil
}

// Write encodes res in format. ids is only used for KiCad output; nil means
// random identifiers.
func Write(w io.Writer, format Format, name string, res *pipeline.Result, cfg pipeline.Config, ids kicad.IDSource) error {
	if res == nil {
		return errors.New("nothing to export")
	}
	switch format {
	case FormatKiCad:
		return kicad.WriteFootprint(w, kicad.Footprint{Name: name, Policy: cfg.Layers, Records: res.Records}, ids)
	case FormatJSON:
		return WriteJSON(w, NewDocument(name, res, cfg))
	case FormatYAML:
		return WriteYAML(w, NewDocument(name, res, cfg))
	default:
		return fmt.Errorf("unsupported output format: %q", format)
	}
}

// ContentType returns the MIME type served for format.
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatYAML:
		return "application/yaml"
	default:
		return "text/plain; charset=utf-8"
	}
}

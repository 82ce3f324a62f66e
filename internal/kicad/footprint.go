package kicad

import (
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/MeKo-Tech/silkgen/internal/layers"
	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/MeKo-Tech/silkgen/internal/units"
)

// FileVersion is the footprint format version written in the header.
const FileVersion = "20220630"

// Generator is the tool name written in the header.
const Generator = "silkgen"

// Extension is the conventional file extension of a single footprint.
const Extension = ".kicad_mod"

// coordinatePrecision is the number of fractional millimeter digits.
const coordinatePrecision = 6

const textEffects = "(effects (font (size 1.524 1.524) (thickness 0.3)))\n"

// Footprint is everything needed to write one .kicad_mod file.
type Footprint struct {
	Name    string
	Policy  layers.Policy
	Records []pipeline.Record
}

// SanitizeName removes quotes and control characters, which would break
// the quoted footprint name.
func SanitizeName(name string) string {
	return strings.Map(func(r rune) rune {
		if r == '"' || unicode.IsControl(r) {
			return -1
		}
		return r
	}, name)
}

// WriteFootprint serializes fp. ids supplies one UUID per text and polygon,
// drawn in output order.
func WriteFootprint(w io.Writer, fp Footprint, ids IDSource) error {
	if ids == nil {
		ids = RandomIDs{}
	}
	sw := NewWriter(w)
	var idErr error
	tstamp := func(w *Writer) {
		if idErr != nil {
			return
		}
		id, err := ids.NewID()
		if err != nil {
			idErr = fmt.Errorf("generate tstamp: %w", err)
			return
		}
		w.Atom("tstamp", id.String())
	}

	sw.Expr("footprint", func(w *Writer) {
		w.Raw(`"` + SanitizeName(fp.Name) + "\"\n")

		w.Atom("version", FileVersion)
		w.Atom("generator", Generator)
		w.Atom("layer", fp.Policy.FootprintLayer())
		w.Atom("tedit", "0")
		w.Atom("attr", "board_only exclude_from_pos_files exclude_from_bom")

		fab := fp.Policy.FabLayer()
		w.Expr("fp_text", func(w *Writer) {
			w.Raw(`reference "G***" (at 0 0) (layer ` + fab + ")\n")
			w.Raw(textEffects)
			tstamp(w)
		})
		w.Expr("fp_text", func(w *Writer) {
			w.Raw(`value "LOGO" (at 0.75 0) (layer ` + fab + ") hide\n")
			w.Raw(textEffects)
			tstamp(w)
		})

		for _, rec := range fp.Records {
			if idErr != nil {
				return
			}
			writePolygon(w, rec, tstamp)
		}
	})

	if idErr != nil {
		return idErr
	}
	if err := sw.Flush(); err != nil {
		return fmt.Errorf("write footprint: %w", err)
	}
	return nil
}

func writePolygon(w *Writer, rec pipeline.Record, tstamp func(*Writer)) {
	w.Expr("fp_poly", func(w *Writer) {
		w.Expr("pts", func(w *Writer) {
			for _, p := range rec.Points {
				w.Atom("xy", formatXY(p))
			}
		})
		w.Atom("layer", rec.Layer)
		w.Atom("width", "0")
		w.Atom("fill", "solid")
		tstamp(w)
	})
}

func formatXY(p units.Pos) string {
	return p.X.Format(coordinatePrecision) + " " + p.Y.Format(coordinatePrecision)
}

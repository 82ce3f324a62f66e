package cmd

import (
	"github.com/spf13/cobra"
)

// addFootprintFlags registers the conversion flags shared by the image, pdf
// and batch commands. Defaults shown in help come from the configuration
// defaults; unset flags never override a config file.
func addFootprintFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("pitch", "1mm", "physical size of one pixel (mm, mil or in; bare numbers are mm)")
	f.String("clearance", "0.1mm", "gap carved from light pixels where they touch dark ones")
	f.Bool("invert", false, "swap the layers of light and dark pixels")
	f.String("side", "front", "board side (front, back)")
	f.Bool("mirror", false, "mirror the image horizontally before conversion")
	f.Int("rotate", 0, "rotate the image counter-clockwise by 0, 90, 180 or 270 degrees")
	f.Int("resize-width", 0, "scale the image to this width in pixels (nearest neighbor)")
	f.Int("max-width", 4096, "reject images wider than this many pixels (0 for no limit)")
	f.Int("max-height", 4096, "reject images taller than this many pixels (0 for no limit)")
	f.Bool("random-ids", false, "use random tstamp UUIDs instead of IDs seeded from the footprint name")
	f.StringP("format", "f", "kicad", "output format (kicad, json, yaml)")
	f.String("output-dir", "", "directory for output files (default: next to the input)")
	f.Bool("preview", false, "also write a PNG preview of the polygons")
	f.Float64("preview-scale", 20, "preview pixels per millimeter")

	for flag, key := range map[string]string{
		"pitch":         "footprint.pitch",
		"clearance":     "footprint.clearance",
		"invert":        "footprint.invert",
		"side":          "footprint.side",
		"mirror":        "footprint.mirror",
		"rotate":        "footprint.rotate",
		"resize-width":  "footprint.resize_width",
		"max-width":     "footprint.max_width",
		"max-height":    "footprint.max_height",
		"random-ids":    "footprint.random_ids",
		"format":        "output.format",
		"output-dir":    "output.dir",
		"preview":       "output.preview",
		"preview-scale": "output.preview_scale",
	} {
		bindFlag(f, flag, key)
	}
}

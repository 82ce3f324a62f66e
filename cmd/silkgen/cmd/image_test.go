package cmd

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/silkgen/internal/export"
	"github.com/MeKo-Tech/silkgen/internal/testutil"
	"github.com/MeKo-Tech/silkgen/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestImageCommandDefaultOutput(t *testing.T) {
	dir := isolate(t)
	in := filepath.Join(dir, "assets")
	path := testutil.WriteRowsPNG(t, in, "logo.png", "o#", "##")

	out, _, err := runCommand(t, "image", path)
	require.NoError(t, err)

	// Like the original tool, the footprint lands in the working directory.
	want := filepath.Join(".", "logo.kicad_mod")
	assert.Contains(t, out, "Wrote logo.kicad_mod (7 polygons, 1 light / 3 dark pixels)")
	content := testutil.ReadFile(t, want)
	assert.True(t, strings.HasPrefix(content, "(footprint \"logo\"\n"))
	assert.Equal(t, 3, strings.Count(content, "(layer F.Cu)"))
	assert.NoFileExists(t, filepath.Join(in, "logo.kicad_mod"))
}

func TestImageCommandNameAndOutput(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteRowsPNG(t, dir, "logo.png", "o#")
	outPath := filepath.Join(dir, "lib", "Badge.kicad_mod")

	_, _, err := runCommand(t, "image", path, "--name", "My Badge", "-o", outPath, "--preview")
	require.NoError(t, err)

	content := testutil.ReadFile(t, outPath)
	assert.True(t, strings.HasPrefix(content, "(footprint \"My_Badge\"\n"))
	assert.FileExists(t, filepath.Join(dir, "lib", "My_Badge_preview.png"))
}

func TestImageCommandIsReproducible(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteRowsPNG(t, dir, "logo.png", "o#o", "#o#")

	first, _, err := runCommand(t, "image", path, "-o", "-")
	require.NoError(t, err)
	second, _, err := runCommand(t, "image", path, "-o", "-")
	require.NoError(t, err)
	assert.Equal(t, first, second)

	random, _, err := runCommand(t, "image", path, "-o", "-", "--random-ids")
	require.NoError(t, err)
	assert.NotEqual(t, first, random)
}

func TestImageCommandFlagsOverrideConfigFile(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteRowsPNG(t, dir, "logo.png", "o#")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "silkgen.yaml"), []byte(`
footprint:
  pitch: 2mm
  clearance: 0.2mm
  side: back
output:
  format: json
`), 0o600))

	out, _, err := runCommand(t, "image", path, "-o", "-", "--pitch", "0.5")
	require.NoError(t, err)

	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, units.MustParseDim("0.5mm"), doc.Settings.PixelPitch)
	assert.Equal(t, units.MustParseDim("0.2mm"), doc.Settings.Clearance)
	assert.Equal(t, "back", doc.Settings.Side)
	require.Len(t, doc.Polygons, 3)
	for _, p := range doc.Polygons {
		assert.True(t, strings.HasPrefix(p.Layer, "B."), p.Layer)
	}
}

func TestImageCommandEnvironmentOverride(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteRowsPNG(t, dir, "logo.png", "o#")
	t.Setenv("SILKGEN_OUTPUT_FORMAT", "yaml")
	t.Setenv("SILKGEN_FOOTPRINT_INVERT", "true")

	out, _, err := runCommand(t, "image", path, "-o", "-")
	require.NoError(t, err)
	assert.Contains(t, out, "invert: true")
	assert.Contains(t, out, "layer: F.Cu")
}

func TestImageCommandMultipleFiles(t *testing.T) {
	dir := isolate(t)
	a := testutil.WriteRowsPNG(t, dir, "a.png", "o#")
	b := testutil.WriteRowsPNG(t, dir, "b.png", "##")
	outDir := filepath.Join(dir, "out")

	out, _, err := runCommand(t, "image", a, b, "--output-dir", outDir, "--format", "yaml")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "a.yaml"))
	assert.FileExists(t, filepath.Join(outDir, "b.yaml"))
	assert.Equal(t, 2, strings.Count(out, "Wrote "))

	_, _, err = runCommand(t, "image", a, b, "--name", "x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exactly one input")
}

func TestImageCommandErrors(t *testing.T) {
	dir := isolate(t)
	empty := testutil.WriteRowsPNG(t, dir, "empty.png", "..", "..")
	logo := testutil.WriteRowsPNG(t, dir, "logo.png", "o#")

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no arguments", args: []string{"image"}, want: "requires at least 1 arg"},
		{name: "missing file", args: []string{"image", filepath.Join(dir, "missing.png")}, want: "failed to load"},
		{name: "unsupported extension", args: []string{"image", filepath.Join(dir, "notes.txt")}, want: "unsupported image format"},
		{name: "no significant pixels", args: []string{"image", empty}, want: "no significant"},
		{name: "bad pitch", args: []string{"image", logo, "--pitch", "wide"}, want: "footprint.pitch"},
		{name: "bad side", args: []string{"image", logo, "--side", "top"}, want: "side"},
		{name: "bad format", args: []string{"image", logo, "--format", "svg"}, want: "format"},
		{name: "too large", args: []string{"image", logo, "--max-width", "1"}, want: "logo.png"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := runCommand(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
	assert.NoFileExists(t, filepath.Join(dir, "empty.kicad_mod"))
}

func TestImageCommandPreprocess(t *testing.T) {
	dir := isolate(t)
	path := testutil.WriteRowsPNG(t, dir, "logo.png", "o#")

	out, _, err := runCommand(t, "image", path, "-o", "-", "-f", "json", "--rotate", "90", "--resize-width", "2")
	require.NoError(t, err)

	var doc export.Document
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Equal(t, 2, doc.Width)
	assert.Equal(t, 4, doc.Height)
}

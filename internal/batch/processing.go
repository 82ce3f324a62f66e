package batch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/MeKo-Tech/silkgen/internal/export"
	"github.com/MeKo-Tech/silkgen/internal/kicad"
	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/MeKo-Tech/silkgen/internal/preview"
	"github.com/MeKo-Tech/silkgen/internal/utils"
)

// PreviewSuffix is appended to the footprint name for preview images.
const PreviewSuffix = "_preview.png"

// job is one file to convert. name is unique within the batch.
type job struct {
	index int
	path  string
	name  string
}

// planJobs assigns each file a footprint name, suffixing repeats so outputs
// in a shared directory do not overwrite each other.
func planJobs(files []string) []job {
	jobs := make([]job, len(files))
	used := make(map[string]int, len(files))
	for i, f := range files {
		base := utils.FootprintName(f)
		name := base
		for n := used[base]; n > 0; n++ {
			name = base + "_" + strconv.Itoa(n+1)
			if used[name] == 0 {
				break
			}
		}
		used[base]++
		used[name]++
		jobs[i] = job{index: i, path: f, name: name}
	}
	return jobs
}

// LoadImage loads path, applies the configured preprocessing and checks the
// size constraints. The size after preprocessing is checked against the
// image header before the pixels are decoded.
func LoadImage(path string, config *Config) (image.Image, error) {
	if !utils.IsSupportedImage(path) {
		return nil, fmt.Errorf("unsupported image format: %s", path)
	}

	img, meta, err := utils.LoadImage(path, func(w, h int) error {
		return config.Constraints.Check(config.Preprocess.OutputSize(w, h))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	slog.Debug("Loaded image",
		"path", meta.Path,
		"format", meta.Format,
		"bytes", meta.SizeBytes,
		"width", meta.Width,
		"height", meta.Height)

	if img, err = PrepareImage(img, config); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// PrepareImage applies preprocessing to an already decoded image. The
// resulting size is checked against the constraints before any resize.
func PrepareImage(img image.Image, config *Config) (image.Image, error) {
	if img == nil {
		return nil, &utils.ImageProcessingError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	if err := config.Constraints.Check(config.Preprocess.OutputSize(b.Dx(), b.Dy())); err != nil {
		return nil, &utils.ImageProcessingError{Operation: "validate", Err: err}
	}
	if !config.Preprocess.Enabled() {
		return img, nil
	}
	return utils.Preprocess(img, config.Preprocess)
}

// OutputPath places name+ext in the output directory, or next to input when
// none is configured.
func OutputPath(config *Config, input, name, ext string) string {
	dir := config.OutputDir
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, name+ext)
}

// Target names one footprint and the files it is written to. An empty
// Preview skips the preview image.
type Target struct {
	Name    string
	Output  string
	Preview string
}

// TargetFor derives the default target for an input file.
func TargetFor(config *Config, input, name string) Target {
	t := Target{Name: name, Output: OutputPath(config, input, name, config.Format.Extension())}
	if config.Preview {
		t.Preview = OutputPath(config, input, name, PreviewSuffix)
	}
	return t
}

// WriteFootprint converts img and writes the footprint, plus the preview
// when the target names one.
func WriteFootprint(ctx context.Context, conv *pipeline.Converter, img image.Image, t Target, config *Config) (*pipeline.Result, error) {
	res, err := conv.ConvertImage(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("conversion failed: %w", err)
	}

	var buf bytes.Buffer
	if err := Encode(&buf, t.Name, res, conv.Config(), config); err != nil {
		return nil, err
	}
	if err := writeFile(t.Output, buf.Bytes()); err != nil {
		return nil, err
	}

	if t.Preview != "" {
		buf.Reset()
		if err := preview.WritePNG(&buf, res.Records, config.PreviewOptions); err != nil {
			return nil, fmt.Errorf("render preview: %w", err)
		}
		if err := writeFile(t.Preview, buf.Bytes()); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// Encode writes res in the configured format. Footprint IDs are seeded from
// the name unless random IDs are requested.
func Encode(w io.Writer, name string, res *pipeline.Result, cfg pipeline.Config, config *Config) error {
	var ids kicad.IDSource
	if !config.RandomIDs {
		ids = kicad.NewSeededIDs(name)
	}
	if err := export.Write(w, config.Format, name, res, cfg, ids); err != nil {
		return fmt.Errorf("encode %s: %w", name, err)
	}
	return nil
}

// processSingleImage converts one file and writes its outputs.
func processSingleImage(ctx context.Context, conv *pipeline.Converter, j job, config *Config) FileResult {
	start := time.Now()
	fr := FileResult{Input: j.path, Name: j.name}

	img, err := LoadImage(j.path, config)
	if err != nil {
		fr.Err = err
		fr.Duration = time.Since(start)
		return fr
	}

	t := TargetFor(config, j.path, j.name)
	res, err := WriteFootprint(ctx, conv, img, t, config)
	if err != nil {
		fr.Err = fmt.Errorf("%s: %w", j.path, err)
	} else {
		fr.Output = t.Output
		fr.Preview = t.Preview
		fr.Stats = res.Stats
		slog.Debug("Converted file", "input", j.path, "output", t.Output, "polygons", res.Stats.Polygons)
	}
	fr.Duration = time.Since(start)
	return fr
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil { //nolint:gosec // G306: footprints are meant to be shared
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

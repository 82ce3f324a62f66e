package batch

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/MeKo-Tech/silkgen/internal/export"
	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/MeKo-Tech/silkgen/internal/preview"
	"github.com/MeKo-Tech/silkgen/internal/utils"
)

// Config holds all configuration for batch conversion.
type Config struct {
	// Conversion settings
	Pipeline    pipeline.Config
	Preprocess  utils.PreprocessOptions
	Constraints utils.ImageConstraints

	// Output settings
	Format         export.Format
	OutputDir      string
	RandomIDs      bool
	Preview        bool
	PreviewOptions preview.Options

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
	// Progress overrides the console bar when set.
	Progress pipeline.ProgressCallback
}

// DefaultConfig converts into KiCad footprints next to the input files.
func DefaultConfig() *Config {
	return &Config{
		Pipeline:         pipeline.DefaultConfig(),
		Constraints:      utils.DefaultImageConstraints(),
		Format:           export.FormatKiCad,
		PreviewOptions:   preview.DefaultOptions(),
		Workers:          4,
		ProgressInterval: 100 * time.Millisecond,
	}
}

// FileResult is the outcome of converting one input file.
type FileResult struct {
	Input    string         `json:"input"`
	Name     string         `json:"name"`
	Output   string         `json:"output,omitempty"`
	Preview  string         `json:"preview,omitempty"`
	Stats    pipeline.Stats `json:"stats"`
	Duration time.Duration  `json:"duration_ns"`
	Err      error          `json:"-"`
}

// Failed reports whether the conversion failed.
func (f FileResult) Failed() bool { return f.Err != nil }

// Result holds the result of batch conversion in input order.
type Result struct {
	Files       []FileResult
	Duration    time.Duration
	WorkerCount int
}

// Succeeded counts the converted files.
func (r *Result) Succeeded() int {
	n := 0
	for _, f := range r.Files {
		if !f.Failed() {
			n++
		}
	}
	return n
}

// Failed counts the files that could not be converted.
func (r *Result) Failed() int { return len(r.Files) - r.Succeeded() }

// FormatResults formats the summary as text, json or csv.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r.Files, format)
}

// SaveResults writes the formatted summary to outputFile, or to w when
// outputFile is empty.
func (r *Result) SaveResults(w io.Writer, format, outputFile string) error {
	output, err := r.FormatResults(format)
	if err != nil {
		return fmt.Errorf("failed to format results: %w", err)
	}

	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(output), 0o600); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return nil
	}
	_, err = fmt.Fprint(w, output)
	return err
}

// PrintStats prints aggregate statistics to w.
func (r *Result) PrintStats(w io.Writer) {
	var polygons, points int
	for _, f := range r.Files {
		polygons += f.Stats.Polygons
		points += f.Stats.Points
	}
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total files: %d\n", len(r.Files))
	_, _ = fmt.Fprintf(w, "  Converted: %d\n", r.Succeeded())
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", r.Failed())
	_, _ = fmt.Fprintf(w, "  Polygons: %d\n", polygons)
	_, _ = fmt.Fprintf(w, "  Points: %d\n", points)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", r.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", r.Duration.Round(time.Millisecond))
	if n := len(r.Files); n > 0 && r.Duration > 0 {
		_, _ = fmt.Fprintf(w, "  Throughput: %.1f files/sec\n", float64(n)/r.Duration.Seconds())
	}
}

package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/MeKo-Tech/silkgen/internal/batch"
	"github.com/MeKo-Tech/silkgen/internal/export"
	"github.com/MeKo-Tech/silkgen/internal/geometry"
	"github.com/MeKo-Tech/silkgen/internal/layers"
	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/MeKo-Tech/silkgen/internal/preview"
	"github.com/MeKo-Tech/silkgen/internal/units"
	"github.com/MeKo-Tech/silkgen/internal/utils"
	"github.com/lucasb-eyer/go-colorful"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	geo := geometry.DefaultConfig()
	pv := preview.DefaultOptions()
	cons := utils.DefaultImageConstraints()
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Footprint: FootprintConfig{
			Pitch:     geo.PixelPitch.String(),
			Clearance: geo.Clearance.String(),
			Side:      string(layers.Front),
			MaxWidth:  cons.MaxWidth,
			MaxHeight: cons.MaxHeight,
		},
		Output: OutputConfig{
			Format:        string(export.FormatKiCad),
			PreviewScale:  pv.Scale,
			PreviewMargin: pv.Margin,
			Colors: ColorsConfig{
				Background: pv.Background,
				Copper:     pv.Styles["Cu"].Color,
				Mask:       pv.Styles["Mask"].Color,
				Silkscreen: pv.Styles["SilkS"].Color,
			},
		},
		Pipeline: PipelineConfig{
			Workers:    0,
			RowsPerJob: pipeline.DefaultParallelConfig().RowsPerJob,
		},
		Batch: BatchConfig{
			Workers:         4,
			ContinueOnError: false,
			Summary:         "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			MaxUploadMB:     16,
			TimeoutSec:      30,
			ShutdownTimeout: 10,
			RateLimit: RateLimitConfig{
				Enabled:           false,
				RequestsPerMinute: 60,
				RequestsPerHour:   1000,
				RequestsPerDay:    10000,
				MaxDataPerDayMB:   1024,
			},
		},
	}
}

// Validate validates the configuration and returns the first problem found.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if _, err := export.ParseFormat(c.Output.Format); err != nil {
		return err
	}
	if _, err := c.GeometryConfig(); err != nil {
		return err
	}
	if _, err := layers.ParseSide(c.Footprint.Side); err != nil {
		return err
	}
	if c.Footprint.Rotate%90 != 0 {
		return fmt.Errorf("invalid rotation: %d (must be a multiple of 90)", c.Footprint.Rotate)
	}
	if c.Footprint.ResizeWidth < 0 {
		return fmt.Errorf("invalid resize width: %d (must not be negative)", c.Footprint.ResizeWidth)
	}
	if c.Footprint.MaxWidth < 0 || c.Footprint.MaxHeight < 0 {
		return errors.New("invalid image limits: must not be negative")
	}

	if c.Output.PreviewScale <= 0 {
		return fmt.Errorf("invalid preview scale: %g (must be positive)", c.Output.PreviewScale)
	}
	for name, hex := range map[string]string{
		"background": c.Output.Colors.Background,
		"copper":     c.Output.Colors.Copper,
		"mask":       c.Output.Colors.Mask,
		"silkscreen": c.Output.Colors.Silkscreen,
	} {
		if _, err := colorful.Hex(hex); err != nil {
			return fmt.Errorf("invalid %s color %q: %w", name, hex, err)
		}
	}

	if c.Pipeline.Workers < 0 {
		return fmt.Errorf("invalid pipeline workers: %d (must not be negative)", c.Pipeline.Workers)
	}
	if c.Pipeline.RowsPerJob < 0 {
		return fmt.Errorf("invalid rows per job: %d (must not be negative)", c.Pipeline.RowsPerJob)
	}
	if c.Batch.Workers <= 0 {
		return fmt.Errorf("invalid batch workers: %d (must be positive)", c.Batch.Workers)
	}
	validSummaries := []string{"text", "json", "csv"}
	if c.Batch.Summary != "" && !slices.Contains(validSummaries, c.Batch.Summary) {
		return fmt.Errorf("invalid batch summary format: %s (must be one of: %s)",
			c.Batch.Summary, strings.Join(validSummaries, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.MaxUploadMB <= 0 {
		return fmt.Errorf("invalid max upload size: %d (must be positive)", c.Server.MaxUploadMB)
	}
	if c.Server.TimeoutSec <= 0 {
		return fmt.Errorf("invalid timeout: %d (must be positive)", c.Server.TimeoutSec)
	}
	if rl := c.Server.RateLimit; rl.Enabled && rl.RequestsPerMinute <= 0 {
		return fmt.Errorf("invalid rate limit: %d requests per minute (must be positive)", rl.RequestsPerMinute)
	}

	return nil
}

// parseLength accepts "0.1mm", "4mil", "0.05in" or a bare number of
// millimeters.
func parseLength(s string) (units.Dim, error) {
	var d units.Dim
	err := d.UnmarshalText([]byte(s))
	return d, err
}

// GeometryConfig parses the footprint dimensions.
func (c *Config) GeometryConfig() (geometry.Config, error) {
	pitch, err := parseLength(c.Footprint.Pitch)
	if err != nil {
		return geometry.Config{}, fmt.Errorf("footprint.pitch: %w", err)
	}
	clearance, err := parseLength(c.Footprint.Clearance)
	if err != nil {
		return geometry.Config{}, fmt.Errorf("footprint.clearance: %w", err)
	}
	cfg := geometry.Config{PixelPitch: pitch, Clearance: clearance}
	if err := cfg.Validate(); err != nil {
		return geometry.Config{}, err
	}
	return cfg, nil
}

// ToPipelineConfig converts the config to the internal pipeline configuration format.
func (c *Config) ToPipelineConfig() (pipeline.Config, error) {
	geo, err := c.GeometryConfig()
	if err != nil {
		return pipeline.Config{}, err
	}
	side, err := layers.ParseSide(c.Footprint.Side)
	if err != nil {
		return pipeline.Config{}, err
	}

	par := pipeline.DefaultParallelConfig()
	if c.Pipeline.Workers > 0 {
		par.MaxWorkers = c.Pipeline.Workers
	}
	if c.Pipeline.RowsPerJob > 0 {
		par.RowsPerJob = c.Pipeline.RowsPerJob
	}

	return pipeline.Config{
		Geometry: geo,
		Layers:   layers.Policy{Invert: c.Footprint.Invert, Side: side},
		Parallel: par,
	}, nil
}

// ToPreprocessOptions returns the image preparation steps.
func (c *Config) ToPreprocessOptions() utils.PreprocessOptions {
	return utils.PreprocessOptions{
		Mirror:      c.Footprint.Mirror,
		Rotate:      c.Footprint.Rotate,
		ResizeWidth: c.Footprint.ResizeWidth,
	}
}

// ToImageConstraints returns the accepted input size.
func (c *Config) ToImageConstraints() utils.ImageConstraints {
	return utils.ImageConstraints{MaxWidth: c.Footprint.MaxWidth, MaxHeight: c.Footprint.MaxHeight}
}

// ToPreviewOptions applies the configured palette to the default styles.
func (c *Config) ToPreviewOptions() preview.Options {
	opts := preview.DefaultOptions()
	opts.Scale = c.Output.PreviewScale
	opts.Margin = c.Output.PreviewMargin
	opts.Background = c.Output.Colors.Background
	setColor := func(layer, hex string) {
		style := opts.Styles[layer]
		style.Color = hex
		opts.Styles[layer] = style
	}
	setColor("Cu", c.Output.Colors.Copper)
	setColor("Mask", c.Output.Colors.Mask)
	setColor("SilkS", c.Output.Colors.Silkscreen)
	return opts
}

// OutputFormat parses the configured output format.
func (c *Config) OutputFormat() (export.Format, error) {
	return export.ParseFormat(c.Output.Format)
}

// ToBatchConfig builds the batch conversion settings.
func (c *Config) ToBatchConfig() (*batch.Config, error) {
	pcfg, err := c.ToPipelineConfig()
	if err != nil {
		return nil, err
	}
	format, err := c.OutputFormat()
	if err != nil {
		return nil, err
	}
	return &batch.Config{
		Pipeline:         pcfg,
		Preprocess:       c.ToPreprocessOptions(),
		Constraints:      c.ToImageConstraints(),
		Format:           format,
		OutputDir:        c.Output.Dir,
		RandomIDs:        c.Footprint.RandomIDs,
		Preview:          c.Output.Preview,
		PreviewOptions:   c.ToPreviewOptions(),
		Workers:          c.Batch.Workers,
		ContinueOnError:  c.Batch.ContinueOnError,
		Recursive:        c.Batch.Recursive,
		IncludePatterns:  c.Batch.Include,
		ExcludePatterns:  c.Batch.Exclude,
		ProgressInterval: batch.DefaultConfig().ProgressInterval,
	}, nil
}

//nolint:lll
package config

// Config represents the complete configuration for silkgen. It includes
// settings for all commands (image, pdf, batch, serve) and supports loading
// from configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Footprint geometry and input preparation
	Footprint FootprintConfig `mapstructure:"footprint" yaml:"footprint" json:"footprint"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Conversion pipeline
	Pipeline PipelineConfig `mapstructure:"pipeline" yaml:"pipeline" json:"pipeline"`

	// Batch processing configuration
	Batch BatchConfig `mapstructure:"batch" yaml:"batch" json:"batch"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// FootprintConfig contains the physical parameters and image preparation.
type FootprintConfig struct {
	Pitch       string `mapstructure:"pitch" yaml:"pitch" json:"pitch"`
	Clearance   string `mapstructure:"clearance" yaml:"clearance" json:"clearance"`
	Invert      bool   `mapstructure:"invert" yaml:"invert" json:"invert"`
	Side        string `mapstructure:"side" yaml:"side" json:"side"`
	Mirror      bool   `mapstructure:"mirror" yaml:"mirror" json:"mirror"`
	Rotate      int    `mapstructure:"rotate" yaml:"rotate" json:"rotate"`
	ResizeWidth int    `mapstructure:"resize_width" yaml:"resize_width" json:"resize_width"`
	MaxWidth    int    `mapstructure:"max_width" yaml:"max_width" json:"max_width"`
	MaxHeight   int    `mapstructure:"max_height" yaml:"max_height" json:"max_height"`
	RandomIDs   bool   `mapstructure:"random_ids" yaml:"random_ids" json:"random_ids"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format        string       `mapstructure:"format" yaml:"format" json:"format"`
	File          string       `mapstructure:"file" yaml:"file" json:"file"`
	Dir           string       `mapstructure:"dir" yaml:"dir" json:"dir"`
	Preview       bool         `mapstructure:"preview" yaml:"preview" json:"preview"`
	PreviewScale  float64      `mapstructure:"preview_scale" yaml:"preview_scale" json:"preview_scale"`
	PreviewMargin int          `mapstructure:"preview_margin" yaml:"preview_margin" json:"preview_margin"`
	Colors        ColorsConfig `mapstructure:"colors" yaml:"colors" json:"colors"`
}

// ColorsConfig holds the preview palette as hex colors.
type ColorsConfig struct {
	Background string `mapstructure:"background" yaml:"background" json:"background"`
	Copper     string `mapstructure:"copper" yaml:"copper" json:"copper"`
	Mask       string `mapstructure:"mask" yaml:"mask" json:"mask"`
	Silkscreen string `mapstructure:"silkscreen" yaml:"silkscreen" json:"silkscreen"`
}

// PipelineConfig contains conversion pipeline settings.
type PipelineConfig struct {
	// Workers is the number of row workers per image, 0 for one per CPU.
	Workers    int `mapstructure:"workers" yaml:"workers" json:"workers"`
	RowsPerJob int `mapstructure:"rows_per_job" yaml:"rows_per_job" json:"rows_per_job"`
}

// BatchConfig contains batch processing settings.
type BatchConfig struct {
	Workers         int      `mapstructure:"workers" yaml:"workers" json:"workers"`
	Recursive       bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include         []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude         []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	ContinueOnError bool     `mapstructure:"continue_on_error" yaml:"continue_on_error" json:"continue_on_error"`
	Summary         string   `mapstructure:"summary" yaml:"summary" json:"summary"`
	SummaryFile     string   `mapstructure:"summary_file" yaml:"summary_file" json:"summary_file"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string          `mapstructure:"host" yaml:"host" json:"host"`
	Port            int             `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string          `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	MaxUploadMB     int             `mapstructure:"max_upload_mb" yaml:"max_upload_mb" json:"max_upload_mb"`
	TimeoutSec      int             `mapstructure:"timeout_sec" yaml:"timeout_sec" json:"timeout_sec"`
	ShutdownTimeout int             `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	RateLimit       RateLimitConfig `mapstructure:"rate_limit" yaml:"rate_limit" json:"rate_limit"`
}

// RateLimitConfig limits requests per client.
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled" yaml:"enabled" json:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute" yaml:"requests_per_minute" json:"requests_per_minute"`
	RequestsPerHour   int  `mapstructure:"requests_per_hour" yaml:"requests_per_hour" json:"requests_per_hour"`
	RequestsPerDay    int  `mapstructure:"requests_per_day" yaml:"requests_per_day" json:"requests_per_day"`
	MaxDataPerDayMB   int  `mapstructure:"max_data_per_day_mb" yaml:"max_data_per_day_mb" json:"max_data_per_day_mb"`
}

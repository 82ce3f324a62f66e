package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the base name for configuration files (without extension).
	ConfigFileName = "silkgen"

	// EnvPrefix is the prefix for environment variables.
	EnvPrefix = "SILKGEN"
)

// Loader handles loading configuration from various sources.
type Loader struct {
	v *viper.Viper
}

// NewLoaderWithViper creates a loader on v. Each command tree owns its own
// instance so flags bound in one run never leak into the next.
func NewLoaderWithViper(v *viper.Viper) *Loader {
	return &Loader{v: v}
}

// LoadWithFile loads configuration from a specific file path. An empty path
// searches the standard locations.
func (l *Loader) LoadWithFile(configFile string) (*Config, error) {
	config, err := l.LoadWithFileWithoutValidation(configFile)
	if err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// LoadWithFileWithoutValidation loads configuration from a specific file path without validation.
func (l *Loader) LoadWithFileWithoutValidation(configFile string) (*Config, error) {
	l.setupEnvironmentVariables()
	l.setDefaults()

	if configFile != "" {
		if _, err := os.Stat(configFile); os.IsNotExist(err) {
			return nil, fmt.Errorf("config file does not exist: %s", configFile)
		}
		l.v.SetConfigFile(configFile)
		if err := l.v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else {
		l.v.SetConfigName(ConfigFileName)
		l.v.SetConfigType("yaml")
		l.addConfigPaths()

		if err := l.v.ReadInConfig(); err != nil {
			// A missing file is fine, defaults and env vars still apply.
			var configFileNotFoundError viper.ConfigFileNotFoundError
			if !errors.As(err, &configFileNotFoundError) {
				return nil, fmt.Errorf("error reading config file: %w", err)
			}
		}
	}

	var config Config
	if err := l.v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	return &config, nil
}

// GetConfigFileUsed returns the path of the config file used.
func (l *Loader) GetConfigFileUsed() string {
	return l.v.ConfigFileUsed()
}

// GetViper returns the underlying viper instance for advanced usage.
func (l *Loader) GetViper() *viper.Viper {
	return l.v
}

// addConfigPaths adds the standard configuration search paths.
func (l *Loader) addConfigPaths() {
	for _, p := range GetConfigSearchPaths() {
		l.v.AddConfigPath(p)
	}
}

// setupEnvironmentVariables configures environment variable handling.
func (l *Loader) setupEnvironmentVariables() {
	l.v.SetEnvPrefix(EnvPrefix)
	l.v.AutomaticEnv()
	// footprint.pitch is read from SILKGEN_FOOTPRINT_PITCH.
	l.v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
}

// setDefaults sets default values for all configuration options.
func (l *Loader) setDefaults() {
	defaults := DefaultConfig()

	l.v.SetDefault("log_level", defaults.LogLevel)
	l.v.SetDefault("verbose", defaults.Verbose)

	l.v.SetDefault("footprint.pitch", defaults.Footprint.Pitch)
	l.v.SetDefault("footprint.clearance", defaults.Footprint.Clearance)
	l.v.SetDefault("footprint.invert", defaults.Footprint.Invert)
	l.v.SetDefault("footprint.side", defaults.Footprint.Side)
	l.v.SetDefault("footprint.mirror", defaults.Footprint.Mirror)
	l.v.SetDefault("footprint.rotate", defaults.Footprint.Rotate)
	l.v.SetDefault("footprint.resize_width", defaults.Footprint.ResizeWidth)
	l.v.SetDefault("footprint.max_width", defaults.Footprint.MaxWidth)
	l.v.SetDefault("footprint.max_height", defaults.Footprint.MaxHeight)
	l.v.SetDefault("footprint.random_ids", defaults.Footprint.RandomIDs)

	l.v.SetDefault("output.format", defaults.Output.Format)
	l.v.SetDefault("output.file", defaults.Output.File)
	l.v.SetDefault("output.dir", defaults.Output.Dir)
	l.v.SetDefault("output.preview", defaults.Output.Preview)
	l.v.SetDefault("output.preview_scale", defaults.Output.PreviewScale)
	l.v.SetDefault("output.preview_margin", defaults.Output.PreviewMargin)
	l.v.SetDefault("output.colors.background", defaults.Output.Colors.Background)
	l.v.SetDefault("output.colors.copper", defaults.Output.Colors.Copper)
	l.v.SetDefault("output.colors.mask", defaults.Output.Colors.Mask)
	l.v.SetDefault("output.colors.silkscreen", defaults.Output.Colors.Silkscreen)

	l.v.SetDefault("pipeline.workers", defaults.Pipeline.Workers)
	l.v.SetDefault("pipeline.rows_per_job", defaults.Pipeline.RowsPerJob)

	l.v.SetDefault("batch.workers", defaults.Batch.Workers)
	l.v.SetDefault("batch.recursive", defaults.Batch.Recursive)
	l.v.SetDefault("batch.include", defaults.Batch.Include)
	l.v.SetDefault("batch.exclude", defaults.Batch.Exclude)
	l.v.SetDefault("batch.continue_on_error", defaults.Batch.ContinueOnError)
	l.v.SetDefault("batch.summary", defaults.Batch.Summary)
	l.v.SetDefault("batch.summary_file", defaults.Batch.SummaryFile)

	l.v.SetDefault("server.host", defaults.Server.Host)
	l.v.SetDefault("server.port", defaults.Server.Port)
	l.v.SetDefault("server.cors_origin", defaults.Server.CORSOrigin)
	l.v.SetDefault("server.max_upload_mb", defaults.Server.MaxUploadMB)
	l.v.SetDefault("server.timeout_sec", defaults.Server.TimeoutSec)
	l.v.SetDefault("server.shutdown_timeout", defaults.Server.ShutdownTimeout)
	l.v.SetDefault("server.rate_limit.enabled", defaults.Server.RateLimit.Enabled)
	l.v.SetDefault("server.rate_limit.requests_per_minute", defaults.Server.RateLimit.RequestsPerMinute)
	l.v.SetDefault("server.rate_limit.requests_per_hour", defaults.Server.RateLimit.RequestsPerHour)
	l.v.SetDefault("server.rate_limit.requests_per_day", defaults.Server.RateLimit.RequestsPerDay)
	l.v.SetDefault("server.rate_limit.max_data_per_day_mb", defaults.Server.RateLimit.MaxDataPerDayMB)
}

// WriteYAML encodes cfg the way `config show` prints it.
func WriteYAML(w io.Writer, cfg *Config) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

// GenerateDefaultConfigFile writes the default configuration as YAML. It
// refuses to overwrite an existing file unless force is set.
func GenerateDefaultConfigFile(filename string, force bool) error {
	if filename == "" {
		filename = ConfigFileName + ".yaml"
	}
	if !force {
		if _, err := os.Stat(filename); err == nil {
			return fmt.Errorf("config file already exists: %s", filename)
		}
	}

	cfg := DefaultConfig()
	f, err := os.Create(filename) //nolint:gosec // G304: path chosen by the user
	if err != nil {
		return fmt.Errorf("create config file: %w", err)
	}
	if err := WriteYAML(f, &cfg); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// GetConfigSearchPaths returns the paths where configuration files are searched.
func GetConfigSearchPaths() []string {
	paths := []string{"."}

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, home)
	}

	if configDir, exists := os.LookupEnv("XDG_CONFIG_HOME"); exists {
		paths = append(paths, filepath.Join(configDir, "silkgen"))
	} else if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".config", "silkgen"))
	}

	paths = append(paths, "/etc/silkgen")

	return paths
}

package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/MeKo-Tech/silkgen/internal/config"
	"github.com/MeKo-Tech/silkgen/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// configKeyAnnotation marks a flag with the configuration key it overrides.
const configKeyAnnotation = "silkgen_config_key"

// app holds the state shared by one command tree. Each tree gets its own
// viper instance so tests can execute commands repeatedly.
type app struct {
	cfgFile string
	loader  *config.Loader
	config  *config.Config
}

// NewRootCommand builds the silkgen command tree.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewLoaderWithViper(viper.New())}

	rootCmd := &cobra.Command{
		Use:   "silkgen",
		Short: "Convert raster artwork into PCB footprint polygons",
		Long: `silkgen turns a raster image into a KiCad footprint. Every significant
pixel becomes a polygon: light pixels are drawn on the silkscreen, dark
pixels become exposed copper with a solder mask opening. Light pixels are
inset by a clearance wherever they touch dark ones.

Examples:
  silkgen image logo.png
  silkgen image logo.png --pitch 0.25mm --clearance 4mil --side back --mirror
  silkgen pdf artwork.pdf --pages 1-2 --output-dir footprints
  silkgen batch assets/ --recursive --workers 8
  silkgen serve --port 8080`,
		Version:       version.String(),
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.load(cmd); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), a.config)
			if used := a.loader.GetConfigFileUsed(); used != "" {
				slog.Debug("Loaded configuration file", "path", used)
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}
	rootCmd.SetVersionTemplate("silkgen version {{.Version}}\n")

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $XDG_CONFIG_HOME/silkgen, /etc/silkgen)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	bindFlag(rootCmd.PersistentFlags(), "verbose", "verbose")
	bindFlag(rootCmd.PersistentFlags(), "log-level", "log_level")

	rootCmd.AddCommand(
		newImageCommand(a),
		newPDFCommand(a),
		newBatchCommand(a),
		newServeCommand(a),
		newConfigCommand(a),
	)
	return rootCmd
}

// Execute runs the command tree against os.Args.
func Execute() error {
	rootCmd := NewRootCommand()
	if err := rootCmd.Execute(); err != nil {
		_, _ = fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return err
	}
	return nil
}

// bindFlag records the configuration key a flag overrides.
func bindFlag(flags *pflag.FlagSet, name, key string) {
	_ = flags.SetAnnotation(name, configKeyAnnotation, []string{key})
}

// load binds the flags of the executing command to viper and loads the
// configuration. Flags only win over file and environment values when set.
func (a *app) load(cmd *cobra.Command) error {
	v := a.loader.GetViper()
	var bindErr error
	bind := func(f *pflag.Flag) {
		keys := f.Annotations[configKeyAnnotation]
		if len(keys) == 0 || bindErr != nil {
			return
		}
		if err := v.BindPFlag(keys[0], f); err != nil {
			bindErr = fmt.Errorf("bind flag --%s: %w", f.Name, err)
		}
	}
	cmd.Flags().VisitAll(bind)
	cmd.InheritedFlags().VisitAll(bind)
	if bindErr != nil {
		return bindErr
	}

	cfg, err := a.loader.LoadWithFile(a.cfgFile)
	if err != nil {
		return fmt.Errorf("error loading configuration: %w", err)
	}
	a.config = cfg
	return nil
}

func setupLogging(w io.Writer, cfg *config.Config) {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	if w == nil {
		w = os.Stderr
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/MeKo-Tech/silkgen/internal/config"
	"github.com/MeKo-Tech/silkgen/internal/server"
	"github.com/MeKo-Tech/silkgen/internal/version"
	"github.com/spf13/cobra"
)

// pruneInterval is how often idle rate limit entries are dropped.
const pruneInterval = 10 * time.Minute

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP footprint API",
		Long: `Start an HTTP server that converts uploaded images into footprints.

The server provides the following endpoints:
  GET  /health     - Health check with conversion statistics
  POST /footprint  - Convert a multipart "image" upload
  POST /preview    - Render a PNG preview of an upload
  GET  /ws         - WebSocket conversion with progress messages
  GET  /metrics    - Prometheus metrics

Examples:
  silkgen serve
  silkgen serve --port 8080
  silkgen serve --host 0.0.0.0 --port 3000 --rate-limit-enabled`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			srv, err := newFootprintServer(a.config)
			if err != nil {
				return fmt.Errorf("failed to initialize server: %w", err)
			}

			addr := fmt.Sprintf("%s:%d", a.config.Server.Host, a.config.Server.Port)
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("listen on %s: %w", addr, err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()
			go srv.pruneLoop(ctx)

			shutdown := time.Duration(a.config.Server.ShutdownTimeout) * time.Second
			return serveUntilDone(ctx, ln, srv.http, shutdown)
		},
	}

	f := cmd.Flags()
	f.StringP("host", "H", "localhost", "server host")
	f.IntP("port", "p", 8080, "server port")
	f.String("cors-origin", "*", "CORS allowed origins")
	f.Int("max-upload-size", 16, "maximum upload size in MB")
	f.Int("timeout", 30, "request timeout in seconds")
	f.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	f.String("pitch", "1mm", "default pixel pitch for requests without one")
	f.String("clearance", "0.1mm", "default clearance for requests without one")
	f.Int("workers", 0, "row workers per conversion (0 = one per CPU)")
	f.Bool("rate-limit-enabled", false, "enable rate limiting")
	f.Int("requests-per-minute", 60, "maximum requests per minute per client")
	f.Int("requests-per-hour", 1000, "maximum requests per hour per client")
	f.Int("max-requests-per-day", 10000, "maximum requests per day per client")
	f.Int("max-data-per-day", 1024, "maximum upload volume per day per client in MB")

	for flag, key := range map[string]string{
		"host":                 "server.host",
		"port":                 "server.port",
		"cors-origin":          "server.cors_origin",
		"max-upload-size":      "server.max_upload_mb",
		"timeout":              "server.timeout_sec",
		"shutdown-timeout":     "server.shutdown_timeout",
		"pitch":                "footprint.pitch",
		"clearance":            "footprint.clearance",
		"workers":              "pipeline.workers",
		"rate-limit-enabled":   "server.rate_limit.enabled",
		"requests-per-minute":  "server.rate_limit.requests_per_minute",
		"requests-per-hour":    "server.rate_limit.requests_per_hour",
		"max-requests-per-day": "server.rate_limit.requests_per_day",
		"max-data-per-day":     "server.rate_limit.max_data_per_day_mb",
	} {
		bindFlag(f, flag, key)
	}
	return cmd
}

// footprintServer pairs the API handlers with their http.Server.
type footprintServer struct {
	api  *server.Server
	http *http.Server
}

// serverConfig maps the configuration file layout onto the server settings.
func serverConfig(cfg *config.Config) (server.Config, error) {
	pcfg, err := cfg.ToPipelineConfig()
	if err != nil {
		return server.Config{}, err
	}
	rl := cfg.Server.RateLimit
	return server.Config{
		Host:           cfg.Server.Host,
		Port:           cfg.Server.Port,
		CORSOrigin:     cfg.Server.CORSOrigin,
		MaxUploadMB:    int64(cfg.Server.MaxUploadMB),
		TimeoutSec:     cfg.Server.TimeoutSec,
		Version:        version.Version,
		Pipeline:       pcfg,
		Constraints:    cfg.ToImageConstraints(),
		PreviewOptions: cfg.ToPreviewOptions(),
		RateLimit: server.RateLimitConfig{
			Enabled:           rl.Enabled,
			RequestsPerMinute: rl.RequestsPerMinute,
			RequestsPerHour:   rl.RequestsPerHour,
			MaxRequestsPerDay: rl.RequestsPerDay,
			MaxDataPerDay:     int64(rl.MaxDataPerDayMB) << 20,
		},
	}, nil
}

func newFootprintServer(cfg *config.Config) (*footprintServer, error) {
	scfg, err := serverConfig(cfg)
	if err != nil {
		return nil, err
	}
	api, err := server.NewServer(scfg)
	if err != nil {
		return nil, err
	}

	timeout := time.Duration(scfg.TimeoutSec) * time.Second
	return &footprintServer{
		api: api,
		http: &http.Server{
			Handler:           api.Handler(),
			ReadHeaderTimeout: 5 * time.Second,
			ReadTimeout:       timeout,
			// Conversions may use the whole request timeout before writing.
			WriteTimeout: timeout + 5*time.Second,
		},
	}, nil
}

// pruneLoop drops idle rate limit state until ctx is done.
func (s *footprintServer) pruneLoop(ctx context.Context) {
	limiter := s.api.RateLimiter()
	if limiter == nil {
		return
	}
	ticker := time.NewTicker(pruneInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(24 * time.Hour); n > 0 {
				slog.Debug("Pruned idle rate limit entries", "clients", n)
			}
		}
	}
}

// serveUntilDone serves on ln until ctx is cancelled or the server fails,
// then shuts down gracefully within shutdownTimeout.
func serveUntilDone(ctx context.Context, ln net.Listener, httpServer *http.Server, shutdownTimeout time.Duration) error {
	serveErr := make(chan error, 1)
	go func() {
		slog.Info("Starting footprint server", "addr", ln.Addr().String())
		if err := httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			slog.Error("Server error", "error", err)
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Shutdown requested", "reason", context.Cause(ctx))
	}

	slog.Info("Starting graceful shutdown", "timeout", shutdownTimeout.String())
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("Graceful shutdown completed")
	return nil
}

package server

import (
	"net/http"

	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/MeKo-Tech/silkgen/internal/preview"
	"github.com/MeKo-Tech/silkgen/internal/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Server holds the HTTP server state and dependencies.
type Server struct {
	base        pipeline.Config
	constraints utils.ImageConstraints
	preview     preview.Options
	corsOrigin  string
	maxUploadMB int64
	timeoutSec  int
	version     string
	rateLimiter *RateLimiter
	profiler    *pipeline.Profiler
}

// Config holds server configuration.
type Config struct {
	Host        string
	Port        int
	CORSOrigin  string
	MaxUploadMB int64
	TimeoutSec  int
	Version     string
	// Pipeline is the conversion baseline that request fields override.
	Pipeline       pipeline.Config
	Constraints    utils.ImageConstraints
	PreviewOptions preview.Options
	RateLimit      RateLimitConfig
}

// RateLimitConfig holds per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status  string         `json:"status"`
	Version string         `json:"version,omitempty"`
	Time    string         `json:"time"`
	Stats   map[string]any `json:"stats,omitempty"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

// NewServer creates a new footprint server instance.
func NewServer(config Config) (*Server, error) {
	if err := config.Pipeline.Validate(); err != nil {
		return nil, err
	}
	if config.PreviewOptions.Styles == nil {
		config.PreviewOptions = preview.DefaultOptions()
	}
	if config.MaxUploadMB <= 0 {
		config.MaxUploadMB = 16
	}
	if config.CORSOrigin == "" {
		config.CORSOrigin = "*"
	}

	s := &Server{
		base:        config.Pipeline,
		constraints: config.Constraints,
		preview:     config.PreviewOptions,
		corsOrigin:  config.CORSOrigin,
		maxUploadMB: config.MaxUploadMB,
		timeoutSec:  config.TimeoutSec,
		version:     config.Version,
		profiler:    &pipeline.Profiler{},
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s, nil
}

// RateLimiter returns the per-client limiter, or nil when rate limiting is
// disabled.
func (s *Server) RateLimiter() *RateLimiter { return s.rateLimiter }

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", instrument("/health", s.corsMiddleware(s.healthHandler)))
	mux.HandleFunc("/footprint", instrument("/footprint", s.corsMiddleware(s.rateLimitMiddleware(s.footprintHandler))))
	mux.HandleFunc("/preview", instrument("/preview", s.corsMiddleware(s.rateLimitMiddleware(s.previewHandler))))
	mux.HandleFunc("/ws", s.rateLimitMiddleware(s.footprintWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with all routes registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

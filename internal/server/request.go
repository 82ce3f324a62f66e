package server

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MeKo-Tech/silkgen/internal/export"
	"github.com/MeKo-Tech/silkgen/internal/geometry"
	"github.com/MeKo-Tech/silkgen/internal/kicad"
	"github.com/MeKo-Tech/silkgen/internal/layers"
	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/MeKo-Tech/silkgen/internal/preview"
	"github.com/MeKo-Tech/silkgen/internal/raster"
	"github.com/MeKo-Tech/silkgen/internal/units"
	"github.com/MeKo-Tech/silkgen/internal/utils"
)

// FootprintOptions holds per-request overrides. Empty fields keep the
// server defaults.
type FootprintOptions struct {
	Pitch     string `json:"pitch,omitempty"`
	Clearance string `json:"clearance,omitempty"`
	Invert    *bool  `json:"invert,omitempty"`
	Side      string `json:"side,omitempty"`
	Name      string `json:"name,omitempty"`
	Format    string `json:"format,omitempty"`
	RandomIDs bool   `json:"random_ids,omitempty"`
}

// requestError carries the HTTP status of a failed request.
type requestError struct {
	status int
	msg    string
	err    error
}

func (e *requestError) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

func (e *requestError) Unwrap() error { return e.err }

func badRequest(msg string, err error) error {
	return &requestError{status: http.StatusBadRequest, msg: msg, err: err}
}

// statusFor maps conversion errors to HTTP status codes.
func statusFor(err error) int {
	var re *requestError
	switch {
	case errors.As(err, &re):
		return re.status
	case errors.Is(err, raster.ErrNoSignificantPixels),
		errors.Is(err, preview.ErrNothingToRender),
		errors.Is(err, preview.ErrCanvasTooLarge),
		errors.Is(err, geometry.ErrOutlineTooLarge):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// parseBoolField accepts the strconv spellings; empty means unset.
func parseBoolField(name, value string) (*bool, error) {
	if value == "" {
		return nil, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, badRequest("invalid "+name, err)
	}
	return &b, nil
}

// optionsFromForm reads the override fields of a multipart request.
func optionsFromForm(r *http.Request) (FootprintOptions, error) {
	invert, err := parseBoolField("invert", r.FormValue("invert"))
	if err != nil {
		return FootprintOptions{}, err
	}
	randomIDs, err := parseBoolField("random_ids", r.FormValue("random_ids"))
	if err != nil {
		return FootprintOptions{}, err
	}
	format := r.FormValue("format")
	if format == "" {
		format = r.URL.Query().Get("format")
	}
	return FootprintOptions{
		Pitch:     r.FormValue("pitch"),
		Clearance: r.FormValue("clearance"),
		Invert:    invert,
		Side:      r.FormValue("side"),
		Name:      r.FormValue("name"),
		Format:    format,
		RandomIDs: randomIDs != nil && *randomIDs,
	}, nil
}

// resolve applies opts to the server baseline.
func (s *Server) resolve(opts FootprintOptions) (pipeline.Config, export.Format, error) {
	cfg := s.base
	if opts.Pitch != "" {
		var d units.Dim
		if err := d.UnmarshalText([]byte(opts.Pitch)); err != nil {
			return cfg, "", badRequest("invalid pitch", err)
		}
		cfg.Geometry.PixelPitch = d
	}
	if opts.Clearance != "" {
		var d units.Dim
		if err := d.UnmarshalText([]byte(opts.Clearance)); err != nil {
			return cfg, "", badRequest("invalid clearance", err)
		}
		cfg.Geometry.Clearance = d
	}
	if opts.Invert != nil {
		cfg.Layers.Invert = *opts.Invert
	}
	if opts.Side != "" {
		side, err := layers.ParseSide(opts.Side)
		if err != nil {
			return cfg, "", badRequest("invalid side", err)
		}
		cfg.Layers.Side = side
	}
	if err := cfg.Validate(); err != nil {
		return cfg, "", badRequest("invalid options", err)
	}

	format := export.FormatKiCad
	if opts.Format != "" {
		f, err := export.ParseFormat(opts.Format)
		if err != nil {
			return cfg, "", badRequest("invalid format", err)
		}
		format = f
	}
	return cfg, format, nil
}

// footprintName picks the request name, then the upload's file name.
func footprintName(requested, filename string) string {
	if requested != "" {
		return utils.SanitizeName(requested)
	}
	if filename != "" {
		return utils.FootprintName(filename)
	}
	return utils.DefaultFootprintName
}

// idSource returns seeded identifiers unless random ones were requested.
func idSource(name string, random bool) kicad.IDSource {
	if random {
		return kicad.RandomIDs{}
	}
	return kicad.NewSeededIDs(name)
}

// upload is a decoded multipart image with its options.
type upload struct {
	img      image.Image
	filename string
	size     int64
	opts     FootprintOptions
}

// parseUpload reads the "image" part and the option fields of r.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) (*upload, error) {
	limit := s.maxUploadMB * 1024 * 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, &requestError{status: http.StatusRequestEntityTooLarge, msg: "file too large"}
		}
		return nil, badRequest("failed to parse form data", err)
	}

	file, header, err := r.FormFile("image")
	if err != nil {
		return nil, badRequest("no image file provided", nil)
	}
	defer func() { _ = file.Close() }()

	if header.Size > limit {
		return nil, &requestError{status: http.StatusRequestEntityTooLarge, msg: "file too large"}
	}
	uploadSizeBytes.Observe(float64(header.Size))

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, &requestError{status: http.StatusInternalServerError, msg: "failed to read image data", err: err}
	}
	img, meta, err := utils.DecodeImageBytes(data, s.constraints.Check)
	if err != nil {
		return nil, decodeError(err)
	}
	slog.Debug("Decoded upload", "file", header.Filename, "format", meta.Format, "width", meta.Width, "height", meta.Height)

	opts, err := optionsFromForm(r)
	if err != nil {
		return nil, err
	}
	return &upload{img: img, filename: header.Filename, size: header.Size, opts: opts}, nil
}

// decodeError maps a failed decode to 413 for oversized images and 400
// otherwise.
func decodeError(err error) error {
	if errors.Is(err, utils.ErrImageTooLarge) {
		return &requestError{status: http.StatusRequestEntityTooLarge, msg: "image rejected", err: err}
	}
	return badRequest("invalid image format", err)
}

// convert runs one conversion and records its metrics. kind labels the
// metrics: footprint, preview or websocket.
func (s *Server) convert(
	ctx context.Context,
	kind string,
	img image.Image,
	cfg pipeline.Config,
	progress pipeline.ProgressCallback,
) (*pipeline.Result, error) {
	if err := utils.ValidateImageConstraints(img, s.constraints); err != nil {
		return nil, &requestError{status: http.StatusRequestEntityTooLarge, msg: "image rejected", err: err}
	}

	if s.timeoutSec > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(s.timeoutSec)*time.Second)
		defer cancel()
	}

	cfg.Parallel.ProgressCallback = progress
	conv, err := pipeline.New(cfg)
	if err != nil {
		return nil, badRequest("invalid options", err)
	}

	start := time.Now()
	res, err := conv.ConvertImage(ctx, img)
	conversionDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	if err != nil {
		conversionsTotal.WithLabelValues(kind, "error").Inc()
		return nil, err
	}

	conversionsTotal.WithLabelValues(kind, "success").Inc()
	polygonsGenerated.WithLabelValues(kind).Observe(float64(res.Stats.Polygons))
	s.profiler.Record(res)
	return res, nil
}

// contentDisposition names the download after the footprint.
func contentDisposition(name string, format export.Format) string {
	return fmt.Sprintf("attachment; filename=%q", name+format.Extension())
}

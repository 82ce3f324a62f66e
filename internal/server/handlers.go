package server

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/MeKo-Tech/silkgen/internal/export"
	"github.com/MeKo-Tech/silkgen/internal/preview"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	response := HealthResponse{
		Status:  "healthy",
		Version: s.version,
		Time:    time.Now().UTC().Format(time.RFC3339),
	}
	if s.profiler != nil {
		response.Stats = s.profiler.Snapshot()
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Error encoding health response", "error", err)
	}
}

// footprintHandler converts an uploaded image and returns the encoded footprint.
func (s *Server) footprintHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	up, err := s.parseUpload(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cfg, format, err := s.resolve(up.opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.convert(r.Context(), "footprint", up.img, cfg, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}

	// Encode into a buffer so a late failure can still produce an error status.
	name := footprintName(up.opts.Name, up.filename)
	var buf bytes.Buffer
	if err := export.Write(&buf, format, name, res, cfg, idSource(name, up.opts.RandomIDs)); err != nil {
		s.writeError(w, err)
		return
	}

	slog.Info("Footprint generated", "name", name, "format", string(format),
		"polygons", res.Stats.Polygons, "upload_bytes", up.size)

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", contentDisposition(name, format))
	w.Header().Set("X-Silkgen-Polygons", strconv.Itoa(res.Stats.Polygons))
	_, _ = w.Write(buf.Bytes())
}

// previewHandler converts an uploaded image and returns a PNG rendering of
// the polygons.
func (s *Server) previewHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	up, err := s.parseUpload(w, r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cfg, _, err := s.resolve(up.opts)
	if err != nil {
		s.writeError(w, err)
		return
	}

	res, err := s.convert(r.Context(), "preview", up.img, cfg, nil)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var buf bytes.Buffer
	if err := preview.WritePNG(&buf, res.Records, s.preview); err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(buf.Bytes())
}

// writeError writes a JSON error response with the status of err.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		slog.Error("Request failed", "status", status, "error", err)
	} else {
		slog.Debug("Request rejected", "status", status, "error", err)
	}
	s.writeErrorResponse(w, err.Error(), status)
}

// writeErrorResponse writes a JSON error response.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Success: false,
		Error:   message,
	}

	if err := json.NewEncoder(w).Encode(response); err != nil {
		slog.Error("Error writing error response", "error", err)
	}
}

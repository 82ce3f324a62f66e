package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// statusRecorder remembers the status code written through it.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// instrument records request count and latency under the fixed route label,
// so arbitrary request paths cannot grow the label set.
func instrument(route string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next(rec, r)
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
	}
}

// corsMiddleware answers preflight requests and decorates every response
// with the configured allowed origin.
func (s *Server) corsMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", s.corsOrigin)
		h.Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		h.Set("Access-Control-Expose-Headers", "Content-Disposition, X-Silkgen-Polygons")
		h.Set("Access-Control-Max-Age", "86400")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next(w, r)
	}
}

// rateLimitMiddleware charges the request, and its declared body size, to
// the client before passing it on.
func (s *Server) rateLimitMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.rateLimiter == nil {
			next(w, r)
			return
		}

		client := getClientIP(r)
		if err := s.rateLimiter.CheckRateLimit(client, max(r.ContentLength, 0)); err != nil {
			slog.Warn("Client throttled", "client", client, "path", r.URL.Path, "error", err)
			s.handleRateLimitError(w, err)
			return
		}
		next(w, r)
	}
}

// handleRateLimitError answers 429 with headers and a JSON body describing
// the exhausted limit. Any other error is a 500.
func (s *Server) handleRateLimitError(w http.ResponseWriter, err error) {
	var (
		rateErr  *RateLimitError
		quotaErr *QuotaExceededError
		status   = http.StatusTooManyRequests
		body     map[string]any
	)
	h := w.Header()
	switch {
	case errors.As(err, &rateErr):
		rateLimitHits.WithLabelValues(rateErr.Type).Inc()
		retry := strconv.FormatFloat(rateErr.RetryAfter.Seconds(), 'f', 0, 64)
		h.Set("X-RateLimit-Type", rateErr.Type)
		h.Set("X-RateLimit-Limit", strconv.Itoa(rateErr.Limit))
		h.Set("Retry-After", retry)
		body = map[string]any{
			"error":       "rate_limit_exceeded",
			"type":        rateErr.Type,
			"limit":       rateErr.Limit,
			"retry_after": rateErr.RetryAfter.Seconds(),
		}
	case errors.As(err, &quotaErr):
		rateLimitHits.WithLabelValues(quotaErr.Type).Inc()
		h.Set("X-Quota-Type", quotaErr.Type)
		h.Set("X-Quota-Limit", strconv.FormatInt(quotaErr.Limit, 10))
		h.Set("X-Quota-Used", strconv.FormatInt(quotaErr.Used, 10))
		h.Set("X-Quota-Resets", quotaErr.Resets.Format(http.TimeFormat))
		body = map[string]any{
			"error":  "quota_exceeded",
			"type":   quotaErr.Type,
			"limit":  quotaErr.Limit,
			"used":   quotaErr.Used,
			"resets": quotaErr.Resets.Format(time.RFC3339),
		}
	default:
		status = http.StatusInternalServerError
		body = map[string]any{"error": "internal_error"}
		err = errors.New("rate limiting check failed")
	}
	body["message"] = err.Error()

	h.Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if encErr := json.NewEncoder(w).Encode(body); encErr != nil {
		slog.Error("Failed to encode throttling response", "error", encErr)
	}
}

// getClientIP identifies the client, preferring the first address a proxy
// reports in X-Forwarded-For, then X-Real-IP, then the peer address.
func getClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		return strings.TrimSpace(first)
	}
	if xri := strings.TrimSpace(r.Header.Get("X-Real-IP")); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

package server

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/MeKo-Tech/silkgen/internal/testutil"
	"github.com/stretchr/testify/require"
)

// newTestServer returns a server on the default pipeline with a single row
// worker, so results do not depend on the machine.
func newTestServer(t *testing.T, mutate func(*Config)) *Server {
	t.Helper()

	cfg := Config{
		Pipeline:    pipeline.DefaultConfig(),
		MaxUploadMB: 1,
		TimeoutSec:  10,
		Version:     "test",
	}
	cfg.Pipeline.Parallel.MaxWorkers = 1
	if mutate != nil {
		mutate(&cfg)
	}
	s, err := NewServer(cfg)
	require.NoError(t, err)
	return s
}

// multipartRequest builds a POST with an "image" part and form fields.
func multipartRequest(t *testing.T, path, filename string, image []byte, fields map[string]string) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if image != nil {
		part, err := mw.CreateFormFile("image", filename)
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

// logoPNG is a 2x2 image: one light pixel and three dark ones.
func logoPNG(t *testing.T) []byte {
	t.Helper()
	return testutil.EncodeRowsPNG(t, "o#", "##")
}

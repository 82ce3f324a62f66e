// Package testutil holds fixtures shared by the package tests, mainly pixel
// art grids and the PNGs rendered from them.
package testutil

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

// CreateTempDir creates a temporary directory for testing.
func CreateTempDir(t *testing.T) string {
	t.Helper()
	return t.TempDir()
}

// EnsureDir creates a directory if it doesn't exist.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0o750)
}

// ReadFile returns the contents of path as a string.
func ReadFile(t *testing.T, path string) string {
	t.Helper()

	data, err := os.ReadFile(path) //nolint:gosec // G304: Test file reading with controlled path
	require.NoError(t, err, "Failed to read %s", path)
	return string(data)
}

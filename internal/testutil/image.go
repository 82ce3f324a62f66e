package testutil

import (
	"bytes"
	"compress/zlib"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// SaveImage writes img to path as PNG, creating parent directories.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()

	dir := filepath.Dir(path)
	require.NoError(t, EnsureDir(dir), "Failed to create directory %s", dir)

	file, err := os.Create(path) //nolint:gosec // G304: Test file creation with controlled path
	require.NoError(t, err, "Failed to create file %s", path)
	defer func() {
		require.NoError(t, file.Close())
	}()

	require.NoError(t, png.Encode(file, img), "Failed to encode PNG image")
}

// WriteRowsPNG renders pixel art (see GridFromRows) to a PNG file in dir and
// returns its path.
func WriteRowsPNG(t *testing.T, dir, name string, rows ...string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	SaveImage(t, ImageFromRows(rows...), path)
	return path
}

// EncodeRowsPNG renders pixel art to PNG bytes.
func EncodeRowsPNG(t *testing.T, rows ...string) []byte {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, ImageFromRows(rows...)))
	return buf.Bytes()
}

// BlankPNG encodes a black 8-bit gray PNG of any size without allocating
// its pixels, so tests can hand out uploads that are tiny on the wire but
// huge once decoded.
func BlankPNG(t *testing.T, width, height int) []byte {
	t.Helper()

	var buf bytes.Buffer
	buf.WriteString("\x89PNG\r\n\x1a\n")
	chunk := func(kind string, data []byte) {
		var word [4]byte
		binary.BigEndian.PutUint32(word[:], uint32(len(data))) //nolint:gosec // G115: test chunks are small
		buf.Write(word[:])
		crc := crc32.NewIEEE()
		_, _ = crc.Write([]byte(kind))
		_, _ = crc.Write(data)
		buf.WriteString(kind)
		buf.Write(data)
		binary.BigEndian.PutUint32(word[:], crc.Sum32())
		buf.Write(word[:])
	}

	ihdr := make([]byte, 13)
	binary.BigEndian.PutUint32(ihdr[0:], uint32(width))  //nolint:gosec // G115: test dimensions are positive
	binary.BigEndian.PutUint32(ihdr[4:], uint32(height)) //nolint:gosec // G115: test dimensions are positive
	ihdr[8] = 8                                          // bit depth; the remaining bytes mean gray, not interlaced
	chunk("IHDR", ihdr)

	var idat bytes.Buffer
	zw, err := zlib.NewWriterLevel(&idat, zlib.BestCompression)
	require.NoError(t, err)
	row := make([]byte, 1+width) // filter byte "none", then the pixels
	for range height {
		_, err := zw.Write(row)
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	chunk("IDAT", idat.Bytes())
	chunk("IEND", nil)
	return buf.Bytes()
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // G304: Test file reading with controlled path
	require.NoError(t, err, "Failed to open image file %s", path)
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	require.NoError(t, err, "Failed to decode image")
	return img
}

package utils

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SupportedImageExtensions lists supported file extensions for loading.
var SupportedImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	return slices.Contains(SupportedImageExtensions, strings.ToLower(filepath.Ext(path)))
}

// ImageMetadata captures lightweight file and pixel information.
type ImageMetadata struct {
	Path      string `json:"path,omitempty"`
	Format    string `json:"format"`
	SizeBytes int64  `json:"size_bytes"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
}

// SizeCheck inspects the dimensions from an image header before its pixels
// are decoded. A non-nil error aborts the decode.
type SizeCheck func(width, height int) error

// LoadImage opens and decodes an image file, returning the image and metadata.
// A nil check accepts any size.
func LoadImage(path string, check SizeCheck) (image.Image, ImageMetadata, error) {
	if path == "" {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Err: errors.New("empty path")}
	}
	if !IsSupportedImage(path) {
		err := &ImageProcessingError{Operation: "load", Err: fmt.Errorf("unsupported format: %s", filepath.Ext(path))}
		return nil, ImageMetadata{}, err
	}

	f, err := os.Open(path) //nolint:gosec // G304: Reading user-provided image file path is expected
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Err: err}
	}
	defer func() { _ = f.Close() }()

	fi, err := f.Stat()
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Err: err}
	}

	img, meta, err := DecodeImage(f, check)
	if err != nil {
		return nil, ImageMetadata{}, err
	}
	meta.Path = path
	meta.SizeBytes = fi.Size()
	return img, meta, nil
}

// DecodeImage decodes an image from r. The header is read first so check
// can reject the image before its pixel buffer is allocated. SizeBytes
// counts the bytes consumed.
func DecodeImage(r io.Reader, check SizeCheck) (image.Image, ImageMetadata, error) {
	cr := &countingReader{r: r}
	src := io.Reader(cr)
	if check != nil {
		var head bytes.Buffer
		cfg, _, err := image.DecodeConfig(io.TeeReader(cr, &head))
		if err != nil {
			return nil, ImageMetadata{}, &ImageProcessingError{Operation: "decode", Err: err}
		}
		if err := check(cfg.Width, cfg.Height); err != nil {
			return nil, ImageMetadata{}, &ImageProcessingError{Operation: "validate", Err: err}
		}
		src = io.MultiReader(&head, cr)
	}

	img, format, err := image.Decode(src)
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "decode", Err: err}
	}
	b := img.Bounds()
	return img, ImageMetadata{
		Format:    format,
		SizeBytes: cr.n,
		Width:     b.Dx(),
		Height:    b.Dy(),
	}, nil
}

// DecodeImageBytes is DecodeImage for an in-memory buffer.
func DecodeImageBytes(data []byte, check SizeCheck) (image.Image, ImageMetadata, error) {
	if len(data) == 0 {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "decode", Err: errors.New("empty image data")}
	}
	return DecodeImage(bytes.NewReader(data), check)
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// ValidateImageConstraints checks dimensions against the provided constraints.
func ValidateImageConstraints(img image.Image, constraints ImageConstraints) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	if err := constraints.Check(b.Dx(), b.Dy()); err != nil {
		return &ImageProcessingError{Operation: "validate", Err: err}
	}
	return nil
}

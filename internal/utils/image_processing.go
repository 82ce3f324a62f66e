package utils

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ImageConstraints bounds the accepted input size. Zero means unlimited.
type ImageConstraints struct {
	MaxWidth  int
	MaxHeight int
}

// ErrImageTooLarge is wrapped by errors for images beyond the constraints.
var ErrImageTooLarge = errors.New("image too large")

// Check accepts a width x height image. It has the SizeCheck signature so
// uploads can be rejected from their header.
func (c ImageConstraints) Check(width, height int) error {
	if width < 1 || height < 1 {
		return fmt.Errorf("empty image: %dx%d", width, height)
	}
	if (c.MaxWidth > 0 && width > c.MaxWidth) || (c.MaxHeight > 0 && height > c.MaxHeight) {
		return fmt.Errorf("%w: %dx%d > %dx%d", ErrImageTooLarge, width, height, c.MaxWidth, c.MaxHeight)
	}
	return nil
}

// DefaultImageConstraints returns the limits applied to uploaded images.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MaxWidth:  4096,
		MaxHeight: 4096,
	}
}

// PreprocessOptions are applied before classification. Every step keeps
// pixels crisp: resizing uses nearest neighbor so no new gray levels or
// partial alpha appear at edges.
type PreprocessOptions struct {
	// Mirror flips horizontally, for artwork placed on the back side.
	Mirror bool
	// Rotate turns counter-clockwise by 0, 90, 180 or 270 degrees.
	Rotate int
	// ResizeWidth scales to this many pixels wide keeping the aspect ratio.
	ResizeWidth int
}

// Enabled reports whether any step would change the image.
func (o PreprocessOptions) Enabled() bool {
	return o.Mirror || o.Rotate%360 != 0 || o.ResizeWidth > 0
}

// OutputSize returns the size Preprocess produces for a width x height
// input, using the same rounding as imaging.Resize.
func (o PreprocessOptions) OutputSize(width, height int) (int, int) {
	if r := ((o.Rotate % 360) + 360) % 360; r == 90 || r == 270 {
		width, height = height, width
	}
	if o.ResizeWidth > 0 && o.ResizeWidth != width && width > 0 {
		h := float64(o.ResizeWidth) * float64(height) / float64(width)
		return o.ResizeWidth, int(math.Max(1, math.Floor(h+0.5)))
	}
	return width, height
}

// Preprocess applies opts to img. The input is returned unchanged when no
// step is enabled.
func Preprocess(img image.Image, opts PreprocessOptions) (image.Image, error) {
	if img == nil {
		return nil, &ImageProcessingError{Operation: "preprocess", Err: errors.New("input image is nil")}
	}
	if opts.ResizeWidth < 0 {
		return nil, &ImageProcessingError{
			Operation: "resize",
			Err:       fmt.Errorf("invalid target width: %d", opts.ResizeWidth),
		}
	}

	out := img
	switch ((opts.Rotate % 360) + 360) % 360 {
	case 0:
	case 90:
		out = imaging.Rotate90(out)
	case 180:
		out = imaging.Rotate180(out)
	case 270:
		out = imaging.Rotate270(out)
	default:
		return nil, &ImageProcessingError{
			Operation: "rotate",
			Err:       fmt.Errorf("rotation must be a multiple of 90 degrees: %d", opts.Rotate),
		}
	}

	if opts.Mirror {
		out = imaging.FlipH(out)
	}

	if opts.ResizeWidth > 0 && opts.ResizeWidth != out.Bounds().Dx() {
		out = imaging.Resize(out, opts.ResizeWidth, 0, imaging.NearestNeighbor)
		if out.Bounds().Empty() {
			return nil, &ImageProcessingError{
				Operation: "resize",
				Err:       fmt.Errorf("resizing to width %d produced an empty image", opts.ResizeWidth),
			}
		}
	}

	return out, nil
}

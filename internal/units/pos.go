package units

import "fmt"

// Pos is a physical position. Right and down are positive.
type Pos struct {
	X Dim `json:"x" yaml:"x"`
	Y Dim `json:"y" yaml:"y"`
}

func (p Pos) String() string {
	return fmt.Sprintf("(%s, %s)", p.X, p.Y)
}

// PixelPos is a pixel index on the source grid. The origin is the top-left
// pixel; right and down are positive.
type PixelPos struct {
	X uint32 `json:"x" yaml:"x"`
	Y uint32 `json:"y" yaml:"y"`
}

var (
	// PixelX1 is a one pixel step to the right.
	PixelX1 = PixelPos{X: 1}
	// PixelY1 is a one pixel step down.
	PixelY1 = PixelPos{Y: 1}
)

// Add returns the componentwise sum.
func (p PixelPos) Add(o PixelPos) PixelPos {
	return PixelPos{X: p.X + o.X, Y: p.Y + o.Y}
}

func (p PixelPos) String() string {
	return fmt.Sprintf("(%d, %d)", p.X, p.Y)
}

// AbsDiff returns |a - b| without wrapping.
func AbsDiff(a, b uint32) uint32 {
	if a > b {
		return a - b
	}
	return b - a
}

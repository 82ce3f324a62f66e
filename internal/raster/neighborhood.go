package raster

// Neighborhood holds the kinds of a pixel and its 8 surrounding cells.
// Cells outside the grid are Transparent.
type Neighborhood struct {
	Self        Kind
	Top         Kind
	Bottom      Kind
	Left        Kind
	Right       Kind
	TopLeft     Kind
	TopRight    Kind
	BottomLeft  Kind
	BottomRight Kind
}

// SampleNeighborhood classifies (x, y) and its 8-connected neighbors.
func SampleNeighborhood(g *Grid, x, y int) Neighborhood {
	return Neighborhood{
		Self:        g.KindAt(x, y),
		Top:         g.KindAt(x, y-1),
		Bottom:      g.KindAt(x, y+1),
		Left:        g.KindAt(x-1, y),
		Right:       g.KindAt(x+1, y),
		TopLeft:     g.KindAt(x-1, y-1),
		TopRight:    g.KindAt(x+1, y-1),
		BottomLeft:  g.KindAt(x-1, y+1),
		BottomRight: g.KindAt(x+1, y+1),
	}
}

// HasDark reports whether any of the 8 neighbors is Dark.
func (n Neighborhood) HasDark() bool {
	for _, k := range [...]Kind{
		n.Top, n.Bottom, n.Left, n.Right,
		n.TopLeft, n.TopRight, n.BottomLeft, n.BottomRight,
	} {
		if k == Dark {
			return true
		}
	}
	return false
}

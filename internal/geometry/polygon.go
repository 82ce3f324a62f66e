package geometry

import (
	"github.com/MeKo-Tech/silkgen/internal/raster"
	"github.com/MeKo-Tech/silkgen/internal/units"
)

// Generator emits pixel polygons for one image.
type Generator struct {
	cfg    Config
	mapper Mapper
	origin units.PixelPos
}

// NewGenerator prepares a generator for an image with the given extents.
//
// Polygon corners sit on pixel boundaries while the extents record pixel
// indices, so the origin is the extents center moved by one pixel on both
// axes.
func NewGenerator(ext raster.Extents, cfg Config) *Generator {
	return &Generator{
		cfg:    cfg,
		mapper: Mapper{Pitch: cfg.PixelPitch},
		origin: ext.Center().Add(units.PixelX1).Add(units.PixelY1),
	}
}

// Origin returns the grid boundary that maps to physical (0, 0).
func (g *Generator) Origin() units.PixelPos { return g.origin }

// Config returns the physical parameters.
func (g *Generator) Config() Config { return g.cfg }

// edges are the physical coordinates of a pixel's four sides.
type edges struct {
	top, bottom, left, right units.Dim
}

// cornerSpec describes one pixel corner. right and bottom say which sides
// the corner sits on; they double as the inset directions: a corner on the
// right side moves left (negative) to reach the interior.
type cornerSpec struct {
	right, bottom bool
	horiz         func(raster.Neighborhood) raster.Kind
	vert          func(raster.Neighborhood) raster.Kind
	diag          func(raster.Neighborhood) raster.Kind
}

// corners in emission order: top-left, top-right, bottom-right, bottom-left.
var corners = [4]cornerSpec{
	{
		right: false, bottom: false,
		horiz: func(n raster.Neighborhood) raster.Kind { return n.Left },
		vert:  func(n raster.Neighborhood) raster.Kind { return n.Top },
		diag:  func(n raster.Neighborhood) raster.Kind { return n.TopLeft },
	},
	{
		right: true, bottom: false,
		horiz: func(n raster.Neighborhood) raster.Kind { return n.Right },
		vert:  func(n raster.Neighborhood) raster.Kind { return n.Top },
		diag:  func(n raster.Neighborhood) raster.Kind { return n.TopRight },
	},
	{
		right: true, bottom: true,
		horiz: func(n raster.Neighborhood) raster.Kind { return n.Right },
		vert:  func(n raster.Neighborhood) raster.Kind { return n.Bottom },
		diag:  func(n raster.Neighborhood) raster.Kind { return n.BottomRight },
	},
	{
		right: false, bottom: true,
		horiz: func(n raster.Neighborhood) raster.Kind { return n.Left },
		vert:  func(n raster.Neighborhood) raster.Kind { return n.Bottom },
		diag:  func(n raster.Neighborhood) raster.Kind { return n.BottomLeft },
	},
}

func (s cornerSpec) point(e edges) (units.Dim, units.Dim) {
	x, y := e.left, e.top
	if s.right {
		x = e.right
	}
	if s.bottom {
		y = e.bottom
	}
	return x, y
}

// pixelEdges returns the physical coordinates of the pixel at topLeft.
func (g *Generator) pixelEdges(topLeft units.PixelPos) edges {
	return edges{
		top:    g.mapper.Physical(topLeft.Y, g.origin.Y),
		bottom: g.mapper.Physical(topLeft.Y+1, g.origin.Y),
		left:   g.mapper.Physical(topLeft.X, g.origin.X),
		right:  g.mapper.Physical(topLeft.X+1, g.origin.X),
	}
}

// Polygon returns the closed outline of one pixel. The last point connects
// back to the first. Transparent pixels have no outline.
func (g *Generator) Polygon(topLeft units.PixelPos, kind raster.Kind, nb raster.Neighborhood) []units.Pos {
	return g.AppendPolygon(nil, topLeft, kind, nb)
}

// AppendPolygon is like Polygon but appends to dst.
func (g *Generator) AppendPolygon(
	dst []units.Pos,
	topLeft units.PixelPos,
	kind raster.Kind,
	nb raster.Neighborhood,
) []units.Pos {
	if !kind.Significant() {
		return dst
	}
	e := g.pixelEdges(topLeft)
	for _, c := range corners {
		dst = g.appendCorner(dst, kind, c, e, nb)
	}
	return dst
}

func (g *Generator) appendCorner(
	dst []units.Pos,
	kind raster.Kind,
	c cornerSpec,
	e edges,
	nb raster.Neighborhood,
) []units.Pos {
	x, y := c.point(e)

	switch kind {
	case raster.Dark:
		// Dark pixels are the clearance reference and always fill the cell.
		return append(dst, units.Pos{X: x, Y: y})
	case raster.Light:
		xIn := inward(x, c.right, g.cfg.Clearance)
		yIn := inward(y, c.bottom, g.cfg.Clearance)

		if c.horiz(nb) == raster.Dark {
			x = xIn
		}
		if c.vert(nb) == raster.Dark {
			y = yIn
		}

		// Value comparison also covers a zero clearance, where the
		// staircase would collapse into one point.
		if x == xIn || y == yIn || c.diag(nb) != raster.Dark {
			return append(dst, units.Pos{X: x, Y: y})
		}

		// Dark touches this corner only diagonally: notch around it.
		//
		//         x  xIn
		// y       +  +---- ...
		//            |
		// yIn     +--+
		//         |
		//        ...
		stair := [3]units.Pos{
			{X: x, Y: yIn},
			{X: xIn, Y: yIn},
			{X: xIn, Y: y},
		}
		// Top-right and bottom-left traverse the notch the other way round.
		if c.right != c.bottom {
			stair[0], stair[2] = stair[2], stair[0]
		}
		return append(dst, stair[:]...)
	default:
		return dst
	}
}

// inward moves v by d toward the pixel interior. Corners on the positive
// side (right or bottom) move in the negative direction.
func inward(v units.Dim, positiveSide bool, d units.Dim) units.Dim {
	if positiveSide {
		return v.Sub(d)
	}
	return v.Add(d)
}

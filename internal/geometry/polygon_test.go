package geometry

import (
	"testing"

	"github.com/MeKo-Tech/silkgen/internal/raster"
	"github.com/MeKo-Tech/silkgen/internal/units"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mm(s string) units.Dim { return units.MustParseDim(s + "mm") }

func pt(x, y string) units.Pos { return units.Pos{X: mm(x), Y: mm(y)} }

// unitGenerator returns a generator whose origin is the grid boundary (1, 1),
// so the pixel at (1, 1) spans (0, 0)-(1, 1) in millimeters.
func unitGenerator(clearance string) *Generator {
	ext := raster.Extents{Max: units.PixelPos{X: 1, Y: 1}}
	return NewGenerator(ext, Config{PixelPitch: mm("1"), Clearance: mm(clearance)})
}

var cell = units.PixelPos{X: 1, Y: 1}

func square() []units.Pos {
	return []units.Pos{pt("0", "0"), pt("1", "0"), pt("1", "1"), pt("0", "1")}
}

func TestConfigValidate(t *testing.T) {
	require.NoError(t, DefaultConfig().Validate())
	require.NoError(t, Config{PixelPitch: mm("1"), Clearance: 0}.Validate())
	require.ErrorIs(t, Config{PixelPitch: 0, Clearance: 0}.Validate(), ErrInvalidPitch)
	require.ErrorIs(t, Config{PixelPitch: mm("-1")}.Validate(), ErrInvalidPitch)
	require.ErrorIs(t, Config{PixelPitch: mm("1"), Clearance: mm("-0.1")}.Validate(), ErrNegativeClearance)
	require.NoError(t, Config{PixelPitch: MaxPixelPitch}.Validate())
	require.ErrorIs(t, Config{PixelPitch: mm("1000.000001")}.Validate(), ErrPitchTooLarge)
	require.ErrorIs(t, Config{PixelPitch: units.MustParseDim("1000000in")}.Validate(), ErrPitchTooLarge)
}

func TestConfigCheckExtents(t *testing.T) {
	wide := func(w uint32) raster.Extents { return raster.Extents{Max: units.PixelPos{X: w - 1, Y: 0}} }
	tall := func(h uint32) raster.Extents { return raster.Extents{Max: units.PixelPos{X: 0, Y: h - 1}} }

	tests := []struct {
		name    string
		cfg     Config
		ext     raster.Extents
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig(), ext: wide(4096)},
		{name: "largest pitch, widest fitting artwork", cfg: Config{PixelPitch: MaxPixelPitch}, ext: wide(1 << 21)},
		{name: "largest pitch, too wide", cfg: Config{PixelPitch: MaxPixelPitch}, ext: wide(1 << 22), wantErr: true},
		{name: "height counts too", cfg: Config{PixelPitch: MaxPixelPitch}, ext: tall(1 << 22), wantErr: true},
		{name: "clearance still fits", cfg: Config{PixelPitch: mm("1"), Clearance: mm("0.5")}, ext: wide(1<<31 - 1)},
		{name: "clearance pushes past the range", cfg: Config{PixelPitch: mm("1"), Clearance: mm("1")}, ext: wide(1<<31 - 1), wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.CheckExtents(tt.ext)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrOutlineTooLarge)
				require.ErrorIs(t, err, units.ErrOutOfRange)
				return
			}
			require.NoError(t, err)
		})
	}

	// The widest accepted artwork maps without wrapping.
	m := Mapper{Pitch: MaxPixelPitch}
	assert.Equal(t, units.FromMillimeters(-1000<<21), m.Physical(0, 1<<21))
	assert.Equal(t, units.FromMillimeters(1000<<21), m.Physical(1<<22, 1<<21))
}

func TestMapperPhysical(t *testing.T) {
	m := Mapper{Pitch: mm("0.5")}
	tests := []struct {
		p, c uint32
		want units.Dim
	}{
		{p: 5, c: 5, want: 0},
		{p: 7, c: 5, want: mm("1")},
		{p: 3, c: 5, want: mm("-1")},
		{p: 0, c: 5, want: mm("-2.5")},
		{p: 0, c: 0, want: 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Physical(tt.p, tt.c), "p=%d c=%d", tt.p, tt.c)
	}
	assert.Equal(t, pt("-0.5", "1"), m.Position(units.PixelPos{X: 4, Y: 7}, units.PixelPos{X: 5, Y: 5}))
}

func TestGeneratorOrigin(t *testing.T) {
	ext := raster.Extents{Max: units.PixelPos{X: 9, Y: 9}}
	g := NewGenerator(ext, DefaultConfig())
	assert.Equal(t, units.PixelPos{X: 5, Y: 5}, g.Origin())
	assert.Equal(t, DefaultConfig(), g.Config())
}

func TestDarkPixelIsAlwaysFullSquare(t *testing.T) {
	g := unitGenerator("0.1")
	allDark := raster.Neighborhood{
		Self: raster.Dark, Top: raster.Dark, Bottom: raster.Dark, Left: raster.Dark, Right: raster.Dark,
		TopLeft: raster.Dark, TopRight: raster.Dark, BottomLeft: raster.Dark, BottomRight: raster.Dark,
	}
	mixed := raster.Neighborhood{Self: raster.Dark, Top: raster.Light, TopLeft: raster.Dark, Right: raster.Light}

	for _, nb := range []raster.Neighborhood{{Self: raster.Dark}, allDark, mixed} {
		assert.Equal(t, square(), g.Polygon(cell, raster.Dark, nb))
	}
}

func TestLightPixelWithoutDarkNeighbors(t *testing.T) {
	g := unitGenerator("0.1")
	nb := raster.Neighborhood{
		Self: raster.Light, Top: raster.Light, Left: raster.Light,
		TopRight: raster.Light, BottomRight: raster.Light,
	}
	assert.Equal(t, square(), g.Polygon(cell, raster.Light, nb))
}

func TestTransparentPixelHasNoPolygon(t *testing.T) {
	g := unitGenerator("0.1")
	assert.Empty(t, g.Polygon(cell, raster.Transparent, raster.Neighborhood{}))
}

func TestLightPixelSingleDarkEdge(t *testing.T) {
	g := unitGenerator("0.1")

	tests := []struct {
		name string
		nb   raster.Neighborhood
		want []units.Pos
	}{
		{
			name: "dark on the right",
			nb:   raster.Neighborhood{Self: raster.Light, Right: raster.Dark},
			want: []units.Pos{pt("0", "0"), pt("0.9", "0"), pt("0.9", "1"), pt("0", "1")},
		},
		{
			name: "dark on the left",
			nb:   raster.Neighborhood{Self: raster.Light, Left: raster.Dark},
			want: []units.Pos{pt("0.1", "0"), pt("1", "0"), pt("1", "1"), pt("0.1", "1")},
		},
		{
			name: "dark above",
			nb:   raster.Neighborhood{Self: raster.Light, Top: raster.Dark},
			want: []units.Pos{pt("0", "0.1"), pt("1", "0.1"), pt("1", "1"), pt("0", "1")},
		},
		{
			name: "dark below",
			nb:   raster.Neighborhood{Self: raster.Light, Bottom: raster.Dark},
			want: []units.Pos{pt("0", "0"), pt("1", "0"), pt("1", "0.9"), pt("0", "0.9")},
		},
		{
			name: "dark edge swallows the diagonal",
			nb:   raster.Neighborhood{Self: raster.Light, Top: raster.Dark, TopLeft: raster.Dark, TopRight: raster.Dark},
			want: []units.Pos{pt("0", "0.1"), pt("1", "0.1"), pt("1", "1"), pt("0", "1")},
		},
		{
			name: "dark on two sides meets in the corner",
			nb:   raster.Neighborhood{Self: raster.Light, Top: raster.Dark, Left: raster.Dark},
			want: []units.Pos{pt("0.1", "0.1"), pt("1", "0.1"), pt("1", "1"), pt("0.1", "1")},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, g.Polygon(cell, raster.Light, tt.nb))
		})
	}
}

func TestLightPixelDiagonalStaircase(t *testing.T) {
	g := unitGenerator("0.1")

	tests := []struct {
		name string
		nb   raster.Neighborhood
		want []units.Pos
	}{
		{
			name: "top-left",
			nb:   raster.Neighborhood{Self: raster.Light, TopLeft: raster.Dark},
			want: []units.Pos{
				pt("0", "0.1"), pt("0.1", "0.1"), pt("0.1", "0"),
				pt("1", "0"), pt("1", "1"), pt("0", "1"),
			},
		},
		{
			name: "top-right is reversed",
			nb:   raster.Neighborhood{Self: raster.Light, TopRight: raster.Dark},
			want: []units.Pos{
				pt("0", "0"),
				pt("0.9", "0"), pt("0.9", "0.1"), pt("1", "0.1"),
				pt("1", "1"), pt("0", "1"),
			},
		},
		{
			name: "bottom-right",
			nb:   raster.Neighborhood{Self: raster.Light, BottomRight: raster.Dark},
			want: []units.Pos{
				pt("0", "0"), pt("1", "0"),
				pt("1", "0.9"), pt("0.9", "0.9"), pt("0.9", "1"),
				pt("0", "1"),
			},
		},
		{
			name: "bottom-left is reversed",
			nb:   raster.Neighborhood{Self: raster.Light, BottomLeft: raster.Dark},
			want: []units.Pos{
				pt("0", "0"), pt("1", "0"), pt("1", "1"),
				pt("0.1", "1"), pt("0.1", "0.9"), pt("0", "0.9"),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := g.Polygon(cell, raster.Light, tt.nb)
			require.Len(t, got, 6)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestZeroClearanceCollapsesInsets(t *testing.T) {
	g := unitGenerator("0")
	nb := raster.Neighborhood{
		Self: raster.Light, Right: raster.Dark, TopLeft: raster.Dark, BottomLeft: raster.Dark,
	}
	assert.Equal(t, square(), g.Polygon(cell, raster.Light, nb))
}

func TestTransparentNeighborsBehaveLikeLight(t *testing.T) {
	g := unitGenerator("0.1")

	for mask := range 256 {
		withLight := neighborhoodFromMask(mask, raster.Light)
		withTransparent := neighborhoodFromMask(mask, raster.Transparent)
		assert.Equal(t,
			g.Polygon(cell, raster.Light, withLight),
			g.Polygon(cell, raster.Light, withTransparent),
			"mask %08b", mask)
	}
}

func TestAppendPolygonReusesBuffer(t *testing.T) {
	g := unitGenerator("0.1")
	buf := make([]units.Pos, 0, 16)
	buf = g.AppendPolygon(buf, cell, raster.Dark, raster.Neighborhood{})
	buf = g.AppendPolygon(buf, cell, raster.Transparent, raster.Neighborhood{})
	buf = g.AppendPolygon(buf, cell, raster.Light, raster.Neighborhood{})
	assert.Len(t, buf, 8)
}

// neighborhoodFromMask sets neighbor i to Dark when bit i is set and to
// other otherwise.
func neighborhoodFromMask(mask int, other raster.Kind) raster.Neighborhood {
	k := func(bit int) raster.Kind {
		if mask&(1<<bit) != 0 {
			return raster.Dark
		}
		return other
	}
	return raster.Neighborhood{
		Self:        raster.Light,
		Top:         k(0),
		Bottom:      k(1),
		Left:        k(2),
		Right:       k(3),
		TopLeft:     k(4),
		TopRight:    k(5),
		BottomLeft:  k(6),
		BottomRight: k(7),
	}
}

package kicad

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/MeKo-Tech/silkgen/internal/layers"
	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/MeKo-Tech/silkgen/internal/raster"
	"github.com/MeKo-Tech/silkgen/internal/units"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// counterIDs numbers identifiers 1, 2, 3, ...
type counterIDs struct{ n byte }

func (c *counterIDs) NewID() (uuid.UUID, error) {
	c.n++
	return uuid.UUID{15: c.n}, nil
}

type failingIDs struct{}

func (failingIDs) NewID() (uuid.UUID, error) { return uuid.Nil, errors.New("entropy exhausted") }

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func pt(x, y string) units.Pos {
	return units.Pos{X: units.MustParseDim(x + "mm"), Y: units.MustParseDim(y + "mm")}
}

func lightRecord() pipeline.Record {
	return pipeline.Record{
		Layer:  "F.SilkS",
		Kind:   raster.Light,
		Points: []units.Pos{pt("-1", "-1"), pt("-0.1", "-1"), pt("-0.1", "0"), pt("-1", "0")},
	}
}

const goldenHeader = `(footprint "logo"
(version 20220630)
(generator silkgen)
(layer F.Silkscreen)
(tedit 0)
(attr board_only exclude_from_pos_files exclude_from_bom)
(fp_text reference "G***" (at 0 0) (layer F.Fab)
(effects (font (size 1.524 1.524) (thickness 0.3)))
(tstamp 00000000-0000-0000-0000-000000000001)
)
(fp_text value "LOGO" (at 0.75 0) (layer F.Fab) hide
(effects (font (size 1.524 1.524) (thickness 0.3)))
(tstamp 00000000-0000-0000-0000-000000000002)
)
`

const goldenPoly = `(fp_poly (pts (xy -1 -1)
(xy -0.1 -1)
(xy -0.1 0)
(xy -1 0)
)
(layer F.SilkS)
(width 0)
(fill solid)
(tstamp 00000000-0000-0000-0000-000000000003)
)
`

func TestWriteFootprintGolden(t *testing.T) {
	var buf bytes.Buffer
	err := WriteFootprint(&buf, Footprint{
		Name:    "logo",
		Policy:  layers.DefaultPolicy(),
		Records: []pipeline.Record{lightRecord()},
	}, &counterIDs{})
	require.NoError(t, err)

	assert.Equal(t, goldenHeader+goldenPoly+")\n", buf.String())
}

func TestWriteFootprintEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFootprint(&buf, Footprint{Name: "logo", Policy: layers.DefaultPolicy()}, &counterIDs{}))
	assert.Equal(t, goldenHeader+")\n", buf.String())
}

func TestWriteFootprintBackSide(t *testing.T) {
	var buf bytes.Buffer
	rec := lightRecord()
	rec.Layer = "B.SilkS"
	require.NoError(t, WriteFootprint(&buf, Footprint{
		Name:    "logo",
		Policy:  layers.Policy{Side: layers.Back},
		Records: []pipeline.Record{rec},
	}, &counterIDs{}))

	out := buf.String()
	assert.Contains(t, out, "(layer B.Silkscreen)\n")
	assert.Contains(t, out, `(at 0 0) (layer B.Fab)`)
	assert.Contains(t, out, "(layer B.SilkS)\n")
	assert.NotContains(t, out, "F.")
}

func TestWriteFootprintSanitizesName(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteFootprint(&buf, Footprint{Name: "my \"cool\"\nlogo", Policy: layers.DefaultPolicy()}, &counterIDs{}))
	assert.True(t, strings.HasPrefix(buf.String(), "(footprint \"my coollogo\"\n"))
}

func TestWriteFootprintSeededIsReproducible(t *testing.T) {
	fp := Footprint{
		Name:    "logo",
		Policy:  layers.DefaultPolicy(),
		Records: []pipeline.Record{lightRecord(), lightRecord()},
	}

	var a, b, c bytes.Buffer
	require.NoError(t, WriteFootprint(&a, fp, NewSeededIDs("logo")))
	require.NoError(t, WriteFootprint(&b, fp, NewSeededIDs("logo")))
	require.NoError(t, WriteFootprint(&c, fp, NewSeededIDs("other")))

	assert.Equal(t, a.String(), b.String())
	assert.NotEqual(t, a.String(), c.String())
	// Two texts and two polygons.
	assert.Equal(t, 4, strings.Count(a.String(), "(tstamp "))
}

func TestWriteFootprintRandomIDsDefault(t *testing.T) {
	fp := Footprint{Name: "logo", Policy: layers.DefaultPolicy(), Records: []pipeline.Record{lightRecord()}}

	var a, b bytes.Buffer
	require.NoError(t, WriteFootprint(&a, fp, nil))
	require.NoError(t, WriteFootprint(&b, fp, RandomIDs{}))
	assert.NotEqual(t, a.String(), b.String())
}

func TestWriteFootprintErrors(t *testing.T) {
	fp := Footprint{Name: "logo", Policy: layers.DefaultPolicy(), Records: []pipeline.Record{lightRecord()}}

	err := WriteFootprint(failingWriter{}, fp, &counterIDs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")

	var buf bytes.Buffer
	err = WriteFootprint(&buf, fp, failingIDs{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "entropy exhausted")
	assert.Empty(t, buf.String())
}

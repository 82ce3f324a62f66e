package preview

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/MeKo-Tech/silkgen/internal/pipeline"
	"github.com/MeKo-Tech/silkgen/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func records(t *testing.T, rows ...string) []pipeline.Record {
	t.Helper()
	c, err := pipeline.NewBuilder().Build()
	require.NoError(t, err)
	res, err := c.Convert(testutil.GridFromRows(rows...))
	require.NoError(t, err)
	return res.Records
}

func TestRenderSize(t *testing.T) {
	opts := DefaultOptions()
	opts.Scale = 10
	opts.Margin = 5

	img, err := Render(records(t, "o#", "##"), opts)
	require.NoError(t, err)
	// 2mm x 2mm at 10px/mm plus margins.
	assert.Equal(t, 30, img.Bounds().Dx())
	assert.Equal(t, 30, img.Bounds().Dy())
}

func TestRenderColors(t *testing.T) {
	opts := DefaultOptions()
	opts.Scale = 20
	opts.Margin = 2
	opts.Styles["Mask"] = LayerStyle{Color: "#d864ff", Alpha: 0}

	img, err := Render(records(t, "o#"), opts)
	require.NoError(t, err)

	// Margin keeps the background.
	assert.Equal(t, color.NRGBA{R: 0x00, G: 0x10, B: 0x23, A: 0xff}, img.NRGBAAt(0, 0))
	// Center of the dark pixel is copper.
	assert.Equal(t, color.NRGBA{R: 0xc8, G: 0x34, B: 0x34, A: 0xff}, img.NRGBAAt(32, 12))
	// Center of the light pixel is silkscreen.
	assert.Equal(t, color.NRGBA{R: 0xf2, G: 0xed, B: 0xa1, A: 0xff}, img.NRGBAAt(11, 12))
	// The clearance gap shows the background.
	assert.Equal(t, color.NRGBA{R: 0x00, G: 0x10, B: 0x23, A: 0xff}, img.NRGBAAt(21, 12))
}

func TestRenderUnknownLayer(t *testing.T) {
	recs := records(t, "#")
	recs[0].Layer = "User.1"

	img, err := Render(recs, DefaultOptions())
	require.NoError(t, err)
	assert.NotNil(t, img)
}

func TestRenderErrors(t *testing.T) {
	_, err := Render(nil, DefaultOptions())
	require.ErrorIs(t, err, ErrNothingToRender)

	opts := DefaultOptions()
	opts.Scale = 0
	_, err = Render(records(t, "#"), opts)
	require.Error(t, err)

	opts = DefaultOptions()
	opts.Scale = 1e6
	_, err = Render(records(t, "##"), opts)
	require.ErrorIs(t, err, ErrCanvasTooLarge)

	opts = DefaultOptions()
	opts.Background = "not-a-color"
	_, err = Render(records(t, "#"), opts)
	require.Error(t, err)
}

func TestWritePNG(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, records(t, "o#"), DefaultOptions()))

	img, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, 2*20+2*10, img.Bounds().Dx())
}

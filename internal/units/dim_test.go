package units

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDim(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Dim
	}{
		{name: "whole millimeters", input: "1mm", want: Millimeter},
		{name: "fraction of a millimeter", input: "0.5mm", want: Millimeter / 2},
		{name: "negative", input: "-2mm", want: -2 * Millimeter},
		{name: "one inch", input: "1in", want: MustParseDim("25.4mm")},
		{name: "thousandth inch", input: "1000mil", want: MustParseDim("25.4mm")},
		{name: "surrounding space", input: " 3mm ", want: 3 * Millimeter},
		{name: "tenth rounds to nearest", input: "0.1mm", want: Dim(429496730)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDim(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseDimErrors(t *testing.T) {
	tests := []struct {
		input string
		want  error
	}{
		{input: "1", want: ErrInvalidSuffix},
		{input: "1cm", want: ErrInvalidSuffix},
		{input: "mm", want: ErrInvalidNumber},
		{input: "abcmm", want: ErrInvalidNumber},
		{input: "1/3mm", want: ErrInvalidNumber},
		{input: "99999999999mm", want: ErrOutOfRange},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseDim(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)

			var pe *ParseError
			require.ErrorAs(t, err, &pe)
			assert.Equal(t, tt.input, pe.Input)
		})
	}
}

func TestDimFormat(t *testing.T) {
	tests := []struct {
		dim  Dim
		prec int
		want string
	}{
		{dim: 0, prec: 6, want: "0"},
		{dim: Millimeter, prec: 6, want: "1"},
		{dim: -Millimeter, prec: 6, want: "-1"},
		{dim: MustParseDim("0.1mm"), prec: 6, want: "0.1"},
		{dim: MustParseDim("-0.1mm"), prec: 6, want: "-0.1"},
		{dim: MustParseDim("0.05mm"), prec: 6, want: "0.05"},
		{dim: MustParseDim("25.4mm"), prec: 6, want: "25.4"},
		{dim: MustParseDim("0.9999999mm"), prec: 6, want: "1"},
		{dim: MustParseDim("1.5mm"), prec: 0, want: "2"},
		{dim: MustParseDim("-0.0000001mm"), prec: 6, want: "0"},
		{dim: MustParseDim("0.123456789mm"), prec: 20, want: "0.123456789"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.dim.Format(tt.prec))
		})
	}
}

func TestDimArithmeticIsExact(t *testing.T) {
	pitch := MustParseDim("0.1mm")
	clearance := MustParseDim("0.1mm")

	// Repeated scaling and subtracting never drifts: pitch*n - clearance*n
	// is zero for every n, which floating point cannot promise.
	for n := uint32(0); n < 10000; n += 37 {
		assert.Equal(t, Zero, pitch.MulInt(n).Sub(clearance.MulInt(n)))
	}

	assert.Equal(t, "-1mm", Millimeter.Neg().String())
	assert.Equal(t, Millimeter, Millimeter.Neg().Abs())
	assert.Equal(t, -Millimeter, Millimeter.NegIf(true))
	assert.Equal(t, Millimeter, Millimeter.NegIf(false))
	assert.InDelta(t, 0.1, MustParseDim("0.1mm").Float64(), 1e-9)
}

func TestDimMulIntChecked(t *testing.T) {
	tests := []struct {
		name    string
		d       Dim
		n       uint32
		want    Dim
		wantErr bool
	}{
		{name: "small", d: MustParseDim("0.5mm"), n: 4, want: FromMillimeters(2)},
		{name: "negative", d: FromMillimeters(-3), n: 2, want: FromMillimeters(-6)},
		{name: "by zero", d: MaxDim, n: 0, want: Zero},
		{name: "by one", d: MaxDim, n: 1, want: MaxDim},
		{name: "largest whole product", d: FromMillimeters(1 << 20), n: 1<<11 - 1, want: FromMillimeters((1 << 31) - (1 << 20))},
		{name: "wraps past 2^31mm", d: FromMillimeters(1 << 20), n: 1 << 11, wantErr: true},
		{name: "huge pitch", d: FromMillimeters(1_000_000_000), n: 3, wantErr: true},
		{name: "most negative", d: Dim(math.MinInt64), n: 2, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.d.MulIntChecked(tt.n)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrOutOfRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.d.MulInt(tt.n), got)
		})
	}
}

func TestDimTextRoundTrip(t *testing.T) {
	type doc struct {
		Pitch Dim `json:"pitch"`
	}

	out, err := json.Marshal(doc{Pitch: MustParseDim("0.25mm")})
	require.NoError(t, err)
	assert.JSONEq(t, `{"pitch":"0.25"}`, string(out))

	var back doc
	require.NoError(t, json.Unmarshal(out, &back))
	assert.Equal(t, MustParseDim("0.25mm"), back.Pitch)

	var suffixed Dim
	require.NoError(t, suffixed.UnmarshalText([]byte("10mil")))
	assert.Equal(t, MustParseDim("0.254mm"), suffixed)
}

func TestMustParseDimPanics(t *testing.T) {
	assert.Panics(t, func() { MustParseDim("nope") })
}

func TestPixelPos(t *testing.T) {
	p := PixelPos{X: 4, Y: 4}.Add(PixelX1).Add(PixelY1)
	assert.Equal(t, PixelPos{X: 5, Y: 5}, p)
	assert.Equal(t, "(5, 5)", p.String())
	assert.Equal(t, uint32(3), AbsDiff(2, 5))
	assert.Equal(t, uint32(3), AbsDiff(5, 2))
	assert.Equal(t, "(1mm, -0.5mm)", Pos{X: Millimeter, Y: -Millimeter / 2}.String())
}

// Package units defines the physical dimensions and grid coordinates used by
// the footprint generator.
//
// Physical lengths are stored as [Dim], a signed 32.32 fixed point number of
// millimeters. Every operation the generator needs (add, subtract, negate and
// multiply by a pixel count) is exact in this representation, so the same
// corner computed twice always yields the same bits.
package units

import (
	"errors"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
)

const fracBits = 32

// Dim is a signed physical length in millimeters, stored as 32.32 fixed point.
//
// The integer part covers ±2^31 mm, the fractional resolution is 2^-32 mm.
type Dim int64

const (
	// Zero is the zero length.
	Zero Dim = 0
	// Millimeter is exactly one millimeter.
	Millimeter Dim = 1 << fracBits

	// MaxDim is the largest representable length.
	MaxDim Dim = math.MaxInt64

	fracMask = int64(Millimeter) - 1

	// MaxPrecision is the largest number of fractional digits Format renders.
	MaxPrecision = 9
	// DefaultPrecision matches the nanometer resolution of KiCad files.
	DefaultPrecision = 6
)

var (
	// ErrInvalidSuffix is returned when a dimension has no known unit suffix.
	ErrInvalidSuffix = errors.New("invalid suffix, expected `mm`, `in` or `mil`")
	// ErrInvalidNumber is returned when the numeric part cannot be parsed.
	ErrInvalidNumber = errors.New("failed to parse as number")
	// ErrOutOfRange is returned when a value does not fit into a Dim.
	ErrOutOfRange = errors.New("value out of range")
)

// ParseError describes a dimension string that could not be parsed.
type ParseError struct {
	Input string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid dimension %q: %v", e.Input, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// unit suffixes and their size in millimeters as an exact ratio.
var suffixes = []struct {
	suffix   string
	num, den int64
}{
	{"mm", 1, 1},
	{"mil", 254, 10000},
	{"in", 254, 10},
}

// FromMillimeters returns a whole number of millimeters.
func FromMillimeters(mm int64) Dim {
	return Dim(mm << fracBits)
}

// ParseDim parses a length with a mandatory unit suffix, e.g. "1mm",
// "0.1mm", "0.05in" or "8mil". Inch values are converted exactly
// (25.4mm per inch) before rounding to the fixed point grid.
func ParseDim(s string) (Dim, error) {
	trimmed := strings.TrimSpace(s)
	for _, u := range suffixes {
		num, ok := strings.CutSuffix(trimmed, u.suffix)
		if !ok {
			continue
		}
		d, err := parseScaled(strings.TrimSpace(num), u.num, u.den)
		if err != nil {
			return 0, &ParseError{Input: s, Err: err}
		}
		return d, nil
	}
	return 0, &ParseError{Input: s, Err: ErrInvalidSuffix}
}

// MustParseDim is like ParseDim but panics on error. Intended for constants
// and tests.
func MustParseDim(s string) Dim {
	d, err := ParseDim(s)
	if err != nil {
		panic(err)
	}
	return d
}

func parseScaled(num string, mulNum, mulDen int64) (Dim, error) {
	if num == "" || strings.ContainsAny(num, "/ ") {
		return 0, ErrInvalidNumber
	}
	r, ok := new(big.Rat).SetString(num)
	if !ok {
		return 0, ErrInvalidNumber
	}
	r.Mul(r, big.NewRat(mulNum, mulDen))
	return fromRat(r)
}

// fromRat rounds r (in millimeters) to the nearest Dim, halves away from zero.
func fromRat(r *big.Rat) (Dim, error) {
	scaled := new(big.Rat).Mul(r, new(big.Rat).SetInt64(int64(Millimeter)))
	num, den := scaled.Num(), scaled.Denom()

	q, m := new(big.Int).QuoRem(num, den, new(big.Int))
	twice := new(big.Int).Abs(m)
	twice.Lsh(twice, 1)
	if twice.Cmp(den) >= 0 {
		if num.Sign() < 0 {
			q.Sub(q, big.NewInt(1))
		} else {
			q.Add(q, big.NewInt(1))
		}
	}
	if !q.IsInt64() {
		return 0, ErrOutOfRange
	}
	return Dim(q.Int64()), nil
}

// Add returns d + o.
func (d Dim) Add(o Dim) Dim { return d + o }

// Sub returns d - o.
func (d Dim) Sub(o Dim) Dim { return d - o }

// Neg returns -d.
func (d Dim) Neg() Dim { return -d }

// Abs returns |d|.
func (d Dim) Abs() Dim {
	if d < 0 {
		return -d
	}
	return d
}

// MulInt scales d by a pixel count. The product must fit into a Dim, see
// MulIntChecked.
func (d Dim) MulInt(n uint32) Dim {
	return Dim(int64(d) * int64(n))
}

// MulIntChecked is MulInt returning ErrOutOfRange instead of wrapping.
func (d Dim) MulIntChecked(n uint32) (Dim, error) {
	if n > 1 && (d == math.MinInt64 || d.Abs() > MaxDim/Dim(n)) {
		return 0, fmt.Errorf("%w: %s * %d", ErrOutOfRange, d, n)
	}
	return d.MulInt(n), nil
}

// NegIf returns -d when cond holds, d otherwise.
func (d Dim) NegIf(cond bool) Dim {
	if cond {
		return -d
	}
	return d
}

// Float64 converts to floating point millimeters. Only used for rendering.
func (d Dim) Float64() float64 {
	return float64(d) / float64(Millimeter)
}

// Format renders d in millimeters with at most prec fractional digits,
// rounding halves away from zero and trimming trailing zeros.
func (d Dim) Format(prec int) string {
	prec = max(0, min(prec, MaxPrecision))

	neg := d < 0
	abs := uint64(d.Abs())
	whole := abs >> fracBits
	frac := abs & uint64(fracMask)

	pow := uint64(1)
	for range prec {
		pow *= 10
	}
	// frac < 2^32 and pow <= 10^9 < 2^30, the product fits comfortably.
	rounded := (frac*pow + (1 << (fracBits - 1))) >> fracBits
	if rounded == pow {
		whole++
		rounded = 0
	}

	var b strings.Builder
	if neg && (whole != 0 || rounded != 0) {
		b.WriteByte('-')
	}
	b.WriteString(strconv.FormatUint(whole, 10))
	if prec > 0 && rounded != 0 {
		digits := strconv.FormatUint(rounded, 10)
		b.WriteByte('.')
		b.WriteString(strings.Repeat("0", prec-len(digits)))
		b.WriteString(strings.TrimRight(digits, "0"))
	}
	return b.String()
}

// String implements fmt.Stringer, e.g. "-0.1mm".
func (d Dim) String() string {
	return d.Format(DefaultPrecision) + "mm"
}

// MarshalText encodes d as a plain millimeter number.
func (d Dim) MarshalText() ([]byte, error) {
	return []byte(d.Format(DefaultPrecision)), nil
}

// UnmarshalText accepts either a suffixed dimension or a bare number of
// millimeters.
func (d *Dim) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s != "" && (s[len(s)-1] >= '0' && s[len(s)-1] <= '9' || s[len(s)-1] == '.') {
		s += "mm"
	}
	v, err := ParseDim(s)
	if err != nil {
		return err
	}
	*d = v
	return nil
}

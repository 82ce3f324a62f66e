package utils

import (
	"path/filepath"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// DefaultFootprintName is used when a name sanitizes to nothing.
const DefaultFootprintName = "logo"

var stripMarks = transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// FootprintName derives a library-safe footprint name from a file path:
// the stem is folded to ASCII where possible and everything outside
// letters, digits, '-', '_' and '.' becomes '_'.
func FootprintName(path string) string {
	stem := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	return SanitizeName(stem)
}

// SanitizeName applies the FootprintName rules to an arbitrary string.
func SanitizeName(s string) string {
	folded, _, err := transform.String(stripMarks, s)
	if err != nil {
		folded = s
	}

	var b strings.Builder
	for _, r := range strings.TrimSpace(folded) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)):
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	name := strings.Trim(b.String(), "._")
	if name == "" {
		return DefaultFootprintName
	}
	return name
}

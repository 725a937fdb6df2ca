package extract

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize applies Unicode canonical composition (NFC), removes
// control-category characters, and trims surrounding whitespace.
//
// Newlines survive normalization: the sub-splitter uses paragraph and line
// breaks as split boundaries. Every other control rune becomes a space so
// adjacent words do not fuse.
func Normalize(text string) string {
	text = norm.NFC.String(text)

	var sb strings.Builder
	sb.Grow(len(text))
	for _, r := range text {
		switch {
		case r == '\n':
			sb.WriteRune(r)
		case unicode.IsControl(r):
			sb.WriteRune(' ')
		default:
			sb.WriteRune(r)
		}
	}

	return strings.TrimSpace(sb.String())
}

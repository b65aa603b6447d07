package nortek

import (
	"strings"
	"unicode/utf8"
)

// CleanText decodes a fixed-width instrument text field. Bytes outside
// 0x2E-0x39 and 0x41-0x7A, control bytes and padding included, become spaces
// before the result is trimmed.
func CleanText(b []byte) string {
	out := make([]byte, len(b))
	for i, c := range b {
		switch {
		case c >= 0x2E && c <= 0x39, c >= 0x41 && c <= 0x7A:
			out[i] = c
		default:
			out[i] = ' '
		}
	}
	s := string(out)
	if !utf8.ValidString(s) {
		s = strings.ToValidUTF8(s, " ")
	}
	return strings.TrimSpace(s)
}

package extract

import (
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"
)

// ScanString decodes JSON string content that starts right after an opening quote.
//
// It returns the decoded text, the number of bytes of s it consumed and whether the
// closing (unescaped) quote was reached. When closed is true, n points just past the
// closing quote. When closed is false, s[n:] is an escape sequence cut short by the end
// of input; callers that receive more input should prepend it to the next chunk.
//
// Recognized escapes are those of JSON. Unknown escapes are kept verbatim.
func ScanString(s string) (text string, n int, closed bool) {
	var b strings.Builder
	b.Grow(len(s))

	i := 0
	for i < len(s) {
		c := s[i]
		switch c {
		case '"':
			return b.String(), i + 1, true
		case '\\':
			if i+1 >= len(s) {
				return b.String(), i, false
			}
			esc := s[i+1]
			if esc == 'u' {
				r, width, ok := decodeUnicodeEscape(s[i:])
				if width == 0 {
					return b.String(), i, false
				}
				if ok {
					b.WriteRune(r)
				} else {
					b.WriteString(s[i : i+width])
				}
				i += width
				continue
			}
			if r, ok := simpleEscapes[esc]; ok {
				b.WriteByte(r)
			} else {
				b.WriteByte('\\')
				b.WriteByte(esc)
			}
			i += 2
		default:
			b.WriteByte(c)
			i++
		}
	}
	return b.String(), i, false
}

var simpleEscapes = map[byte]byte{
	'"':  '"',
	'\\': '\\',
	'/':  '/',
	'n':  '\n',
	't':  '\t',
	'r':  '\r',
	'b':  '\b',
	'f':  '\f',
}

// decodeUnicodeEscape decodes a \uXXXX sequence (or a surrogate pair) at the start of s.
// width 0 means more input is needed; ok false means the bytes should be kept verbatim.
func decodeUnicodeEscape(s string) (r rune, width int, ok bool) {
	if len(s) < 6 {
		if isHexPrefix(s[2:]) {
			return 0, 0, false
		}
		return 0, 2, false
	}
	v, err := strconv.ParseUint(s[2:6], 16, 16)
	if err != nil {
		return 0, 2, false
	}
	r = rune(v)
	if !utf16.IsSurrogate(r) {
		return r, 6, true
	}

	// High surrogate: try to pair it with the following \uXXXX.
	rest := s[6:]
	if len(rest) < 6 {
		if len(rest) == 0 || strings.HasPrefix(`\u`, rest[:min(len(rest), 2)]) && isHexPrefix(rest[min(len(rest), 2):]) {
			return 0, 0, false
		}
		return utf8.RuneError, 6, true
	}
	if rest[0] != '\\' || rest[1] != 'u' {
		return utf8.RuneError, 6, true
	}
	lo, err := strconv.ParseUint(rest[2:6], 16, 16)
	if err != nil {
		return utf8.RuneError, 6, true
	}
	pair := utf16.DecodeRune(r, rune(lo))
	if pair == utf8.RuneError {
		return utf8.RuneError, 6, true
	}
	return pair, 12, true
}

func isHexPrefix(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= '0' && c <= '9' || c >= 'a' && c <= 'f' || c >= 'A' && c <= 'F') {
			return false
		}
	}
	return true
}

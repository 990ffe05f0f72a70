// Package util provides small string helpers shared across demo processing.
package util

import (
	"strings"
	"unicode/utf8"
)

// TrimTrailingNul removes NUL padding from the end of a wire string.
// GoldSrc resource and sample names arrive as C strings and often keep
// their terminator.
func TrimTrailingNul(s string) string {
	return strings.TrimRight(s, "\x00")
}

// LossyString decodes b as UTF-8, dropping invalid sequences instead of
// substituting replacement runes. Chat payloads mix engine control bytes
// with player-typed text in arbitrary encodings, so a strict decode is
// not an option.
func LossyString(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}

	var sb strings.Builder
	sb.Grow(len(b))
	for len(b) > 0 {
		r, size := utf8.DecodeRune(b)
		if r != utf8.RuneError || size > 1 {
			sb.WriteRune(r)
		}
		b = b[size:]
	}
	return sb.String()
}

// StripNewlines removes embedded CR and LF characters. Chat lines render on
// a single HUD row, so line breaks smuggled into a message are dropped.
func StripNewlines(s string) string {
	return strings.NewReplacer("\r", "", "\n", "").Replace(s)
}

// ParseInfoString splits a backslash-delimited engine info blob
// ("\name\Bob\model\gign") into key/value pairs. A trailing key without a
// value is ignored.
func ParseInfoString(s string) map[string]string {
	s = TrimTrailingNul(s)
	s = strings.TrimPrefix(s, `\`)

	info := make(map[string]string)
	if s == "" {
		return info
	}

	fields := strings.Split(s, `\`)
	for i := 0; i+1 < len(fields); i += 2 {
		info[fields[i]] = fields[i+1]
	}
	return info
}

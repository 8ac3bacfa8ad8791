package yank

import (
	"strings"
	"unicode/utf8"
)

// ContentsToText joins register lines into one string. Newlines that are
// part of a line (the editor's representation of NUL) become NUL bytes so
// that the result can be split back unambiguously.
func ContentsToText(contents []string) string {
	lines := make([]string, len(contents))
	for i, line := range contents {
		lines[i] = strings.ReplaceAll(line, "\n", "\x00")
	}
	return strings.Join(lines, "\n")
}

// TextToContents is the inverse of ContentsToText.
func TextToContents(text string) []string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.ReplaceAll(line, "\x00", "\n")
	}
	return lines
}

// validUTF8 replaces every byte that is not part of a valid UTF-8 sequence
// with U+FFFD, one replacement per byte, as encoding/json does.
func validUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	var b strings.Builder
	b.Grow(len(s) + 8)
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size == 1 {
			b.WriteRune(utf8.RuneError)
		} else {
			b.WriteString(s[i : i+size])
		}
		i += size
	}
	return b.String()
}

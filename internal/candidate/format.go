// Package candidate turns history entries into items for completion and
// fuzzy-finder front ends.
package candidate

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/width"
)

// SourceName prefixes highlight names.
const SourceName = "yank-history"

// Highlight marks a span of a rendered item. Col is a 1-based byte column
// and Width is in bytes, as the editor expects.
type Highlight struct {
	Name    string `json:"name" yaml:"name"`
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	HLGroup string `json:"hl_group" yaml:"hl_group"`
	Col     int    `json:"col" yaml:"col"`
	Width   int    `json:"width" yaml:"width"`
}

// ToDuration renders the age d as a whole number of the largest unit that
// fits: seconds, minutes, hours or days.
func ToDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	switch s := int64(d / time.Second); {
	case s < 60:
		return fmt.Sprintf("%ds", s)
	case s < 3600:
		return fmt.Sprintf("%dm", s/60)
	case s < 86400:
		return fmt.Sprintf("%dh", s/3600)
	default:
		return fmt.Sprintf("%dd", s/86400)
	}
}

// ZeroPad left-pads s with zeros to n characters.
func ZeroPad(s string, n int) string {
	if pad := n - utf8.RuneCountInString(s); pad > 0 {
		return strings.Repeat("0", pad) + s
	}
	return s
}

// caret returns the visible form of a control rune, or "" for runes that
// display as themselves.
func caret(r rune) string {
	switch {
	case r < 0x20:
		return "^" + string(r+0x40)
	case r == 0x7f:
		return "^?"
	case r >= 0x80 && r < 0xa0:
		return fmt.Sprintf("<%x>", r)
	}
	return ""
}

// cells returns the display width of a printable rune.
func cells(r rune) int {
	switch width.LookupRune(r).Kind() {
	case width.EastAsianWide, width.EastAsianFullwidth:
		return 2
	}
	return 1
}

// DisplayWidth returns the number of terminal cells s occupies once control
// characters are shown in caret notation.
func DisplayWidth(s string) int {
	n := 0
	for _, r := range s {
		if c := caret(r); c != "" {
			n += len(c)
		} else {
			n += cells(r)
		}
	}
	return n
}

// span is a byte range of rendered text that replaced a control rune.
type span struct {
	col, width int
}

const ellipsis = "…"

// printable renders s with control characters in caret notation, cut to at
// most maxCells cells with a trailing ellipsis when it does not fit. It
// returns the spans of the caret sequences that survived the cut.
func printable(s string, maxCells int) (string, []span) {
	fits := DisplayWidth(s) <= maxCells
	limit := maxCells
	if !fits {
		limit = maxCells - 1
	}

	var b strings.Builder
	var spans []span
	used := 0
	for _, r := range s {
		piece := caret(r)
		control := piece != ""
		w := len(piece)
		if !control {
			piece, w = string(r), cells(r)
		}
		if used+w > limit {
			break
		}
		if control {
			spans = append(spans, span{col: b.Len() + 1, width: len(piece)})
		}
		b.WriteString(piece)
		used += w
	}
	if !fits && maxCells > 0 {
		b.WriteString(ellipsis)
	}
	return b.String(), spans
}

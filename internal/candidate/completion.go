package candidate

import (
	"time"

	"github.com/roach88/yankhist/internal/yank"
)

// Completion defaults.
const (
	DefaultColumns         = 9999
	DefaultCtrlCharHLGroup = "SpecialKey"
)

// UnprintableHighlight names the highlight placed over caret sequences.
const UnprintableHighlight = SourceName + "/unprintable"

// CompletionParams controls how completion items are rendered.
type CompletionParams struct {
	// MaxAbbrWidth caps the abbreviation in cells. Zero or less means no cap
	// beyond Columns.
	MaxAbbrWidth int
	// Columns is the editor width.
	Columns int
	// CtrlCharHLGroup highlights caret sequences. Empty disables it.
	CtrlCharHLGroup string
}

// DefaultCompletionParams returns the parameters used when a client sends
// none.
func DefaultCompletionParams() CompletionParams {
	return CompletionParams{Columns: DefaultColumns, CtrlCharHLGroup: DefaultCtrlCharHLGroup}
}

// AbbrWidth returns the cell budget for an abbreviation.
func (p CompletionParams) AbbrWidth() int {
	cols := p.Columns
	if cols <= 0 {
		cols = DefaultColumns
	}
	if p.MaxAbbrWidth > 0 {
		return min(p.MaxAbbrWidth, cols)
	}
	return cols
}

// CompletionItem is one insert-mode completion candidate. Abbr is set only
// when it differs from Word.
type CompletionItem struct {
	Word       string      `json:"word" yaml:"word"`
	Abbr       string      `json:"abbr,omitempty" yaml:"abbr,omitempty"`
	Info       string      `json:"info" yaml:"info"`
	Kind       string      `json:"kind" yaml:"kind"`
	Menu       string      `json:"menu" yaml:"menu"`
	Highlights []Highlight `json:"highlights,omitempty" yaml:"highlights,omitempty"`
}

// CompletionWord returns the text inserted for e. Linewise and blockwise
// entries end with a newline.
func CompletionWord(e yank.Entry) string {
	word := yank.ContentsToText(e.Contents)
	switch e.Type.Kind() {
	case yank.KindLinewise, yank.KindBlockwise:
		word += "\n"
	}
	return word
}

// kindLetter is the one-letter completion kind of k.
func kindLetter(k yank.Kind) string {
	switch k {
	case yank.KindCharwise:
		return "c"
	case yank.KindLinewise:
		return "l"
	case yank.KindBlockwise:
		return "b"
	}
	return ""
}

// Completion renders entries in the order given. Ages are measured from now.
func Completion(entries []yank.Entry, now time.Time, p CompletionParams) []CompletionItem {
	items := make([]CompletionItem, 0, len(entries))
	maxCells := p.AbbrWidth()
	for _, e := range entries {
		word := CompletionWord(e)
		item := CompletionItem{
			Word: word,
			Info: word,
			Kind: kindLetter(e.Type.Kind()),
			Menu: ToDuration(now.Sub(e.CapturedAt())),
		}
		abbr, spans := printable(word, maxCells)
		if abbr != word {
			item.Abbr = abbr
		}
		if p.CtrlCharHLGroup != "" {
			for _, sp := range spans {
				item.Highlights = append(item.Highlights, Highlight{
					Name:    UnprintableHighlight,
					Type:    "abbr",
					HLGroup: p.CtrlCharHLGroup,
					Col:     sp.col,
					Width:   sp.width,
				})
			}
		}
		items = append(items, item)
	}
	return items
}

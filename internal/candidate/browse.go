package candidate

import (
	"strconv"
	"time"

	"github.com/roach88/yankhist/internal/yank"
)

// DefaultHeaderHLGroup highlights the browse header.
const DefaultHeaderHLGroup = "Special"

// HeaderHighlight names the highlight placed over the browse header.
const HeaderHighlight = "source/" + SourceName + "/header"

// BrowseParams controls how browse items are rendered.
type BrowseParams struct {
	// Prefix is written before the header of every item.
	Prefix string
	// HeaderHLGroup highlights the prefix and header. Empty disables it.
	HeaderHLGroup string
}

// DefaultBrowseParams returns the parameters used when a client sends none.
func DefaultBrowseParams() BrowseParams {
	return BrowseParams{HeaderHLGroup: DefaultHeaderHLGroup}
}

// ActionData is what a browse item hands to paste and delete actions.
type ActionData struct {
	Text        string       `json:"text" yaml:"text"`
	RegType     yank.RegType `json:"regType" yaml:"regType"`
	YankHistory yank.Entry   `json:"yankHistory" yaml:"yankHistory"`
}

// BrowseItem is one fuzzy-finder candidate.
type BrowseItem struct {
	Word       string      `json:"word" yaml:"word"`
	Action     ActionData  `json:"action" yaml:"action"`
	Highlights []Highlight `json:"highlights,omitempty" yaml:"highlights,omitempty"`
}

// Header returns "id:age:register:" with the id padded to idWidth digits and
// the age to three characters.
func Header(e yank.Entry, idWidth int, now time.Time) string {
	return ZeroPad(strconv.FormatInt(e.ID, 10), idWidth) + ":" +
		ZeroPad(ToDuration(now.Sub(e.CapturedAt())), 3) + ":" +
		e.Name + ":"
}

// Browse renders entries in the order given. Every id is padded to the
// width of the largest one so headers line up.
func Browse(entries []yank.Entry, now time.Time, p BrowseParams) []BrowseItem {
	var maxID int64
	for _, e := range entries {
		maxID = max(maxID, e.ID)
	}
	idWidth := len(strconv.FormatInt(maxID, 10))

	items := make([]BrowseItem, 0, len(entries))
	for _, e := range entries {
		header := Header(e, idWidth, now)
		text := yank.ContentsToText(e.Contents)
		item := BrowseItem{
			Word: p.Prefix + header + " " + text,
			Action: ActionData{
				Text:        text,
				RegType:     e.Type,
				YankHistory: e.Clone(),
			},
		}
		if p.HeaderHLGroup != "" {
			item.Highlights = []Highlight{{
				Name:    HeaderHighlight,
				HLGroup: p.HeaderHLGroup,
				Col:     1,
				Width:   len(p.Prefix) + len(header),
			}}
		}
		items = append(items, item)
	}
	return items
}

// DeleteIDs returns the entry ids behind the selected items, for the delete
// action.
func DeleteIDs(items []BrowseItem) []int64 {
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.Action.YankHistory.ID)
	}
	return ids
}

package candidate

import (
	"bytes"
	"fmt"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/yankhist/internal/yank"
)

var fixtureNow = time.UnixMilli(1_000_000_000)

func fixtureEntries() []yank.Entry {
	return []yank.Entry{
		{ID: 1, Time: 999_995_000, Info: yank.Info{Name: `"`, Type: yank.Charwise, Contents: []string{"hello"}}},
		{ID: 2, Time: 999_875_000, Info: yank.Info{Name: "a", Type: yank.Linewise, Contents: []string{"line1", "line2"}}},
		{ID: 10, Time: 992_800_000, Info: yank.Info{Name: "b", Type: yank.Blockwise(3), Contents: []string{"ab\tc", "日本"}}},
		{ID: 11, Time: 800_000_000, Info: yank.Info{Name: "c", Type: yank.Unset, Contents: []string{"x\ny"}}},
	}
}

func newGoldie(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func renderCompletion(items []CompletionItem) []byte {
	var b bytes.Buffer
	for _, it := range items {
		fmt.Fprintf(&b, "word=%q abbr=%q kind=%q menu=%q info=%q\n", it.Word, it.Abbr, it.Kind, it.Menu, it.Info)
		for _, h := range it.Highlights {
			fmt.Fprintf(&b, "  highlight name=%q type=%q group=%q col=%d width=%d\n", h.Name, h.Type, h.HLGroup, h.Col, h.Width)
		}
	}
	return b.Bytes()
}

func renderBrowse(items []BrowseItem) []byte {
	var b bytes.Buffer
	for _, it := range items {
		fmt.Fprintf(&b, "word=%q text=%q regtype=%q id=%d\n", it.Word, it.Action.Text, string(it.Action.RegType), it.Action.YankHistory.ID)
		for _, h := range it.Highlights {
			fmt.Fprintf(&b, "  highlight name=%q group=%q col=%d width=%d\n", h.Name, h.HLGroup, h.Col, h.Width)
		}
	}
	return b.Bytes()
}

func TestToDuration(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want string
	}{
		{0, "0s"},
		{999 * time.Millisecond, "0s"},
		{59 * time.Second, "59s"},
		{60 * time.Second, "1m"},
		{3599 * time.Second, "59m"},
		{time.Hour, "1h"},
		{23*time.Hour + 59*time.Minute, "23h"},
		{24 * time.Hour, "1d"},
		{100 * 24 * time.Hour, "100d"},
		{-90 * time.Second, "1m"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ToDuration(tt.in), "%v", tt.in)
	}
}

func TestZeroPad(t *testing.T) {
	assert.Equal(t, "005", ZeroPad("5", 3))
	assert.Equal(t, "05s", ZeroPad("5s", 3))
	assert.Equal(t, "100d", ZeroPad("100d", 3))
	assert.Equal(t, "7", ZeroPad("7", 0))
}

func TestDisplayWidth(t *testing.T) {
	assert.Equal(t, 5, DisplayWidth("hello"))
	assert.Equal(t, 4, DisplayWidth("日本"))
	assert.Equal(t, 4, DisplayWidth("a\tb"))
	assert.Equal(t, 2, DisplayWidth("\x7f"))
}

func TestCompletion_Golden(t *testing.T) {
	items := Completion(fixtureEntries(), fixtureNow, DefaultCompletionParams())
	newGoldie(t).Assert(t, "completion", renderCompletion(items))
}

func TestCompletion_AbbreviationIsTruncated(t *testing.T) {
	entries := []yank.Entry{
		{ID: 1, Time: 0, Info: yank.Info{Type: yank.Charwise, Contents: []string{"abcdefgh"}}},
		{ID: 2, Time: 0, Info: yank.Info{Type: yank.Charwise, Contents: []string{"日本語テキスト"}}},
		{ID: 3, Time: 0, Info: yank.Info{Type: yank.Charwise, Contents: []string{"a\tbcdef"}}},
		{ID: 4, Time: 0, Info: yank.Info{Type: yank.Charwise, Contents: []string{"fits"}}},
	}
	p := DefaultCompletionParams()
	p.MaxAbbrWidth = 5
	p.Columns = 80

	items := Completion(entries, time.UnixMilli(0), p)
	require.Len(t, items, 4)

	assert.Equal(t, "abcd…", items[0].Abbr)
	assert.Equal(t, "abcdefgh", items[0].Word, "the inserted word is never cut")
	assert.Equal(t, "日本…", items[1].Abbr, "wide characters count two cells")
	assert.Equal(t, "a^Ib…", items[2].Abbr)
	require.Len(t, items[2].Highlights, 1)
	assert.Equal(t, 2, items[2].Highlights[0].Col)
	assert.Empty(t, items[3].Abbr, "an abbreviation equal to the word is omitted")

	for _, it := range items {
		assert.LessOrEqual(t, DisplayWidth(it.Abbr), 5)
	}
}

func TestCompletion_CaretCutOffDropsHighlight(t *testing.T) {
	p := CompletionParams{MaxAbbrWidth: 4, CtrlCharHLGroup: "SpecialKey"}
	items := Completion([]yank.Entry{
		{Info: yank.Info{Type: yank.Charwise, Contents: []string{"abc\tdef"}}},
	}, time.UnixMilli(0), p)
	require.Len(t, items, 1)
	assert.Equal(t, "abc…", items[0].Abbr)
	assert.Empty(t, items[0].Highlights)
}

func TestCompletion_HighlightDisabled(t *testing.T) {
	p := DefaultCompletionParams()
	p.CtrlCharHLGroup = ""
	items := Completion(fixtureEntries(), fixtureNow, p)
	for _, it := range items {
		assert.Empty(t, it.Highlights)
	}
	assert.Equal(t, "line1^Jline2^J", items[1].Abbr)
}

func TestCompletionParams_AbbrWidth(t *testing.T) {
	tests := []struct {
		name string
		p    CompletionParams
		want int
	}{
		{"defaults", CompletionParams{}, DefaultColumns},
		{"columns only", CompletionParams{Columns: 80}, 80},
		{"max below columns", CompletionParams{MaxAbbrWidth: 30, Columns: 80}, 30},
		{"max above columns", CompletionParams{MaxAbbrWidth: 120, Columns: 80}, 80},
		{"negative max", CompletionParams{MaxAbbrWidth: -1, Columns: 80}, 80},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.p.AbbrWidth())
		})
	}
}

func TestBrowse_Golden(t *testing.T) {
	items := Browse(fixtureEntries(), fixtureNow, DefaultBrowseParams())
	newGoldie(t).Assert(t, "browse", renderBrowse(items))
}

func TestBrowse_PrefixWidensHeaderHighlight(t *testing.T) {
	p := BrowseParams{Prefix: "» ", HeaderHLGroup: "Title"}
	items := Browse(fixtureEntries()[:1], fixtureNow, p)
	require.Len(t, items, 1)

	assert.Equal(t, `» 1:05s:": hello`, items[0].Word)
	require.Len(t, items[0].Highlights, 1)
	assert.Equal(t, Highlight{Name: HeaderHighlight, HLGroup: "Title", Col: 1, Width: len("» ") + len(`1:05s:":`)}, items[0].Highlights[0])
}

func TestBrowse_NoHighlightGroup(t *testing.T) {
	items := Browse(fixtureEntries(), fixtureNow, BrowseParams{})
	for _, it := range items {
		assert.Empty(t, it.Highlights)
	}
}

func TestBrowse_ActionCarriesEntryCopy(t *testing.T) {
	entries := fixtureEntries()
	items := Browse(entries, fixtureNow, DefaultBrowseParams())
	entries[0].Contents[0] = "mutated"

	assert.Equal(t, "hello", items[0].Action.YankHistory.Contents[0])
	assert.Equal(t, yank.Charwise, items[0].Action.RegType)
}

func TestDeleteIDs(t *testing.T) {
	items := Browse(fixtureEntries(), fixtureNow, DefaultBrowseParams())
	assert.Equal(t, []int64{1, 2, 10, 11}, DeleteIDs(items))
	assert.Empty(t, DeleteIDs(nil))
}

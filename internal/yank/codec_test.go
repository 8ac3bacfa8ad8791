package yank

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestMarshalRecord_Format(t *testing.T) {
	r := Record{
		Time: 1700000000123,
		Info: Info{Name: "a", Type: Linewise, Contents: []string{"foo <bar>", "baz"}},
	}

	line, err := MarshalRecord(r)
	require.NoError(t, err)
	assert.Equal(t, `[1700000000123,"a","V",["foo <bar>","baz"]]`+"\n", string(line))
}

func TestMarshalRecord_EscapesNewlinesToNUL(t *testing.T) {
	r := Record{Time: 1, Info: Info{Name: `"`, Type: Charwise, Contents: []string{"one\ntwo"}}}

	line, err := MarshalRecord(r)
	require.NoError(t, err)

	assert.Equal(t, 1, strings.Count(string(line), "\n"), "record must occupy exactly one line")
	assert.Contains(t, string(line), `one\u0000two`)

	got, err := UnmarshalRecord([]byte(strings.TrimSuffix(string(line), "\n")))
	require.NoError(t, err)
	assert.Equal(t, []string{"one\ntwo"}, got.Contents)
}

func TestMarshalRecord_NilContents(t *testing.T) {
	line, err := MarshalRecord(Record{Time: 5, Info: Info{Name: "x"}})
	require.NoError(t, err)
	assert.Equal(t, `[5,"x","",[]]`+"\n", string(line))
}

func TestUnmarshalRecord_Blockwise(t *testing.T) {
	r, err := UnmarshalRecord([]byte(`[10,"+","\u00163",["abc","def"]]`))
	require.NoError(t, err)

	assert.Equal(t, int64(10), r.Time)
	assert.Equal(t, "+", r.Name)
	assert.Equal(t, Blockwise(3), r.Type)
	assert.Equal(t, []string{"abc", "def"}, r.Contents)
}

func TestUnmarshalRecord_FractionalTime(t *testing.T) {
	r, err := UnmarshalRecord([]byte(`[1.5e3,"a","v",["x"]]`))
	require.NoError(t, err)
	assert.Equal(t, int64(1500), r.Time)
}

func TestUnmarshalRecord_Rejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"not json", `[1,"a"`},
		{"object", `{"time":1}`},
		{"too few fields", `[1,"a","v"]`},
		{"too many fields", `[1,"a","v",[],0]`},
		{"string time", `["1","a","v",[]]`},
		{"null time", `[null,"a","v",[]]`},
		{"numeric regname", `[1,2,"v",[]]`},
		{"null regname", `[1,null,"v",[]]`},
		{"bad regtype", `[1,"a","x",[]]`},
		{"bad block width", `[1,"a","\u0016",[]]`},
		{"contents not array", `[1,"a","v","x"]`},
		{"null contents", `[1,"a","v",null]`},
		{"non-string line", `[1,"a","v",["x",3]]`},
		{"time above float range", `[1e300,"a","v",[]]`},
		{"time below float range", `[-9007199254740993.5,"a","v",[]]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := UnmarshalRecord([]byte(tt.line))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformedRecord), "error should wrap ErrMalformedRecord: %v", err)
		})
	}
}

func TestDecodeLines_StopsAtPartialLine(t *testing.T) {
	data := []byte("[1,\"a\",\"v\",[\"x\"]]\n[2,\"a\",\"v\",[\"y\"]]\n[3,\"a\",\"v\",[\"z")

	records, consumed, err := DecodeLines(data)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, int64(1), records[0].Time)
	assert.Equal(t, int64(2), records[1].Time)
	assert.Equal(t, strings.LastIndex(string(data), "\n")+1, consumed)
}

func TestDecodeLines_SkipsBlankLines(t *testing.T) {
	data := []byte("[1,\"a\",\"v\",[\"x\"]]\n\n  \n[2,\"a\",\"v\",[\"y\"]]\n")

	records, consumed, err := DecodeLines(data)
	require.NoError(t, err)
	assert.Len(t, records, 2)
	assert.Equal(t, len(data), consumed)
}

func TestDecodeLines_MalformedFailsWholeChunk(t *testing.T) {
	data := []byte("[1,\"a\",\"v\",[\"x\"]]\n[oops]\n[3,\"a\",\"v\",[\"z\"]]\n")

	records, _, err := DecodeLines(data)
	require.Error(t, err)
	assert.Nil(t, records, "no partial recovery")

	var de *DecodeError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, 2, de.Line)
	assert.Equal(t, int64(len("[1,\"a\",\"v\",[\"x\"]]\n")), de.Offset)
	assert.True(t, errors.Is(err, ErrMalformedRecord))
}

func TestDecodeLines_Empty(t *testing.T) {
	records, consumed, err := DecodeLines(nil)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, consumed)
}

func TestEncodeLines_DecodeLines(t *testing.T) {
	records := []Record{
		{Time: 1, Info: Info{Name: "a", Type: Charwise, Contents: []string{"x"}}},
		{Time: 2, Info: Info{Name: "b", Type: Blockwise(12), Contents: []string{"", "tab\there"}}},
		{Time: 3, Info: Info{Name: `"`, Type: Unset, Contents: []string{}}},
	}

	data, err := EncodeLines(records)
	require.NoError(t, err)
	assert.Equal(t, 3, strings.Count(string(data), "\n"))

	got, consumed, err := DecodeLines(data)
	require.NoError(t, err)
	assert.Equal(t, len(data), consumed)
	assert.Equal(t, records, got)
}

func TestCodec_OneLinePerRecordProperty(t *testing.T) {
	noNUL := rapid.String().Filter(func(s string) bool { return !strings.Contains(s, "\x00") })

	rapid.Check(t, func(rt *rapid.T) {
		r := Record{
			Time: rapid.Int64Range(0, 1<<50).Draw(rt, "time"),
			Info: Info{
				Name:     rapid.StringN(0, 1, 1).Draw(rt, "regname"),
				Type:     rapid.SampledFrom([]RegType{Unset, Charwise, Linewise, Blockwise(7)}).Draw(rt, "regtype"),
				Contents: rapid.SliceOf(noNUL).Draw(rt, "contents"),
			},
		}

		line, err := MarshalRecord(r)
		require.NoError(rt, err)
		require.Equal(rt, 1, strings.Count(string(line), "\n"), "encoded record spans more than one line")

		got, consumed, err := DecodeLines(line)
		require.NoError(rt, err)
		require.Equal(rt, len(line), consumed)
		require.Len(rt, got, 1)
		require.Equal(rt, r.Key(), got[0].Key())
	})
}

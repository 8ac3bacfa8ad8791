package yank

import (
	"fmt"
	"slices"
	"time"
)

// Info is the register payload of a single yank.
type Info struct {
	Name     string   `json:"regname" yaml:"regname"`
	Type     RegType  `json:"regtype" yaml:"regtype"`
	Contents []string `json:"regcontents" yaml:"regcontents"`
}

// Clone returns a copy of i that shares no memory with it.
func (i Info) Clone() Info {
	i.Contents = slices.Clone(i.Contents)
	return i
}

// ValidUTF8 returns a copy of i in which every invalid UTF-8 byte is
// replaced by U+FFFD, the form it takes after a round trip through the
// history file.
func (i Info) ValidUTF8() Info {
	i.Name = validUTF8(i.Name)
	if i.Contents == nil {
		return i
	}
	contents := make([]string, len(i.Contents))
	for n, line := range i.Contents {
		contents[n] = validUTF8(line)
	}
	i.Contents = contents
	return i
}

// Record is the persisted form of a yank. It carries no id.
type Record struct {
	// Time is the capture time in milliseconds since the Unix epoch. It is
	// used for ordering and merge decisions only and is not guaranteed to be
	// monotonic across processes.
	Time int64
	Info
}

// Key returns a string that is equal for two records exactly when the
// records are structurally identical.
func (r Record) Key() string {
	return fmt.Sprintf("%d\x1f%q\x1f%q\x1f%q", r.Time, r.Name, string(r.Type), r.Contents)
}

// Entry is a record held by a history store, together with the id the store
// assigned to it. See the package documentation for the id contract.
type Entry struct {
	ID   int64 `json:"id" yaml:"id"`
	Time int64 `json:"time" yaml:"time"`
	Info `yaml:",inline"`
}

// Record strips the id from e.
func (e Entry) Record() Record {
	return Record{Time: e.Time, Info: e.Info.Clone()}
}

// Clone returns a copy of e that shares no memory with it.
func (e Entry) Clone() Entry {
	e.Info = e.Info.Clone()
	return e
}

// CapturedAt returns the capture time as a time.Time.
func (e Entry) CapturedAt() time.Time {
	return time.UnixMilli(e.Time)
}

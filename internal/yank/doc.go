// Package yank defines the yank history data model and its line codec.
//
// A yank is one copy or cut performed in the editor. It is described by the
// register it went to (name and type) and the copied lines. The persisted
// form of a yank is a Record; a Record together with a process-local id is an
// Entry.
//
// # Identity
//
// Entry ids are assigned by the owning history store when the entry enters
// its in-memory view. They are never written to disk and are regenerated on
// every load, so an id is only meaningful inside the process that handed it
// out. Two processes sharing a history file will generally disagree about
// ids.
//
// # File format
//
// Records are stored one per line as a JSON array:
//
//	[time, regname, regtype, regcontents]
//
// time is milliseconds since the Unix epoch, regcontents is an array of
// strings. A newline inside a content line is stored as a NUL byte so that a
// record never spans more than one physical line.
package yank

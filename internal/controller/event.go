package controller

import (
	"unicode/utf8"

	"github.com/roach88/yankhist/internal/yank"
)

// UnnamedRegister is recorded for yanks that report an empty register name.
const UnnamedRegister = `"`

// Event is the payload of the editor's TextYankPost event.
type Event struct {
	RegName     string   `json:"regname"`
	RegType     string   `json:"regtype"`
	RegContents []string `json:"regcontents"`
	Operator    string   `json:"operator"`
	Inclusive   bool     `json:"inclusive"`
	Visual      bool     `json:"visual"`
	// Time is the capture time in milliseconds since the epoch. Zero means
	// the time the event is handled.
	Time int64 `json:"time,omitempty"`
}

// Validate checks the shape of the event.
func (e Event) Validate() error {
	if e.RegContents == nil {
		return &InputError{Field: "regcontents", Message: "missing"}
	}
	if _, err := yank.ParseRegType(e.RegType); err != nil {
		return &InputError{Field: "regtype", Message: err.Error()}
	}
	if utf8.RuneCountInString(e.RegName) > 1 {
		return &InputError{Field: "regname", Message: "must be a single character"}
	}
	if e.Time < 0 {
		return &InputError{Field: "time", Message: "must not be negative"}
	}
	return nil
}

// Info returns the register payload, with the unnamed register filled in.
func (e Event) Info() yank.Info {
	name := e.RegName
	if name == "" {
		name = UnnamedRegister
	}
	return yank.Info{
		Name:     name,
		Type:     yank.RegType(e.RegType),
		Contents: e.RegContents,
	}
}

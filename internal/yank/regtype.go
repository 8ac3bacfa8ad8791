package yank

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
)

// ErrInvalidRegType is returned when a register type string is not one of
// "", "v", "V" or "\x16" followed by a width.
var ErrInvalidRegType = errors.New("invalid register type")

// RegType is a register type as reported by the editor.
//
//	""        unset
//	"v"       characterwise
//	"V"       linewise
//	"\x16<n>" blockwise, n is the block width
type RegType string

// Register types without parameters.
const (
	Unset    RegType = ""
	Charwise RegType = "v"
	Linewise RegType = "V"
)

// blockPrefix is CTRL-V, the first byte of every blockwise register type.
const blockPrefix = "\x16"

var regTypePattern = regexp.MustCompile(`^(|[vV]|\x16[0-9]+)$`)

// Kind is the operator-wise classification of a RegType.
type Kind int

const (
	KindUnset Kind = iota
	KindCharwise
	KindLinewise
	KindBlockwise
)

// String returns a short lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindCharwise:
		return "charwise"
	case KindLinewise:
		return "linewise"
	case KindBlockwise:
		return "blockwise"
	default:
		return "unset"
	}
}

// Blockwise returns the blockwise register type of the given width.
func Blockwise(width int) RegType {
	return RegType(blockPrefix + strconv.Itoa(width))
}

// ParseRegType validates s and returns it as a RegType.
func ParseRegType(s string) (RegType, error) {
	t := RegType(s)
	if !t.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidRegType, s)
	}
	return t, nil
}

// Valid reports whether t has one of the accepted shapes.
func (t RegType) Valid() bool {
	return regTypePattern.MatchString(string(t))
}

// Kind classifies t. Invalid types classify as KindUnset.
func (t RegType) Kind() Kind {
	switch {
	case t == Charwise:
		return KindCharwise
	case t == Linewise:
		return KindLinewise
	case len(t) > 0 && t[0] == blockPrefix[0]:
		return KindBlockwise
	default:
		return KindUnset
	}
}

// Width returns the block width of a blockwise type and 0 for every other
// type.
func (t RegType) Width() int {
	if t.Kind() != KindBlockwise {
		return 0
	}
	n, err := strconv.Atoi(string(t[1:]))
	if err != nil {
		return 0
	}
	return n
}

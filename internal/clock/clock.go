// Package clock provides the time sources used by the history store:
// a wall clock for capture timestamps and a sequence for entry ids.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock reports the current wall-clock time.
type Clock interface {
	Now() time.Time
}

// System is the Clock backed by time.Now.
type System struct{}

// Now returns time.Now().
func (System) Now() time.Time {
	return time.Now()
}

// Sequence hands out strictly increasing ids, starting at 1.
//
// Safe for concurrent use.
type Sequence struct {
	n atomic.Int64
}

// NewSequence returns a sequence whose first Next returns 1.
func NewSequence() *Sequence {
	return &Sequence{}
}

// Next returns the next id.
func (s *Sequence) Next() int64 {
	return s.n.Add(1)
}

// Package debounce coalesces bursts of triggers into a single delayed call.
package debounce

import (
	"sync"
	"time"
)

// MinDelay is the smallest delay a Scheduler will use.
const MinDelay = 10 * time.Millisecond

// Scheduler calls fn once, delay after the last of a burst of Trigger calls.
//
// At most one call is pending at a time. The delay of a pending call is
// fixed when its burst starts; SetDelay affects the next burst only.
//
// Scheduler performs no serialization of fn itself: a burst that starts
// while fn is still running may fire before that run returns. Callers that
// need mutual exclusion take their own lock inside fn.
type Scheduler struct {
	fn func()

	mu      sync.Mutex
	delay   time.Duration // delay for the next burst
	cycle   time.Duration // delay of the pending burst
	timer   *time.Timer
	gen     uint64 // identifies the live timer; stale timers compare unequal
	pending bool
	stopped bool
}

// New returns a scheduler that runs fn. delay is raised to MinDelay.
func New(delay time.Duration, fn func()) *Scheduler {
	return &Scheduler{fn: fn, delay: clamp(delay)}
}

// SetDelay changes the delay used by the next burst.
func (s *Scheduler) SetDelay(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = clamp(delay)
}

// Trigger schedules fn, or pushes back the pending call if there is one.
func (s *Scheduler) Trigger() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return
	}
	if !s.pending {
		s.pending = true
		s.cycle = s.delay
	}
	if s.timer != nil {
		s.timer.Stop()
	}
	s.gen++
	gen := s.gen
	s.timer = time.AfterFunc(s.cycle, func() { s.fire(gen) })
}

// Stop cancels the pending call, if any, and disables the scheduler.
// It reports whether a call was pending. A call already running is not
// interrupted.
func (s *Scheduler) Stop() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	wasPending := s.pending
	s.stopped = true
	s.pending = false
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	return wasPending
}

func (s *Scheduler) fire(gen uint64) {
	s.mu.Lock()
	if s.stopped || !s.pending || gen != s.gen {
		s.mu.Unlock()
		return
	}
	s.pending = false
	s.timer = nil
	s.mu.Unlock()

	s.fn()
}

func clamp(d time.Duration) time.Duration {
	if d < MinDelay {
		return MinDelay
	}
	return d
}

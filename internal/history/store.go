package history

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/roach88/yankhist/internal/clock"
	"github.com/roach88/yankhist/internal/debounce"
	"github.com/roach88/yankhist/internal/yank"
)

// ErrClosed is returned by operations on a closed Store.
var ErrClosed = errors.New("history: store closed")

// Store is the yank history of one process. It is safe for concurrent use.
type Store struct {
	// syncMu serializes reconciliations. It is always taken before mu.
	syncMu sync.Mutex

	sched    *debounce.Scheduler
	ids      *clock.Sequence
	instance string

	mu       sync.Mutex
	set      settings
	log      *slog.Logger
	entries  []yank.Entry // insertion order
	nextSave int          // entries[nextSave:] are not on disk yet
	rewrite  bool         // the next write must truncate and rewrite everything
	deletes  uint64       // bumped by Delete; detects deletes during a write
	seen     observation
	closed   bool
}

// New creates a store. Nothing is read from disk until the first Values,
// Flush or scheduled flush.
func New(opts ...Option) *Store {
	set := defaultSettings()
	for _, opt := range opts {
		opt(&set)
	}
	set.Options = set.Options.normalized()

	s := &Store{
		ids:      clock.NewSequence(),
		instance: set.ids.Generate(),
		set:      set,
	}
	s.log = s.logger(set.logger)
	s.sched = debounce.New(set.UpdateDuration, s.scheduledFlush)
	return s
}

func (s *Store) logger(base *slog.Logger) *slog.Logger {
	return base.With("component", "history", "instance", s.instance)
}

// InstanceID returns the id attached to this store's log records.
func (s *Store) InstanceID() string {
	return s.instance
}

// SetOptions applies opts on top of the current settings. Changing the path
// forces a full read of the new file on the next reconciliation, and the
// whole in-memory log is written to it.
func (s *Store) SetOptions(opts ...Option) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.set
	for _, opt := range opts {
		opt(&next)
	}
	next.Options = next.Options.normalized()

	if next.Path != s.set.Path {
		s.seen = observation{}
		if len(s.entries) > 0 {
			s.rewrite = true
		}
	}
	if next.logger != s.set.logger {
		s.log = s.logger(next.logger)
	}
	s.set = next
	s.sched.SetDelay(next.UpdateDuration)

	s.log.Debug("options updated",
		"path", next.Path,
		"max_items", next.MaxItems,
		"truncate_threshold", next.EffectiveTruncateThreshold(),
		"update_duration", next.UpdateDuration,
		"mtime_margin", next.MtimeMargin)
}

// Options returns the current tunables, normalized.
func (s *Store) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.set.Options
}

// Add records info with the current time. It never performs I/O.
func (s *Store) Add(info yank.Info) (yank.Entry, error) {
	s.mu.Lock()
	now := s.set.clock.Now()
	s.mu.Unlock()
	return s.AddAt(now, info)
}

// AddAt records info captured at the given time. It never performs I/O.
// Invalid UTF-8 in info is replaced so that the held entry matches what a
// later read of the file decodes.
func (s *Store) AddAt(at time.Time, info yank.Info) (yank.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return yank.Entry{}, ErrClosed
	}
	e := yank.Entry{ID: s.ids.Next(), Time: at.UnixMilli(), Info: info.ValidUTF8()}
	s.entries = append(s.entries, e)
	s.sched.Trigger()
	return e.Clone(), nil
}

// Delete removes the entry with the given id and reports whether it was
// present. The next flush rewrites the file.
func (s *Store) Delete(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	defer s.sched.Trigger()

	i := slices.IndexFunc(s.entries, func(e yank.Entry) bool { return e.ID == id })
	if i < 0 {
		return false
	}
	s.entries = slices.Delete(s.entries, i, i+1)
	if i < s.nextSave {
		s.nextSave--
	}
	s.rewrite = true
	s.deletes++
	return true
}

// Len returns the number of entries held, which may exceed MaxItems until
// the next GC.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Values reconciles with the persistence file and returns at most MaxItems
// entries, oldest first.
//
// Cancelling ctx abandons the wait; the reconciliation itself runs to
// completion in the background. Persistence failures are not returned: they
// disable persistence and the in-memory entries are returned.
func (s *Store) Values(ctx context.Context) ([]yank.Entry, error) {
	if err := s.Flush(ctx); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tail := s.entries[max(0, len(s.entries)-s.set.MaxItems):]
	out := make([]yank.Entry, len(tail))
	for i, e := range tail {
		out[i] = e.Clone()
	}
	return out, nil
}

// Flush runs a reconciliation now and waits for it. See Values for the
// meaning of cancellation.
func (s *Store) Flush(ctx context.Context) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	return s.await(ctx)
}

// Close cancels any pending flush, runs a final reconciliation and waits for
// it. Afterwards Add fails, Delete is a no-op and Values returns ErrClosed.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.sched.Stop()
	return s.await(ctx)
}

func (s *Store) await(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		defer close(done)
		s.reconcile()
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Store) scheduledFlush() {
	s.reconcile()
}

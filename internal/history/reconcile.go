package history

import (
	"bytes"
	"errors"
	"time"

	"github.com/roach88/yankhist/internal/persist"
	"github.com/roach88/yankhist/internal/yank"
)

// lockTimeout bounds the wait for the advisory file lock. A reconciliation
// that cannot get the lock proceeds without it.
const lockTimeout = time.Second

// anchorSize is how many bytes before the observed offset are remembered to
// tell an append from a rewrite that grew the file.
const anchorSize = 256

// observation is what the store last knew about the persistence file.
type observation struct {
	modTime time.Time
	// size is the offset up to which the file has been read or written.
	size int64
	// anchor holds the bytes just before size.
	anchor []byte
	// partialSize is the file size at which a trailing partial line was
	// last deferred, or zero.
	partialSize int64
}

// observe records the file state up to size.
func observe(f *persist.File, modTime time.Time, size int64) observation {
	anchor, err := f.ReadRange(max(0, size-anchorSize), size)
	if err != nil {
		return observation{}
	}
	return observation{modTime: modTime, size: size, anchor: anchor}
}

// extends reports whether the file still holds the anchor bytes, so that
// everything past size was appended after the last observation.
func (o observation) extends(f *persist.File) bool {
	if o.size == 0 || int64(len(o.anchor)) > o.size {
		return false
	}
	got, err := f.ReadRange(o.size-int64(len(o.anchor)), o.size)
	return err == nil && bytes.Equal(got, o.anchor)
}

// changed reports whether st may contain data the store has not seen.
func (o observation) changed(st persist.Stat, margin time.Duration) bool {
	if st.ModTime.IsZero() || o.modTime.IsZero() {
		return true
	}
	if st.Size != o.size {
		return true
	}
	return st.ModTime.After(o.modTime.Add(margin)) || st.ModTime.Before(o.modTime.Add(-margin))
}

// loaded is the outcome of reading the file at the start of a cycle.
type loaded struct {
	records []yank.Record
	// full is set when the file was read from offset 0.
	full bool
	// partial is set when the file ends in a line still being written.
	partial bool
	next    observation
}

func (s *Store) reconcile() {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	s.mu.Lock()
	path := s.set.Path
	log := s.log
	if path == "" {
		s.gc()
		s.mu.Unlock()
		return
	}
	seen := s.seen
	margin := s.set.MtimeMargin
	s.mu.Unlock()

	f, err := persist.Open(path)
	if err != nil {
		s.disable(path, err)
		return
	}
	defer f.Close()

	if !f.Lock(lockTimeout) && persist.LockSupported {
		log.Debug("persist file lock not acquired, continuing unlocked", "path", path)
	}

	in, err := load(f, seen, margin)
	if errors.Is(err, persist.ErrShrunk) {
		log.Debug("persist file shrank during read, retrying", "path", path)
		s.forget(path)
		return
	}
	if err != nil {
		s.disable(path, err)
		return
	}

	var deferred observation
	if in.partial {
		deferred = observe(f, in.next.modTime, in.next.size)
		deferred.partialSize = in.next.partialSize
	}

	s.mu.Lock()
	if s.set.Path != path {
		s.mu.Unlock()
		return
	}
	s.merge(in.records, in.full)
	s.gc()
	if in.partial {
		s.seen = deferred
		s.mu.Unlock()
		log.Debug("persist file ends in a partial line, deferring write", "path", path)
		s.sched.Trigger()
		return
	}

	rewrite := s.rewrite
	from := s.nextSave
	if rewrite {
		from = 0
	}
	pending := make([]yank.Record, 0, len(s.entries)-from)
	for _, e := range s.entries[from:] {
		pending = append(pending, e.Record())
	}
	target := len(s.entries)
	deletes := s.deletes
	s.mu.Unlock()

	expected, err := write(f, pending, rewrite, in)
	if errors.Is(err, persist.ErrShrunk) {
		s.forget(path)
		return
	}
	if err != nil {
		s.disable(path, err)
		return
	}
	st, err := f.Stat()
	if err != nil {
		s.disable(path, err)
		return
	}

	log.Debug("reconciled",
		"path", path,
		"read", len(in.records),
		"full_read", in.full,
		"written", len(pending),
		"rewrite", rewrite)

	// A size other than expected means another writer touched the file
	// between our read and our write; reread it all next time.
	var next observation
	if st.Size == expected {
		next = observe(f, st.ModTime, st.Size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.set.Path != path {
		return
	}
	if s.deletes == deletes {
		s.nextSave = target
		s.rewrite = false
	}
	s.seen = next
	if next.size != st.Size {
		s.sched.Trigger()
	}
}

// write stores pending and returns the file size it expects afterwards.
func write(f *persist.File, pending []yank.Record, rewrite bool, in loaded) (int64, error) {
	if !rewrite && len(pending) == 0 {
		return in.next.size, nil
	}
	data, err := yank.EncodeLines(pending)
	if err != nil {
		return 0, err
	}
	if rewrite {
		return int64(len(data)), f.TruncateAndWrite(data)
	}
	if size := in.next.size; size > 0 {
		last, err := f.ReadRange(size-1, size)
		if err != nil {
			return 0, err
		}
		if last[0] != '\n' {
			data = append([]byte{'\n'}, data...)
		}
	}
	return in.next.size + int64(len(data)), f.Append(data)
}

// load reads whatever part of the file the store has not seen yet.
func load(f *persist.File, seen observation, margin time.Duration) (loaded, error) {
	st, err := f.Stat()
	if err != nil {
		return loaded{}, err
	}
	res := loaded{next: observation{modTime: st.ModTime, size: st.Size}}
	if !seen.changed(st, margin) {
		return res, nil
	}
	if st.Size == 0 {
		res.full = true
		return res, nil
	}

	start := int64(0)
	if st.Size > seen.size && seen.extends(f) {
		start = seen.size
	}
	data, records, consumed, err := readChunk(f, start, st.Size)
	var de *yank.DecodeError
	if start > 0 && errors.As(err, &de) {
		// The file was rewritten to a larger size rather than appended to.
		start = 0
		data, records, consumed, err = readChunk(f, 0, st.Size)
	}
	if err != nil {
		return loaded{}, err
	}
	res.records = records
	res.full = start == 0

	end := start + int64(consumed)
	if end == st.Size {
		return res, nil
	}
	if seen.partialSize != st.Size {
		res.partial = true
		res.next.size = end
		res.next.partialSize = st.Size
		return res, nil
	}

	// The tail did not grow since the last cycle, so it is a complete
	// record missing its newline.
	tail := bytes.TrimSpace(data[consumed:])
	if len(tail) == 0 {
		return res, nil
	}
	r, err := yank.UnmarshalRecord(tail)
	if err != nil {
		return loaded{}, &yank.DecodeError{
			Line:   bytes.Count(data[:consumed], []byte{'\n'}) + 1,
			Offset: end,
			Err:    err,
		}
	}
	res.records = append(res.records, r)
	return res, nil
}

func readChunk(f *persist.File, start, end int64) ([]byte, []yank.Record, int, error) {
	data, err := f.ReadRange(start, end)
	if err != nil {
		return nil, nil, 0, err
	}
	records, consumed, err := yank.DecodeLines(data)
	if err != nil {
		var de *yank.DecodeError
		if errors.As(err, &de) {
			de.Offset += start
		}
		return nil, nil, 0, err
	}
	return data, records, consumed, nil
}

// forget drops the file observation so the next cycle rereads everything.
func (s *Store) forget(path string) {
	s.mu.Lock()
	if s.set.Path == path {
		s.seen = observation{}
	}
	s.mu.Unlock()
	s.sched.Trigger()
}

// disable turns persistence off after a failure on path. The failure is
// logged once; later cycles see no path and do no I/O.
func (s *Store) disable(path string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.set.Path != path {
		return
	}
	s.set.Path = ""
	s.seen = observation{}

	msg := "persist file may be damaged, persistence disabled"
	var oe *persist.OpenError
	if errors.As(err, &oe) {
		msg = "cannot open or create persist file, persistence disabled"
	}
	s.log.Error(msg, "path", path, "error", err)
}

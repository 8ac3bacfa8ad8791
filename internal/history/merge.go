package history

import (
	"cmp"
	"slices"

	"github.com/roach88/yankhist/internal/yank"
)

// merge folds records read from the file into the in-memory log. full is
// set when records is the whole file rather than an unread suffix.
//
// Callers hold s.mu.
func (s *Store) merge(read []yank.Record, full bool) {
	switch {
	case len(read) == 0:
		// An empty full read means the file lost everything we saved.
		if full && len(s.entries) > 0 {
			s.rewrite = true
		}

	case len(s.entries) == 0:
		s.entries = s.adopt(read)
		s.nextSave = len(s.entries)

	case s.entries[len(s.entries)-1].Time < read[0].Time:
		unsaved := s.nextSave < len(s.entries)
		s.entries = append(s.entries, s.adopt(read)...)
		if unsaved || full {
			s.rewrite = true
		} else {
			s.nextSave = len(s.entries)
		}

	default:
		s.unify(read, full)
	}
}

// unify merges read into the log when it does not simply extend it. A read
// record cancels at most one structurally identical held entry; the rest
// get fresh ids and the union is ordered by time, held entries first among
// equal times.
func (s *Store) unify(read []yank.Record, full bool) {
	held := make(map[string][]int, len(s.entries))
	for i, e := range s.entries {
		k := e.Record().Key()
		held[k] = append(held[k], i)
	}

	matched := make([]bool, len(s.entries))
	var fresh []yank.Record
	for _, r := range read {
		k := r.Key()
		if idx := held[k]; len(idx) > 0 {
			matched[idx[0]] = true
			held[k] = idx[1:]
			continue
		}
		fresh = append(fresh, r)
	}

	if len(fresh) > 0 {
		union := append(slices.Clone(s.entries), s.adopt(fresh)...)
		slices.SortStableFunc(union, func(a, b yank.Entry) int {
			return cmp.Compare(a.Time, b.Time)
		})
		s.entries = union
		s.rewrite = true
		return
	}

	// Nothing new. The file still needs a rewrite when it disagrees with
	// what we believe is saved in it.
	for i := range s.entries {
		saved := i < s.nextSave
		if (full && matched[i] != saved) || (!full && matched[i]) {
			s.rewrite = true
			return
		}
	}
}

// gc keeps the newest MaxItems entries once the log exceeds the truncate
// threshold. Callers hold s.mu.
func (s *Store) gc() {
	if len(s.entries) <= s.set.EffectiveTruncateThreshold() {
		return
	}
	drop := len(s.entries) - s.set.MaxItems
	s.entries = slices.Clone(s.entries[drop:])
	s.nextSave = max(0, s.nextSave-drop)
	s.rewrite = true
	s.log.Debug("old entries collected", "dropped", drop, "kept", len(s.entries))
}

func (s *Store) adopt(records []yank.Record) []yank.Entry {
	out := make([]yank.Entry, len(records))
	for i, r := range records {
		out[i] = yank.Entry{ID: s.ids.Next(), Time: r.Time, Info: r.Info}
	}
	return out
}

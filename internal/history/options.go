package history

import (
	"io"
	"log/slog"
	"time"

	"github.com/roach88/yankhist/internal/clock"
)

// Defaults applied by New.
const (
	DefaultUpdateDuration = 1000 * time.Millisecond
	DefaultMtimeMargin    = 200 * time.Millisecond
	DefaultMaxItems       = 100

	// truncateSlack is added to MaxItems when no explicit threshold is set.
	truncateSlack = 20
)

// Options are the tunables of a Store.
type Options struct {
	// Path is the persistence file. Empty keeps the history in memory only.
	Path string

	// UpdateDuration is the debounce delay of scheduled flushes.
	UpdateDuration time.Duration

	// MtimeMargin is the tolerance applied when comparing the file's
	// modification time with the last observed one.
	MtimeMargin time.Duration

	// MaxItems bounds the entries returned by Values and kept after GC.
	MaxItems int

	// TruncateThreshold is the size above which GC runs. Zero or negative
	// means MaxItems+20; a positive value is raised to at least MaxItems.
	TruncateThreshold int
}

// DefaultOptions returns the options a Store starts with.
func DefaultOptions() Options {
	return Options{
		UpdateDuration: DefaultUpdateDuration,
		MtimeMargin:    DefaultMtimeMargin,
		MaxItems:       DefaultMaxItems,
	}
}

// EffectiveTruncateThreshold returns the GC trigger size for o.
func (o Options) EffectiveTruncateThreshold() int {
	if o.TruncateThreshold <= 0 {
		return o.MaxItems + truncateSlack
	}
	return max(o.MaxItems, o.TruncateThreshold)
}

func (o Options) normalized() Options {
	if o.MaxItems < 1 {
		o.MaxItems = DefaultMaxItems
	}
	if o.MtimeMargin < 0 {
		o.MtimeMargin = 0
	}
	if o.UpdateDuration < 0 {
		o.UpdateDuration = 0
	}
	return o
}

// settings is everything an Option can change.
type settings struct {
	Options
	logger *slog.Logger
	clock  clock.Clock
	ids    InstanceIDGenerator
}

func defaultSettings() settings {
	return settings{
		Options: DefaultOptions(),
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		clock:   clock.System{},
		ids:     UUIDv7Generator{},
	}
}

// Option configures a Store. Options passed to SetOptions change only what
// they name.
type Option func(*settings)

// WithOptions replaces every tunable at once.
func WithOptions(o Options) Option {
	return func(s *settings) { s.Options = o }
}

// WithPath sets the persistence file. An empty path disables persistence.
func WithPath(path string) Option {
	return func(s *settings) { s.Path = path }
}

// WithUpdateDuration sets the flush debounce delay.
func WithUpdateDuration(d time.Duration) Option {
	return func(s *settings) { s.UpdateDuration = d }
}

// WithMtimeMargin sets the modification-time tolerance.
func WithMtimeMargin(d time.Duration) Option {
	return func(s *settings) { s.MtimeMargin = d }
}

// WithMaxItems sets the retained entry count. Values below 1 select the
// default.
func WithMaxItems(n int) Option {
	return func(s *settings) { s.MaxItems = n }
}

// WithTruncateThreshold sets the GC trigger size.
func WithTruncateThreshold(n int) Option {
	return func(s *settings) { s.TruncateThreshold = n }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *settings) {
		if l == nil {
			l = slog.New(slog.NewTextHandler(io.Discard, nil))
		}
		s.logger = l
	}
}

// WithClock sets the wall clock used to stamp added entries.
func WithClock(c clock.Clock) Option {
	return func(s *settings) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithInstanceIDGenerator sets the source of the instance id attached to
// log records. It only has an effect when passed to New.
func WithInstanceIDGenerator(g InstanceIDGenerator) Option {
	return func(s *settings) {
		if g != nil {
			s.ids = g
		}
	}
}

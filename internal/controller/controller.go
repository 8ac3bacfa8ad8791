// Package controller connects editor requests to the history store: it
// filters yank events, slices history for callers and reloads options.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/roach88/yankhist/internal/config"
	"github.com/roach88/yankhist/internal/history"
	"github.com/roach88/yankhist/internal/yank"
)

// ErrLoadOptions wraps failures of the configuration source.
var ErrLoadOptions = errors.New("load options")

// Store is the part of the history store the controller drives.
type Store interface {
	Add(info yank.Info) (yank.Entry, error)
	AddAt(at time.Time, info yank.Info) (yank.Entry, error)
	Values(ctx context.Context) ([]yank.Entry, error)
	Delete(id int64) bool
	SetOptions(opts ...history.Option)
}

// ConfigSource yields the current configuration.
type ConfigSource interface {
	Load() (config.Config, []config.Warning, error)
}

// Controller is the editor-facing API of one process. It is safe for
// concurrent use.
type Controller struct {
	store  Store
	source ConfigSource
	log    *slog.Logger

	mu        sync.RWMutex
	minLength int
}

// New returns a controller using the default configuration until
// UpdateOptions is called. A nil logger discards output.
func New(store Store, source ConfigSource, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		store:     store,
		source:    source,
		log:       logger.With("component", "controller"),
		minLength: config.DefaultMinLength,
	}
}

// Start loads the options and performs the initial read of the history
// file, so that the first completion request does not pay for it.
func (c *Controller) Start(ctx context.Context) error {
	if _, err := c.UpdateOptions(); err != nil {
		return err
	}
	if _, err := c.store.Values(ctx); err != nil {
		return fmt.Errorf("initial load: %w", err)
	}
	return nil
}

// UpdateOptions reloads the configuration and applies it. Rejected values
// are logged and returned; they do not fail the reload. When the source
// itself fails the previous options stay in effect.
func (c *Controller) UpdateOptions() ([]config.Warning, error) {
	cfg, warnings, err := c.source.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadOptions, err)
	}
	for _, w := range warnings {
		c.log.Warn("invalid option, using default", "key", w.Key, "value", w.Value, "error", w.Err)
	}

	c.mu.Lock()
	c.minLength = cfg.MinLength
	c.mu.Unlock()
	c.store.SetOptions(history.WithOptions(cfg.StoreOptions()))

	c.log.Debug("options updated", "min_length", cfg.MinLength, "persist_path", cfg.PersistPath)
	return warnings, nil
}

// MinLength returns the minimum yank length in effect.
func (c *Controller) MinLength() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.minLength
}

// Get returns history entries, oldest first. A positive count selects the
// first count entries, a negative one the last -count, zero all of them.
func (c *Controller) Get(ctx context.Context, count int) ([]yank.Entry, error) {
	entries, err := c.store.Values(ctx)
	if err != nil {
		return nil, err
	}
	switch {
	case count > 0:
		return entries[:min(count, len(entries))], nil
	case count < 0:
		return entries[max(0, len(entries)+count):], nil
	default:
		return entries, nil
	}
}

// Delete removes the given ids and returns how many were present.
func (c *Controller) Delete(ids []int64) int {
	removed := 0
	for _, id := range ids {
		if c.store.Delete(id) {
			removed++
		}
	}
	return removed
}

// OnTextYankPost records a yank event. Events whose text is shorter than
// the minimum length are dropped and reported with ok false.
func (c *Controller) OnTextYankPost(ev Event) (entry yank.Entry, ok bool, err error) {
	if err := ev.Validate(); err != nil {
		return yank.Entry{}, false, err
	}

	text := yank.ContentsToText(ev.RegContents)
	if utf8.RuneCountInString(text) < c.MinLength() {
		c.log.Debug("yank dropped, shorter than min length", "length", utf8.RuneCountInString(text))
		return yank.Entry{}, false, nil
	}

	info := ev.Info()
	if ev.Time == 0 {
		entry, err = c.store.Add(info)
	} else {
		entry, err = c.store.AddAt(time.UnixMilli(ev.Time), info)
	}
	if err != nil {
		return yank.Entry{}, false, err
	}
	return entry, true, nil
}

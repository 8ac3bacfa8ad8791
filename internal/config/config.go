// Package config loads the yank history options from an optional file and
// YANK_HISTORY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/roach88/yankhist/internal/history"
)

// Key names, shared by the file format and the environment.
const (
	KeyMinLength         = "min_length"
	KeyPersistPath       = "persist_path"
	KeyUpdateDuration    = "update_duration"
	KeyMtimeMargin       = "mtime_margin"
	KeyMaxItems          = "max_items"
	KeyTruncateThreshold = "truncate_threshold"
)

// EnvPrefix prefixes every environment variable, e.g. YANK_HISTORY_MAX_ITEMS.
const EnvPrefix = "YANK_HISTORY"

// DefaultMinLength is the default minimum yank length.
const DefaultMinLength = 2

// Config is the complete, validated option set.
type Config struct {
	// MinLength drops yanks whose text is shorter, counted in characters.
	MinLength int
	// PersistPath is absolute, or empty for memory-only history.
	PersistPath       string
	UpdateDuration    time.Duration
	MtimeMargin       time.Duration
	MaxItems          int
	TruncateThreshold int
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		MinLength:      DefaultMinLength,
		UpdateDuration: history.DefaultUpdateDuration,
		MtimeMargin:    history.DefaultMtimeMargin,
		MaxItems:       history.DefaultMaxItems,
	}
}

// StoreOptions returns the part of c the history store consumes.
func (c Config) StoreOptions() history.Options {
	return history.Options{
		Path:              c.PersistPath,
		UpdateDuration:    c.UpdateDuration,
		MtimeMargin:       c.MtimeMargin,
		MaxItems:          c.MaxItems,
		TruncateThreshold: c.TruncateThreshold,
	}
}

// Warning reports a key whose value was rejected. The key keeps its default.
type Warning struct {
	Key   string
	Value any
	Err   error
}

func (w Warning) String() string {
	return fmt.Sprintf("invalid %s %v, using default: %v", w.Key, w.Value, w.Err)
}

// DefaultPath returns $XDG_CONFIG_HOME/yank-history/config.yaml, falling
// back to ~/.config.
func DefaultPath() (string, error) {
	if dir := os.Getenv("XDG_CONFIG_HOME"); dir != "" {
		return filepath.Join(dir, "yank-history", "config.yaml"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine config directory: %w", err)
	}
	return filepath.Join(home, ".config", "yank-history", "config.yaml"), nil
}

// expandPath makes p absolute, expanding a leading ~.
func expandPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if p == "~" || strings.HasPrefix(p, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", err
	}
	return abs, nil
}

var errNotAbsolute = errors.New("path cannot be made absolute")

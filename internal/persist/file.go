// Package persist is the file driver behind the history store. It opens (and
// creates) the single persistence file, reads byte ranges from it, appends
// to it or truncates and rewrites it, and reports its size and modification
// time for change detection.
package persist

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrNoPath is returned by Open when called with an empty path.
	ErrNoPath = errors.New("persist: no path")

	// ErrShrunk is returned by ReadRange when the file became shorter than
	// the requested range between Stat and ReadRange. It is not corruption:
	// another process rewrote the file.
	ErrShrunk = errors.New("persist: file shrank during read")
)

// OpenError reports a failure to create or open the persistence file.
type OpenError struct {
	Path string
	Err  error
}

func (e *OpenError) Error() string {
	return fmt.Sprintf("cannot open or create persist file %s: %v", e.Path, e.Err)
}

func (e *OpenError) Unwrap() error {
	return e.Err
}

// Stat is the part of the file metadata used for change detection.
type Stat struct {
	Size int64
	// ModTime is zero when the platform does not report modification times.
	ModTime time.Time
}

// File is an open persistence file. It is not safe for concurrent use.
type File struct {
	path   string
	f      *os.File
	locked bool
}

// Open opens path for reading and appending, creating the file and its
// parent directories when they do not exist.
//
// Every write goes to the end of the file, so a truncate followed by a write
// rewrites the file from offset 0.
func Open(path string) (*File, error) {
	if path == "" {
		return nil, ErrNoPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return nil, &OpenError{Path: path, Err: err}
	}
	return &File{path: path, f: f}, nil
}

// Stat returns the current size and modification time.
func (f *File) Stat() (Stat, error) {
	info, err := f.f.Stat()
	if err != nil {
		return Stat{}, fmt.Errorf("stat %s: %w", f.path, err)
	}
	return Stat{Size: info.Size(), ModTime: info.ModTime()}, nil
}

// ReadRange returns exactly the bytes in [start, end).
func (f *File) ReadRange(start, end int64) ([]byte, error) {
	if start < 0 || end < start {
		return nil, fmt.Errorf("read %s: invalid range [%d, %d)", f.path, start, end)
	}
	buf := make([]byte, end-start)
	n, err := f.f.ReadAt(buf, start)
	if n == len(buf) {
		return buf, nil
	}
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read %s [%d, %d): got %d bytes: %w", f.path, start, end, n, ErrShrunk)
	}
	return nil, fmt.Errorf("read %s [%d, %d): %w", f.path, start, end, err)
}

// Append writes data at the end of the file.
func (f *File) Append(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if _, err := f.f.Write(data); err != nil {
		return fmt.Errorf("append %s: %w", f.path, err)
	}
	return nil
}

// TruncateAndWrite discards the current content and writes data from
// offset 0.
func (f *File) TruncateAndWrite(data []byte) error {
	if err := f.f.Truncate(0); err != nil {
		return fmt.Errorf("truncate %s: %w", f.path, err)
	}
	return f.Append(data)
}

// Close releases the advisory lock, if held, and closes the file.
func (f *File) Close() error {
	f.unlock()
	return f.f.Close()
}

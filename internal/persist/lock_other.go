//go:build !(linux || darwin || freebsd || netbsd || openbsd || dragonfly)

package persist

import "time"

// LockSupported reports whether Lock can ever succeed on this platform.
const LockSupported = false

// Lock is a no-op on platforms without flock; it always reports false.
func (f *File) Lock(timeout time.Duration) bool {
	return false
}

func (f *File) unlock() {}

//go:build linux || darwin || freebsd || netbsd || openbsd || dragonfly

package persist

import (
	"errors"
	"time"

	"golang.org/x/sys/unix"
)

const (
	lockPollInterval = 10 * time.Millisecond

	// LockSupported reports whether Lock can ever succeed on this platform.
	LockSupported = true
)

// Lock takes an advisory exclusive lock on the file, waiting at most
// timeout. It reports whether the lock is held. Cooperating processes take
// the lock around their read-merge-write cycle; processes that do not are
// tolerated by the merge logic.
func (f *File) Lock(timeout time.Duration) bool {
	fd := int(f.f.Fd())
	deadline := time.Now().Add(timeout)
	for {
		err := unix.Flock(fd, unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			f.locked = true
			return true
		}
		if !errors.Is(err, unix.EWOULDBLOCK) && !errors.Is(err, unix.EINTR) {
			return false
		}
		if time.Now().After(deadline) {
			return false
		}
		time.Sleep(lockPollInterval)
	}
}

func (f *File) unlock() {
	if !f.locked {
		return
	}
	_ = unix.Flock(int(f.f.Fd()), unix.LOCK_UN)
	f.locked = false
}

// Package lock provides file-based locking to serialize writers of shared
// output files across sqlora processes.
package lock

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// ErrLockHeld is returned when another process holds the lock.
var ErrLockHeld = errors.New("lock is held by another process")

// FileLock guards a file by creating a sibling .lock file with O_EXCL.
// The lock file records the holder's PID for diagnostics.
type FileLock struct {
	path string
	held bool
}

// New creates a FileLock guarding the given file. The lock is not acquired
// until TryAcquire is called.
func New(path string) *FileLock {
	return &FileLock{path: path + ".lock"}
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// IsHeld reports whether this instance currently holds the lock.
func (l *FileLock) IsHeld() bool {
	return l.held
}

// TryAcquire attempts to take the lock without waiting. Returns false when
// another process already holds it.
func (l *FileLock) TryAcquire() (bool, error) {
	if l.held {
		return true, nil
	}

	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("creating lock file %s: %w", l.path, err)
	}
	defer f.Close()

	fmt.Fprintln(f, strconv.Itoa(os.Getpid()))
	l.held = true
	return true, nil
}

// Acquire takes the lock, retrying until the timeout elapses. A zero timeout
// behaves like TryAcquire.
func (l *FileLock) Acquire(timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		ok, err := l.TryAcquire()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: %s", ErrLockHeld, l.path)
		}
		time.Sleep(50 * time.Millisecond)
	}
}

// Release removes the lock file. Releasing a lock that is not held is a
// no-op.
func (l *FileLock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false
	if err := os.Remove(l.path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lock file %s: %w", l.path, err)
	}
	return nil
}

// WithLock runs fn while holding the lock, releasing it even if fn panics.
func WithLock(path string, timeout time.Duration, fn func() error) error {
	l := New(path)
	if err := l.Acquire(timeout); err != nil {
		return err
	}
	defer l.Release()
	return fn()
}

// Package lock serializes plenumbot runs across processes with flock(2).
package lock

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// Filename is the name of the run lock inside the state directory.
const Filename = "plenumbot.lock"

// ErrTimeout indicates the lock could not be acquired in time.
var ErrTimeout = errors.New("lock acquisition timed out")

const (
	initialPoll = 10 * time.Millisecond
	maxPoll     = 500 * time.Millisecond
)

// FileLock is an exclusive advisory lock on a file. The kernel releases it
// when the holding process exits, so a crashed run never blocks the next one.
// The holder writes its pid into the file.
type FileLock struct {
	path string
	file *os.File
}

// New returns an unlocked lock on path.
func New(path string) *FileLock {
	return &FileLock{path: path}
}

// InDir returns the run lock of the state directory dir.
func InDir(dir string) *FileLock {
	return New(filepath.Join(dir, Filename))
}

// Path returns the lock file path.
func (l *FileLock) Path() string {
	return l.path
}

// Held reports whether this instance holds the lock.
func (l *FileLock) Held() bool {
	return l.file != nil
}

// TryLock acquires the lock without waiting. It returns false when another
// process holds it; errors are reserved for unexpected failures.
func (l *FileLock) TryLock() (bool, error) {
	if l.file != nil {
		return true, nil
	}

	f, err := l.open()
	if err != nil {
		return false, err
	}

	acquired, err := flock(f)
	if err != nil || !acquired {
		_ = f.Close()
		return false, err
	}

	l.take(f)
	return true, nil
}

// Lock waits up to timeout for the lock, polling with exponential backoff.
// It returns ErrTimeout when the deadline passes and ctx.Err() when ctx is done.
func (l *FileLock) Lock(ctx context.Context, timeout time.Duration) error {
	if l.file != nil {
		return nil
	}

	f, err := l.open()
	if err != nil {
		return err
	}

	deadline := time.Now().Add(timeout)
	poll := initialPoll
	for {
		acquired, err := flock(f)
		if err != nil {
			_ = f.Close()
			return err
		}
		if acquired {
			l.take(f)
			return nil
		}

		if !time.Now().Before(deadline) {
			_ = f.Close()
			return ErrTimeout
		}

		select {
		case <-ctx.Done():
			_ = f.Close()
			return ctx.Err()
		case <-time.After(poll):
			poll = min(poll*2, maxPoll)
		}
	}
}

// Unlock releases the lock. Unlocking an unheld lock is a no-op.
func (l *FileLock) Unlock() error {
	if l.file == nil {
		return nil
	}

	f := l.file
	l.file = nil

	// clear the pid before releasing so a stale pid never outlives the lock
	_ = f.Truncate(0)
	unlockErr := syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
	closeErr := f.Close()

	if unlockErr != nil {
		return fmt.Errorf("flock unlock failed: %w", unlockErr)
	}
	if closeErr != nil {
		return fmt.Errorf("close failed: %w", closeErr)
	}
	return nil
}

// Holder returns the pid recorded in the lock file, or 0 when none is recorded.
func (l *FileLock) Holder() int {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0
	}
	return pid
}

func (l *FileLock) open() (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(l.path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open lock file: %w", err)
	}
	return f, nil
}

func (l *FileLock) take(f *os.File) {
	l.file = f
	if err := f.Truncate(0); err == nil {
		_, _ = f.WriteAt([]byte(strconv.Itoa(os.Getpid())+"\n"), 0)
	}
}

// flock tries a non-blocking exclusive lock on f.
func flock(f *os.File) (bool, error) {
	err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, syscall.EWOULDBLOCK) {
		return false, nil
	}
	return false, fmt.Errorf("flock failed: %w", err)
}

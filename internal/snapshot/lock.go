package snapshot

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// fileLock is an exclusive flock(2) on a dedicated lock file. The lock file
// is never replaced or removed while locks may be held.
type fileLock struct {
	file *os.File
}

// lockFile acquires an exclusive lock on path, polling with backoff until ctx
// is done. The parent directory is created if needed.
func lockFile(ctx context.Context, path string) (*fileLock, error) {
	err := os.MkdirAll(filepath.Dir(path), 0o750)
	if err != nil {
		return nil, fmt.Errorf("creating lock dir: %w", err)
	}

	backoff := time.Millisecond

	for {
		file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
		if err != nil {
			return nil, fmt.Errorf("opening lockfile: %w", err)
		}

		err = flockRetryEINTR(int(file.Fd()), unix.LOCK_EX|unix.LOCK_NB)
		if err == nil {
			if sameInode(file, path) {
				return &fileLock{file: file}, nil
			}

			// Replaced between open and flock: retry on the new inode.
			_ = flockRetryEINTR(int(file.Fd()), unix.LOCK_UN)
			_ = file.Close()

			continue
		}

		_ = file.Close()

		if !errors.Is(err, unix.EWOULDBLOCK) {
			return nil, fmt.Errorf("flock: %w", err)
		}

		timer := time.NewTimer(backoff)

		select {
		case <-ctx.Done():
			timer.Stop()

			return nil, fmt.Errorf("waiting for lock %s: %w", path, ctx.Err())
		case <-timer.C:
		}

		backoff = min(backoff*2, 25*time.Millisecond)
	}
}

// Close releases the lock. Safe to call more than once.
func (l *fileLock) Close() error {
	if l.file == nil {
		return nil
	}

	unlockErr := flockRetryEINTR(int(l.file.Fd()), unix.LOCK_UN)
	closeErr := l.file.Close()
	l.file = nil

	if unlockErr != nil {
		unlockErr = fmt.Errorf("unlocking lock: %w", unlockErr)
	}

	if closeErr != nil {
		closeErr = fmt.Errorf("closing lock fd: %w", closeErr)
	}

	return errors.Join(unlockErr, closeErr)
}

func flockRetryEINTR(fd, how int) error {
	for {
		err := unix.Flock(fd, how)
		if !errors.Is(err, unix.EINTR) {
			return err
		}
	}
}

func sameInode(file *os.File, path string) bool {
	held, err := file.Stat()
	if err != nil {
		return false
	}

	current, err := os.Stat(path)
	if err != nil {
		return false
	}

	a, okA := held.Sys().(*syscall.Stat_t)
	b, okB := current.Sys().(*syscall.Stat_t)

	return okA && okB && a.Dev == b.Dev && a.Ino == b.Ino
}

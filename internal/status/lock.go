package status

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
)

// LockFileName is the name of the lock file kept next to the status file
const LockFileName = "run.lock"

// ErrLocked is returned when another process holds the run lock
var ErrLocked = errors.New("another catalog-sync process holds the run lock")

// RunLock keeps two processes from syncing with the same status directory
type RunLock struct {
	fl *flock.Flock
}

// AcquireRunLock takes the lock of dir without waiting
func AcquireRunLock(dir string) (*RunLock, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create status directory: %w", err)
	}

	fl := flock.New(filepath.Join(dir, LockFileName))
	locked, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", fl.Path(), err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: %s", ErrLocked, fl.Path())
	}
	return &RunLock{fl: fl}, nil
}

// Release gives the lock up
func (l *RunLock) Release() error {
	return l.fl.Unlock()
}

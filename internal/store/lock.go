package store

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"
)

// ErrRunInProgress is returned when another process holds the run lock.
var ErrRunInProgress = errors.New("another analysis run is in progress")

// RunLock serializes analysis runs against one database.
type RunLock struct {
	path string
	lock *flock.Flock
}

// AcquireRunLock takes the run lock next to the database file without
// blocking.
func (s *Store) AcquireRunLock() (*RunLock, error) {
	path := filepath.Join(filepath.Dir(s.path), "uxrmate.run.lock")
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock file %s)", ErrRunInProgress, path)
	}
	return &RunLock{path: path, lock: lock}, nil
}

// Path returns the lock file location.
func (l *RunLock) Path() string {
	return l.path
}

// Release unlocks the run lock.
func (l *RunLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}

package shared

import (
	"fmt"

	"github.com/gofrs/flock"
)

// RunLock is an exclusive file lock guarding one cache database.
type RunLock struct {
	path string
	lock *flock.Flock
}

// LockPath returns the lock file used for the database at dbPath.
func LockPath(dbPath string) string {
	return dbPath + ".lock"
}

// AcquireRunLock takes the lock for dbPath without blocking.
// It returns [ErrLocked] when another process holds it.
func AcquireRunLock(dbPath string) (*RunLock, error) {
	path := LockPath(dbPath)
	lock := flock.New(path)

	ok, err := lock.TryLock()
	if err != nil {
		return nil, fmt.Errorf("acquire lock %s: %w", path, err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (lock %s)", ErrLocked, path)
	}
	return &RunLock{path: path, lock: lock}, nil
}

// Path is the lock file location.
func (l *RunLock) Path() string {
	return l.path
}

// Release unlocks. It is safe to call more than once.
func (l *RunLock) Release() error {
	if l == nil || l.lock == nil {
		return nil
	}
	return l.lock.Unlock()
}

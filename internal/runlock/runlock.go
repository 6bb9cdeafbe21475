// Package runlock guards against concurrent chordscout processes sharing one
// state directory. Two pollers for the same job would double the request load
// and race on the history ledger.
package runlock

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/gofrs/flock"

	"chordscout/internal/config"
)

// ErrAlreadyLocked indicates another process holds the run lock.
var ErrAlreadyLocked = errors.New("another chordscout instance is already running")

// Lock is a file-based single-instance lock rooted in the state directory.
type Lock struct {
	path string
	lock *flock.Flock
}

// New prepares a lock in the config's state directory. Nothing is acquired
// until Acquire.
func New(cfg *config.Config) (*Lock, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	path := filepath.Join(cfg.Paths.StateDir, "chordscout.lock")
	return &Lock{path: path, lock: flock.New(path)}, nil
}

// Acquire takes the lock without blocking. ErrAlreadyLocked means some other
// process got there first.
func (l *Lock) Acquire() error {
	ok, err := l.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return ErrAlreadyLocked
	}
	return nil
}

// Release lets go of the lock. Safe to call when not held.
func (l *Lock) Release() error {
	return l.lock.Unlock()
}

// Path returns the lock file location.
func (l *Lock) Path() string {
	return l.path
}

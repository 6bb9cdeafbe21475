package runlock_test

import (
	"errors"
	"testing"

	"chordscout/internal/runlock"
	"chordscout/internal/testsupport"
)

func TestAcquireAndRelease(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	lock, err := runlock.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := lock.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}

	// Released locks can be re-acquired.
	if err := lock.Acquire(); err != nil {
		t.Fatalf("re-Acquire: %v", err)
	}
	if err := lock.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
}

func TestSecondLockFails(t *testing.T) {
	cfg := testsupport.NewConfig(t)

	first, err := runlock.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := first.Acquire(); err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() { _ = first.Release() })

	second, err := runlock.New(cfg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if err := second.Acquire(); !errors.Is(err, runlock.ErrAlreadyLocked) {
		t.Fatalf("expected ErrAlreadyLocked, got %v", err)
	}
}

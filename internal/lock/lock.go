// Package lock keeps two sweeps of the same kind from running at once.
package lock

import (
	"context"
	"errors"
	"sync"
)

// ErrHeld is returned when the named lock is already taken
var ErrHeld = errors.New("lock is held")

// Locker hands out named, non-reentrant locks
type Locker interface {
	// Acquire takes the named lock or returns ErrHeld. The returned
	// function releases it and is safe to call more than once.
	Acquire(ctx context.Context, name string) (release func(), err error)
}

// LocalLocker guards names within a single process
type LocalLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalLocker creates an in-process Locker
func NewLocalLocker() *LocalLocker {
	return &LocalLocker{held: make(map[string]struct{})}
}

// Acquire takes the named lock or returns ErrHeld
func (l *LocalLocker) Acquire(_ context.Context, name string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.held[name]; ok {
		return nil, ErrHeld
	}
	l.held[name] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			l.mu.Lock()
			delete(l.held, name)
			l.mu.Unlock()
		})
	}, nil
}

// Package locker provides named advisory locks.
package locker

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// Locker hands out one exclusive lock per name. The zero value is not usable; use New.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*semaphore.Weighted
}

// New returns an empty Locker.
func New() *Locker {
	return &Locker{locks: make(map[string]*semaphore.Weighted)}
}

func (l *Locker) get(name string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	sem, ok := l.locks[name]
	if !ok {
		sem = semaphore.NewWeighted(1)
		l.locks[name] = sem
	}
	return sem
}

// Lock blocks until name is held or ctx is done. The returned func releases the lock.
func (l *Locker) Lock(ctx context.Context, name string) (func(), error) {
	sem := l.get(name)
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return releaseOnce(sem), nil
}

// TryLock waits at most timeout for name. It reports false when the lock stayed busy.
func (l *Locker) TryLock(ctx context.Context, name string, timeout time.Duration) (func(), bool) {
	sem := l.get(name)
	if sem.TryAcquire(1) {
		return releaseOnce(sem), true
	}
	if timeout <= 0 {
		return nil, false
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, false
	}
	return releaseOnce(sem), true
}

func releaseOnce(sem *semaphore.Weighted) func() {
	var once sync.Once
	return func() {
		once.Do(func() { sem.Release(1) })
	}
}

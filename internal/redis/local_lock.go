package redisclient

import (
	"context"
	"sync"
)

type localSlotLocker struct {
	mu   sync.Mutex
	held map[string]struct{}
}

// NewLocalSlotLocker guards slots within this process only. It backs the
// memory storage driver, where there is no Redis to coordinate with.
func NewLocalSlotLocker() Locker {
	return &localSlotLocker{held: make(map[string]struct{})}
}

func (l *localSlotLocker) WithSlotLock(ctx context.Context, slotKey string, fn func(ctx context.Context) error) error {
	l.mu.Lock()
	if _, busy := l.held[slotKey]; busy {
		l.mu.Unlock()
		return ErrLockNotAcquired
	}
	l.held[slotKey] = struct{}{}
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		delete(l.held, slotKey)
		l.mu.Unlock()
	}()

	return fn(ctx)
}

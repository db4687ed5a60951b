// Package lock serializes commits per group. Waits are bounded: a caller that
// cannot get the lock in time receives errs.ErrBusy and decides whether to retry.
package lock

import (
	"context"
	"sync"
	"time"

	"group-savings-engine/internal/domain/errs"
)

// Locker grants exclusive access to a key.
type Locker interface {
	// Acquire returns a release func once the key is held. Calling release
	// more than once is harmless.
	Acquire(ctx context.Context, key string) (release func(), err error)
}

const DefaultWait = 2 * time.Second

// Local is an in-process Locker, correct only while a single engine
// instance writes to the store.
type Local struct {
	wait time.Duration

	mu    sync.Mutex
	slots map[string]chan struct{}
}

func NewLocal(wait time.Duration) *Local {
	if wait <= 0 {
		wait = DefaultWait
	}
	return &Local{wait: wait, slots: make(map[string]chan struct{})}
}

var _ Locker = (*Local)(nil)

func (l *Local) slot(key string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.slots[key]
	if !ok {
		ch = make(chan struct{}, 1)
		l.slots[key] = ch
	}
	return ch
}

func (l *Local) Acquire(ctx context.Context, key string) (func(), error) {
	ch := l.slot(key)
	timer := time.NewTimer(l.wait)
	defer timer.Stop()

	select {
	case ch <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-ch }) }, nil
	case <-timer.C:
		return nil, errs.ErrBusy.Withf("lock %s not acquired within %s", key, l.wait)
	case <-ctx.Done():
		return nil, errs.ErrBusy.Wrap(ctx.Err())
	}
}

// Package lock provides the keyed lockers the settlement services
// serialise document, payment and register work with.
package lock

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/erp/backoffice/internal/application/uow"
	"github.com/erp/backoffice/internal/domain/shared"
	"golang.org/x/sync/semaphore"
)

// LocalLocker serialises keys within one process. Waiting for a key is
// bounded by wait; after that Acquire fails with LOCK_TIMEOUT.
type LocalLocker struct {
	mu   sync.Mutex
	keys map[string]*keySlot
	wait time.Duration
}

type keySlot struct {
	sem  *semaphore.Weighted
	refs int
}

// NewLocalLocker creates a LocalLocker
func NewLocalLocker(wait time.Duration) *LocalLocker {
	return &LocalLocker{
		keys: make(map[string]*keySlot),
		wait: wait,
	}
}

// Acquire takes the key, waiting at most the configured time
func (l *LocalLocker) Acquire(ctx context.Context, key string) (func(), error) {
	slot := l.ref(key)

	waitCtx := ctx
	if l.wait > 0 {
		var cancel context.CancelFunc
		waitCtx, cancel = context.WithTimeout(ctx, l.wait)
		defer cancel()
	}
	if err := slot.sem.Acquire(waitCtx, 1); err != nil {
		l.unref(key)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, shared.NewDomainErrorf(shared.CodeLockTimeout, "Timed out waiting for %s", key)
		}
		return nil, err
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			slot.sem.Release(1)
			l.unref(key)
		})
	}, nil
}

// Held returns the number of keys currently held or waited on
func (l *LocalLocker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.keys)
}

func (l *LocalLocker) ref(key string) *keySlot {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.keys[key]
	if !ok {
		slot = &keySlot{sem: semaphore.NewWeighted(1)}
		l.keys[key] = slot
	}
	slot.refs++
	return slot
}

func (l *LocalLocker) unref(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	slot, ok := l.keys[key]
	if !ok {
		return
	}
	slot.refs--
	if slot.refs == 0 {
		delete(l.keys, key)
	}
}

var _ uow.Locker = (*LocalLocker)(nil)

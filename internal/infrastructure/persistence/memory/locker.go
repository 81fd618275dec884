package memory

import (
	"context"
	"sync"

	"github.com/campus-careers/placement-hub/internal/domain/shared"
)

// Locker is an in-process keyed mutex. Keys are acquired in sorted order
// and entries are dropped once no goroutine holds or waits for them.
type Locker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	ch   chan struct{}
	refs int
}

// NewLocker creates a Locker.
func NewLocker() *Locker {
	return &Locker{locks: make(map[string]*keyLock)}
}

// Lock implements shared.Locker. It blocks until every key is held or ctx
// is done; on cancellation nothing stays locked.
func (l *Locker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = shared.NormalizeKeys(keys)
	held := make([]string, 0, len(keys))

	for _, key := range keys {
		kl := l.acquireRef(key)
		select {
		case kl.ch <- struct{}{}:
			held = append(held, key)
		case <-ctx.Done():
			l.releaseRef(key)
			l.release(held)
			return nil, shared.WrapError("lock", "Lock", shared.ErrLockNotAcquired,
				"gave up waiting for "+key, ctx.Err())
		}
	}

	var once sync.Once
	return func() {
		once.Do(func() { l.release(held) })
	}, nil
}

// Held reports how many keys currently have holders or waiters.
func (l *Locker) Held() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

func (l *Locker) acquireRef(key string) *keyLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{ch: make(chan struct{}, 1)}
		l.locks[key] = kl
	}
	kl.refs++
	return kl
}

func (l *Locker) releaseRef(key string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	kl, ok := l.locks[key]
	if !ok {
		return
	}
	kl.refs--
	if kl.refs <= 0 {
		delete(l.locks, key)
	}
}

// release unlocks keys in reverse acquisition order.
func (l *Locker) release(keys []string) {
	for i := len(keys) - 1; i >= 0; i-- {
		l.mu.Lock()
		kl := l.locks[keys[i]]
		l.mu.Unlock()

		<-kl.ch
		l.releaseRef(keys[i])
	}
}

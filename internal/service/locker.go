package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/junii03/banking-ledger/internal/errors"
)

// AccountLocker serialises work per account inside this process. Locks for
// several accounts are always taken in ascending id order.
type AccountLocker struct {
	mu    sync.Mutex
	locks map[string]*accountLock
}

type accountLock struct {
	sem  chan struct{}
	refs int
}

func NewAccountLocker() *AccountLocker {
	return &AccountLocker{locks: make(map[string]*accountLock)}
}

// Lock acquires every id or none. It returns ErrBusy when timeout elapses
// first, or the context error if ctx ends.
func (l *AccountLocker) Lock(ctx context.Context, timeout time.Duration, ids ...string) (func(), error) {
	ids = sortedUnique(ids)

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	acquired := make([]string, 0, len(ids))
	for _, id := range ids {
		lock := l.ref(id)
		select {
		case lock.sem <- struct{}{}:
			acquired = append(acquired, id)
		case <-timer.C:
			l.unref(id)
			l.release(acquired)
			return nil, errors.ErrBusy
		case <-ctx.Done():
			l.unref(id)
			l.release(acquired)
			return nil, ctx.Err()
		}
	}

	var once sync.Once
	return func() { once.Do(func() { l.release(acquired) }) }, nil
}

func (l *AccountLocker) ref(id string) *accountLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &accountLock{sem: make(chan struct{}, 1)}
		l.locks[id] = lock
	}
	lock.refs++
	return lock
}

func (l *AccountLocker) unref(id string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock := l.locks[id]
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, id)
	}
}

func (l *AccountLocker) release(ids []string) {
	for i := len(ids) - 1; i >= 0; i-- {
		l.mu.Lock()
		lock := l.locks[ids[i]]
		l.mu.Unlock()
		<-lock.sem
		l.unref(ids[i])
	}
}

func sortedUnique(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

package services

import "sync"

// dayLock serializes mutations per (operator, day) key. The store's
// revision check catches races across processes; this keeps a single process
// from burning retries against itself.
type dayLock struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newDayLock() *dayLock {
	return &dayLock{locks: make(map[string]*lockEntry)}
}

// lock acquires the mutex for key and returns its release func.
func (l *dayLock) lock(key string) func() {
	l.mu.Lock()
	e, ok := l.locks[key]
	if !ok {
		e = &lockEntry{}
		l.locks[key] = e
	}
	e.refs++
	l.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}

// lockPair acquires two keys in a fixed order so concurrent movers between
// the same pair of days cannot deadlock.
func (l *dayLock) lockPair(a, b string) func() {
	if a == b {
		return l.lock(a)
	}
	if b < a {
		a, b = b, a
	}
	unlockA := l.lock(a)
	unlockB := l.lock(b)
	return func() {
		unlockB()
		unlockA()
	}
}

package service

import "sync"

// userLocks serializes balance read-modify-write per user. Concurrent
// operations for different users proceed independently; two operations on
// the same user's balance never interleave.
//
// Locks are never removed from the map. The key space is bounded by the
// active user population, which is small enough that reclaiming entries
// is not worth the extra bookkeeping.
type userLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newUserLocks() *userLocks {
	return &userLocks{locks: make(map[string]*sync.Mutex)}
}

// Lock acquires the per-user lock, creating it on first use.
func (l *userLocks) Lock(userID string) {
	l.mu.Lock()
	m, ok := l.locks[userID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[userID] = m
	}
	l.mu.Unlock()

	m.Lock()
}

// Unlock releases the per-user lock.
func (l *userLocks) Unlock(userID string) {
	l.mu.Lock()
	m := l.locks[userID]
	l.mu.Unlock()

	m.Unlock()
}

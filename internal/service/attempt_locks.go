package service

import "sync"

// AttemptLocks hands out one RWMutex per attempt. Finalization and manual grading
// take the write side; answer recording takes the read side so writes to one
// attempt never interleave with its grading.
type AttemptLocks struct {
	mu    sync.Mutex
	locks map[uint]*attemptLock
}

type attemptLock struct {
	sync.RWMutex
	refs int
}

func NewAttemptLocks() *AttemptLocks {
	return &AttemptLocks{locks: make(map[uint]*attemptLock)}
}

func (l *AttemptLocks) acquire(id uint) *attemptLock {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock, ok := l.locks[id]
	if !ok {
		lock = &attemptLock{}
		l.locks[id] = lock
	}
	lock.refs++
	return lock
}

func (l *AttemptLocks) release(id uint, lock *attemptLock) {
	l.mu.Lock()
	defer l.mu.Unlock()
	lock.refs--
	if lock.refs == 0 {
		delete(l.locks, id)
	}
}

// Lock blocks until the attempt is exclusively held and returns the unlock func.
func (l *AttemptLocks) Lock(id uint) func() {
	lock := l.acquire(id)
	lock.Lock()
	return func() {
		lock.Unlock()
		l.release(id, lock)
	}
}

func (l *AttemptLocks) RLock(id uint) func() {
	lock := l.acquire(id)
	lock.RLock()
	return func() {
		lock.RUnlock()
		l.release(id, lock)
	}
}

// Len reports how many attempts currently hold or wait on a lock.
func (l *AttemptLocks) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

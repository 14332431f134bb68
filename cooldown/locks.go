package cooldown

import "sync"

// timerLocks hands out one mutex per (bucket, name). Entries are reference
// counted and dropped once no goroutine holds or waits on them.
type timerLocks struct {
	mu    sync.Mutex
	locks map[timerKey]*timerLock
}

type timerKey struct {
	bucketKey string
	name      string
}

type timerLock struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the lock of one timer and returns the release func.
func (l *timerLocks) lock(bucketKey, name string) func() {
	k := timerKey{bucketKey: bucketKey, name: name}

	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[timerKey]*timerLock)
	}
	lk, ok := l.locks[k]
	if !ok {
		lk = &timerLock{}
		l.locks[k] = lk
	}
	lk.refs++
	l.mu.Unlock()

	lk.mu.Lock()
	return func() {
		lk.mu.Unlock()

		l.mu.Lock()
		defer l.mu.Unlock()
		lk.refs--
		if lk.refs == 0 {
			delete(l.locks, k)
		}
	}
}

package economy

import (
	"slices"
	"sync"
)

// accountLocks hands out one mutex per account. Entries are reference
// counted and dropped once no goroutine holds or waits on them.
type accountLocks struct {
	mu    sync.Mutex
	locks map[UserID]*accountLock
}

type accountLock struct {
	mu   sync.Mutex
	refs int
}

// lock acquires the locks of all ids in ascending order, so that callers
// locking overlapping sets cannot deadlock. It returns the release func.
func (l *accountLocks) lock(ids ...UserID) func() {
	ids = slices.Clone(ids)
	slices.Sort(ids)
	ids = slices.Compact(ids)

	held := make([]*accountLock, 0, len(ids))
	for _, id := range ids {
		lk := l.acquire(id)
		lk.mu.Lock()
		held = append(held, lk)
	}

	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].mu.Unlock()
			l.release(ids[i])
		}
	}
}

func (l *accountLocks) acquire(id UserID) *accountLock {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.locks == nil {
		l.locks = make(map[UserID]*accountLock)
	}
	lk, ok := l.locks[id]
	if !ok {
		lk = &accountLock{}
		l.locks[id] = lk
	}
	lk.refs++
	return lk
}

func (l *accountLocks) release(id UserID) {
	l.mu.Lock()
	defer l.mu.Unlock()

	lk := l.locks[id]
	lk.refs--
	if lk.refs == 0 {
		delete(l.locks, id)
	}
}

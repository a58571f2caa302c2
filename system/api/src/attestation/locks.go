package attestation

import "sync"

// subjectLocks hands out one mutex per subject. Entries are dropped once no
// caller holds or waits on them.
type subjectLocks struct {
	mu    sync.Mutex
	locks map[string]*subjectLock
}

type subjectLock struct {
	sync.Mutex
	refs int
}

func newSubjectLocks() *subjectLocks {
	return &subjectLocks{locks: make(map[string]*subjectLock)}
}

func (sl *subjectLocks) lock(subject string) func() {
	sl.mu.Lock()
	l, ok := sl.locks[subject]
	if !ok {
		l = &subjectLock{}
		sl.locks[subject] = l
	}
	l.refs++
	sl.mu.Unlock()

	l.Lock()
	return func() {
		l.Unlock()
		sl.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(sl.locks, subject)
		}
		sl.mu.Unlock()
	}
}

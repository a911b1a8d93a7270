package service

import (
	"sync"

	id "campaign/pkg/domain"
)

// jobLocks serializes Advance per job within the process. Entries are
// removed once no caller holds or waits on them.
type jobLocks struct {
	mu    sync.Mutex
	locks map[id.JobID]*jobLock
}

type jobLock struct {
	mu   sync.Mutex
	refs int
}

func newJobLocks() *jobLocks {
	return &jobLocks{locks: make(map[id.JobID]*jobLock)}
}

func (l *jobLocks) lock(jobID id.JobID) (unlock func()) {
	l.mu.Lock()
	jl, ok := l.locks[jobID]
	if !ok {
		jl = &jobLock{}
		l.locks[jobID] = jl
	}
	jl.refs++
	l.mu.Unlock()

	jl.mu.Lock()
	return func() {
		jl.mu.Unlock()
		l.mu.Lock()
		jl.refs--
		if jl.refs == 0 {
			delete(l.locks, jobID)
		}
		l.mu.Unlock()
	}
}

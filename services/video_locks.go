package services

import "sync"

// videoLocks hands out one mutex per video id so the processing run and
// deletion of the same video cannot interleave. An entry is reaped on
// unlock once no holder or waiter references it, so the map tracks only
// videos with a lock currently held or awaited.
type videoLocks struct {
	mu    sync.Mutex
	locks map[string]*videoLock
}

type videoLock struct {
	mu   sync.Mutex
	refs int
}

func newVideoLocks() *videoLocks {
	return &videoLocks{locks: map[string]*videoLock{}}
}

func (l *videoLocks) Lock(videoID string) {
	l.mu.Lock()
	entry, ok := l.locks[videoID]
	if !ok {
		entry = &videoLock{}
		l.locks[videoID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
}

func (l *videoLocks) Unlock(videoID string) {
	l.mu.Lock()
	entry := l.locks[videoID]
	entry.refs--
	if entry.refs == 0 {
		delete(l.locks, videoID)
	}
	l.mu.Unlock()

	entry.mu.Unlock()
}

package usecase

import "sync"

// roomLocks hands out one mutex per room name and forgets it once nobody holds or waits for it.
type roomLocks struct {
	mu    sync.Mutex
	locks map[string]*roomLock
}

type roomLock struct {
	sync.Mutex
	refs int
}

func newRoomLocks() *roomLocks {
	return &roomLocks{locks: make(map[string]*roomLock)}
}

// Lock blocks until the room is free and returns its unlock func.
func (that *roomLocks) Lock(name string) func() {
	that.mu.Lock()
	lock, ok := that.locks[name]
	if !ok {
		lock = &roomLock{}
		that.locks[name] = lock
	}
	lock.refs++
	that.mu.Unlock()

	lock.Lock()

	return func() {
		lock.Unlock()

		that.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(that.locks, name)
		}
		that.mu.Unlock()
	}
}

func (that *roomLocks) size() int {
	that.mu.Lock()
	defer that.mu.Unlock()

	return len(that.locks)
}

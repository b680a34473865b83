package services

import "sync"

// roomLocker hands out one mutex per room so a service can serialize its
// decisions for that room in-process. The DB row lock covers other nodes;
// this keeps single-node deployments and tests ordered without relying on
// the database's lock queue.
type roomLocker struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRoomLocker() *roomLocker {
	return &roomLocker{locks: make(map[string]*sync.Mutex)}
}

// lock blocks until the room's mutex is held and returns its unlock.
func (l *roomLocker) lock(roomID string) func() {
	l.mu.Lock()
	lock, ok := l.locks[roomID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[roomID] = lock
	}
	l.mu.Unlock()

	lock.Lock()
	return lock.Unlock
}

package list

import "sync"

// LockRegistry hands out one mutex per list id. Entries are created on first
// use and never removed.
type LockRegistry struct {
	mu    sync.RWMutex
	locks map[int64]*sync.Mutex
}

// NewLockRegistry creates an empty registry.
func NewLockRegistry() *LockRegistry {
	return &LockRegistry{locks: make(map[int64]*sync.Mutex)}
}

// Get returns the mutex of a list, creating it if needed.
func (r *LockRegistry) Get(listID int64) *sync.Mutex {
	r.mu.RLock()
	l, ok := r.locks[listID]
	r.mu.RUnlock()
	if ok {
		return l
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if l, ok := r.locks[listID]; ok {
		return l
	}
	l = &sync.Mutex{}
	r.locks[listID] = l
	return l
}

// Len returns the number of lists that have a lock.
func (r *LockRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.locks)
}

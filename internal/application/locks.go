package application

import "sync"

// keyedLocks serializes work per application so concurrent pipeline
// completions and reviewer actions never interleave a read-modify-write.
// Locks are never removed; the map grows with distinct in-flight
// applications, which is bounded in practice by the processing window.
type keyedLocks struct {
	locks sync.Map
}

func (k *keyedLocks) lock(key string) func() {
	mu, _ := k.locks.LoadOrStore(key, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}

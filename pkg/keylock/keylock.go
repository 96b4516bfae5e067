// Package keylock provides a mutex per key.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

// KeyedMutex serializes callers that share a key. Entries are dropped once no
// caller holds or waits on them.
type KeyedMutex[K comparable] struct {
	mu      sync.Mutex
	entries map[K]*entry
}

func New[K comparable]() *KeyedMutex[K] {
	return &KeyedMutex[K]{entries: make(map[K]*entry)}
}

// Lock blocks until key is free and returns the matching unlock func.
func (m *KeyedMutex[K]) Lock(key K) func() {
	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		m.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(m.entries, key)
		}
		m.mu.Unlock()
	}
}

// Len is the number of keys currently held or awaited.
func (m *KeyedMutex[K]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

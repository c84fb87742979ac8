// File: internal/usecase/keyed_mutex.go
package usecase

import "sync"

// keyedMutex serializes work per string key. Entries are reference counted
// and dropped when the last holder releases, so the map does not grow by one
// mutex per session forever.
type keyedMutex struct {
	mu   sync.Mutex
	keys map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{keys: make(map[string]*keyLock)}
}

func (k *keyedMutex) Lock(key string) {
	k.mu.Lock()
	l, ok := k.keys[key]
	if !ok {
		l = &keyLock{}
		k.keys[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
}

func (k *keyedMutex) Unlock(key string) {
	k.mu.Lock()
	l, ok := k.keys[key]
	if !ok {
		k.mu.Unlock()
		panic("usecase: unlock of unheld session key " + key)
	}
	l.refs--
	if l.refs == 0 {
		delete(k.keys, key)
	}
	k.mu.Unlock()

	l.mu.Unlock()
}

// Package sync provides concurrency primitives keyed by resource identifier.
package sync

import (
	"hash/fnv"
	"sync"
)

const shardCount = 64

// KeyedMutex serializes operations on the same key while letting operations
// on different keys proceed in parallel. Keys are hashed onto a fixed set of
// shards, so two distinct keys may occasionally share a lock.
type KeyedMutex struct {
	shards [shardCount]sync.Mutex
}

// NewKeyedMutex creates a KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{}
}

// Lock acquires the lock guarding the given key.
func (m *KeyedMutex) Lock(key string) {
	m.shards[m.shardFor(key)].Lock()
}

// Unlock releases the lock guarding the given key.
func (m *KeyedMutex) Unlock(key string) {
	m.shards[m.shardFor(key)].Unlock()
}

// Do runs fn while holding the lock for key.
func (m *KeyedMutex) Do(key string, fn func()) {
	m.Lock(key)
	defer m.Unlock(key)
	fn()
}

func (m *KeyedMutex) shardFor(key string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return int(h.Sum32() % shardCount)
}

// Package registry provides a sharded, concurrent map from shader keys to
// registered shader objects.
package registry

import (
	"encoding/binary"
	"sync"

	"github.com/gogpu/statecache/state"
)

const (
	// ShardCount is the number of shards. Must be a power of 2.
	ShardCount = 16

	shardMask = ShardCount - 1
)

// Registry maps shader keys to values. Entries are never replaced or removed.
//
// Lookups only take the read lock of one shard, so Resolve stays cheap while
// other goroutines insert into other shards.
type Registry[V any] struct {
	shards [ShardCount]*shard[V]
}

type shard[V any] struct {
	mu      sync.RWMutex
	entries map[state.ShaderKey]V
}

// New creates an empty registry.
func New[V any]() *Registry[V] {
	r := &Registry[V]{}
	for i := range r.shards {
		r.shards[i] = &shard[V]{entries: make(map[state.ShaderKey]V)}
	}
	return r
}

// getShard picks a shard from the key bytes. Keys are SHA-256 digests, so
// any eight bytes are uniformly distributed.
func (r *Registry[V]) getShard(key state.ShaderKey) *shard[V] {
	return r.shards[binary.LittleEndian.Uint64(key[:8])&shardMask]
}

// Insert stores v under key. If key is already present the registry is left
// unchanged and Insert returns false.
func (r *Registry[V]) Insert(key state.ShaderKey, v V) bool {
	s := r.getShard(key)

	// Fast path: read lock to check existence
	s.mu.RLock()
	_, exists := s.entries[key]
	s.mu.RUnlock()
	if exists {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Re-check after acquiring write lock
	if _, ok := s.entries[key]; ok {
		return false
	}
	s.entries[key] = v
	return true
}

// Resolve returns the value registered under key.
func (r *Registry[V]) Resolve(key state.ShaderKey) (V, bool) {
	s := r.getShard(key)
	s.mu.RLock()
	v, ok := s.entries[key]
	s.mu.RUnlock()
	return v, ok
}

// Len returns the total number of registered keys.
func (r *Registry[V]) Len() int {
	total := 0
	for _, s := range r.shards {
		s.mu.RLock()
		total += len(s.entries)
		s.mu.RUnlock()
	}
	return total
}

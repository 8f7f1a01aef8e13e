// Package shardmap provides a map split into independently locked shards so
// that many goroutines can update per-key accumulators without contending on
// one global lock. A key lives in shard hash(key) % shardCount.
package shardmap

import (
	"sync"

	"github.com/cespare/xxhash/v2"
)

// Hasher maps a key to the value used for shard selection.
type Hasher[K comparable] func(K) uint64

type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// IntHasher spreads consecutive integer keys over consecutive shards.
func IntHasher[K Integer](key K) uint64 {
	return uint64(key)
}

func StringHasher(key string) uint64 {
	return xxhash.Sum64String(key)
}

type shard[K comparable, V any] struct {
	mu    sync.Mutex
	items map[K]*V
}

type Map[K comparable, V any] struct {
	shards []shard[K, V]
	hash   Hasher[K]
}

// New creates a map with shardCount shards (at least one).
func New[K comparable, V any](shardCount int, hash Hasher[K]) *Map[K, V] {
	if shardCount < 1 {
		shardCount = 1
	}
	m := &Map[K, V]{
		shards: make([]shard[K, V], shardCount),
		hash:   hash,
	}
	for i := range m.shards {
		m.shards[i].items = make(map[K]*V)
	}
	return m
}

// Access is an exclusively locked slot. Value stays valid, and the shard stays
// locked, until Release is called.
type Access[V any] struct {
	Value *V
	mu    *sync.Mutex
}

func (a *Access[V]) Release() {
	if a.mu != nil {
		a.mu.Unlock()
		a.mu = nil
	}
}

func (m *Map[K, V]) shardFor(key K) *shard[K, V] {
	return &m.shards[m.hash(key)%uint64(len(m.shards))]
}

// Access locks the key's shard and returns its slot, creating a zero value
// when the key is absent. The caller must call Release and must not hold any
// other Access at the same time:
//
//	a := m.Access(id)
//	*a.Value += score
//	a.Release()
func (m *Map[K, V]) Access(key K) *Access[V] {
	s := m.shardFor(key)
	s.mu.Lock()
	v, ok := s.items[key]
	if !ok {
		v = new(V)
		s.items[key] = v
	}
	return &Access[V]{Value: v, mu: &s.mu}
}

// Update runs fn on the key's slot while its shard is locked.
func (m *Map[K, V]) Update(key K, fn func(*V)) {
	a := m.Access(key)
	defer a.Release()
	fn(a.Value)
}

func (m *Map[K, V]) Erase(key K) {
	s := m.shardFor(key)
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
}

// BuildOrdinaryMap copies every entry into a plain map. Shards are locked in
// ascending index order and released only after the copy completes.
func (m *Map[K, V]) BuildOrdinaryMap() map[K]V {
	for i := range m.shards {
		m.shards[i].mu.Lock()
	}
	defer func() {
		for i := range m.shards {
			m.shards[i].mu.Unlock()
		}
	}()

	size := 0
	for i := range m.shards {
		size += len(m.shards[i].items)
	}
	out := make(map[K]V, size)
	for i := range m.shards {
		for k, v := range m.shards[i].items {
			out[k] = *v
		}
	}
	return out
}

// Len returns the number of keys. Shards are counted one at a time, so the
// result is only exact when no writer is active.
func (m *Map[K, V]) Len() int {
	n := 0
	for i := range m.shards {
		m.shards[i].mu.Lock()
		n += len(m.shards[i].items)
		m.shards[i].mu.Unlock()
	}
	return n
}

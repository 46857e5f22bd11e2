// Package registry provides the keyed, lock-guarded maps that hold every
// piece of shared mutable session state. Each method is one critical
// section, so callers never observe a half-applied mutation as long as they
// only touch stored values inside Read, Update or Locked callbacks.
package registry

import "sync"

type Map[K comparable, V any] struct {
	mu    sync.RWMutex
	items map[K]V
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{items: make(map[K]V)}
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	return v, ok
}

// PutIfAbsent stores v unless key is taken. It returns the stored value and
// whether v was inserted.
func (m *Map[K, V]) PutIfAbsent(key K, v V) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.items[key]; ok {
		return cur, false
	}
	m.items[key] = v
	return v, true
}

func (m *Map[K, V]) Put(key K, v V) {
	m.mu.Lock()
	m.items[key] = v
	m.mu.Unlock()
}

func (m *Map[K, V]) Delete(key K) (V, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if ok {
		delete(m.items, key)
	}
	return v, ok
}

// Read runs fn with the value under the read lock.
func (m *Map[K, V]) Read(key K, fn func(V)) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.items[key]
	if !ok {
		return false
	}
	fn(v)
	return true
}

// Update runs fn with the value under the write lock.
func (m *Map[K, V]) Update(key K, fn func(V)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.items[key]
	if !ok {
		return false
	}
	fn(v)
	return true
}

// Locked hands fn the raw map under the write lock for multi-key
// check-and-set operations.
func (m *Map[K, V]) Locked(fn func(items map[K]V)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn(m.items)
}

// Collect maps every value through fn under the read lock.
func Collect[K comparable, V any, T any](m *Map[K, V], fn func(V) (T, bool)) []T {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]T, 0, len(m.items))
	for _, v := range m.items {
		if t, ok := fn(v); ok {
			out = append(out, t)
		}
	}
	return out
}

func (m *Map[K, V]) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

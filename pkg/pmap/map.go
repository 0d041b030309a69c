// Package pmap provides persistent (immutable, structurally shared) collections.
//
// Every update returns a new collection and leaves the receiver untouched, so a
// value read from a published snapshot can be shared between goroutines without
// locks. The zero value of each collection is an empty collection.
package pmap

import (
	"cmp"

	"github.com/benbjohnson/immutable"
	"github.com/cespare/xxhash"
)

// Map is a persistent hash map keyed by a string-like type.
type Map[K ~string, V any] struct {
	m *immutable.Map[K, V]
}

// stringHasher hashes string-like keys with xxhash.
type stringHasher[K ~string] struct{}

func (stringHasher[K]) Hash(key K) uint32 {
	return uint32(xxhash.Sum64String(string(key)))
}

func (stringHasher[K]) Equal(a, b K) bool {
	return a == b
}

// NewMap returns an empty map.
func NewMap[K ~string, V any]() Map[K, V] {
	return Map[K, V]{m: immutable.NewMap[K, V](stringHasher[K]{})}
}

func (m Map[K, V]) base() *immutable.Map[K, V] {
	if m.m == nil {
		return immutable.NewMap[K, V](stringHasher[K]{})
	}
	return m.m
}

// With returns a copy of m where key maps to value.
func (m Map[K, V]) With(key K, value V) Map[K, V] {
	return Map[K, V]{m: m.base().Set(key, value)}
}

// Without returns a copy of m without key.
func (m Map[K, V]) Without(key K) Map[K, V] {
	if m.m == nil {
		return m
	}
	return Map[K, V]{m: m.m.Delete(key)}
}

// Get returns the value stored under key.
func (m Map[K, V]) Get(key K) (V, bool) {
	if m.m == nil {
		var zero V
		return zero, false
	}
	return m.m.Get(key)
}

// Has reports whether key is present.
func (m Map[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m Map[K, V]) Len() int {
	if m.m == nil {
		return 0
	}
	return m.m.Len()
}

// Range calls fn for every entry until fn returns false. Order is unspecified.
func (m Map[K, V]) Range(fn func(K, V) bool) {
	if m.m == nil {
		return
	}
	itr := m.m.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		if !fn(k, v) {
			return
		}
	}
}

// Keys returns the keys of m in unspecified order.
func (m Map[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())
	m.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Sorted is a persistent map iterated in ascending key order.
type Sorted[K cmp.Ordered, V any] struct {
	m *immutable.SortedMap[K, V]
}

type orderedComparer[K cmp.Ordered] struct{}

func (orderedComparer[K]) Compare(a, b K) int {
	return cmp.Compare(a, b)
}

// NewSorted returns an empty sorted map.
func NewSorted[K cmp.Ordered, V any]() Sorted[K, V] {
	return Sorted[K, V]{m: immutable.NewSortedMap[K, V](orderedComparer[K]{})}
}

func (m Sorted[K, V]) base() *immutable.SortedMap[K, V] {
	if m.m == nil {
		return immutable.NewSortedMap[K, V](orderedComparer[K]{})
	}
	return m.m
}

// With returns a copy of m where key maps to value.
func (m Sorted[K, V]) With(key K, value V) Sorted[K, V] {
	return Sorted[K, V]{m: m.base().Set(key, value)}
}

// Without returns a copy of m without key.
func (m Sorted[K, V]) Without(key K) Sorted[K, V] {
	if m.m == nil {
		return m
	}
	return Sorted[K, V]{m: m.m.Delete(key)}
}

// Get returns the value stored under key.
func (m Sorted[K, V]) Get(key K) (V, bool) {
	if m.m == nil {
		var zero V
		return zero, false
	}
	return m.m.Get(key)
}

// Has reports whether key is present.
func (m Sorted[K, V]) Has(key K) bool {
	_, ok := m.Get(key)
	return ok
}

// Len returns the number of entries.
func (m Sorted[K, V]) Len() int {
	if m.m == nil {
		return 0
	}
	return m.m.Len()
}

// Range calls fn for every entry in ascending key order until fn returns false.
func (m Sorted[K, V]) Range(fn func(K, V) bool) {
	if m.m == nil {
		return
	}
	itr := m.m.Iterator()
	for !itr.Done() {
		k, v, _ := itr.Next()
		if !fn(k, v) {
			return
		}
	}
}

// Keys returns the keys of m in ascending order.
func (m Sorted[K, V]) Keys() []K {
	keys := make([]K, 0, m.Len())
	m.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

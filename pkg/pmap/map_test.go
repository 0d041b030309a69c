package pmap

import (
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type name string

func TestMapWithLeavesOriginalUntouched(t *testing.T) {
	m0 := NewMap[name, int]()
	m1 := m0.With("a", 1)
	m2 := m1.With("b", 2).With("a", 10)

	assert.Equal(t, 0, m0.Len())
	assert.Equal(t, 1, m1.Len())
	assert.Equal(t, 2, m2.Len())

	v, ok := m1.Get("a")
	require.True(t, ok)
	assert.Equal(t, 1, v)

	v, ok = m2.Get("a")
	require.True(t, ok)
	assert.Equal(t, 10, v)
	assert.False(t, m1.Has("b"))
}

func TestMapWithout(t *testing.T) {
	m1 := NewMap[name, string]().With("a", "x").With("b", "y")
	m2 := m1.Without("a")

	assert.True(t, m1.Has("a"))
	assert.False(t, m2.Has("a"))
	assert.True(t, m2.Has("b"))

	// removing an absent key is harmless
	m3 := m2.Without("missing")
	assert.Equal(t, 1, m3.Len())
}

func TestMapZeroValue(t *testing.T) {
	var m Map[name, int]
	assert.Equal(t, 0, m.Len())
	assert.False(t, m.Has("a"))
	assert.Equal(t, 0, m.Without("a").Len())
	assert.Empty(t, m.Keys())

	m2 := m.With("a", 1)
	assert.Equal(t, 1, m2.Len())
	assert.Equal(t, 0, m.Len())
}

func TestMapKeys(t *testing.T) {
	m := NewMap[name, int]()
	for _, k := range []name{"c", "a", "b"} {
		m = m.With(k, 1)
	}
	keys := m.Keys()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	assert.Equal(t, []name{"a", "b", "c"}, keys)
}

func TestMapConcurrentReaders(t *testing.T) {
	m := NewMap[name, int]()
	for i := 0; i < 100; i++ {
		m = m.With(name(rune('a'+i%26))+name(rune('0'+i/26)), i)
	}

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := m
			for i := 0; i < 50; i++ {
				local = local.Without(local.Keys()[0])
			}
			assert.Equal(t, 50, local.Len())
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, m.Len())
}

func TestSortedRangeOrder(t *testing.T) {
	type id int
	s := NewSorted[id, string]()
	for _, k := range []id{5, 1, 3, 2, 4} {
		s = s.With(k, "v")
	}
	assert.Equal(t, []id{1, 2, 3, 4, 5}, s.Keys())

	s2 := s.Without(3)
	assert.Equal(t, []id{1, 2, 4, 5}, s2.Keys())
	assert.True(t, s.Has(3))

	var zero Sorted[id, string]
	assert.Equal(t, 0, zero.Len())
	assert.Equal(t, []id{7}, zero.With(7, "x").Keys())
}

package pmap

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSeqAppendPreservesOrder(t *testing.T) {
	var s Seq[string]
	s1 := s.Append("a")
	s2 := s1.Append("b").Append("c")

	assert.Equal(t, 0, s.Len())
	assert.Equal(t, []string{"a"}, s1.Slice())
	assert.Equal(t, []string{"a", "b", "c"}, s2.Slice())
	assert.Equal(t, "b", s2.At(1))
}

func TestSeqRemoveFirst(t *testing.T) {
	s := NewSeq(1, 2, 3, 2, 1)

	out, ok := s.RemoveFirst(func(v int) bool { return v == 2 })
	assert.True(t, ok)
	assert.Equal(t, []int{1, 3, 2, 1}, out.Slice())
	assert.Equal(t, []int{1, 2, 3, 2, 1}, s.Slice())

	out, ok = s.RemoveFirst(func(v int) bool { return v == 9 })
	assert.False(t, ok)
	assert.Equal(t, s.Slice(), out.Slice())
}

func TestSeqRangeStops(t *testing.T) {
	s := NewSeq("a", "b", "c")
	var seen []string
	s.Range(func(_ int, v string) bool {
		seen = append(seen, v)
		return v != "b"
	})
	assert.Equal(t, []string{"a", "b"}, seen)
}

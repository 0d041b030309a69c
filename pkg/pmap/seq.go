package pmap

import "github.com/benbjohnson/immutable"

// Seq is a persistent ordered sequence.
type Seq[T any] struct {
	l *immutable.List[T]
}

// NewSeq returns a sequence holding values in order.
func NewSeq[T any](values ...T) Seq[T] {
	return Seq[T]{l: immutable.NewList[T](values...)}
}

// Append returns a copy of s with value added at the end.
func (s Seq[T]) Append(value T) Seq[T] {
	if s.l == nil {
		return NewSeq(value)
	}
	return Seq[T]{l: s.l.Append(value)}
}

// RemoveFirst returns a copy of s without the first element matching pred.
// The boolean reports whether an element was removed.
func (s Seq[T]) RemoveFirst(pred func(T) bool) (Seq[T], bool) {
	idx := -1
	s.Range(func(i int, v T) bool {
		if pred(v) {
			idx = i
			return false
		}
		return true
	})
	if idx < 0 {
		return s, false
	}

	b := immutable.NewListBuilder[T]()
	s.Range(func(i int, v T) bool {
		if i != idx {
			b.Append(v)
		}
		return true
	})
	return Seq[T]{l: b.List()}, true
}

// Len returns the number of elements.
func (s Seq[T]) Len() int {
	if s.l == nil {
		return 0
	}
	return s.l.Len()
}

// At returns the element at index i. It panics if i is out of range.
func (s Seq[T]) At(i int) T {
	return s.l.Get(i)
}

// Range calls fn for every element in order until fn returns false.
func (s Seq[T]) Range(fn func(int, T) bool) {
	if s.l == nil {
		return
	}
	itr := s.l.Iterator()
	for !itr.Done() {
		i, v := itr.Next()
		if !fn(i, v) {
			return
		}
	}
}

// Slice returns the elements as a newly allocated slice.
func (s Seq[T]) Slice() []T {
	out := make([]T, 0, s.Len())
	s.Range(func(_ int, v T) bool {
		out = append(out, v)
		return true
	})
	return out
}

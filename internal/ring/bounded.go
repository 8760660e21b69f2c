package ring

import "iter"

// Bounded is a fixed-capacity FIFO. Pushing into a full buffer evicts the
// oldest element.
type Bounded[T any] struct {
	buf   []T
	head  int // index of the oldest element
	count int
}

// NewBounded creates a buffer holding at most capacity elements.
func NewBounded[T any](capacity int) *Bounded[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Bounded[T]{buf: make([]T, capacity)}
}

// Push appends v. If the buffer was full, the evicted element is returned
// with true.
func (b *Bounded[T]) Push(v T) (T, bool) {
	var evicted T
	if b.count == len(b.buf) {
		evicted = b.buf[b.head]
		b.buf[b.head] = v
		b.head = (b.head + 1) % len(b.buf)
		return evicted, true
	}
	b.buf[(b.head+b.count)%len(b.buf)] = v
	b.count++
	return evicted, false
}

// Len returns the number of stored elements.
func (b *Bounded[T]) Len() int { return b.count }

// Cap returns the fixed capacity.
func (b *Bounded[T]) Cap() int { return len(b.buf) }

// At returns the i-th element, oldest first. Panics when out of range.
func (b *Bounded[T]) At(i int) T {
	if i < 0 || i >= b.count {
		panic("ring: index out of range")
	}
	return b.buf[(b.head+i)%len(b.buf)]
}

// Last copies the n most recent elements, oldest first.
func (b *Bounded[T]) Last(n int) []T {
	if n > b.count {
		n = b.count
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, n)
	start := b.count - n
	for i := range out {
		out[i] = b.At(start + i)
	}
	return out
}

// Slice copies all elements, oldest first.
func (b *Bounded[T]) Slice() []T {
	return b.Last(b.count)
}

// All iterates oldest first.
func (b *Bounded[T]) All() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := 0; i < b.count; i++ {
			if !yield(i, b.At(i)) {
				return
			}
		}
	}
}

// Backward iterates newest first.
func (b *Bounded[T]) Backward() iter.Seq2[int, T] {
	return func(yield func(int, T) bool) {
		for i := b.count - 1; i >= 0; i-- {
			if !yield(i, b.At(i)) {
				return
			}
		}
	}
}

// Clear drops every element.
func (b *Bounded[T]) Clear() {
	clear(b.buf)
	b.head = 0
	b.count = 0
}

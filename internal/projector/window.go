package projector

import (
	"iter"
	"slices"
)

// Window is a fixed-capacity FIFO. Pushing past capacity evicts the oldest
// value.
type Window[T any] struct {
	buf   []T
	start int
	n     int
}

// NewWindow creates a window holding up to capacity values. A capacity below
// one is raised to one.
func NewWindow[T any](capacity int) *Window[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Window[T]{buf: make([]T, capacity)}
}

// Push appends v, evicting the oldest value when full.
func (w *Window[T]) Push(v T) {
	if w.n < len(w.buf) {
		w.buf[(w.start+w.n)%len(w.buf)] = v
		w.n++
		return
	}
	w.buf[w.start] = v
	w.start = (w.start + 1) % len(w.buf)
}

func (w *Window[T]) Len() int { return w.n }
func (w *Window[T]) Cap() int { return len(w.buf) }

// All yields values oldest first. The sequence can be ranged over repeatedly.
func (w *Window[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for i := 0; i < w.n; i++ {
			if !yield(w.buf[(w.start+i)%len(w.buf)]) {
				return
			}
		}
	}
}

// Values copies the window into a slice, oldest first.
func (w *Window[T]) Values() []T {
	return slices.Collect(w.All())
}

// Last returns the newest value.
func (w *Window[T]) Last() (T, bool) {
	var zero T
	if w.n == 0 {
		return zero, false
	}
	return w.buf[(w.start+w.n-1)%len(w.buf)], true
}

// Reset empties the window.
func (w *Window[T]) Reset() {
	clear(w.buf)
	w.start, w.n = 0, 0
}

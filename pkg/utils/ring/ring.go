// Package ring provides a fixed-capacity append-only buffer. When the
// buffer is full, appending evicts the oldest entry. It backs the
// conversation window, the tool-call log and the security event log.
package ring

// Buffer holds at most capacity entries, oldest first
type Buffer[T any] struct {
	capacity int
	items    []T
}

// New creates a buffer with the given capacity. Capacity below 1 is
// treated as 1.
func New[T any](capacity int) *Buffer[T] {
	if capacity < 1 {
		capacity = 1
	}
	return &Buffer[T]{
		capacity: capacity,
		items:    make([]T, 0, capacity),
	}
}

// Push appends an entry, evicting the oldest when the buffer is full
func (b *Buffer[T]) Push(v T) {
	b.items = append(b.items, v)
	if len(b.items) > b.capacity {
		copy(b.items, b.items[len(b.items)-b.capacity:])
		b.items = b.items[:b.capacity]
	}
}

// Items returns a copy of the retained entries, oldest first
func (b *Buffer[T]) Items() []T {
	out := make([]T, len(b.items))
	copy(out, b.items)
	return out
}

// Len returns the number of retained entries
func (b *Buffer[T]) Len() int {
	return len(b.items)
}

// Cap returns the capacity
func (b *Buffer[T]) Cap() int {
	return b.capacity
}

// Clear removes all entries
func (b *Buffer[T]) Clear() {
	b.items = b.items[:0]
}

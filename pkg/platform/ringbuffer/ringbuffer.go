// Package ringbuffer provides a bounded, thread-safe FIFO that drops the
// oldest element when full.
package ringbuffer

import "sync"

// RingBuffer holds at most capacity elements.
type RingBuffer[T any] struct {
	mu       sync.Mutex
	items    []T
	head     int // next write position
	tail     int // next read position
	count    int
	capacity int

	dropped int64
}

// New creates a ring buffer with the given capacity.
func New[T any](capacity int) *RingBuffer[T] {
	if capacity <= 0 {
		capacity = 10000
	}
	return &RingBuffer[T]{
		items:    make([]T, capacity),
		capacity: capacity,
	}
}

// TryEnqueue adds an item unless the buffer is full.
func (b *RingBuffer[T]) TryEnqueue(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count >= b.capacity {
		return false
	}
	b.push(item)
	return true
}

// Enqueue adds an item, dropping the oldest if necessary. It reports whether
// an item was dropped.
func (b *RingBuffer[T]) Enqueue(item T) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	dropped := false
	if b.count >= b.capacity {
		var zero T
		b.items[b.tail] = zero
		b.tail = (b.tail + 1) % b.capacity
		b.count--
		b.dropped++
		dropped = true
	}
	b.push(item)
	return dropped
}

func (b *RingBuffer[T]) push(item T) {
	b.items[b.head] = item
	b.head = (b.head + 1) % b.capacity
	b.count++
}

// DequeueBatch removes up to n items in FIFO order.
func (b *RingBuffer[T]) DequeueBatch(n int) []T {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.count == 0 || n <= 0 {
		return nil
	}
	if n > b.count {
		n = b.count
	}

	var zero T
	result := make([]T, n)
	for i := range n {
		result[i] = b.items[b.tail]
		b.items[b.tail] = zero
		b.tail = (b.tail + 1) % b.capacity
	}
	b.count -= n
	return result
}

// Len returns the current number of items.
func (b *RingBuffer[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.count
}

// Dropped returns the total number of items dropped for capacity.
func (b *RingBuffer[T]) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

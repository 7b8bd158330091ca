package audio

import "sync/atomic"

// RingBuffer is a lock-free single-producer single-consumer queue used
// to cross the boundary between the capture context and the Bluetooth
// context.
//
// The producer may only call TryPush and Evict; the consumer may only
// call TryPop. Capacity is fixed at construction and rounded up to a
// power of two; one slot is kept empty to distinguish full from empty,
// so the usable capacity is the rounded size minus one.
//
// Eviction (for the drop-oldest overflow policy) advances the read
// position with a compare-and-swap so it is safe against a concurrent
// TryPop from the consumer side.
type RingBuffer[T any] struct {
	buf  []T
	mask uint64

	head atomic.Uint64 // write position, producer only
	tail atomic.Uint64 // read position, consumer (CAS)
}

// NewRingBuffer creates a buffer able to hold at least capacity items.
func NewRingBuffer[T any](capacity int) *RingBuffer[T] {
	if capacity < 1 {
		capacity = 1
	}

	// Round up to power of two, plus the sentinel slot.
	size := 1
	for size < capacity+1 {
		size <<= 1
	}

	return &RingBuffer[T]{
		buf:  make([]T, size),
		mask: uint64(size - 1),
	}
}

// Cap returns the number of items the buffer can hold.
func (r *RingBuffer[T]) Cap() int {
	return len(r.buf) - 1
}

// Len returns the number of items currently queued.
func (r *RingBuffer[T]) Len() int {
	head := r.head.Load()
	tail := r.tail.Load()
	return int(head - tail)
}

// TryPush appends one item. Returns false if the buffer is full; the
// caller decides the overflow policy (drop the item, or Evict and
// retry).
func (r *RingBuffer[T]) TryPush(v T) bool {
	head := r.head.Load()
	tail := r.tail.Load()
	if head-tail >= uint64(len(r.buf)-1) {
		return false
	}

	r.buf[head&r.mask] = v
	r.head.Store(head + 1)
	return true
}

// TryPop removes and returns the oldest item. The second return value
// is false when the buffer is empty; the call never blocks.
func (r *RingBuffer[T]) TryPop() (T, bool) {
	for {
		tail := r.tail.Load()
		head := r.head.Load()
		if head == tail {
			var zero T
			return zero, false
		}

		v := r.buf[tail&r.mask]
		if r.tail.CompareAndSwap(tail, tail+1) {
			return v, true
		}
		// Lost a race with Evict; retry.
	}
}

// Evict discards the oldest item, making room for a newer one. Returns
// false if the buffer was already empty.
func (r *RingBuffer[T]) Evict() bool {
	for {
		tail := r.tail.Load()
		head := r.head.Load()
		if head == tail {
			return false
		}
		if r.tail.CompareAndSwap(tail, tail+1) {
			return true
		}
	}
}

// Clear drops all queued items, draining through the same CAS the
// consumer uses, so it is safe while the producer keeps pushing.
func (r *RingBuffer[T]) Clear() {
	for r.Evict() {
	}
}

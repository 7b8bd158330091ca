package audio

import "sync/atomic"

// ConfigCell is a single-slot cell holding the latest published value,
// used to propagate the negotiated stream configuration across the core
// boundary. The value is immutable after publish; renegotiation
// publishes a whole new value under the next epoch, so readers never
// observe a configuration mid-change.
type ConfigCell[T any] struct {
	slot atomic.Pointer[versioned[T]]
}

type versioned[T any] struct {
	epoch uint64
	value T
}

// NewConfigCell returns an empty cell.
func NewConfigCell[T any]() *ConfigCell[T] {
	return &ConfigCell[T]{}
}

// Publish atomically replaces the stored value and returns the new
// epoch. Epochs start at 1 so epoch 0 means "never published".
func (c *ConfigCell[T]) Publish(v T) uint64 {
	var epoch uint64 = 1
	if cur := c.slot.Load(); cur != nil {
		epoch = cur.epoch + 1
	}
	c.slot.Store(&versioned[T]{epoch: epoch, value: v})
	return epoch
}

// Load returns the current value and its epoch. ok is false if nothing
// has been published yet.
func (c *ConfigCell[T]) Load() (v T, epoch uint64, ok bool) {
	cur := c.slot.Load()
	if cur == nil {
		var zero T
		return zero, 0, false
	}
	return cur.value, cur.epoch, true
}

// Invalidate clears the cell, used on full session teardown.
func (c *ConfigCell[T]) Invalidate() {
	c.slot.Store(nil)
}

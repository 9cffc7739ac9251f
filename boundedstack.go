// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package substrate

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// BoundedStack is a fixed-capacity, multi-producer multi-consumer LIFO
// stack of values, directly adapted from libam_stack.c's CAS-indexed
// design. Unlike [Ring], full and empty are hard, returned errors rather
// than a reason to spin.
//
// Push and Pop each CAS-advance the size counter to claim an index
// (incrementing to push, decrementing to pop), then spin on the claimed
// slot's presence flag to publish or consume the value — the same
// claim-then-publish split used by [Ring], adapted to a LIFO index
// space instead of a modulo ring.
type BoundedStack[T any] struct {
	_        pad
	size     atomix.Uint64
	_        pad
	capacity uint64
	slots    []boundedSlot[T]
}

type boundedSlot[T any] struct {
	present atomix.Bool
	data    T
	_       padShort
}

// NewBoundedStack creates a bounded stack with the given fixed capacity.
func NewBoundedStack[T any](capacity int) *BoundedStack[T] {
	if capacity < 1 {
		panic("substrate: bounded stack capacity must be >= 1")
	}
	return &BoundedStack[T]{
		capacity: uint64(capacity),
		slots:    make([]boundedSlot[T], capacity),
	}
}

// Push adds v to the top of the stack. Returns [ErrInvalidArgument] if v
// is a nil pointer, map, channel, func, interface, or slice, and [ErrFull]
// if the stack is already at capacity.
func (b *BoundedStack[T]) Push(v T) error {
	if isNilValue(v) {
		return ErrInvalidArgument
	}
	for {
		sz := b.size.LoadAcquire()
		if sz >= b.capacity {
			return ErrFull
		}
		if b.size.CompareAndSwapAcqRel(sz, sz+1) {
			slot := &b.slots[sz]
			sw := spin.Wait{}
			for slot.present.LoadAcquire() {
				sw.Once()
			}
			slot.data = v
			slot.present.StoreRelease(true)
			return nil
		}
	}
}

// Pop removes and returns the top value. Returns [ErrEmpty] if the stack
// has no elements.
func (b *BoundedStack[T]) Pop() (T, error) {
	for {
		sz := b.size.LoadAcquire()
		if sz == 0 {
			var zero T
			return zero, ErrEmpty
		}
		if b.size.CompareAndSwapAcqRel(sz, sz-1) {
			slot := &b.slots[sz-1]
			sw := spin.Wait{}
			for !slot.present.LoadAcquire() {
				sw.Once()
			}
			out := slot.data
			var zero T
			slot.data = zero
			slot.present.StoreRelease(false)
			return out, nil
		}
	}
}

// Size returns the current number of elements on the stack.
func (b *BoundedStack[T]) Size() int {
	return int(b.size.LoadAcquire())
}

// Cap returns the stack's fixed capacity.
func (b *BoundedStack[T]) Cap() int {
	return int(b.capacity)
}

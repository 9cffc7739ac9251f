// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package substrate

import (
	"context"
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Ring is a bounded, multi-producer multi-consumer FIFO queue.
//
// Producers are lock-free: each claims a tail index via CAS, decoupled
// from publishing its payload, so concurrent producers make independent
// progress. Consumers serialize through a mutex — naively CASing head
// admits races where two consumers could both believe they claimed the
// same not-yet-published slot, so one consumer advances head under lock
// and then spin-reads the slot it claimed, mirroring libam_cqueue's
// read_lock.
//
// One slot of the backing array is always left empty so head == tail is
// an unambiguous empty signal; usable capacity is therefore cap-1 of the
// array allocated, which NewRing accounts for internally.
type Ring[T any] struct {
	_    pad
	head atomix.Uint64
	_    pad
	tail atomix.Uint64
	_    pad
	consumerMu sync.Mutex
	buffer     []ringSlot[T]
	size       uint64 // physical slot count, size-1 usable
	mask       uint64
}

type ringSlot[T any] struct {
	present atomix.Bool
	data    T
	_       padShort
}

// NewRing creates a ring with usable capacity of at least cap. The
// backing array is sized to the next power of 2 at or above cap+1 so the
// empty/full distinction never ambiguates with a bitmask index; [Ring.Cap]
// reports the resulting usable capacity.
func NewRing[T any](cap int) *Ring[T] {
	if cap < 1 {
		panic("substrate: ring capacity must be >= 1")
	}
	size := uint64(roundToPow2(cap + 1))
	return &Ring[T]{
		buffer: make([]ringSlot[T], size),
		size:   size,
		mask:   size - 1,
	}
}

// Enqueue adds v to the ring. Enqueue never fails for capacity — if the
// ring is full, the caller's sizing is wrong and Enqueue spins until a
// consumer makes room, per spec: the ring does not reject on capacity.
// It returns [ErrInvalidArgument] without spinning if v is a nil pointer,
// map, channel, func, interface, or slice.
func (r *Ring[T]) Enqueue(v T) error {
	if isNilValue(v) {
		return ErrInvalidArgument
	}
	sw := spin.Wait{}
	for {
		tail := r.tail.LoadAcquire()
		head := r.head.LoadAcquire()
		if tail-head >= r.size-1 {
			// Ring full from this producer's vantage point; the
			// contract says wait, not fail — caller sizing is wrong.
			sw.Once()
			continue
		}
		if !r.tail.CompareAndSwapAcqRel(tail, tail+1) {
			sw.Once()
			continue
		}
		slot := &r.buffer[tail&r.mask]
		sw2 := spin.Wait{}
		for slot.present.LoadAcquire() {
			// Claimed tail indices are unique per producer and only
			// reused once a consumer has cleared present; this spins
			// only if the consumer hasn't finished clearing yet.
			sw2.Once()
		}
		slot.data = v
		slot.present.StoreRelease(true)
		return nil
	}
}

// EnqueueContext behaves like Enqueue but aborts with ctx.Err() if ctx is
// canceled before room becomes available. Callers that need a bounded
// wait on top of Ring's normally-spins contract (notably acceptor,
// which must not let a dispatch goroutine spin forever past shutdown)
// use this instead of Enqueue.
func (r *Ring[T]) EnqueueContext(ctx context.Context, v T) error {
	if isNilValue(v) {
		return ErrInvalidArgument
	}
	sw := spin.Wait{}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		tail := r.tail.LoadAcquire()
		head := r.head.LoadAcquire()
		if tail-head >= r.size-1 {
			sw.Once()
			continue
		}
		if !r.tail.CompareAndSwapAcqRel(tail, tail+1) {
			sw.Once()
			continue
		}
		slot := &r.buffer[tail&r.mask]
		sw2 := spin.Wait{}
		for slot.present.LoadAcquire() {
			sw2.Once()
		}
		slot.data = v
		slot.present.StoreRelease(true)
		return nil
	}
}

// TryEnqueue attempts to add v without spinning: it makes a single
// attempt and returns false if the ring is observed full, rather than
// waiting for room. It also returns false, without attempting to claim a
// slot, if v is a nil pointer, map, channel, func, interface, or slice.
// Collaborators that need a bounded-capacity error contract on top of
// Ring's normally-spins semantics (e.g. logrouter's queued-sink in-queue,
// which surfaces backpressure as an error under its configured policy
// instead of blocking the producer indefinitely) use this instead of
// Enqueue.
func (r *Ring[T]) TryEnqueue(v T) bool {
	if isNilValue(v) {
		return false
	}
	tail := r.tail.LoadAcquire()
	head := r.head.LoadAcquire()
	if tail-head >= r.size-1 {
		return false
	}
	if !r.tail.CompareAndSwapAcqRel(tail, tail+1) {
		return false
	}
	slot := &r.buffer[tail&r.mask]
	sw := spin.Wait{}
	for slot.present.LoadAcquire() {
		sw.Once()
	}
	slot.data = v
	slot.present.StoreRelease(true)
	return true
}

// Dequeue removes and returns the oldest element. ok is false iff the
// ring was observed empty at the moment of the check.
func (r *Ring[T]) Dequeue() (v T, ok bool) {
	r.consumerMu.Lock()
	head := r.head.LoadAcquire()
	tail := r.tail.LoadAcquire()
	if head == tail {
		r.consumerMu.Unlock()
		var zero T
		return zero, false
	}
	r.head.StoreRelease(head + 1)
	r.consumerMu.Unlock()

	slot := &r.buffer[head&r.mask]
	sw := spin.Wait{}
	for !slot.present.LoadAcquire() {
		sw.Once()
	}
	out := slot.data
	var zero T
	slot.data = zero
	slot.present.StoreRelease(false)
	return out, true
}

// Cap returns the usable capacity (the number of elements the ring can
// hold without spinning).
func (r *Ring[T]) Cap() int {
	return int(r.size) - 1
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package substrate provides the concurrency substrate shared by
// hybscloud's servers and tools: a bounded MPMC ring queue ([Ring]), an
// intrusive MPMC LIFO stack ([Stack]), and a bounded MPMC pointer stack
// ([BoundedStack]).
//
// These three data structures are the foundation the sibling packages
// build on: code.hybscloud.com/substrate/workerpool uses a [BoundedStack]
// as its task backlog, and code.hybscloud.com/substrate/logrouter uses a
// [Ring] per queued sink.
//
// # Ring
//
// [Ring] is a fixed-capacity FIFO. Enqueue never fails for capacity
// reasons — callers are responsible for sizing the ring so "full" does
// not arise under intended load — it spins instead. It does reject a nil
// pointer, map, channel, func, interface, or slice outright, with
// [ErrInvalidArgument]. Dequeue returns ok=false iff the ring is observed
// empty at that moment.
//
//	r := substrate.NewRing[*Request](1024)
//	err := r.Enqueue(req)
//	v, ok := r.Dequeue()
//
// # Stack
//
// [Stack] is an intrusive LIFO over caller-owned nodes. The stack owns no
// node memory; a node may be linked at most once at a time. Pushes are
// lock-free; pops serialize through a consumer mutex to avoid the
// classic intrusive-stack ABA hazard (see the discussion on [Stack]).
//
//	s := substrate.NewStack[*Conn]()
//	n := substrate.NewNode(conn)
//	s.Push(n)
//	n, ok := s.Pop()
//
// # BoundedStack
//
// [BoundedStack] is a fixed-capacity LIFO of values, where full and empty
// are hard, returned errors rather than a spin — distinguishing it from
// [Ring].
//
//	b := substrate.NewBoundedStack[*Task](8192)
//	err := b.Push(t)
//	t, err := b.Pop()
//
// # Error Handling
//
// [Ring.Dequeue] reports emptiness with a boolean, matching the "dequeue
// returns None iff empty" contract. [BoundedStack.Push] and
// [BoundedStack.Pop] return real errors ([ErrFull], [ErrEmpty]) built on
// [code.hybscloud.com/iox] for ecosystem consistency with the rest of
// the hybscloud queueing stack. Both [Ring] and [BoundedStack] reject a
// nil value with [ErrInvalidArgument] before ever touching the backing
// slots.
//
// # Dependencies
//
// This package uses [code.hybscloud.com/iox] for semantic errors,
// [code.hybscloud.com/atomix] for atomic primitives with explicit memory
// ordering, and [code.hybscloud.com/spin] for CPU pause / backoff
// instructions inside CAS retry loops.
package substrate

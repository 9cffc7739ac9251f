// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package substrate

import (
	"sync"
	"sync/atomic"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
)

// Node is a caller-owned element of a [Stack]. The stack stores a payload
// of type T alongside the link and owns no node memory: callers allocate
// and free nodes themselves, embedding the payload by value via
// [NewNode].
//
// The link is a real atomic.Pointer rather than the raw next-pointer
// libam_lstack embeds in caller structs: Go's GC needs to see the link
// as a pointer or a node linked only via the stack (with no other live
// reference) could be collected out from under it. This is the one
// generic-vs-raw-pointer adaptation noted in DESIGN.md.
//
// A node must not be pushed while already linked into a stack; doing so
// is undefined, matching libam_lstack's caller contract.
type Node[T any] struct {
	next atomic.Pointer[Node[T]]
	data T
}

// NewNode allocates a node carrying data, ready to [Stack.Push].
func NewNode[T any](data T) *Node[T] {
	return &Node[T]{data: data}
}

// Data returns the payload carried by the node.
func (n *Node[T]) Data() T {
	return n.data
}

// Stack is an intrusive, multi-producer multi-consumer LIFO stack.
//
// Push is lock-free: it loads head, links the node, and CASes head from
// the observed value to the node, retrying on contention. Pop serializes
// through a consumer mutex rather than a naked CAS on head, because
// naked-CAS intrusive-stack pop is subject to the canonical ABA hazard —
// a thread that reads h.next, stalls, and wakes after h was popped,
// recycled by the caller, and pushed back with a different next would
// otherwise corrupt the stack. Single-consumer usage never contends the
// lock and is effectively lock-free.
type Stack[T any] struct {
	head       atomic.Pointer[Node[T]]
	size       atomix.Uint64
	consumerMu sync.Mutex
}

// NewStack creates an empty intrusive stack.
func NewStack[T any]() *Stack[T] {
	return &Stack[T]{}
}

// Push links n onto the stack. Concurrent pushes from multiple
// goroutines are safe and lock-free.
func (s *Stack[T]) Push(n *Node[T]) {
	sw := spin.Wait{}
	for {
		h := s.head.Load()
		n.next.Store(h)
		if s.head.CompareAndSwap(h, n) {
			s.size.AddAcqRel(1)
			return
		}
		sw.Once()
	}
}

// Pop removes and returns the most recently pushed node. ok is false iff
// the stack is empty.
func (s *Stack[T]) Pop() (n *Node[T], ok bool) {
	s.consumerMu.Lock()
	defer s.consumerMu.Unlock()

	h := s.head.Load()
	if h == nil {
		return nil, false
	}
	sw := spin.Wait{}
	for {
		next := h.next.Load()
		if s.head.CompareAndSwap(h, next) {
			h.next.Store(nil)
			s.size.AddAcqRel(^uint64(0)) // -1, wraps like a fetch-sub
			return h, true
		}
		sw.Once()
		h = s.head.Load()
		if h == nil {
			return nil, false
		}
	}
}

// Size returns the approximate number of linked nodes. Under concurrent
// mutation this is a snapshot, not a linearizable count.
func (s *Stack[T]) Size() int {
	return int(s.size.LoadAcquire())
}

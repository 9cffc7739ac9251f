// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package memarena is a hierarchical, size-bucketed allocation pool.
// Unlike libam_pool.c, which owns raw malloc'd memory, the Go GC
// already owns the backing storage: Alloc slices a freshly made []byte
// per chunk and Free recycles stepped-size chunks onto a per-bucket free
// list, keeping
// the original's magic-tagged header and address-derived guard bytes
// for the same use-after-free and overflow detection value rather than
// for manual memory management.
package memarena

import (
	"fmt"
	"sync"
	"unsafe"

	"code.hybscloud.com/substrate/stats"
)

// Flags configures a Pool at creation.
type Flags uint8

const (
	// ValidateOnFree runs the magic/guard-byte check on every chunk
	// crossing a Free or Alloc-from-freelist boundary. Off by default
	// since it walks up to maxValidate bytes per operation.
	ValidateOnFree Flags = 1 << iota
)

const (
	alignBits = 4
	align     = 1 << alignBits
	alignMask = align - 1

	stepCount    = 32
	maxStepped   = align * stepCount
	maxValidate  = 64
	halfValidate = maxValidate / 2
)

func alignSize(size uint32) uint32 {
	return (size + align - 1) &^ alignMask
}

// chunk is the bookkeeping header for one allocation. The data buffer
// is allocated separately (Go slices can't be grown in-place the way
// a C flexible array member can); magicPtr's guard derivation uses the
// header's own address, mirroring libam_pool.c's pointer-derived magic
// byte so two chunks never share a guard pattern by coincidence.
type chunk struct {
	name  string
	size  uint32 // requested size
	magic uint32
	data  []byte // len == aligned allocation size, front maxValidate/2 + back maxValidate/2 reserved as guard territory when validation is on
}

type bucket struct {
	mu         sync.Mutex
	elementSz  uint32 // 0 for the oversized bucket
	free       []*chunk
	used       map[uintptr]*chunk
	usedSize   stats.Distribution
	totalSize  stats.Distribution
	usedCount  stats.Distribution
	totalCount stats.Distribution
	totalBytes uint64
	totalElems uint64
}

func newBucket(elementSize uint32) *bucket {
	return &bucket{
		elementSz: elementSize,
		used:      make(map[uintptr]*chunk),
	}
}

func chunkKey(c *chunk) uintptr {
	return uintptr(unsafe.Pointer(&c.data[0]))
}

func (b *bucket) alloc(size uint32, name string, validate bool) *chunk {
	b.mu.Lock()
	var c *chunk
	if n := len(b.free); n > 0 {
		c = b.free[n-1]
		b.free = b.free[:n-1]
		if validate {
			checkGuard(c)
		}
	} else {
		allocSize := b.elementSz
		if allocSize == 0 {
			allocSize = alignSize(size)
		}
		c = &chunk{data: make([]byte, allocSize)}
		b.totalElems++
		b.totalBytes += uint64(allocSize)
		b.totalCount.Update(b.totalElems)
		b.totalSize.Update(b.totalBytes)
	}
	c.name = name
	c.size = size
	c.magic = poolMagic
	b.used[chunkKey(c)] = c
	b.usedCount.Update(uint64(len(b.used)))
	b.mu.Unlock()

	clear(c.data[:min(size, uint32(len(c.data)))])
	if validate {
		setGuard(c)
	}
	return c
}

func (b *bucket) free_(c *chunk, validate bool) {
	if validate {
		checkGuard(c)
	}
	b.mu.Lock()
	delete(b.used, chunkKey(c))
	b.usedCount.Update(uint64(len(b.used)))
	if b.elementSz > 0 {
		b.free = append(b.free, c)
	}
	b.mu.Unlock()
}

// poolMagic distinguishes live chunks across process runs; it is not
// a security boundary, only a coarse corruption/double-free tripwire.
var poolMagic = uint32(0xA55A3C3C)

func setGuard(c *chunk) {
	n := min((c.size+1)/2, halfValidate)
	for i := uint32(0); i < n; i++ {
		c.data[i] = guardByte(c, i)
	}
	for i := uint32(0); i < n; i++ {
		idx := c.size - n + i
		c.data[idx] = guardByte(c, idx)
	}
}

func checkGuard(c *chunk) {
	n := min((c.size+1)/2, halfValidate)
	for i := uint32(0); i < n; i++ {
		if c.data[i] != guardByte(c, i) {
			panic(fmt.Sprintf("memarena: guard corruption in chunk %q at offset %d", c.name, i))
		}
	}
}

func guardByte(c *chunk, offset uint32) byte {
	base := uintptr(unsafe.Pointer(&c.data[0])) + uintptr(offset)
	return byte(base*2654435761 + uintptr(c.magic))
}

// PoolDiag summarizes one pool in a Walk callback.
type PoolDiag struct {
	Name       string
	ParentName string
	Size       uint64
	Elements   uint64
}

// ElemDiag summarizes one live allocation in a WalkElems callback.
type ElemDiag struct {
	PoolName string
	Name     string
	Size     uint32
}

// Allocator is the interface a [Pool] implements, mirroring
// libam_pool.c's vtable so callers can depend on an interface instead
// of a concrete pool.
type Allocator interface {
	Alloc(size uint32, name string) ([]byte, error)
	Realloc(buf []byte, newSize uint32, name string) ([]byte, error)
	Free(buf []byte)
	Size() uint64
	PoolFree()
}

// Pool is a node in a tree of allocation pools. Each pool owns 32
// fixed-size "stepped" buckets (16, 32, ..., 512 bytes) plus one
// oversized bucket for anything larger, matching libam_pool.c's
// AMPOOL_STEP_COUNT/AMPOOL_ALIGN layout.
type Pool struct {
	mu       sync.RWMutex
	name     string
	flags    Flags
	parent   *Pool
	children []*Pool

	steps     [stepCount]*bucket
	oversized *bucket

	size    stats.Distribution // rolling byte-size footprint, not a running sum
	sizeRaw uint64
	elems   uint64
}

var _ Allocator = (*Pool)(nil)

// NewRoot creates a root pool with no parent.
func NewRoot(flags Flags) *Pool {
	return newPool(nil, flags, "root")
}

// Child creates a sub-pool of p. Destroying p cascades to destroy all
// children, per libam_pool.c's hierarchy semantics.
func (p *Pool) Child(flags Flags) *Pool {
	name := fmt.Sprintf("%s/child-%d", p.name, len(p.children)+1)
	child := newPool(p, flags, name)
	p.mu.Lock()
	p.children = append(p.children, child)
	p.mu.Unlock()
	return child
}

func newPool(parent *Pool, flags Flags, name string) *Pool {
	p := &Pool{name: name, flags: flags, parent: parent}
	for i := range p.steps {
		p.steps[i] = newBucket(uint32(i+1) * align)
	}
	p.oversized = newBucket(0)
	return p
}

func (p *Pool) bucketFor(size uint32) *bucket {
	aligned := alignSize(size)
	if aligned <= maxStepped {
		return p.steps[aligned>>alignBits-1]
	}
	return p.oversized
}

// Alloc returns a zeroed buffer of size bytes tracked by p, along with
// name for diagnostics. size == 0 returns ErrInvalidSize.
func (p *Pool) Alloc(size uint32, name string) ([]byte, error) {
	if size == 0 {
		return nil, ErrInvalidSize
	}
	b := p.bucketFor(size)
	c := b.alloc(size, name, p.flags&ValidateOnFree != 0)

	p.mu.Lock()
	p.sizeRaw += uint64(size)
	p.elems++
	p.size.Update(p.sizeRaw)
	p.mu.Unlock()

	return c.data[:size:size], nil
}

// Realloc grows or shrinks buf to newSize, copying the overlapping
// prefix and zeroing any newly exposed tail, then frees the original.
func (p *Pool) Realloc(buf []byte, newSize uint32, name string) ([]byte, error) {
	if buf == nil {
		return p.Alloc(newSize, name)
	}
	newBuf, err := p.Alloc(newSize, name)
	if err != nil {
		return nil, err
	}
	copy(newBuf, buf)
	p.Free(buf)
	return newBuf, nil
}

// Free returns buf to its bucket's free list; chunks from the oversized
// bucket are not recycled and are left to the GC. buf must have been
// returned by Alloc or Realloc on this exact pool.
func (p *Pool) Free(buf []byte) {
	if len(buf) == 0 {
		return
	}
	size := uint32(len(buf))
	b := p.bucketFor(size)

	key := uintptr(unsafe.Pointer(&buf[0]))
	b.mu.Lock()
	c, ok := b.used[key]
	b.mu.Unlock()
	if !ok {
		panic("memarena: free of untracked or already-freed buffer")
	}

	b.free_(c, p.flags&ValidateOnFree != 0)

	p.mu.Lock()
	p.sizeRaw -= uint64(size)
	p.elems--
	p.mu.Unlock()
}

// Size returns the total bytes currently allocated from p, excluding
// children, matching libam_pool.c's ampool_get_size "lineage doesn't
// count" note.
func (p *Pool) Size() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.sizeRaw
}

// PoolFree releases p and cascades to all children. p and its children
// must not be used afterward.
func (p *Pool) PoolFree() {
	p.mu.Lock()
	children := p.children
	p.children = nil
	parent := p.parent
	p.mu.Unlock()

	for _, c := range children {
		c.PoolFree()
	}
	if parent != nil {
		parent.mu.Lock()
		parent.children = removePool(parent.children, p)
		parent.mu.Unlock()
	}
}

func removePool(list []*Pool, target *Pool) []*Pool {
	out := list[:0]
	for _, p := range list {
		if p != target {
			out = append(out, p)
		}
	}
	return out
}

// Walk visits p and every descendant pool depth-first, stopping early
// if fn returns false. Concurrent Alloc/Free elsewhere in the tree may
// interleave with the walk; sizes observed are a snapshot per pool,
// not a single consistent point in time across the whole tree.
func (p *Pool) Walk(fn func(PoolDiag) bool) {
	p.mu.RLock()
	diag := PoolDiag{Name: p.name, Size: p.sizeRaw, Elements: p.elems}
	if p.parent != nil {
		diag.ParentName = p.parent.name
	}
	children := append([]*Pool(nil), p.children...)
	p.mu.RUnlock()

	if !fn(diag) {
		return
	}
	for _, c := range children {
		c.Walk(fn)
	}
}

// WalkElems visits every live allocation in p (not its children),
// stopping early if fn returns false.
func (p *Pool) WalkElems(fn func(ElemDiag) bool) {
	for i := range p.steps {
		if !walkBucketElems(p.name, p.steps[i], fn) {
			return
		}
	}
	walkBucketElems(p.name, p.oversized, fn)
}

func walkBucketElems(poolName string, b *bucket, fn func(ElemDiag) bool) bool {
	b.mu.Lock()
	elems := make([]ElemDiag, 0, len(b.used))
	for _, c := range b.used {
		elems = append(elems, ElemDiag{PoolName: poolName, Name: c.name, Size: c.size})
	}
	b.mu.Unlock()

	for _, e := range elems {
		if !fn(e) {
			return false
		}
	}
	return true
}

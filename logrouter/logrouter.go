// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package logrouter fans out log records to direct (synchronous
// callback) and queued (buffer handoff) sinks, with an optional relay
// goroutine so producers never run a slow direct callback. Grounded on
// the richer of the two duplicate designs spec.md §9 calls out as
// authoritative (direct+queued split, optional relay); the single
// surviving libam_log.c in original_source/ is the simpler draft used
// only for the package-level Default() convenience in default.go.
package logrouter

import (
	"fmt"
	"sync"
	"time"

	"code.hybscloud.com/substrate"
)

// Level is a log severity. Lower values are more severe — a sink with
// threshold Level L receives a record R iff L >= R.Level, i.e. the sink
// is at least as verbose as the record demands.
type Level uint64

// Conventional levels, per spec.md §6.
const (
	Critical Level = 0
	Error    Level = 1
	Warning  Level = 3
	Info     Level = 6
	Debug    Level = 10
)

// maxMessageLen bounds the formatted message length, per spec.md §4.5.
const maxMessageLen = 256

// Record is a single structured log entry, matching spec.md §3/§6's
// in-process wire format.
type Record struct {
	Timestamp     int64 // microseconds since epoch
	Level         Level
	Mask          uint64
	File          string
	Line          int32
	Message       [maxMessageLen]byte
	MessageLength int32
}

// Text returns the formatted message as a string.
func (r *Record) Text() string {
	return string(r.Message[:r.MessageLength])
}

// Flags configures a [Router].
type Flags uint8

const (
	// AbortOnError panics the calling goroutine at the failure site when
	// a queued sink's queues are backed up. Mutually exclusive with
	// BlockOnError.
	AbortOnError Flags = 1 << iota
	// BlockOnError spin-sleeps the calling goroutine until a queued
	// sink's queue state permits progress, instead of returning an
	// error. Mutually exclusive with AbortOnError.
	BlockOnError
	// UseRelay creates an internal queued sink whose drain goroutine
	// invokes all registered direct sinks, so producers calling Emit
	// never run a direct callback themselves.
	UseRelay
)

// Sink is a registered log consumer, returned by RegisterDirect and
// RegisterQueued.
type Sink struct {
	name     string
	userData any

	level atomicLevel
	mask  atomicUint64

	// direct
	callback func(Record)

	// queued
	in  *substrate.Ring[Record]
	out *substrate.Ring[Record]

	router *Router
}

// SetLevel updates the sink's level threshold live.
func (s *Sink) SetLevel(v Level) { s.level.store(v) }

// SetMask updates the sink's component mask live.
func (s *Sink) SetMask(v uint64) { s.mask.store(v) }

// Name returns the sink's registered name.
func (s *Sink) Name() string { return s.name }

// UserData returns the opaque user data supplied at registration.
func (s *Sink) UserData() any { return s.userData }

func (s *Sink) matches(r *Record) bool {
	level := s.level.load()
	mask := s.mask.load()
	if level < r.Level {
		return false
	}
	return mask == 0 || r.Mask == 0 || mask&r.Mask != 0
}

// Router fans out [Record]s to registered direct and queued sinks.
type Router struct {
	flags Flags

	mu     sync.RWMutex
	direct []*Sink
	queued []*Sink

	relay       *Sink
	relayIn     *substrate.Ring[Record]
	relayOut    *substrate.Ring[Record]
	relayDone   chan struct{}
	relayClosed bool
}

// New creates a Router. AbortOnError and BlockOnError are mutually
// exclusive; setting both returns [ErrConflictingFlags].
func New(flags Flags) (*Router, error) {
	if flags&AbortOnError != 0 && flags&BlockOnError != 0 {
		return nil, ErrConflictingFlags
	}
	r := &Router{flags: flags}
	if flags&UseRelay != 0 {
		r.startRelay()
	}
	return r, nil
}

const relayQueueDepth = 4096

func (r *Router) startRelay() {
	r.relayIn = substrate.NewRing[Record](relayQueueDepth)
	r.relayOut = substrate.NewRing[Record](relayQueueDepth)
	for i := 0; i < relayQueueDepth; i++ {
		_ = r.relayOut.Enqueue(Record{})
	}
	r.relayDone = make(chan struct{})

	r.mu.Lock()
	r.relay = &Sink{
		name:   "relay",
		in:     r.relayIn,
		out:    r.relayOut,
		router: r,
	}
	r.relay.level.store(Debug)
	r.queued = append(r.queued, r.relay)
	r.mu.Unlock()

	go r.relayLoop()
}

func (r *Router) relayLoop() {
	for {
		select {
		case <-r.relayDone:
			return
		default:
		}
		rec, ok := r.relayIn.Dequeue()
		if !ok {
			time.Sleep(time.Millisecond)
			continue
		}
		r.mu.RLock()
		direct := append([]*Sink(nil), r.direct...)
		r.mu.RUnlock()
		for _, s := range direct {
			if !s.matches(&rec) {
				continue
			}
			s.callback(rec)
		}
		_ = r.relayOut.Enqueue(rec)
	}
}

// Close signals the relay goroutine (if any) to stop and returns without
// waiting for it to exit. Records still in the relay's in-queue when it
// stops are not delivered to direct sinks. Registered sinks are not
// closed; their buffers remain owned by the sink's client.
func (r *Router) Close() {
	r.mu.Lock()
	if r.relayDone != nil && !r.relayClosed {
		r.relayClosed = true
		close(r.relayDone)
	}
	r.mu.Unlock()
}

// RegisterDirect registers a synchronous sink. cb is invoked with a copy
// of each matching record — on the relay goroutine if UseRelay is set,
// otherwise on the emitting goroutine.
func (r *Router) RegisterDirect(name string, cb func(Record), userData any) *Sink {
	s := &Sink{name: name, callback: cb, userData: userData, router: r}
	s.level.store(Info)
	r.mu.Lock()
	r.direct = append(r.direct, s)
	r.mu.Unlock()
	return s
}

// RegisterQueued registers a sink that receives records by buffer
// handoff: Emit dequeues a pre-allocated [Record] from out, copies the
// record into it, and enqueues it into in. in and out are owned by the
// caller; the router never allocates record buffers.
func (r *Router) RegisterQueued(name string, in, out *substrate.Ring[Record], userData any) *Sink {
	s := &Sink{name: name, in: in, out: out, userData: userData, router: r}
	s.level.store(Info)
	r.mu.Lock()
	r.queued = append(r.queued, s)
	r.mu.Unlock()
	return s
}

// Unregister detaches sink from the router. Its buffers (for queued
// sinks) remain owned by the caller.
func (r *Router) Unregister(sink *Sink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.direct = removeSink(r.direct, sink)
	r.queued = removeSink(r.queued, sink)
}

func removeSink(list []*Sink, target *Sink) []*Sink {
	out := list[:0]
	for _, s := range list {
		if s != target {
			out = append(out, s)
		}
	}
	return out
}

// Emit filters and delivers a record to every matching sink. The
// message is formatted from format/args exactly once, and only if at
// least one sink passes the level/mask filters.
func (r *Router) Emit(file string, line int32, level Level, mask uint64, format string, args ...any) {
	r.mu.RLock()
	direct := r.direct
	queued := r.queued
	r.mu.RUnlock()

	rec := Record{
		Timestamp: time.Now().UnixMicro(),
		Level:     level,
		Mask:      mask,
		File:      file,
		Line:      line,
	}

	anyMatch := false
	for _, s := range direct {
		if s.matches(&rec) {
			anyMatch = true
			break
		}
	}
	if !anyMatch {
		for _, s := range queued {
			if s.matches(&rec) {
				anyMatch = true
				break
			}
		}
	}
	if !anyMatch {
		return
	}

	msg := fmt.Sprintf(format, args...)
	if len(msg) > maxMessageLen {
		msg = msg[:maxMessageLen]
	}
	rec.MessageLength = int32(copy(rec.Message[:], msg))

	// When a relay is running, it is the sole caller of direct sinks'
	// callbacks (via its queued delivery through relayIn/relayOut) so
	// producers never run one themselves; calling them here too would
	// double-deliver every record.
	if r.flags&UseRelay == 0 {
		for _, s := range direct {
			if !s.matches(&rec) {
				continue
			}
			s.callback(rec)
		}
	}
	for _, s := range queued {
		if !s.matches(&rec) {
			continue
		}
		r.deliverQueued(s, rec)
	}
}

func (r *Router) deliverQueued(s *Sink, rec Record) {
	var buf Record
	for {
		var ok bool
		buf, ok = s.out.Dequeue()
		if ok {
			break
		}
		switch {
		case r.flags&AbortOnError != 0:
			panic(fmt.Sprintf("logrouter: sink %q out-queue exhausted", s.name))
		case r.flags&BlockOnError != 0:
			time.Sleep(time.Microsecond)
			continue
		default:
			return
		}
	}
	buf = rec
	for !s.in.TryEnqueue(buf) {
		switch {
		case r.flags&AbortOnError != 0:
			panic(fmt.Sprintf("logrouter: sink %q in-queue full", s.name))
		case r.flags&BlockOnError != 0:
			time.Sleep(time.Microsecond)
			continue
		default:
			// Drop: return the buffer to out-queue so ownership is
			// preserved (property 10), then give up on delivery.
			_ = s.out.Enqueue(buf)
			return
		}
	}
}

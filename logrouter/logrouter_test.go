// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logrouter_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/substrate"
	"code.hybscloud.com/substrate/logrouter"
)

// S6: a direct sink with level=Debug, mask=0 receives exactly the
// records with level <= Debug.
func TestDirectSinkFiltering(t *testing.T) {
	r, err := logrouter.New(0)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer r.Close()

	var mu sync.Mutex
	var received []logrouter.Record
	s := r.RegisterDirect("counter", func(rec logrouter.Record) {
		mu.Lock()
		received = append(received, rec)
		mu.Unlock()
	}, nil)
	s.SetLevel(logrouter.Debug)

	for i := 0; i < 100; i++ {
		r.Emit("f.go", 1, logrouter.Level(i), 0, "record %d", i)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(received) != 11 {
		t.Fatalf("received %d records, want 11 (levels 0..10)", len(received))
	}
	for _, rec := range received {
		if rec.Level > logrouter.Debug {
			t.Fatalf("received record with level %d > Debug", rec.Level)
		}
	}
}

func TestMaskFiltering(t *testing.T) {
	r, err := logrouter.New(0)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer r.Close()

	var count int
	var mu sync.Mutex
	s := r.RegisterDirect("masked", func(logrouter.Record) {
		mu.Lock()
		count++
		mu.Unlock()
	}, nil)
	s.SetMask(0b0010)

	r.Emit("f.go", 1, logrouter.Info, 0b0001, "no match")
	r.Emit("f.go", 1, logrouter.Info, 0b0010, "match")
	r.Emit("f.go", 1, logrouter.Info, 0, "broadcast record")

	mu.Lock()
	defer mu.Unlock()
	if count != 2 {
		t.Fatalf("count = %d, want 2 (one mask match, one record-mask-0 broadcast)", count)
	}
}

// S7 (scaled down): a relay-backed router with a direct counting sink
// and a queued sink; after draining, direct count equals queued count,
// and every queued buffer returns to its out-queue.
func TestRelayDeliversToDirectAndQueued(t *testing.T) {
	const n = 2000
	const queueDepth = 256

	r, err := logrouter.New(logrouter.UseRelay | logrouter.BlockOnError)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer r.Close()

	var directCount int64
	var mu sync.Mutex
	r.RegisterDirect("direct", func(logrouter.Record) {
		mu.Lock()
		directCount++
		mu.Unlock()
	}, nil)

	in := substrate.NewRing[logrouter.Record](queueDepth)
	out := substrate.NewRing[logrouter.Record](queueDepth)
	for i := 0; i < queueDepth; i++ {
		_ = out.Enqueue(logrouter.Record{})
	}
	sink := r.RegisterQueued("queued", in, out, nil)
	_ = sink

	var queuedCount int64
	stop := make(chan struct{})
	var drainWg sync.WaitGroup
	drainWg.Add(1)
	go func() {
		defer drainWg.Done()
		for {
			select {
			case <-stop:
				// Drain whatever remains before exiting.
				for {
					_, ok := in.Dequeue()
					if !ok {
						return
					}
					queuedCount++
					_ = out.Enqueue(logrouter.Record{})
				}
			default:
			}
			rec, ok := in.Dequeue()
			if !ok {
				time.Sleep(time.Millisecond)
				continue
			}
			queuedCount++
			_ = out.Enqueue(rec)
		}
	}()

	for i := 0; i < n; i++ {
		r.Emit("f.go", int32(i), logrouter.Info, 0, "record %d", i)
	}

	deadline := time.Now().Add(5 * time.Second)
	for {
		mu.Lock()
		d := directCount
		mu.Unlock()
		if d >= n && queuedCount >= n {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("timeout: direct=%d queued=%d, want both %d", d, queuedCount, n)
		}
		time.Sleep(time.Millisecond)
	}
	close(stop)
	drainWg.Wait()

	mu.Lock()
	d := directCount
	mu.Unlock()
	if d != n {
		t.Fatalf("directCount = %d, want %d", d, n)
	}
	if queuedCount != n {
		t.Fatalf("queuedCount = %d, want %d", queuedCount, n)
	}
	if out.Cap() < queueDepth-1 {
		t.Fatalf("out ring capacity corrupted: %d", out.Cap())
	}
	returned := 0
	for {
		if _, ok := out.Dequeue(); !ok {
			break
		}
		returned++
	}
	if returned != queueDepth {
		t.Fatalf("out-queue holds %d buffers after drain, want %d", returned, queueDepth)
	}
}

func TestConflictingFlagsRejected(t *testing.T) {
	if _, err := logrouter.New(logrouter.AbortOnError | logrouter.BlockOnError); err == nil {
		t.Fatal("New() with both AbortOnError and BlockOnError succeeded, want error")
	}
}

func TestUnregisterStopsDelivery(t *testing.T) {
	r, err := logrouter.New(0)
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer r.Close()

	var count int
	var mu sync.Mutex
	s := r.RegisterDirect("temp", func(logrouter.Record) {
		mu.Lock()
		count++
		mu.Unlock()
	}, nil)

	r.Emit("f.go", 1, logrouter.Info, 0, "one")
	r.Unregister(s)
	r.Emit("f.go", 2, logrouter.Info, 0, "two")

	mu.Lock()
	defer mu.Unlock()
	if count != 1 {
		t.Fatalf("count = %d, want 1 (second record delivered after unregister)", count)
	}
}

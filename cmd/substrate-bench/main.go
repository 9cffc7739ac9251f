// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Command substrate-bench is a small diagnostic CLI exercising
// Ring, Stack, BoundedStack, workerpool, and logrouter under
// configurable concurrency, for manual verification of the testable
// properties documented for each component.
package main

import (
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/agilira/flash-flags"

	"code.hybscloud.com/substrate"
	"code.hybscloud.com/substrate/logrouter"
	"code.hybscloud.com/substrate/workerpool"
)

func main() {
	fs := flashflags.New("substrate-bench")
	mode := fs.String("mode", "ring", "which component to exercise: ring, stack, boundedstack, workerpool, logrouter")
	producers := fs.Int("producers", 4, "number of producer goroutines")
	consumers := fs.Int("consumers", 4, "number of consumer goroutines")
	perProducer := fs.Int("per-producer", 100000, "items enqueued per producer")
	capacity := fs.Int("capacity", 4096, "ring/bounded-stack capacity")

	if err := fs.Parse(os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	switch *mode {
	case "ring":
		runRing(*producers, *consumers, *perProducer, *capacity)
	case "stack":
		runStack(*producers, *consumers, *perProducer)
	case "boundedstack":
		runBoundedStack(*producers, *consumers, *perProducer, *capacity)
	case "workerpool":
		runWorkerPool(*producers, *perProducer)
	case "logrouter":
		runLogRouter(*producers, *perProducer)
	default:
		fmt.Fprintf(os.Stderr, "unknown -mode %q\n", *mode)
		os.Exit(2)
	}
}

func runRing(producers, consumers, perProducer, capacity int) {
	r := substrate.NewRing[int](capacity)
	total := producers * perProducer
	var consumed int64
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				_ = r.Enqueue(j)
			}
		}()
	}
	var cwg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for atomic.LoadInt64(&consumed) < int64(total) {
				if _, ok := r.Dequeue(); ok {
					atomic.AddInt64(&consumed, 1)
				}
			}
		}()
	}
	wg.Wait()
	cwg.Wait()
	fmt.Printf("ring: %d items via %d producers / %d consumers in %s\n", total, producers, consumers, time.Since(start))
}

func runStack(producers, consumers, perProducer int) {
	s := substrate.NewStack[int]()
	total := producers * perProducer
	var consumed int64
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				s.Push(substrate.NewNode(j))
			}
		}()
	}
	var cwg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for atomic.LoadInt64(&consumed) < int64(total) {
				if _, ok := s.Pop(); ok {
					atomic.AddInt64(&consumed, 1)
				}
			}
		}()
	}
	wg.Wait()
	cwg.Wait()
	fmt.Printf("stack: %d items via %d producers / %d consumers in %s\n", total, producers, consumers, time.Since(start))
}

func runBoundedStack(producers, consumers, perProducer, capacity int) {
	b := substrate.NewBoundedStack[int](capacity)
	total := producers * perProducer
	var consumed int64
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < producers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perProducer; j++ {
				for b.Push(j) != nil {
				}
			}
		}()
	}
	var cwg sync.WaitGroup
	for i := 0; i < consumers; i++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for atomic.LoadInt64(&consumed) < int64(total) {
				if _, err := b.Pop(); err == nil {
					atomic.AddInt64(&consumed, 1)
				}
			}
		}()
	}
	wg.Wait()
	cwg.Wait()
	fmt.Printf("boundedstack: %d items via %d producers / %d consumers in %s\n", total, producers, consumers, time.Since(start))
}

func runWorkerPool(workers, tasks int) {
	p := workerpool.New(workerpool.Config{MinThreads: workers, MaxThreads: workers})
	start := time.Now()
	var wg sync.WaitGroup
	for i := 0; i < tasks; i++ {
		wg.Add(1)
		ret, err := p.Run(func(arg any) any {
			defer wg.Done()
			return arg
		}, i)
		if err != nil {
			wg.Done()
			continue
		}
		go func() { <-ret }()
	}
	wg.Wait()
	stats := p.Destroy()
	fmt.Printf("workerpool: %d tasks across %d workers in %s (created %d threads)\n", tasks, workers, time.Since(start), stats.ThreadsCreated)
}

func runLogRouter(sinks, records int) {
	r, err := logrouter.New(0)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer r.Close()

	var count int64
	for i := 0; i < sinks; i++ {
		r.RegisterDirect(fmt.Sprintf("sink-%d", i), func(logrouter.Record) {
			atomic.AddInt64(&count, 1)
		}, nil)
	}
	start := time.Now()
	for i := 0; i < records; i++ {
		r.Emit("bench.go", int32(i), logrouter.Info, 0, "record %d", i)
	}
	fmt.Printf("logrouter: %d records fanned out to %d sinks (%d deliveries) in %s\n", records, sinks, count, time.Since(start))
}

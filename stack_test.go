// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package substrate_test

import (
	"sort"
	"sync"
	"testing"

	"code.hybscloud.com/substrate"
)

// S3 (single producer/consumer slice): push a,b,c then pop returns c,b,a.
func TestStackLIFOSingleThread(t *testing.T) {
	s := substrate.NewStack[string]()
	a, b, c := substrate.NewNode("a"), substrate.NewNode("b"), substrate.NewNode("c")
	s.Push(a)
	s.Push(b)
	s.Push(c)

	for _, want := range []string{"c", "b", "a"} {
		n, ok := s.Pop()
		if !ok || n.Data() != want {
			t.Fatalf("Pop() = %v, want %q", n, want)
		}
	}
	if _, ok := s.Pop(); ok {
		t.Fatalf("Pop() on empty stack returned ok=true")
	}
}

func TestStackSize(t *testing.T) {
	s := substrate.NewStack[int]()
	for i := 0; i < 5; i++ {
		s.Push(substrate.NewNode(i))
	}
	if got := s.Size(); got != 5 {
		t.Fatalf("Size() = %d, want 5", got)
	}
	s.Pop()
	if got := s.Size(); got != 4 {
		t.Fatalf("Size() after one Pop() = %d, want 4", got)
	}
}

// Conservation under MPMC: N pushes and M pops on a shared stack leave
// popped nodes as a subset of pushed nodes with no duplicates.
func TestStackMPMCConservation(t *testing.T) {
	if substrate.RaceEnabled {
		t.Skip("linearizability stress test not meaningful under -race")
	}
	const (
		numProducers = 8
		numConsumers = 8
		perProducer  = 4096
	)
	s := substrate.NewStack[int]()

	var wg sync.WaitGroup
	wg.Add(numProducers)
	for p := 0; p < numProducers; p++ {
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				s.Push(substrate.NewNode(p*perProducer + i))
			}
		}(p)
	}
	wg.Wait()

	total := numProducers * perProducer
	results := make(chan []int, numConsumers)
	var consumed int64
	var mu sync.Mutex

	var cwg sync.WaitGroup
	cwg.Add(numConsumers)
	for c := 0; c < numConsumers; c++ {
		go func() {
			defer cwg.Done()
			var local []int
			for {
				n, ok := s.Pop()
				if !ok {
					mu.Lock()
					done := consumed >= int64(total)
					mu.Unlock()
					if done {
						results <- local
						return
					}
					continue
				}
				local = append(local, n.Data())
				mu.Lock()
				consumed++
				mu.Unlock()
			}
		}()
	}
	cwg.Wait()
	close(results)

	var all []int
	for local := range results {
		all = append(all, local...)
	}
	if len(all) != total {
		t.Fatalf("conservation violated: consumed %d, want %d", len(all), total)
	}
	sort.Ints(all)
	for i, v := range all {
		if v != i {
			t.Fatalf("conservation violated at index %d: got %d, want %d", i, v, i)
		}
	}
	if s.Size() != 0 {
		t.Fatalf("Size() = %d after full drain, want 0", s.Size())
	}
}

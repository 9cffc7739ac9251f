// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workerpool_test

import (
	"sync"
	"testing"
	"time"

	"code.hybscloud.com/substrate/workerpool"
)

// S4: without a default function, a nil-func Run fails; a Run with a
// function succeeds; after setting a default, nil-func Run succeeds.
func TestRunDefaultFuncOverrideRule(t *testing.T) {
	p := workerpool.New(workerpool.Config{MinThreads: 2})
	defer p.Destroy()

	if _, err := p.Run(nil, nil); err == nil {
		t.Fatal("Run(nil, ...) with no default succeeded, want error")
	}

	done := make(chan struct{})
	if _, err := p.Run(func(any) any { close(done); return nil }, nil); err != nil {
		t.Fatalf("Run(fn, ...) = %v, want nil", err)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task never executed")
	}

	p.SetDefaultFunc(func(any) any { return 42 })
	ret, err := p.Run(nil, nil)
	if err != nil {
		t.Fatalf("Run(nil, ...) after SetDefaultFunc = %v, want nil", err)
	}
	select {
	case v := <-ret:
		if v != 42 {
			t.Fatalf("return value = %v, want 42", v)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("default task never executed")
	}

	stats := p.Destroy()
	if stats.TasksCreated != 2 {
		t.Fatalf("TasksCreated = %d, want 2", stats.TasksCreated)
	}
}

// Run with a non-nil func when a default is set and AllowOverride is
// false must be rejected.
func TestRunOverrideRejectedWithoutFlag(t *testing.T) {
	p := workerpool.New(workerpool.Config{
		MinThreads:  1,
		DefaultFunc: func(any) any { return nil },
	})
	defer p.Destroy()

	if _, err := p.Run(func(any) any { return nil }, nil); err == nil {
		t.Fatal("Run with override func succeeded without AllowOverride, want error")
	}
}

func TestRunOverrideAllowed(t *testing.T) {
	p := workerpool.New(workerpool.Config{
		MinThreads:    1,
		DefaultFunc:   func(any) any { return "default" },
		AllowOverride: true,
	})
	defer p.Destroy()

	ret, err := p.Run(func(any) any { return "override" }, nil)
	if err != nil {
		t.Fatalf("Run with override = %v, want nil", err)
	}
	if v := <-ret; v != "override" {
		t.Fatalf("return = %v, want override", v)
	}
}

// S5 (scaled down): min=4 max=4 backlog large, one submitter submits N
// tasks; after destroy, TasksCreated = N and BusyStreak sum = N.
func TestRunCapacityAndStats(t *testing.T) {
	const n = 2048
	p := workerpool.New(workerpool.Config{
		MinThreads: 4,
		MaxThreads: 4,
		Backlog:    n + 8,
	})

	var wg sync.WaitGroup
	wg.Add(n)
	for i := 0; i < n; i++ {
		ret, err := p.Run(func(any) any { wg.Done(); return nil }, nil)
		if err != nil {
			t.Fatalf("Run() iteration %d = %v, want nil", i, err)
		}
		_ = ret
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		t.Fatal("not all tasks completed in time")
	}

	stats := p.Destroy()
	if stats.TasksCreated != n {
		t.Fatalf("TasksCreated = %d, want %d", stats.TasksCreated, n)
	}
	if stats.BusyStreak.Sum != n {
		t.Fatalf("BusyStreak.Sum = %d, want %d", stats.BusyStreak.Sum, n)
	}
	if stats.ThreadsCreated < 4 {
		t.Fatalf("ThreadsCreated = %d, want >= 4", stats.ThreadsCreated)
	}
}

func TestRunAfterDestroyIsDrained(t *testing.T) {
	p := workerpool.New(workerpool.Config{MinThreads: 1})
	p.Destroy()

	if _, err := p.Run(func(any) any { return nil }, nil); err == nil {
		t.Fatal("Run() after Destroy() succeeded, want ErrDrained")
	}
}

// Property 7: active threads never exceed MaxThreads.
func TestAutoscalingRespectsMax(t *testing.T) {
	p := workerpool.New(workerpool.Config{MinThreads: 1, MaxThreads: 3, Backlog: 64})
	defer p.Destroy()

	block := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		_, err := p.Run(func(any) any {
			defer wg.Done()
			<-block
			return nil
		}, nil)
		if err != nil {
			t.Fatalf("Run() = %v", err)
		}
	}
	time.Sleep(100 * time.Millisecond)
	if got := p.ThreadCount(); got > 3 {
		t.Fatalf("ThreadCount() = %d, want <= 3", got)
	}
	close(block)
	wg.Wait()
}

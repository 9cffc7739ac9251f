// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package workerpool provides an elastic worker pool scheduling
// caller-supplied tasks onto goroutines, with autoscaling and idle
// teardown, ported from libam_thread_pool.c.
package workerpool

import (
	"sync"
	"sync/atomic"
	"time"

	"code.hybscloud.com/substrate"
	"code.hybscloud.com/substrate/stats"
)

// TaskFunc is a caller-supplied unit of work. arg is passed through
// unchanged; the returned value, if any, is delivered on the channel
// returned by [Pool.Run].
type TaskFunc func(arg any) any

// Config configures a [Pool]. Zero values for PollFreq, Backlog, and
// MinThreads fall back to sensible defaults, matching
// lam_thread_pool_config_t's "0 for default value" fields; a zero
// IdleTimeout disables idle teardown instead.
type Config struct {
	MinThreads int
	MaxThreads int // 0 means unbounded
	PollFreq   time.Duration
	IdleTimeout time.Duration // 0 means idle workers never time out
	Backlog     int

	DefaultFunc TaskFunc

	// LazyStart defers spawning MinThreads workers until the first Run.
	LazyStart bool
	// AllowOverride permits Run(fn, ...) with fn != nil even when
	// DefaultFunc is also set (LIBAM_THREAD_POOL_FUNC_OVERRIDE).
	AllowOverride bool
	// Blocking switches idle workers from polling PollFreq to waiting on
	// a condition variable signaled by Run (LIBAM_THREAD_POOL_BLOCKING):
	// better idle CPU usage and lower task latency, at the cost of a
	// little latency on every task's wakeup.
	Blocking bool
}

const (
	defaultPollFreq    = 10 * time.Millisecond
	defaultBacklog     = 1024
	defaultMinThreads  = 1
)

// Stats is returned by [Pool.Destroy], assembling the distributions
// lam_thread_pool_stats_t exposes.
type Stats struct {
	ThreadsCreated uint64
	TasksCreated   uint64

	ActiveThreadCount stats.Distribution
	IdleThreadCount   stats.Distribution
	TaskDelay         stats.Distribution
	TasksProcessed    stats.Distribution
	BusyStreak        stats.Distribution
	QueueDepth        stats.Distribution
}

type task struct {
	id       uint64
	fn       TaskFunc
	arg      any
	ret      chan any
	enqueued int64 // unix micros
	snapshot snapshot
}

type snapshot struct {
	activeThreads int64
	idleThreads   int64
	queueDepth    int
}

// Pool is an elastic worker pool. The zero value is not usable; create
// one with [New].
type Pool struct {
	mu  sync.Mutex // guards Config's live-tunable fields
	cfg Config

	backlog *substrate.BoundedStack[*task]

	threadsCreated   atomic.Uint64
	threadsDestroyed atomic.Uint64
	tasksCreated     atomic.Uint64
	activeThreads    atomic.Int64
	idleThreads      atomic.Int64

	statsMu sync.Mutex
	stats   Stats

	draining atomic.Bool
	wg       sync.WaitGroup

	wakeMu sync.Mutex
	wakeCh chan struct{} // closed-and-replaced to broadcast in Blocking mode

	nextTaskID atomic.Uint64
}

// New creates a Pool. Unless Config.LazyStart is set, MinThreads workers
// are spawned immediately.
func New(cfg Config) *Pool {
	if cfg.PollFreq <= 0 {
		cfg.PollFreq = defaultPollFreq
	}
	if cfg.Backlog <= 0 {
		cfg.Backlog = defaultBacklog
	}
	if cfg.MinThreads <= 0 {
		cfg.MinThreads = defaultMinThreads
	}

	p := &Pool{
		cfg:     cfg,
		backlog: substrate.NewBoundedStack[*task](cfg.Backlog),
		wakeCh:  make(chan struct{}),
	}
	p.stats.ActiveThreadCount = stats.NewDistribution()
	p.stats.IdleThreadCount = stats.NewDistribution()
	p.stats.TaskDelay = stats.NewDistribution()
	p.stats.TasksProcessed = stats.NewDistribution()
	p.stats.BusyStreak = stats.NewDistribution()
	p.stats.QueueDepth = stats.NewDistribution()

	if !cfg.LazyStart {
		for i := 0; i < cfg.MinThreads; i++ {
			p.spawn()
		}
	}
	return p
}

func (p *Pool) spawn() {
	p.threadsCreated.Add(1)
	p.activeThreads.Add(1)
	id := p.threadsCreated.Load()
	p.wg.Add(1)
	go p.workerLoop(id)
}

// wake broadcasts to any worker waiting in Blocking mode.
func (p *Pool) wake() {
	if !p.cfg.Blocking {
		return
	}
	p.wakeMu.Lock()
	close(p.wakeCh)
	p.wakeCh = make(chan struct{})
	p.wakeMu.Unlock()
}

// Run enqueues a task. If fn is nil the pool's DefaultFunc is used; if
// fn is non-nil and DefaultFunc is set, AllowOverride must be set or Run
// fails, matching LIBAM_THREAD_POOL_FUNC_OVERRIDE. A failed Run enqueues
// nothing. The returned channel delivers the task's return value exactly
// once and is nil if Run fails.
func (p *Pool) Run(fn TaskFunc, arg any) (<-chan any, error) {
	if p.draining.Load() {
		return nil, ErrDrained
	}

	p.mu.Lock()
	def := p.cfg.DefaultFunc
	allowOverride := p.cfg.AllowOverride
	p.mu.Unlock()

	if fn == nil {
		if def == nil {
			return nil, ErrInvalidArgument
		}
		fn = def
	} else if def != nil && !allowOverride {
		return nil, ErrInvalidArgument
	}

	if p.idleThreads.Load() == 0 {
		p.maybeSpawn()
	}

	t := &task{
		id:       p.nextTaskID.Add(1),
		fn:       fn,
		arg:      arg,
		ret:      make(chan any, 1),
		enqueued: time.Now().UnixMicro(),
		snapshot: snapshot{
			activeThreads: p.activeThreads.Load(),
			idleThreads:   p.idleThreads.Load(),
			queueDepth:    p.backlog.Size(),
		},
	}
	if err := p.backlog.Push(t); err != nil {
		return nil, ErrQueueFull
	}
	p.tasksCreated.Add(1)
	p.wake()
	return t.ret, nil
}

func (p *Pool) maybeSpawn() {
	p.mu.Lock()
	max := p.cfg.MaxThreads
	p.mu.Unlock()
	if p.draining.Load() {
		return
	}
	if max > 0 && p.activeThreads.Load() >= int64(max) {
		return
	}
	p.spawn()
}

func (p *Pool) workerLoop(id uint64) {
	defer p.wg.Done()

	busyStreak := uint64(0)
	processed := uint64(0)
	isIdle := false
	lastWork := time.Now()

	flushBusyStreak := func() {
		if busyStreak > 0 {
			p.statsMu.Lock()
			p.stats.BusyStreak.Update(busyStreak)
			p.statsMu.Unlock()
			busyStreak = 0
		}
	}

	for {
		t, err := p.backlog.Pop()
		if err == nil {
			if isIdle {
				p.idleThreads.Add(-1)
				isIdle = false
			}
			delay := uint64(0)
			now := time.Now().UnixMicro()
			if now > t.enqueued {
				delay = uint64(now - t.enqueued)
			}
			p.statsMu.Lock()
			p.stats.TaskDelay.Update(delay)
			p.stats.ActiveThreadCount.Update(uint64(t.snapshot.activeThreads))
			p.stats.IdleThreadCount.Update(uint64(t.snapshot.idleThreads))
			p.stats.QueueDepth.Update(uint64(t.snapshot.queueDepth))
			p.statsMu.Unlock()

			ret := t.fn(t.arg)
			if t.ret != nil {
				t.ret <- ret
				close(t.ret)
			}
			busyStreak++
			processed++
			lastWork = time.Now()
			continue
		}

		flushBusyStreak()
		if !isIdle {
			p.idleThreads.Add(1)
			isIdle = true
		}

		if p.draining.Load() {
			break
		}

		p.mu.Lock()
		idleTimeout := p.cfg.IdleTimeout
		minThreads := p.cfg.MinThreads
		blocking := p.cfg.Blocking
		pollFreq := p.cfg.PollFreq
		p.mu.Unlock()

		if idleTimeout > 0 && time.Since(lastWork) >= idleTimeout && int64(id) > int64(minThreads) {
			break
		}

		if blocking {
			p.wakeMu.Lock()
			ch := p.wakeCh
			p.wakeMu.Unlock()
			select {
			case <-ch:
			case <-time.After(pollFreq):
			}
		} else {
			time.Sleep(pollFreq)
		}
	}

	flushBusyStreak()
	p.statsMu.Lock()
	p.stats.TasksProcessed.Update(processed)
	p.statsMu.Unlock()

	if isIdle {
		p.idleThreads.Add(-1)
	}
	p.activeThreads.Add(-1)
	p.threadsDestroyed.Add(1)
}

// Destroy signals drain, waits for every worker to exit, and returns the
// accumulated stats. Queued-but-unstarted tasks are executed before
// shutdown if a worker pops them; otherwise they are never run — this is
// documented leaked-work behavior, not a bug, matching spec.md §4.4.
func (p *Pool) Destroy() Stats {
	p.draining.Store(true)
	p.wake()
	p.wg.Wait()

	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	p.stats.ThreadsCreated = p.threadsCreated.Load()
	p.stats.TasksCreated = p.tasksCreated.Load()
	return p.stats
}

// ThreadCount returns the current number of active (alive) worker
// goroutines.
func (p *Pool) ThreadCount() int { return int(p.activeThreads.Load()) }

// IdleThreadCount returns the current number of idle worker goroutines.
func (p *Pool) IdleThreadCount() int { return int(p.idleThreads.Load()) }

// SetMinThreads updates the minimum thread count live.
func (p *Pool) SetMinThreads(n int) error {
	if n < 0 {
		return ErrInvalidArgument
	}
	p.mu.Lock()
	p.cfg.MinThreads = n
	p.mu.Unlock()
	return nil
}

// SetMaxThreads updates the maximum thread count live (0 = unbounded).
func (p *Pool) SetMaxThreads(n int) {
	p.mu.Lock()
	p.cfg.MaxThreads = n
	p.mu.Unlock()
}

// SetIdleTimeout updates the idle timeout live.
func (p *Pool) SetIdleTimeout(d time.Duration) {
	p.mu.Lock()
	p.cfg.IdleTimeout = d
	p.mu.Unlock()
}

// SetDefaultFunc updates the default task function live.
func (p *Pool) SetDefaultFunc(fn TaskFunc) {
	p.mu.Lock()
	p.cfg.DefaultFunc = fn
	p.mu.Unlock()
}

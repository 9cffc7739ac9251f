// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package acceptor dispatches accepted connections to a queue, an
// ad hoc goroutine, or a [workerpool.Pool]. libam_server.c drove its
// accept loop off a raw epoll set with a fixed MAX_EVENTS and TODOs
// acknowledging the epoll-based readiness plumbing was incomplete;
// here each [net.Listener] gets its own Accept goroutine and Go's
// netpoller stands in as the portable readiness abstraction the
// original wanted, fanning accepted connections into one dispatch
// goroutine per acceptor.
package acceptor

import (
	"context"
	"net"
	"sync"

	"code.hybscloud.com/substrate"
	"code.hybscloud.com/substrate/workerpool"
)

// Disposition selects how an accepted connection is handed off.
type Disposition int

const (
	// ToQueue enqueues accepted connections onto Config.Queue.
	ToQueue Disposition = iota
	// ToThread spawns one goroutine per connection running Config.ThreadFunc.
	ToThread
	// ToPool schedules Config.PoolFunc on Config.Pool for each connection.
	ToPool
)

// Policy controls how Start's accept loop reacts to a non-transient
// Accept error, mirroring AMSERVER_ABORT_ON_ERRORS/AMSERVER_STOP_ON_ERRORS.
type Policy int

const (
	// Abort panics the listener's accept goroutine.
	Abort Policy = iota
	// Stop ends the listener's accept goroutine but leaves the others running.
	Stop
	// Continue logs nothing and retries the next Accept call.
	Continue
)

// Config configures an Acceptor. Exactly the fields relevant to
// Disposition need to be set.
type Config struct {
	Listeners     []net.Listener
	Disposition   Disposition
	Queue         *substrate.Ring[net.Conn] // ToQueue
	ThreadFunc    func(net.Conn)            // ToThread
	Pool          *workerpool.Pool          // ToPool
	PoolFunc      workerpool.TaskFunc       // ToPool
	OnAcceptError func(error) Policy        // nil means Continue
}

// Acceptor runs one Accept loop per configured listener, funneling
// accepted connections through a single dispatch goroutine.
type Acceptor struct {
	cfg Config

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup

	conns chan net.Conn
}

// New validates cfg and returns an Acceptor. It does not start accepting.
func New(cfg Config) (*Acceptor, error) {
	if len(cfg.Listeners) == 0 {
		return nil, ErrNoListeners
	}
	switch cfg.Disposition {
	case ToQueue:
		if cfg.Queue == nil {
			return nil, ErrInvalidConfig
		}
	case ToThread:
		if cfg.ThreadFunc == nil {
			return nil, ErrInvalidConfig
		}
	case ToPool:
		if cfg.Pool == nil || cfg.PoolFunc == nil {
			return nil, ErrInvalidConfig
		}
	default:
		return nil, ErrInvalidConfig
	}
	return &Acceptor{cfg: cfg, conns: make(chan net.Conn, 64)}, nil
}

// Start begins accepting on every configured listener. Start is not
// safe to call concurrently with itself or Stop.
func (a *Acceptor) Start() {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel
	a.running = true
	a.mu.Unlock()

	for _, l := range a.cfg.Listeners {
		a.wg.Add(1)
		go a.acceptLoop(ctx, l)
	}
	a.wg.Add(1)
	go a.dispatchLoop(ctx)
}

// Stop ends all accept and dispatch goroutines and waits for them to
// exit. Listeners are closed so blocked Accept calls unblock promptly.
func (a *Acceptor) Stop() {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return
	}
	a.running = false
	cancel := a.cancel
	a.mu.Unlock()

	cancel()
	for _, l := range a.cfg.Listeners {
		l.Close()
	}
	a.wg.Wait()
}

func (a *Acceptor) acceptLoop(ctx context.Context, l net.Listener) {
	defer a.wg.Done()
	for {
		conn, err := l.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return
			default:
			}
			policy := Continue
			if a.cfg.OnAcceptError != nil {
				policy = a.cfg.OnAcceptError(err)
			}
			switch policy {
			case Abort:
				panic(err)
			case Stop:
				return
			default:
				continue
			}
		}
		select {
		case a.conns <- conn:
		case <-ctx.Done():
			conn.Close()
			return
		}
	}
}

func (a *Acceptor) dispatchLoop(ctx context.Context) {
	defer a.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case conn := <-a.conns:
			a.dispatch(ctx, conn)
		}
	}
}

func (a *Acceptor) dispatch(ctx context.Context, conn net.Conn) {
	switch a.cfg.Disposition {
	case ToQueue:
		if err := a.cfg.Queue.EnqueueContext(ctx, conn); err != nil {
			conn.Close()
		}
	case ToThread:
		go a.cfg.ThreadFunc(conn)
	case ToPool:
		if _, err := a.cfg.Pool.Run(a.cfg.PoolFunc, conn); err != nil {
			conn.Close()
		}
	}
}

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package clock provides a background-refreshed periodic timestamp with
// drift tracking, ported from libam_time.c's amtime_thread and layered
// on top of github.com/agilira/go-timecache's cached-clock model — the
// direct ancestor lethe itself uses for its own log timestamps.
package clock

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"github.com/agilira/go-timecache"
)

// DefaultRefreshPeriod is used when New is given a zero period, matching
// libam_time.c's AMTIME_DEFAULT_REFRESH_PERIOD (1ms).
const DefaultRefreshPeriod = time.Millisecond

// Clock publishes a monotonically refreshed timestamp (microseconds
// since epoch) from a single background goroutine, tracking the largest
// observed deviation between the configured refresh period and the
// actual gap between refreshes.
type Clock struct {
	tc *timecache.TimeCache

	period      atomix.Int64 // nanoseconds
	now         atomix.Int64 // microseconds since epoch
	maxDrift    atomix.Int64 // microseconds
	ignoreDrift atomix.Bool
	stop        chan struct{}
	stopped     chan struct{}
	stopOnce    sync.Once
}

// New starts a Clock refreshing at period (DefaultRefreshPeriod if <= 0).
func New(period time.Duration) *Clock {
	if period <= 0 {
		period = DefaultRefreshPeriod
	}
	c := &Clock{
		tc:      timecache.NewWithResolution(period),
		stop:    make(chan struct{}),
		stopped: make(chan struct{}),
	}
	c.period.StoreRelaxed(int64(period))
	c.maxDrift.StoreRelaxed(1)
	c.now.StoreRelaxed(c.nowMicros())
	go c.run()
	return c
}

// nowMicros reads through the go-timecache background-refreshed clock
// rather than calling time.Now directly, so repeated reads within one
// of go-timecache's own resolution windows avoid a syscall.
func (c *Clock) nowMicros() int64 {
	return c.tc.CachedTime().UnixMicro()
}

func (c *Clock) run() {
	defer close(c.stopped)
	for {
		select {
		case <-c.stop:
			return
		default:
		}

		period := time.Duration(c.period.LoadAcquire())
		newNow := c.nowMicros()

		if c.ignoreDrift.LoadAcquire() {
			c.maxDrift.StoreRelaxed(1)
			c.ignoreDrift.StoreRelease(false)
		} else {
			old := c.now.LoadAcquire()
			drift := newNow - old - period.Microseconds()
			if drift > c.maxDrift.LoadAcquire() {
				c.maxDrift.StoreRelease(drift)
			}
		}

		c.now.StoreRelease(c.nowMicros())

		timer := time.NewTimer(period)
		select {
		case <-c.stop:
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}

// Now returns the last-published timestamp in microseconds since epoch.
// This is a cached value, refreshed on the configured period — callers
// needing a precise timestamp should use time.Now directly.
func (c *Clock) Now() int64 {
	return c.now.LoadAcquire()
}

// SetPeriod changes the refresh period. The next drift sample after a
// period change is discarded (ignore-drift-once), since a deliberate
// period change is not drift, and the drift accumulator is reset then.
func (c *Clock) SetPeriod(period time.Duration) {
	if period <= 0 {
		period = DefaultRefreshPeriod
	}
	c.ignoreDrift.StoreRelease(true)
	c.period.StoreRelease(int64(period))
}

// Drift returns the largest observed amount by which the actual gap
// between refreshes exceeded the configured period, since start, the
// last ResetDrift, or the first refresh after a SetPeriod. The
// accumulator starts at 1µs, so Drift never reports less than that.
func (c *Clock) Drift() time.Duration {
	return time.Duration(c.maxDrift.LoadAcquire()) * time.Microsecond
}

// ResetDrift resets the drift accumulator to its initial 1µs.
func (c *Clock) ResetDrift() {
	c.maxDrift.StoreRelease(1)
}

// StopJoin stops the background goroutine and blocks until it exits,
// also stopping the underlying go-timecache refresher.
func (c *Clock) StopJoin() {
	c.stopOnce.Do(func() { close(c.stop) })
	<-c.stopped
	c.tc.Stop()
}

// StopDetach signals the background goroutine to stop without waiting
// for it to exit, matching amtime_preiodic_stop's non-blocking mode.
// The underlying go-timecache refresher is stopped once the goroutine
// actually exits.
func (c *Clock) StopDetach() {
	c.stopOnce.Do(func() {
		close(c.stop)
		go func() {
			<-c.stopped
			c.tc.Stop()
		}()
	})
}

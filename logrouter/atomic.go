// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logrouter

import "sync/atomic"

// atomicLevel and atomicUint64 back Sink's live-settable level/mask so
// SetLevel/SetMask can race freely with Emit's read-locked filtering
// pass without needing the registry's rwlock.
type atomicLevel struct{ v atomic.Uint64 }

func (a *atomicLevel) store(v Level) { a.v.Store(uint64(v)) }
func (a *atomicLevel) load() Level   { return Level(a.v.Load()) }

type atomicUint64 struct{ v atomic.Uint64 }

func (a *atomicUint64) store(v uint64) { a.v.Store(v) }
func (a *atomicUint64) load() uint64   { return a.v.Load() }

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logrouter

import (
	"runtime"
	"sync"
)

var (
	defaultOnce   sync.Once
	defaultRouter *Router
)

// Default returns a lazily-initialized, process-wide Router with no
// relay, matching libam_log.c's AMLOG_DEFUALT convenience of stamping
// caller location for a single shared log target without requiring
// every caller to manage its own Router.
func Default() *Router {
	defaultOnce.Do(func() {
		defaultRouter, _ = New(0)
	})
	return defaultRouter
}

// Emitf emits a record on [Default] stamped with the caller's file and
// line, mirroring AMLOG_PREFIX's __FUNCTION__/__LINE__ macro expansion
// as a runtime.Caller lookup instead of a preprocessor macro.
func Emitf(level Level, mask uint64, format string, args ...any) {
	_, file, line, _ := runtime.Caller(1)
	Default().Emit(file, int32(line), level, mask, format, args...)
}

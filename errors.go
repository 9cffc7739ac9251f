// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package substrate

import (
	"reflect"

	"code.hybscloud.com/iox"
)

// capacityError wraps [iox.ErrWouldBlock] so that [BoundedStack] callers get
// a distinguishable sentinel for "full" vs. "empty" while still reporting
// true from [IsWouldBlock] and [IsSemantic], matching the rest of the
// hybscloud queueing ecosystem's error taxonomy.
type capacityError struct {
	msg string
}

func (e *capacityError) Error() string { return e.msg }
func (e *capacityError) Unwrap() error { return iox.ErrWouldBlock }

// ErrFull is returned by [BoundedStack.Push] when the stack has no free
// slots. Unlike [Ring.Enqueue], which spins rather than fail (per the
// ring's "never rejected for capacity" contract), the bounded stack treats
// full and empty as hard, returned errors.
var ErrFull error = &capacityError{msg: "substrate: bounded stack is full"}

// ErrEmpty is returned by [BoundedStack.Pop] when the stack holds no
// elements.
var ErrEmpty error = &capacityError{msg: "substrate: bounded stack is empty"}

// ErrInvalidArgument is returned when a nil pointer is supplied where the
// contract disallows one (e.g. [Ring.Enqueue] of a nil pointer, or
// [BoundedStack.Push] of a nil value).
var ErrInvalidArgument error = errInvalidArgument{}

type errInvalidArgument struct{}

func (errInvalidArgument) Error() string { return "substrate: invalid argument" }

// isNilValue reports whether v holds a nil pointer, map, channel, func,
// interface, or slice. T any can't be compared against nil directly since
// most instantiations (int, structs) aren't nilable, so [Ring.Enqueue] and
// [BoundedStack.Push] box v and inspect it through reflection instead.
func isNilValue(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.Slice:
		return rv.IsNil()
	default:
		return false
	}
}

// IsWouldBlock reports whether err indicates the operation would block on
// a transient capacity condition (full or empty). Delegates to
// [iox.IsWouldBlock] for wrapped-error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control-flow signal rather than a
// failure. Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

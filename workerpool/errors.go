// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workerpool

import goerrors "github.com/agilira/go-errors"

// Error codes, surfaced via go-errors for a stable Code() alongside the
// human-readable message, matching the ambient error-handling convention
// the logrouter package also follows.
const (
	CodeDrained          = "WORKERPOOL_DRAINED"
	CodeInvalidArgument  = "WORKERPOOL_INVALID_ARGUMENT"
	CodeQueueFull        = "WORKERPOOL_QUEUE_FULL"
)

// ErrDrained is returned by Run after Destroy has begun draining the
// pool. No new tasks are accepted once draining starts.
var ErrDrained = goerrors.New(CodeDrained, "worker pool is draining: no new tasks accepted")

// ErrInvalidArgument is returned when Run is called with a nil function
// and no default configured, or with a non-nil function while a default
// is set and AllowOverride is false.
var ErrInvalidArgument = goerrors.New(CodeInvalidArgument, "worker pool: invalid task function argument")

// ErrQueueFull is returned when the task backlog has no room; Run
// enqueues nothing in this case.
var ErrQueueFull = goerrors.New(CodeQueueFull, "worker pool: task backlog is full")

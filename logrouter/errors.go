// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logrouter

import goerrors "github.com/agilira/go-errors"

const (
	CodeConflictingFlags = "LOGROUTER_CONFLICTING_FLAGS"
)

// ErrConflictingFlags is returned by New when both AbortOnError and
// BlockOnError are set; the two policies are mutually exclusive.
var ErrConflictingFlags = goerrors.New(CodeConflictingFlags, "logrouter: AbortOnError and BlockOnError are mutually exclusive")

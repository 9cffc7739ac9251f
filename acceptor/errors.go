// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package acceptor

import goerrors "github.com/agilira/go-errors"

const (
	CodeNoListeners   = "ACCEPTOR_NO_LISTENERS"
	CodeInvalidConfig = "ACCEPTOR_INVALID_CONFIG"
)

// ErrNoListeners is returned by New when Config.Listeners is empty.
var ErrNoListeners = goerrors.New(CodeNoListeners, "acceptor: at least one listener is required")

// ErrInvalidConfig is returned by New when the fields required by the
// chosen Disposition are missing.
var ErrInvalidConfig = goerrors.New(CodeInvalidConfig, "acceptor: config is missing fields required by its disposition")

// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package memarena

import goerrors "github.com/agilira/go-errors"

const CodeInvalidSize = "MEMARENA_INVALID_SIZE"

// ErrInvalidSize is returned by Alloc and Realloc for a zero size.
var ErrInvalidSize = goerrors.New(CodeInvalidSize, "memarena: alloc size must be > 0")

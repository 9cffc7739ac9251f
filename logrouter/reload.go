// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package logrouter

import (
	"strconv"
	"time"

	"github.com/agilira/argus"
)

// WatchLevel watches path for a "level" key and applies it to sink's
// threshold live, so verbosity can be raised for debugging without a
// restart.
func (s *Sink) WatchLevel(path string) (*argus.Watcher, error) {
	w, err := argus.New(argus.Config{FilePath: path, PollInterval: time.Second})
	if err != nil {
		return nil, err
	}
	w.OnChange(func(values map[string]string) {
		v, ok := values["level"]
		if !ok {
			return
		}
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return
		}
		s.SetLevel(Level(n))
	})
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

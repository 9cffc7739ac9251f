// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package workerpool

import (
	"strconv"
	"time"

	"github.com/agilira/argus"
)

// WatchConfig watches path for changes and applies MinThreads,
// MaxThreads, and IdleTimeout (in the "idle_timeout_ms" key) live as
// they change, using argus's file-change notifications in place of a
// restart-to-reconfigure cycle. The returned watcher must be stopped
// by the caller when p is destroyed.
func (p *Pool) WatchConfig(path string) (*argus.Watcher, error) {
	w, err := argus.New(argus.Config{FilePath: path, PollInterval: time.Second})
	if err != nil {
		return nil, err
	}
	w.OnChange(func(values map[string]string) {
		if v, ok := values["min_threads"]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				_ = p.SetMinThreads(n)
			}
		}
		if v, ok := values["max_threads"]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				p.SetMaxThreads(n)
			}
		}
		if v, ok := values["idle_timeout_ms"]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				p.SetIdleTimeout(time.Duration(n) * time.Millisecond)
			}
		}
	})
	if err := w.Start(); err != nil {
		return nil, err
	}
	return w, nil
}

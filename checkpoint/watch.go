/*
Copyright (C) 2024-2026  Carl-Philip Hänsch

	This program is free software: you can redistribute it and/or modify
	it under the terms of the GNU General Public License as published by
	the Free Software Foundation, either version 3 of the License, or
	(at your option) any later version.

	This program is distributed in the hope that it will be useful,
	but WITHOUT ANY WARRANTY; without even the implied warranty of
	MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
	GNU General Public License for more details.

	You should have received a copy of the GNU General Public License
	along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/
package checkpoint

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/launix-de/madara/internal/logx"
)

// Watcher reacts to checkpoint files dropped into a directory by another
// process (replication sidecar, operator-run restore) and loads them back
// into whatever OnCheckpoint decides to do with them.
type Watcher struct {
	fsw *fsnotify.Watcher

	OnCheckpoint func(name string, blob []byte)

	done chan struct{}
}

// WatchDir starts watching dir for created/written .cp files. Callers
// supply OnCheckpoint before events start arriving.
func WatchDir(dir string, onCheckpoint func(name string, blob []byte)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, err
	}
	w := &Watcher{fsw: fsw, OnCheckpoint: onCheckpoint, done: make(chan struct{})}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	for {
		select {
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			w.handle(ev.Name)
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logx.Warn("checkpoint: watch error: %v", err)
		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(path string) {
	const suffix = ".cp"
	base := filepath.Base(path)
	if !strings.HasSuffix(base, suffix) {
		return
	}
	name := strings.TrimSuffix(base, suffix)
	blob, err := os.ReadFile(path)
	if err != nil {
		logx.Warn("checkpoint: reading dropped file %q: %v", path, err)
		return
	}
	if w.OnCheckpoint != nil {
		w.OnCheckpoint(name, blob)
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

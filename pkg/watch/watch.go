// Package watch re-runs a callback for STL files that change on disk.
package watch

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/pangeorg/rusty-stl/pkg/discover"
	"github.com/pangeorg/rusty-stl/pkg/logx"
)

// DefaultDebounce is the quiet period after the last event for a path
// before the callback runs. Exporters usually write a file in many chunks.
const DefaultDebounce = 250 * time.Millisecond

// Watcher watches directories for created or written STL files.
type Watcher struct {
	Debounce  time.Duration
	Recursive bool
	Logger    *slog.Logger

	// OnChange is called with the path of a changed file. Calls for
	// different paths may run concurrently.
	OnChange func(path string)
}

// Run watches dirs until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context, dirs ...string) error {
	log := logx.Or(w.Logger)
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch: %w", err)
	}
	defer fw.Close()

	for _, dir := range dirs {
		if err := w.add(fw, dir); err != nil {
			return err
		}
	}

	d := w.Debounce
	if d <= 0 {
		d = DefaultDebounce
	}
	deb := newDebouncer(d, w.OnChange)
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			switch {
			case event.Op&fsnotify.Create == fsnotify.Create && w.Recursive && isDir(event.Name):
				if err := w.add(fw, event.Name); err != nil {
					log.Warn("watch new directory", "dir", event.Name, "err", err)
				}
			case event.Op&(fsnotify.Create|fsnotify.Write) != 0 && discover.IsSTL(event.Name):
				log.Debug("change", "file", event.Name, "op", event.Op.String())
				deb.trigger(event.Name)
			}
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "err", err)
		}
	}
}

func (w *Watcher) add(fw *fsnotify.Watcher, dir string) error {
	if !w.Recursive {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch: %s: %w", dir, err)
		}
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if err := fw.Add(path); err != nil {
			return fmt.Errorf("watch: %s: %w", path, err)
		}
		return nil
	})
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

// debouncer delays fn for a path until no trigger for that path has been
// seen for d.
type debouncer struct {
	d      time.Duration
	fn     func(string)
	mu     sync.Mutex
	timers map[string]*time.Timer
}

func newDebouncer(d time.Duration, fn func(string)) *debouncer {
	return &debouncer{d: d, fn: fn, timers: make(map[string]*time.Timer)}
}

func (db *debouncer) trigger(path string) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if t, ok := db.timers[path]; ok {
		t.Reset(db.d)
		return
	}
	db.timers[path] = time.AfterFunc(db.d, func() {
		db.mu.Lock()
		delete(db.timers, path)
		db.mu.Unlock()
		if db.fn != nil {
			db.fn(path)
		}
	})
}

func (db *debouncer) stop() {
	db.mu.Lock()
	defer db.mu.Unlock()
	for p, t := range db.timers {
		t.Stop()
		delete(db.timers, p)
	}
}

// Package watcher monitors an inbox directory and hands newly written
// files to an ingestion handler once they settle.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a file must be quiet before it is handed
// off. Editors and uploads write in bursts.
const DefaultSettle = 500 * time.Millisecond

// Handler receives the path of a settled file.
type Handler func(ctx context.Context, path string)

// Watcher watches one directory tree for new or changed files.
type Watcher struct {
	dir     string
	handler Handler
	settle  time.Duration

	mu      sync.Mutex
	pending map[string]*time.Timer
}

// New creates a watcher over dir. A non-positive settle uses the
// default.
func New(dir string, handler Handler, settle time.Duration) *Watcher {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Watcher{
		dir:     dir,
		handler: handler,
		settle:  settle,
		pending: make(map[string]*time.Timer),
	}
}

// Run watches until the context is cancelled. Subdirectories present at
// start or created later are watched too.
func (w *Watcher) Run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer fsw.Close()

	if err := addRecursive(fsw, w.dir); err != nil {
		return err
	}
	slog.Info("watching inbox", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			w.drainTimers()
			return ctx.Err()

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, fsw, event)

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watch error", "err", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, fsw *fsnotify.Watcher, event fsnotify.Event) {
	if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
		return
	}

	info, err := os.Stat(event.Name)
	if err != nil {
		return
	}
	if info.IsDir() {
		if event.Op.Has(fsnotify.Create) {
			if err := addRecursive(fsw, event.Name); err != nil {
				slog.Warn("watching new directory failed", "dir", event.Name, "err", err)
			}
		}
		return
	}
	if skipName(filepath.Base(event.Name)) {
		return
	}

	// Repeated writes keep pushing the hand-off back until the file
	// settles.
	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.pending[event.Name]; ok {
		timer.Reset(w.settle)
		return
	}
	path := event.Name
	w.pending[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()
		if ctx.Err() != nil {
			return
		}
		w.handler(ctx, path)
	})
}

func (w *Watcher) drainTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		timer.Stop()
		delete(w.pending, path)
	}
}

func skipName(name string) bool {
	return strings.HasPrefix(name, ".") ||
		strings.HasSuffix(name, ".tmp") ||
		strings.HasSuffix(name, ".part")
}

func addRecursive(fsw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := fsw.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

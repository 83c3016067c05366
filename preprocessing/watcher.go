package preprocessing

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// ReloadFunc is called after the watched file settles.
type ReloadFunc func(ctx context.Context) error

// Watcher triggers a reload when a source file changes. It watches the
// parent directory so editors and atomic renames are both seen.
type Watcher struct {
	path     string
	debounce time.Duration
	reload   ReloadFunc
	log      *slog.Logger
	fsw      *fsnotify.Watcher
}

func NewWatcher(path string, debounce time.Duration, reload ReloadFunc, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", filepath.Dir(abs), err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Watcher{path: abs, debounce: debounce, reload: reload, log: logger, fsw: fsw}, nil
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	name, err := filepath.Abs(event.Name)
	if err != nil || name != w.path {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Run blocks until ctx is done. Reload failures are logged and the previous
// snapshot keeps serving.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fsw.Close()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if w.relevant(event) {
				rearm(timer, w.debounce)
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("file watcher error", "path", w.path, "error", err)

		case <-timer.C:
			w.log.Info("source changed, rebuilding graph", "path", w.path)
			if err := w.reload(ctx); err != nil {
				w.log.Error("graph rebuild failed, keeping current snapshot", "path", w.path, "error", err)
			}
		}
	}
}

// rearm restarts t, discarding a tick that fired but was never received so
// a burst of events yields a single reload.
func rearm(t *time.Timer, d time.Duration) {
	if !t.Stop() {
		select {
		case <-t.C:
		default:
		}
	}
	t.Reset(d)
}

package watcher

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
)

// FSWatcher watches roots recursively using fsnotify. Since inotify is
// not recursive, every directory is registered individually and new
// directories are registered as their create events arrive.
type FSWatcher struct {
	opts      Options
	fw        *fsnotify.Watcher
	debouncer *Debouncer
	events    chan []ChangeEvent
	errors    chan error

	mu      sync.Mutex
	stopped bool
	done    chan struct{}
}

// NewFSWatcher creates an fsnotify-backed watcher.
func NewFSWatcher(opts Options) *FSWatcher {
	opts = opts.WithDefaults()
	return &FSWatcher{
		opts:      opts,
		debouncer: NewDebouncer(opts.DebounceWindow),
		events:    make(chan []ChangeEvent, 10),
		errors:    make(chan error, opts.EventBufferSize),
		done:      make(chan struct{}),
	}
}

// Start begins watching the given roots. Nonexistent roots are skipped
// with a warning.
func (w *FSWatcher) Start(ctx context.Context, roots []string) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	w.fw = fw

	var watched int
	for _, root := range roots {
		if _, err := os.Stat(root); err != nil {
			slog.Warn("skipping unwatchable root",
				slog.String("root", root),
				slog.String("error", err.Error()))
			continue
		}
		w.addRecursive(root)
		watched++
	}
	if watched == 0 {
		_ = fw.Close()
		return fmt.Errorf("no watchable roots")
	}

	slog.Info("file watcher started",
		slog.Int("roots", watched),
		slog.Duration("debounce", w.opts.DebounceWindow))

	go w.loop(ctx)
	return nil
}

// addRecursive registers root and every directory under it. Per-dir
// failures are reported as watcher errors, not fatal.
func (w *FSWatcher) addRecursive(root string) {
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			w.reportError(walkErr)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if err := w.fw.Add(path); err != nil {
				w.reportError(fmt.Errorf("failed to watch %s: %w", path, err))
			}
		}
		return nil
	})
}

// loop pumps raw fsnotify events through the debouncer and forwards
// batches until the watcher stops. The loop owns the output channels
// and closes them on exit.
func (w *FSWatcher) loop(ctx context.Context) {
	defer close(w.events)
	defer close(w.errors)

	for {
		select {
		case <-ctx.Done():
			_ = w.Stop()
			return

		case <-w.done:
			return

		case ev, ok := <-w.fw.Events:
			if !ok {
				return
			}
			w.handleRaw(ev)

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}
			w.reportError(err)

		case batch, ok := <-w.debouncer.Output():
			if !ok {
				return
			}
			select {
			case w.events <- batch:
			default:
				slog.Warn("watcher event channel full, dropping batch",
					slog.Int("batch_size", len(batch)))
			}
		}
	}
}

// handleRaw maps one fsnotify event into a change event and feeds the
// debouncer. A created directory is registered for further watching.
func (w *FSWatcher) handleRaw(ev fsnotify.Event) {
	var op Operation
	switch {
	case ev.Op.Has(fsnotify.Create):
		op = OpCreate
		if info, err := os.Lstat(ev.Name); err == nil && info.IsDir() {
			w.addRecursive(ev.Name)
		}
	case ev.Op.Has(fsnotify.Write):
		op = OpModify
	case ev.Op.Has(fsnotify.Remove), ev.Op.Has(fsnotify.Rename):
		op = OpDelete
	default:
		// Chmod and other attribute-only changes do not affect the index.
		return
	}

	w.debouncer.Add(ChangeEvent{
		Path:      ev.Name,
		Operation: op,
		Timestamp: time.Now(),
	})
}

func (w *FSWatcher) reportError(err error) {
	select {
	case w.errors <- err:
	default:
	}
}

// Events returns debounced event batches.
func (w *FSWatcher) Events() <-chan []ChangeEvent {
	return w.events
}

// Errors returns non-fatal watcher errors.
func (w *FSWatcher) Errors() <-chan error {
	return w.errors
}

// Stop stops the watcher. Safe to call more than once.
func (w *FSWatcher) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.stopped {
		return nil
	}
	w.stopped = true

	close(w.done)
	w.debouncer.Stop()
	if w.fw != nil {
		return w.fw.Close()
	}
	return nil
}

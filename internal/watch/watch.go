// Package watch re-runs a handler whenever a watched file changes on disk.
package watch

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/haasonsaas/yamldoctor/internal/observability"
)

// DefaultDebounce is used when Options.Debounce is zero.
const DefaultDebounce = 300 * time.Millisecond

// Handler is called with the cleaned path of a file after it settles.
type Handler func(ctx context.Context, path string)

// Options configures a Watcher.
type Options struct {
	Debounce time.Duration
	Logger   *observability.Logger
	Metrics  *observability.Metrics
}

// Watcher watches a fixed set of files. It subscribes to their parent
// directories so editors that save by rename are still seen.
type Watcher struct {
	files    map[string]struct{}
	dirs     map[string]struct{}
	handler  Handler
	debounce time.Duration
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// New creates a Watcher for paths.
func New(paths []string, handler Handler, opts Options) (*Watcher, error) {
	if len(paths) == 0 {
		return nil, errors.New("watch: at least one path is required")
	}
	if handler == nil {
		return nil, errors.New("watch: handler is required")
	}
	w := &Watcher{
		files:    make(map[string]struct{}, len(paths)),
		dirs:     make(map[string]struct{}),
		handler:  handler,
		debounce: opts.Debounce,
		logger:   opts.Logger,
		metrics:  opts.Metrics,
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	if w.logger == nil {
		w.logger = observability.NopLogger()
	}
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return nil, fmt.Errorf("watch: resolve %s: %w", p, err)
		}
		w.files[abs] = struct{}{}
		w.dirs[filepath.Dir(abs)] = struct{}{}
	}
	return w, nil
}

// Run blocks until ctx is cancelled or the underlying watcher fails.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	for dir := range w.dirs {
		if err := fw.Add(dir); err != nil {
			return fmt.Errorf("watch: add %s: %w", dir, err)
		}
	}

	deb := newDebouncer(w.debounce, func(path string) {
		if w.metrics != nil {
			w.metrics.WatchEvents.Inc()
		}
		w.logger.WithFields("file", path).Debug(ctx, "file settled")
		w.handler(ctx, path)
	})
	defer func() {
		deb.Stop()
		deb.Wait()
	}()

	w.logger.Info(ctx, "watching files", "count", len(w.files))
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			path := filepath.Clean(event.Name)
			if _, ok := w.files[path]; !ok {
				continue
			}
			w.logger.WithFields("file", path).Debug(ctx, "file event", "op", event.Op.String())
			deb.Trigger(path)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn(ctx, "watch error", "error", err)
		}
	}
}

func relevant(event fsnotify.Event) bool {
	return event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) != 0
}

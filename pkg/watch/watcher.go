// Package watch monitors a metadata drop directory and triggers
// resolution for newly arrived index files or sidecars.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watcher monitors a directory for new metadata files.
type Watcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration

	// OnChange is invoked once per settled file change. Calls are
	// serialized: when several files settle at once, OnChange runs for
	// one file at a time.
	OnChange func(path string) error

	// OnError receives watch-loop and OnChange errors.
	OnError func(path string, err error)

	// mu serializes OnChange dispatch across debounce goroutines.
	mu sync.Mutex
}

// NewWatcher creates a directory watcher.
func NewWatcher() (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	return &Watcher{
		watcher:  fsWatcher,
		debounce: 500 * time.Millisecond,
	}, nil
}

// Watch adds a directory to the watch set.
func (w *Watcher) Watch(dir string) error {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}
	if err := w.watcher.Add(abs); err != nil {
		return fmt.Errorf("failed to watch directory: %w", err)
	}
	return nil
}

// watchedExt reports whether a file is worth reacting to.
func watchedExt(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv", ".xlsx", ".json":
		return true
	}
	return false
}

// Run starts the watch loop. Blocks until the context is canceled.
// Rapid successive writes to one file collapse into a single OnChange
// call after the debounce interval.
func (w *Watcher) Run(ctx context.Context) error {
	debounceTimers := make(map[string]*time.Timer)
	var timerMu sync.Mutex

	for {
		select {
		case <-ctx.Done():
			w.watcher.Close()
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}

			absPath, err := filepath.Abs(event.Name)
			if err != nil || !watchedExt(absPath) {
				continue
			}

			timerMu.Lock()
			if timer, exists := debounceTimers[absPath]; exists {
				timer.Stop()
			}
			debounceTimers[absPath] = time.AfterFunc(w.debounce, func() {
				w.handleChange(absPath)
			})
			timerMu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			if w.OnError != nil {
				w.OnError("", err)
			}
		}
	}
}

func (w *Watcher) handleChange(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.OnChange == nil {
		return
	}
	if err := w.OnChange(path); err != nil && w.OnError != nil {
		w.OnError(path, err)
	}
}

// Close stops the underlying fsnotify watcher.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

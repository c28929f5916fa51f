// Package watch calls back whenever a file changes.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/satishbabariya/lift/internal/debug"
)

// DefaultDebounce is how long a file has to stay quiet before the callback
// runs.
const DefaultDebounce = 500 * time.Millisecond

// Watcher watches a file for changes
type Watcher struct {
	file     string
	callback func(context.Context) error
	watcher  *fsnotify.Watcher
	// Debounce collapses bursts of events, as editors often write a file
	// in several steps.
	Debounce time.Duration
}

// NewWatcher creates a new file watcher
func NewWatcher(file string, callback func(context.Context) error) (*Watcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	absPath, err := filepath.Abs(file)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to get absolute path: %w", err)
	}

	// Editors replace files on save, so the directory is watched instead
	// of the file itself.
	if err := watcher.Add(filepath.Dir(absPath)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &Watcher{
		file:     absPath,
		callback: callback,
		watcher:  watcher,
		Debounce: DefaultDebounce,
	}, nil
}

// Run calls the callback once, then after every change of the file, until
// ctx is done. A failing callback is logged and does not stop the watch;
// only a failing first call does.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	if err := w.callback(ctx); err != nil {
		return fmt.Errorf("initial callback failed: %w", err)
	}

	debounceTimer := time.NewTimer(w.Debounce)
	debounceTimer.Stop()
	var debounceCh <-chan time.Time

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if eventPath, err := filepath.Abs(event.Name); err == nil && eventPath == w.file {
				debounceTimer.Reset(w.Debounce)
				debounceCh = debounceTimer.C
			}

		case <-debounceCh:
			debounceCh = nil
			if err := w.callback(ctx); err != nil {
				debug.Warn("Watch callback failed", "file", w.file, "error", err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			debug.Warn("Watch error", "error", err)

		case <-ctx.Done():
			return nil
		}
	}
}

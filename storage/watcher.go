package storage

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/NancyGarg/transcribe-ai/logger"
)

// Watcher reports recordings whose audio file disappears from a directory.
type Watcher struct {
	dir       string
	watcher   *fsnotify.Watcher
	onMissing func(id string)
}

// NewWatcher starts watching dir. onMissing is called from Run's goroutine.
func NewWatcher(dir string, onMissing func(id string)) (*Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	return &Watcher{dir: dir, watcher: w, onMissing: onMissing}, nil
}

// Run delivers events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			if filepath.Dir(event.Name) != filepath.Clean(w.dir) {
				continue
			}
			if id, ok := IDFromFile(event.Name); ok {
				logger.Debug("Recording file removed", logger.RecordingID(id), logger.String("op", event.Op.String()))
				w.onMissing(id)
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("File watcher error", logger.ErrorField(err))
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.watcher.Close()
}

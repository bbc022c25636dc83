// Package watch re-runs an action when files in a set of directories change.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Handler is called with the changed paths of one debounced batch.
type Handler func(ctx context.Context, changed []string) error

// Watcher debounces file system events and hands them to a Handler in batches.
type Watcher struct {
	fsw     *fsnotify.Watcher
	delay   time.Duration
	ignored []string
	logger  *zap.Logger
}

// New creates a Watcher that waits for delay without new events before flushing a batch.
func New(delay time.Duration, logger *zap.Logger) (*Watcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	return &Watcher{fsw: fsw, delay: delay, logger: logger}, nil
}

// Add watches the given directories. Directories are not watched recursively.
func (w *Watcher) Add(dirs ...string) error {
	for _, dir := range dirs {
		abs, err := filepath.Abs(dir)
		if err != nil {
			return fmt.Errorf("failed to resolve %s: %w", dir, err)
		}
		if err := w.fsw.Add(abs); err != nil {
			return fmt.Errorf("failed to watch %s: %w", abs, err)
		}
		w.logger.Debug("Watching directory", zap.String("dir", abs))
	}
	return nil
}

// Ignore drops events for the given files and for the temporary files an atomic write
// creates next to them, typically the destinations written by the handler itself.
func (w *Watcher) Ignore(files ...string) {
	for _, f := range files {
		if abs, err := filepath.Abs(f); err == nil {
			w.ignored = append(w.ignored, abs)
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	return w.fsw.Close()
}

// Run delivers batches to handle until ctx is done. Handler errors are logged and do not
// stop the loop. Batches are handled one at a time.
func (w *Watcher) Run(ctx context.Context, handle Handler) error {
	pending := make(map[string]bool)
	timer := time.NewTimer(w.delay)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil

		case event, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("File changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			pending[event.Name] = true
			timer.Reset(w.delay)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("File watcher error", zap.Error(err))

		case <-timer.C:
			changed := make([]string, 0, len(pending))
			for p := range pending {
				changed = append(changed, p)
			}
			sort.Strings(changed)
			pending = make(map[string]bool)

			if err := handle(ctx, changed); err != nil {
				w.logger.Error("Handler failed", zap.Int("changedFiles", len(changed)), zap.Error(err))
			}
		}
	}
}

// relevant drops chmod-only events and events for ignored files.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	for _, ignored := range w.ignored {
		if event.Name == ignored || isTempSibling(event.Name, ignored) {
			return false
		}
	}
	return true
}

// isTempSibling reports whether name is a temporary file created while atomically
// writing file: the file name followed by random digits.
func isTempSibling(name, file string) bool {
	suffix, ok := strings.CutPrefix(name, file)
	if !ok || suffix == "" {
		return false
	}
	for _, r := range suffix {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

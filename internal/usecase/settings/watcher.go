package settings

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDebounce is the quiet period before a changed file is re-applied.
const DefaultDebounce = 200 * time.Millisecond

// Watcher re-applies a settings file whenever it changes. The parent
// directory is watched so that editors replacing the file by rename are
// seen too.
type Watcher struct {
	svc      *Service
	path     string
	debounce time.Duration
	logger   *zap.Logger

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a Watcher for path. A non-positive debounce uses
// DefaultDebounce.
func NewWatcher(svc *Service, path string, debounce time.Duration, logger *zap.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{svc: svc, path: filepath.Clean(path), debounce: debounce, logger: logger}
}

// Watch blocks until ctx is cancelled, applying the file after each burst
// of changes. A failed apply is logged and the previous settings stay.
func (w *Watcher) Watch(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	defer func() { _ = fw.Close() }()

	if err := fw.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("watch %s: %w", w.path, err)
	}

	w.logger.Info("settings watcher started",
		zap.String("path", w.path),
		zap.Duration("debounce", w.debounce),
	)

	defer w.cancelPending()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("settings watcher stopped")
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return fmt.Errorf("settings watcher events channel closed")
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("settings file event",
				zap.String("path", event.Name),
				zap.String("op", event.Op.String()),
			)
			w.trigger(ctx)

		case err, ok := <-fw.Errors:
			if !ok {
				return fmt.Errorf("settings watcher errors channel closed")
			}
			w.logger.Error("settings watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) relevant(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != w.path {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0
}

func (w *Watcher) trigger(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		if ctx.Err() != nil {
			return
		}
		if _, err := w.svc.ApplyFile(ctx, w.path); err != nil {
			w.logger.Error("settings reload failed", zap.String("path", w.path), zap.Error(err))
		}
	})
}

func (w *Watcher) cancelPending() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}

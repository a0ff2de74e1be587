package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/onokeee/mindmap/domain/history"
)

const reloadDebounce = 100 * time.Millisecond

// HistoryWatcher keeps the history section of a YAML config file current.
// Sessions opened after a reload use the new settings; open sessions keep the
// store they were created with.
type HistoryWatcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	mu       sync.RWMutex
	current  HistoryConfig
	onChange []func(HistoryConfig)
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewHistoryWatcher starts from initial and watches path for changes. The
// directory is watched as well so editors that save by rename are noticed.
func NewHistoryWatcher(path string, initial HistoryConfig, logger *zap.Logger) (*HistoryWatcher, error) {
	if err := initial.Validate(); err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	return &HistoryWatcher{
		path:    path,
		watcher: watcher,
		logger:  logger,
		current: initial,
		stopCh:  make(chan struct{}),
	}, nil
}

// Start begins watching for configuration changes
func (w *HistoryWatcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching. It is safe to call more than once.
func (w *HistoryWatcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		w.watcher.Close()
		w.logger.Info("Configuration watcher stopped")
	})
}

// Current returns the active history settings
func (w *HistoryWatcher) Current() HistoryConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// StoreConfig returns the active settings in the form the history store takes
func (w *HistoryWatcher) StoreConfig() history.StoreConfig {
	return w.Current().StoreConfig()
}

// OnChange registers a callback invoked after every accepted reload
func (w *HistoryWatcher) OnChange(handler func(HistoryConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, handler)
}

func (w *HistoryWatcher) watchLoop() {
	var debounce *time.Timer
	name := filepath.Base(w.path)

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != name {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(reloadDebounce, w.Reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("File watcher error", zap.Error(err))
		}
	}
}

// Reload re-reads the history section. Invalid files are logged and the
// current settings are kept.
func (w *HistoryWatcher) Reload() {
	next, err := LoadHistory(w.path, w.Current())
	if err != nil {
		w.logger.Error("Failed to reload configuration", zap.Error(err))
		return
	}
	if err := next.Validate(); err != nil {
		w.logger.Error("Invalid configuration, keeping current", zap.Error(err))
		return
	}

	w.mu.Lock()
	prev := w.current
	w.current = next
	handlers := make([]func(HistoryConfig), len(w.onChange))
	copy(handlers, w.onChange)
	w.mu.Unlock()

	if prev == next {
		return
	}

	w.logger.Info("History configuration reloaded",
		zap.Int("capacity", next.Capacity),
		zap.Int("previous_capacity", prev.Capacity),
		zap.Bool("cursor_tracks_appended_on_evict", next.CursorTracksAppendedOnEvict),
	)

	for _, handler := range handlers {
		handler(next)
	}
}

package config

import (
	"context"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/nexus-vision/agentcore/internal/observability"
)

// Watcher reloads a Config file whenever the root file changes on disk;
// changes to files it includes do not trigger a reload. Grounded on the teacher's fsnotify-backed hot-reload pattern
// (internal/skills.Manager.StartWatching / internal/templates.Registry).
type Watcher struct {
	path   string
	logger *observability.Logger
	onLoad func(*Config, error)

	mu       sync.Mutex
	watcher  *fsnotify.Watcher
	cancel   context.CancelFunc
}

// NewWatcher builds a Watcher for the root config file at path. onLoad is
// called with every successful or failed reload, including the initial one
// triggered by Start.
func NewWatcher(path string, logger *observability.Logger, onLoad func(*Config, error)) *Watcher {
	return &Watcher{path: path, logger: logger, onLoad: onLoad}
}

// Start begins watching the config file's directory for changes. It is a
// no-op if already watching.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.watcher != nil {
		w.mu.Unlock()
		return nil
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		w.mu.Unlock()
		return err
	}
	dir := filepath.Dir(w.path)
	if err := fw.Add(dir); err != nil {
		fw.Close()
		w.mu.Unlock()
		return err
	}
	w.watcher = fw
	watchCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.mu.Unlock()

	cfg, loadErr := Load(w.path)
	w.onLoad(cfg, loadErr)

	go w.loop(watchCtx, fw)
	return nil
}

func (w *Watcher) loop(ctx context.Context, fw *fsnotify.Watcher) {
	target := filepath.Clean(w.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-fw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			cfg, err := Load(w.path)
			w.onLoad(cfg, err)
		case err, ok := <-fw.Errors:
			if !ok {
				return
			}
			if w.logger != nil {
				w.logger.Warn(ctx, "config: watcher error", "error", err.Error())
			}
		}
	}
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		w.cancel()
		w.cancel = nil
	}
	if w.watcher == nil {
		return nil
	}
	err := w.watcher.Close()
	w.watcher = nil
	return err
}

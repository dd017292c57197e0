// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package theme

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is the quiet period before a burst of filesystem events
// triggers a reload.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads a Manager when theme directories change on disk.
type Watcher struct {
	manager  *Manager
	watcher  *fsnotify.Watcher
	onChange func()
	logger   *slog.Logger
	debounce time.Duration

	mu       sync.Mutex
	stopOnce sync.Once
	stopChan chan struct{}
	trigger  chan struct{}
}

// NewWatcher creates a watcher for the manager's themes directory. onChange
// runs after every successful reload.
func NewWatcher(manager *Manager, onChange func(), logger *slog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating file watcher: %w", err)
	}

	return &Watcher{
		manager:  manager,
		watcher:  fw,
		onChange: onChange,
		logger:   logger,
		debounce: DefaultDebounce,
		stopChan: make(chan struct{}),
		trigger:  make(chan struct{}, 1),
	}, nil
}

// SetDebounce overrides the debounce interval. Call before Start.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// Start begins watching the themes directory and each theme directory in it.
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := w.addDirs(); err != nil {
		return err
	}

	w.logger.Info("watching themes directory", "path", w.manager.ThemesDir())

	go w.watchLoop(ctx)
	go w.reloadLoop(ctx)
	return nil
}

// Stop stops the watcher.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.stopChan)
		err = w.watcher.Close()
	})
	return err
}

// addDirs registers the themes directory and its immediate children so that
// edits to style.css or template files are seen.
func (w *Watcher) addDirs() error {
	root := w.manager.ThemesDir()
	if err := w.watcher.Add(root); err != nil {
		return fmt.Errorf("watching %s: %w", root, err)
	}

	entries, err := os.ReadDir(root)
	if err != nil {
		return fmt.Errorf("reading themes directory: %w", err)
	}
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(root, entry.Name())
		if err := w.watcher.Add(dir); err != nil {
			w.logger.Warn("failed to watch theme directory", "path", dir, "error", err)
		}
	}
	return nil
}

func (w *Watcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.stopChan:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}

			// New theme directories need their own watch.
			if event.Op&fsnotify.Create != 0 && filepath.Dir(event.Name) == filepath.Clean(w.manager.ThemesDir()) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					_ = w.watcher.Add(event.Name)
				}
			}

			w.logger.Debug("theme change detected", "file", event.Name, "op", event.Op.String())
			w.triggerReload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("theme watcher error", "error", err)
		}
	}
}

func (w *Watcher) reloadLoop(ctx context.Context) {
	var timer *time.Timer
	stop := func() {
		if timer != nil {
			timer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-w.stopChan:
			stop()
			return
		case <-w.trigger:
			stop()
			timer = time.AfterFunc(w.debounce, w.performReload)
		}
	}
}

func (w *Watcher) triggerReload() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *Watcher) performReload() {
	if err := w.manager.Reload(); err != nil {
		w.logger.Error("failed to reload themes", "error", err)
		return
	}
	w.logger.Info("themes reloaded", "count", w.manager.ThemeCount())
	if w.onChange != nil {
		w.onChange()
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// CONFIG FILE WATCHER
// =============================================================================

// Watcher reloads the config file when it changes on disk and delivers the
// result to a callback. Editors replace files with rename+create, so the
// parent directory is watched rather than the file itself.
type Watcher struct {
	path     string
	onReload func(*Config, error)
	debounce time.Duration

	watcher *fsnotify.Watcher
	mu      sync.Mutex
	pending time.Time
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewWatcher creates a watcher for the config file at path. onReload is
// called from the watcher goroutine after each (debounced) change.
func NewWatcher(path string, onReload func(*Config, error)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		path:     path,
		onReload: onReload,
		debounce: 200 * time.Millisecond,
		watcher:  fsw,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Watch starts watching for config changes.
func (w *Watcher) Watch() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return err
	}
	go w.processEvents()
	go w.processPending()
	return nil
}

func (w *Watcher) processEvents() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			w.mu.Lock()
			w.pending = time.Now()
			w.mu.Unlock()

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

func (w *Watcher) processPending() {
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case <-ticker.C:
			w.mu.Lock()
			fire := !w.pending.IsZero() && time.Since(w.pending) >= w.debounce
			if fire {
				w.pending = time.Time{}
			}
			w.mu.Unlock()

			if fire {
				w.onReload(LoadFromPath(w.path))
			}
		}
	}
}

// Close stops watching and releases resources.
func (w *Watcher) Close() error {
	w.cancel()
	if w.watcher != nil {
		return w.watcher.Close()
	}
	return nil
}

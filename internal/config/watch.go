// Copyright (c) 2025 Halcyon Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// PRESET WATCHER
// =============================================================================

// PresetWatcher hot-reloads a preset store when files in its directory
// change. Rapid editor write bursts are debounced into a single reload.
type PresetWatcher struct {
	presets  *Presets
	watcher  *fsnotify.Watcher
	debounce time.Duration

	mu      sync.Mutex
	pending time.Time

	ctx    context.Context
	cancel context.CancelFunc

	// onReload, if set, is called after each successful reload.
	onReload func()
}

// NewPresetWatcher creates a watcher over the store's directory.
func NewPresetWatcher(presets *Presets, debounce time.Duration) (*PresetWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &PresetWatcher{
		presets:  presets,
		watcher:  watcher,
		debounce: debounce,
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// OnReload registers a callback invoked after each successful reload.
func (pw *PresetWatcher) OnReload(fn func()) {
	pw.onReload = fn
}

// Watch starts watching the preset directory.
func (pw *PresetWatcher) Watch() error {
	if err := pw.watcher.Add(pw.presets.Dir()); err != nil {
		return err
	}

	go pw.processEvents()
	go pw.processPending()
	return nil
}

// processEvents marks a reload pending for relevant filesystem events.
func (pw *PresetWatcher) processEvents() {
	for {
		select {
		case <-pw.ctx.Done():
			return

		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if !strings.HasSuffix(event.Name, ".toml") {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				pw.mu.Lock()
				pw.pending = time.Now()
				pw.mu.Unlock()
			}

		case _, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// processPending fires the reload once the debounce window has passed with
// no further changes.
func (pw *PresetWatcher) processPending() {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-pw.ctx.Done():
			return

		case <-ticker.C:
			pw.mu.Lock()
			due := !pw.pending.IsZero() && time.Since(pw.pending) >= pw.debounce
			if due {
				pw.pending = time.Time{}
			}
			pw.mu.Unlock()

			if due {
				if err := pw.presets.Reload(); err == nil && pw.onReload != nil {
					pw.onReload()
				}
			}
		}
	}
}

// Close stops watching and releases resources.
func (pw *PresetWatcher) Close() error {
	pw.cancel()
	return pw.watcher.Close()
}

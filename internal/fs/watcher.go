// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounceWindow batches bursts of filesystem events (an editor save, a git
// checkout) into a single refresh signal.
const debounceWindow = 250 * time.Millisecond

// Watcher watches a workspace tree and emits a coalesced signal whenever
// anything under it changes. Consumers rescan the tree on each signal.
type Watcher struct {
	fsw    *fsnotify.Watcher
	events chan struct{}
	done   chan struct{}
}

// WatchTree starts watching root and every directory below it (bounded by
// the same depth and skip rules as ScanTree). Newly created directories are
// added to the watch as they appear.
func WatchTree(root string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating watcher: %w", err)
	}

	w := &Watcher{
		fsw:    fsw,
		events: make(chan struct{}, 1),
		done:   make(chan struct{}),
	}

	if err := w.addRecursive(root, 0); err != nil {
		fsw.Close()
		return nil, err
	}

	go w.loop()
	return w, nil
}

// Events returns the coalesced change channel.
func (w *Watcher) Events() <-chan struct{} {
	return w.events
}

// Close stops the watcher and releases its OS resources.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsw.Close()
}

func (w *Watcher) addRecursive(dir string, depth int) error {
	if depth >= DefaultMaxDepth || skipNames[filepath.Base(dir)] && depth > 0 {
		return nil
	}
	if err := w.fsw.Add(dir); err != nil {
		if depth == 0 {
			return fmt.Errorf("watching %s: %w", dir, err)
		}
		return nil // inner directories are best-effort
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}
	for _, entry := range entries {
		if entry.IsDir() {
			w.addRecursive(filepath.Join(dir, entry.Name()), depth+1)
		}
	}
	return nil
}

func (w *Watcher) loop() {
	// Closing events on exit unblocks any subscriber still waiting on a
	// watcher that has been torn down.
	defer close(w.events)

	var timer *time.Timer
	var pending <-chan time.Time

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if event.Op.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					w.addRecursive(event.Name, 1)
				}
			}
			if timer == nil {
				timer = time.NewTimer(debounceWindow)
			} else {
				timer.Reset(debounceWindow)
			}
			pending = timer.C

		case <-pending:
			pending = nil
			select {
			case w.events <- struct{}{}:
			default:
			}

		case _, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			// Watch errors are non-fatal; the next rescan resyncs.
		}
	}
}

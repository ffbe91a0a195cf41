// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// =============================================================================
// SESSION FILE WATCHER
// =============================================================================

// DefaultDebounce coalesces the create+write+rename burst of an atomic save.
const DefaultDebounce = 150 * time.Millisecond

// Watcher signals when the session file is written or removed.
type Watcher struct {
	name     string
	watcher  *fsnotify.Watcher
	debounce time.Duration
	changes  chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// Watch starts watching the store's file. The parent directory is watched
// rather than the file, since atomic saves replace the inode.
func (f *FileStore) Watch(debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		name:     filepath.Base(f.path),
		watcher:  fw,
		debounce: debounce,
		changes:  make(chan struct{}, 1),
		ctx:      ctx,
		cancel:   cancel,
	}
	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Changes delivers one value per burst of changes. It is never closed.
func (w *Watcher) Changes() <-chan struct{} {
	return w.changes
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		err = w.watcher.Close()
		w.wg.Wait()
	})
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != w.name {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(w.debounce)

		case _, ok := <-w.watcher.Errors:
			if !ok {
				return
			}

		case <-timer.C:
			select {
			case w.changes <- struct{}{}:
			default:
			}
		}
	}
}

// Copyright 2025 Kadir Pekel
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchDebounce coalesces bursts of writes (editors often write twice).
const WatchDebounce = 100 * time.Millisecond

// WatchFile watches path and signals on the returned channel when the file is
// written, created, renamed or removed. The channel is buffered by one, so a
// pending change is never reported twice, and it is closed when ctx ends.
//
// The parent directory is watched rather than the file, so atomic saves
// (write temp file, rename over) and a file that does not exist yet are both
// picked up.
func WatchFile(ctx context.Context, path string) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	dir := filepath.Dir(abs)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	ch := make(chan struct{}, 1)
	go watchLoop(ctx, watcher, abs, ch)

	slog.Info("Watching env file for changes", "path", abs)
	return ch, nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, target string, ch chan struct{}) {
	defer close(ch)
	defer watcher.Close()

	// fire is non-nil while a debounced notification is pending.
	var fire <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			return

		case <-fire:
			fire = nil
			select {
			case ch <- struct{}{}:
				slog.Debug("Env file changed", "path", target)
			default:
			}

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) &&
				!event.Has(fsnotify.Remove) && !event.Has(fsnotify.Rename) {
				continue
			}
			fire = time.After(WatchDebounce)

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("Env file watcher error", "error", err)
		}
	}
}

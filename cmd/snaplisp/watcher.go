package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"maps"
	"path/filepath"
	"slices"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/shibukawa/snaplisp/observability"
)

const defaultDebounce = 100 * time.Millisecond

// watcher recompiles sources when they change. Events are collected until the tree has
// been quiet for the debounce period, then every changed path is handed to onChange at once.
type watcher struct {
	root     string
	debounce time.Duration
	accept   func(path string) bool
	onChange func(paths []string)
	logger   *slog.Logger
}

// Run watches until ctx is done.
func (w *watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer fw.Close()

	if err := addTree(fw, w.root); err != nil {
		return err
	}

	w.logger.Debug("watching", "root", w.root)

	pending := make(map[string]bool)

	timer := time.NewTimer(w.debounce)
	timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}

			observability.WatcherEventsTotal.Inc()
			w.logger.Debug("file event", "path", event.Name, "op", event.Op.String())

			// New directories are watched as they appear
			if event.Has(fsnotify.Create) && isDirectory(event.Name) {
				if err := addTree(fw, event.Name); err != nil {
					w.logger.Warn("failed to watch directory", "path", event.Name, "error", err)
				}

				continue
			}

			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			if !w.accept(event.Name) {
				continue
			}

			pending[event.Name] = true

			timer.Reset(w.debounce)

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}

			w.logger.Warn("watcher error", "error", err)

		case <-timer.C:
			paths := slices.Sorted(maps.Keys(pending))
			clear(pending)

			w.onChange(paths)
		}
	}
}

func addTree(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if !d.IsDir() {
			return nil
		}

		if err := fw.Add(path); err != nil {
			return fmt.Errorf("failed to watch %s: %w", path, err)
		}

		return nil
	})
}

package app

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/fsnotify/fsnotify"
	"github.com/vk/datajob/internal/ctxlog"
	"github.com/vk/datajob/internal/fsutil"
)

// Watch runs action once, then again each time a stack file changes, until
// ctx is cancelled. The health server runs for the duration of the watch.
func (a *App) Watch(ctx context.Context, action func(context.Context) error) error {
	ctx = a.withLogger(ctx)
	logger := ctxlog.FromContext(ctx)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	for _, dir := range watchRoots(a.config.Paths) {
		if err := addWatchesRecursive(w, dir); err != nil {
			return err
		}
		logger.Debug("Watching directory tree.", "root", dir)
	}

	a.startHealthcheckServer(a.config.HealthcheckPort)
	defer a.closeHealthcheckServer()

	run := func() {
		if err := action(ctx); err != nil {
			logger.Error("Rebuild failed.", "error", err)
			return
		}
		logger.Info("Rebuild finished.")
	}
	run()

	debounce := time.NewTimer(a.config.Debounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Watch stopped.")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("watcher closed")
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addWatchesRecursive(w, ev.Name); err != nil {
						logger.Warn("Failed to watch new directory", "path", ev.Name, "error", err)
					}
					continue
				}
			}
			if !strings.HasSuffix(ev.Name, ".hcl") || ev.Op == fsnotify.Chmod {
				continue
			}
			logger.Debug("Stack file changed.", "path", ev.Name, "op", ev.Op.String())
			debounce.Reset(a.config.Debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("watcher closed")
			}
			logger.Error("Watcher error", "error", err)

		case <-debounce.C:
			run()
		}
	}
}

// watchRoots returns the directories that hold the given stack paths.
func watchRoots(paths []string) []string {
	seen := make(map[string]bool)
	var roots []string
	for _, p := range paths {
		root := p
		if fsutil.IsPattern(p) {
			root, _ = doublestar.SplitPattern(filepath.ToSlash(p))
			root = filepath.FromSlash(root)
		} else if info, err := os.Stat(p); err == nil && !info.IsDir() {
			root = filepath.Dir(p)
		}
		root = filepath.Clean(root)
		if !seen[root] {
			seen[root] = true
			roots = append(roots, root)
		}
	}
	return roots
}

func addWatchesRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			return fmt.Errorf("watching %s: %w", path, err)
		}
		return nil
	})
}

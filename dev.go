package main

import (
	"context"
	"path/filepath"
	"time"

	"github.com/howeyc/fsnotify"
)

// watchFiles calls fn once at startup and again whenever one of paths
// changes, after changes have settled for 100ms. It returns when ctx
// is done.
func watchFiles(ctx context.Context, paths []string, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	names := map[string]bool{}
	dirs := map[string]bool{}
	for _, p := range paths {
		p = filepath.Clean(p)
		names[p] = true
		if d := filepath.Dir(p); !dirs[d] {
			if err := watcher.Watch(d); err != nil {
				return err
			}
			dirs[d] = true
		}
	}

	run := time.After(1 * time.Millisecond)
	for {
		select {
		case <-run:
			fn()
		case ev := <-watcher.Event:
			if names[filepath.Clean(ev.Name)] && !ev.IsAttrib() {
				run = time.After(100 * time.Millisecond)
			}
		case err := <-watcher.Error:
			logger.Warningf("watcher: %v", err)
		case <-ctx.Done():
			return nil
		}
	}
}

// watchedPaths returns the files whose changes should trigger a rerun.
func watchedPaths(arg string, c *runConfig) []string {
	if filepath.Clean(arg) == filepath.Clean(c.Program) {
		return []string{arg}
	}
	return []string{arg, c.Program}
}

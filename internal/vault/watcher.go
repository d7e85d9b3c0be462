package vault

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/linkpeek/internal/debounce"
)

// EventCallback is called for every vault change the watcher observes.
// kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, path string)

// Watch starts an fsnotify watcher on the vault root and keeps the link
// cache fresh until ctx is cancelled. Bursts of changes collapse into a
// single Refresh after delay; cb (if non-nil) sees each change right away.
//
// New directories created at runtime are added to the watch list. Renames
// surface as "deleted" for the old path; the new path arrives as a Create.
func (v *Vault) Watch(ctx context.Context, delay time.Duration, cb EventCallback) error {
	root := v.store.Root()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	ignored := func(abs string) bool {
		rel, err := filepath.Rel(root, abs)
		return err != nil || v.store.Ignored(rel)
	}

	if err := addDirsRecursive(w, root, ignored); err != nil {
		return err
	}

	refresh := debounce.New(delay)
	defer refresh.Stop()
	v.pending.Store(refresh)
	defer v.pending.Store(nil)
	scheduleRefresh := func() {
		refresh.Trigger(func() {
			if err := v.Refresh(); err != nil {
				v.logger.Warn("watcher: refresh failed", slog.String("error", err.Error()))
			}
		})
	}

	v.logger.Info("watcher: started", slog.String("root", root))

	for {
		select {
		case <-ctx.Done():
			v.logger.Info("watcher: stopped")
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}

			absPath := ev.Name
			if ignored(absPath) {
				continue
			}

			if ev.Op&fsnotify.Create != 0 {
				if info, statErr := os.Stat(absPath); statErr == nil && info.IsDir() {
					if addErr := addDirsRecursive(w, absPath, ignored); addErr != nil {
						v.logger.Warn("watcher: add new dir failed",
							slog.String("path", absPath),
							slog.String("error", addErr.Error()))
					} else {
						v.logger.Debug("watcher: watching new dir", slog.String("path", absPath))
					}
					scheduleRefresh()
					continue
				}
			}

			rel, relErr := filepath.Rel(root, absPath)
			if relErr != nil {
				continue
			}
			rel = filepath.ToSlash(rel)

			var kind string
			switch {
			case ev.Op&fsnotify.Create != 0:
				kind = "created"
			case ev.Op&fsnotify.Write != 0:
				kind = "updated"
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				kind = "deleted"
			default:
				continue
			}

			v.logger.Debug("watcher: change", slog.String("path", rel), slog.String("op", kind))
			scheduleRefresh()
			if cb != nil {
				cb(kind, rel)
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			v.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// addDirsRecursive adds root and every subdirectory not rejected by skip.
func addDirsRecursive(w *fsnotify.Watcher, root string, skip func(string) bool) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && skip(path) {
			return filepath.SkipDir
		}
		return w.Add(path)
	})
}

package library

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/tags"
)

// Watch calls onChange after music files under sources are created, removed
// or renamed, once the tree has been quiet for debounce. It blocks until ctx
// is done. New subdirectories are watched as they appear.
func (l *Library) Watch(ctx context.Context, sources []string, debounce time.Duration, onChange func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	for _, src := range sources {
		if err := l.watchTree(w, src); err != nil {
			return err
		}
	}

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if l.relevant(w, ev) {
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			l.log.Warn("watch error", zap.Error(err))
		case <-timer.C:
			onChange()
		}
	}
}

// relevant reports whether ev should trigger a rescan, adding watches for new directories.
func (l *Library) relevant(w *fsnotify.Watcher, ev fsnotify.Event) bool {
	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := l.watchTree(w, ev.Name); err != nil {
				l.log.Warn("watch new directory", zap.String("path", ev.Name), zap.Error(err))
			}
			return true
		}
	}
	if !tags.IsMusicFile(ev.Name) {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)
}

func (l *Library) watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			l.log.Warn("skipping unwatchable path", zap.String("path", path), zap.Error(err))
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(path); err != nil {
			l.log.Warn("add watch", zap.String("path", path), zap.Error(err))
		}
		return nil
	})
}

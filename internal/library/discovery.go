package library

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/tags"
)

// discoverFiles walks the sources and returns every music file below them.
// An unreadable source root fails the scan; unreadable entries below it are
// logged and skipped.
func (l *Library) discoverFiles(ctx context.Context, sources []string, progress chan<- ScanProgress) ([]File, error) {
	var files []File
	for _, src := range sources {
		src = filepath.Clean(src)
		if _, err := os.Stat(src); err != nil {
			return nil, &ScanIOError{Op: "walk", Path: src, Err: err}
		}

		err := filepath.WalkDir(src, func(path string, d fs.DirEntry, walkErr error) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if walkErr != nil {
				if path == src {
					return walkErr
				}
				l.log.Warn("skipping unreadable path", zap.String("path", path), zap.Error(walkErr))
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if d.IsDir() || !tags.IsMusicFile(path) {
				return nil
			}

			files = append(files, File{Path: path, Source: src})
			if len(files)%100 == 0 {
				sendProgress(ctx, progress, ScanProgress{Phase: PhaseDiscovering, Current: len(files)})
			}
			return nil
		})
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, &ScanIOError{Op: "walk", Path: src, Err: err}
		}
	}
	return files, nil
}

// relativePath returns the path relative to the source, or the full path if not under source.
func relativePath(source, path string) string {
	rel, err := filepath.Rel(source, path)
	if err != nil {
		return path
	}
	return rel
}

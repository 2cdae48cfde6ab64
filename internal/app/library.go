package app

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/friendly"
	"github.com/cleftly/cleftly/internal/library"
)

// ErrNoSources is returned by Watch when no music directory is configured.
var ErrNoSources = errors.New("no music directories configured")

// Scan refreshes the catalog from the configured music directories.
// progress, if not nil, is closed when Scan returns. With no directories it
// returns empty stats at once. The first successful scan of at least one
// directory marks setup as done.
func (a *App) Scan(ctx context.Context, progress chan<- library.ScanProgress) (*library.ScanStats, error) {
	stats, err := a.Library.Refresh(ctx, a.Config.MusicDirectories, progress)
	if err != nil {
		return nil, err
	}
	if !a.Config.SetupDone && len(a.Config.MusicDirectories) > 0 {
		a.Config.SetupDone = true
		if err := a.SaveConfig(); err != nil {
			a.Log.Warn("save config", zap.Error(err))
		}
	}
	return stats, nil
}

// Watch rescans after changes under the music directories until ctx is
// done. onScan, if not nil, receives the outcome of every rescan.
func (a *App) Watch(ctx context.Context, onScan func(*library.ScanStats, error)) error {
	if len(a.Config.MusicDirectories) == 0 {
		return ErrNoSources
	}
	return a.Library.Watch(ctx, a.Config.MusicDirectories, a.Config.Library.WatchDebounce, func() {
		stats, err := a.Scan(ctx, nil)
		if err != nil && ctx.Err() == nil {
			a.Log.Warn("rescan failed", zap.Error(err))
		}
		if onScan != nil {
			onScan(stats, err)
		}
	})
}

// AddMusicDirectory adds dir to the configuration and saves it.
// It reports false when dir was already configured.
func (a *App) AddMusicDirectory(dir string) (bool, error) {
	if !a.Config.AddMusicDirectory(dir) {
		return false, nil
	}
	return true, a.SaveConfig()
}

// Track resolves one stored track.
func (a *App) Track(ctx context.Context, id string) (friendly.Track, error) {
	t, err := a.Store.Track(ctx, id)
	if err != nil {
		return friendly.Track{}, fmt.Errorf("track %s: %w", id, err)
	}
	return a.Resolver.Track(ctx, t)
}

// Album resolves one stored album with its tracks in disc order.
func (a *App) Album(ctx context.Context, id string) (friendly.Album, error) {
	al, err := a.Store.Album(ctx, id)
	if err != nil {
		return friendly.Album{}, fmt.Errorf("album %s: %w", id, err)
	}
	return a.Resolver.Album(ctx, al)
}

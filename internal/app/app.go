// Package app assembles the catalog, the playback session and the plugin
// runtime from the user configuration.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"

	"github.com/adrg/xdg"
	"go.uber.org/zap"

	"github.com/cleftly/cleftly/internal/config"
	"github.com/cleftly/cleftly/internal/events"
	"github.com/cleftly/cleftly/internal/friendly"
	"github.com/cleftly/cleftly/internal/library"
	"github.com/cleftly/cleftly/internal/logger"
	"github.com/cleftly/cleftly/internal/lrclib"
	"github.com/cleftly/cleftly/internal/lyrics"
	"github.com/cleftly/cleftly/internal/playlists"
	"github.com/cleftly/cleftly/internal/plugin"
	"github.com/cleftly/cleftly/internal/plugins/builtin"
	lastfmplugin "github.com/cleftly/cleftly/internal/plugins/lastfm"
	"github.com/cleftly/cleftly/internal/session"
	"github.com/cleftly/cleftly/internal/store"
)

// Options override where the application keeps its state.
type Options struct {
	// ConfigPath defaults to config.DefaultPath.
	ConfigPath string
	// DBPath defaults to store.DefaultPath. ":memory:" is accepted.
	DBPath string
	// CacheDir holds album art and lyrics. Defaults to the XDG cache home.
	CacheDir string
	// LyricsURL is the lrclib base URL. Empty uses the public instance.
	LyricsURL string

	Backend session.Backend

	// Log replaces the logger built from the configuration.
	Log *zap.Logger
	// Console receives human-readable log output when Log is nil.
	Console io.Writer
}

// App is an opened application: every service wired and ready.
type App struct {
	Config     *config.Config
	ConfigPath string
	Log        *zap.Logger

	Store     *store.Store
	Bus       *events.Bus
	Library   *library.Library
	Resolver  *friendly.Resolver
	Playlists *playlists.Playlists
	Session   *session.Controller
	Plugins   *plugin.Runtime
	Lyrics    *lyrics.Source

	ownsLog bool
}

// Open loads the configuration and opens the catalog. The previous session
// is restored but nothing plays and no plugin is loaded; call StartPlugins.
func Open(ctx context.Context, opts Options) (*App, error) {
	path := opts.ConfigPath
	if path == "" {
		p, err := config.DefaultPath()
		if err != nil {
			return nil, fmt.Errorf("config path: %w", err)
		}
		path = p
	}

	bootLog := opts.Log
	if bootLog == nil {
		l, err := logger.New(logger.Config{Level: "warn", Console: opts.Console})
		if err != nil {
			return nil, err
		}
		bootLog = l
	}
	cfg, path, err := config.Load(path, bootLog)
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, ConfigPath: path, Log: opts.Log}
	if a.Log == nil {
		l, err := logger.New(logger.Config{
			Level:      cfg.Log.Level,
			File:       cfg.Log.File,
			MaxSizeMB:  cfg.Log.MaxSizeMB,
			MaxBackups: cfg.Log.MaxBackups,
			MaxAgeDays: cfg.Log.MaxAgeDays,
			Compress:   cfg.Log.Compress,
			Console:    opts.Console,
		})
		if err != nil {
			return nil, err
		}
		a.Log = l
		a.ownsLog = true
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		if dbPath, err = store.DefaultPath(); err != nil {
			return nil, fmt.Errorf("database path: %w", err)
		}
	}
	if a.Store, err = store.Open(dbPath); err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	cacheDir := opts.CacheDir
	if cacheDir == "" {
		cacheDir = filepath.Join(xdg.CacheHome, "cleftly")
	}

	a.Bus = events.NewBus(a.Log)
	a.Resolver = friendly.NewResolver(a.Store)
	a.Library = library.New(a.Store, library.Options{
		Workers:      cfg.Library.Workers,
		PruneMissing: cfg.Library.PruneMissing,
		Art:          library.NewArtCache(filepath.Join(cacheDir, "art")),
		Events:       a.Bus,
		Log:          a.Log,
	})
	a.Playlists = playlists.New(a.Store)
	if err := a.Playlists.EnsureFavorites(ctx); err != nil {
		a.Store.Close()
		return nil, fmt.Errorf("favorites: %w", err)
	}

	a.Session = session.New(session.Options{
		Backend:     opts.Backend,
		BackendName: cfg.AudioBackend,
		Events:      a.Bus,
		Tracks:      a.Store,
		Log:         a.Log,
	})
	if err := a.restoreSession(ctx); err != nil {
		a.Log.Warn("discarding saved session", zap.Error(err))
	}

	a.Lyrics = lyrics.NewSource(lrclib.New(opts.LyricsURL), filepath.Join(cacheDir, "lyrics"))
	a.Plugins = plugin.NewRuntime(plugin.Options{
		Builtins: builtin.Registry(builtin.Deps{
			Lastfm: lastfmplugin.Credentials{
				APIKey:    cfg.Lastfm.APIKey,
				APISecret: cfg.Lastfm.APISecret,
			},
			Lyrics:     a.Lyrics,
			LyricsSave: cfg.LyricsSave,
		}),
		External:  cfg.ExternalPaths(),
		Events:    a.Bus,
		State:     a.Session,
		ConfigDir: config.PluginConfigDir(path),
		Log:       a.Log,
	})

	return a, nil
}

// StartPlugins loads every enabled plugin. Failures are logged and returned
// joined; the plugins that did load stay active.
func (a *App) StartPlugins(ctx context.Context) error {
	return a.Plugins.LoadEnabled(ctx, a.Config.EnabledPlugins)
}

// SaveConfig writes the configuration back to its file.
func (a *App) SaveConfig() error {
	return config.Save(a.ConfigPath, a.Config)
}

// Close unloads plugins, saves the session and closes the catalog.
func (a *App) Close(ctx context.Context) error {
	var errs []error
	if err := a.Plugins.UnloadAll(ctx); err != nil {
		errs = append(errs, fmt.Errorf("unload plugins: %w", err))
	}
	a.Session.Close()
	if err := a.saveSession(ctx); err != nil {
		errs = append(errs, fmt.Errorf("save session: %w", err))
	}
	if err := a.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close database: %w", err))
	}
	if a.ownsLog {
		_ = a.Log.Sync()
	}
	return errors.Join(errs...)
}

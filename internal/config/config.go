// Package config loads and saves the host configuration file.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"go.uber.org/zap"
)

// EnvPath overrides the config file location.
const EnvPath = "CLEFTLY_CONFIG"

// CurrentVersion is the config schema version written by this build.
const CurrentVersion = 1

// Audio backends.
const (
	BackendNative = "native"
	BackendWeb    = "web"
)

// ErrCorrupt marks a config file that was empty or could not be parsed.
// Load recovers from it by rewriting the defaults.
var ErrCorrupt = errors.New("config file is corrupt")

type Config struct {
	Version          int              `koanf:"version"`
	MusicDirectories []string         `koanf:"music_directories"`
	SetupDone        bool             `koanf:"setup_done"`
	AudioBackend     string           `koanf:"audio_backend"` // "native" or "web"
	LyricsSave       bool             `koanf:"lyrics_save"`
	Locale           string           `koanf:"locale"`
	EnabledPlugins   []string         `koanf:"enabled_plugins"`
	ExternalPlugins  []ExternalPlugin `koanf:"external_plugins"`

	Library LibraryConfig `koanf:"library"`

	// Last.fm scrobbling (enables the lastfm plugin when configured)
	Lastfm LastfmConfig `koanf:"lastfm"`

	Log LogConfig `koanf:"log"`
}

// ExternalPlugin points at a plugin executable.
type ExternalPlugin struct {
	ID   string `koanf:"id"`
	Path string `koanf:"path"`
}

// LibraryConfig holds scanning options.
type LibraryConfig struct {
	PruneMissing  bool          `koanf:"prune_missing"`  // delete tracks whose file is gone
	Workers       int           `koanf:"workers"`        // parallel tag readers
	WatchDebounce time.Duration `koanf:"watch_debounce"` // e.g. "2s"
}

// LastfmConfig holds Last.fm API credentials.
type LastfmConfig struct {
	APIKey    string `koanf:"api_key"`
	APISecret string `koanf:"api_secret"`
}

// LogConfig configures the log file. An empty File logs to stderr only.
type LogConfig struct {
	Level      string `koanf:"level"`
	File       string `koanf:"file"`
	MaxSizeMB  int    `koanf:"max_size_mb"`
	MaxBackups int    `koanf:"max_backups"`
	MaxAgeDays int    `koanf:"max_age_days"`
	Compress   bool   `koanf:"compress"`
}

// Defaults returns the configuration of a fresh install.
func Defaults() Config {
	return Config{
		Version:          CurrentVersion,
		MusicDirectories: []string{},
		AudioBackend:     BackendNative,
		Locale:           "en",
		EnabledPlugins:   []string{"com.cleftly.mpris"},
		ExternalPlugins:  []ExternalPlugin{},
		Library: LibraryConfig{
			Workers:       8,
			WatchDebounce: 2 * time.Second,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
			MaxAgeDays: 28,
			Compress:   true,
		},
	}
}

// DefaultPath returns $CLEFTLY_CONFIG, or config.toml under the XDG config directory.
func DefaultPath() (string, error) {
	if p := os.Getenv(EnvPath); p != "" {
		return expandPath(p), nil
	}
	return xdg.ConfigFile(filepath.Join("cleftly", "config.toml"))
}

// Load reads the config at path, or DefaultPath when path is empty. Parsed
// values are merged over Defaults. A missing file is created with the
// defaults; an empty or unparseable one is logged, reset and rewritten.
// It also returns the path it used.
func Load(path string, log *zap.Logger) (*Config, string, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return nil, "", err
		}
		path = p
	}

	cfg, err := read(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		cfg = Defaults()
		if err := Save(path, &cfg); err != nil {
			return nil, path, err
		}
	case errors.Is(err, ErrCorrupt):
		log.Warn("resetting config", zap.String("path", path), zap.Error(err))
		cfg = Defaults()
		if err := Save(path, &cfg); err != nil {
			return nil, path, err
		}
	case err != nil:
		return nil, path, err
	}

	cfg.normalize(log)
	return &cfg, path, nil
}

func read(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return Config{}, fmt.Errorf("%w: empty", ErrCorrupt)
	}

	k := koanf.New(".")
	if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}

	cfg := Defaults()
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	return cfg, nil
}

func (c *Config) normalize(log *zap.Logger) {
	def := Defaults()

	// Expand ~ in music_directories
	for i, dir := range c.MusicDirectories {
		c.MusicDirectories[i] = expandPath(dir)
	}
	for i := range c.ExternalPlugins {
		c.ExternalPlugins[i].Path = expandPath(c.ExternalPlugins[i].Path)
	}
	c.Log.File = expandPath(c.Log.File)

	if c.AudioBackend != BackendNative && c.AudioBackend != BackendWeb {
		log.Warn("unknown audio backend, using native", zap.String("audio_backend", c.AudioBackend))
		c.AudioBackend = BackendNative
	}
	if c.Library.Workers <= 0 {
		c.Library.Workers = def.Library.Workers
	}
	if c.Library.WatchDebounce <= 0 {
		c.Library.WatchDebounce = def.Library.WatchDebounce
	}
	if c.Locale == "" {
		c.Locale = def.Locale
	}
}

// Save writes cfg to path through a temporary file.
func Save(path string, cfg *Config) error {
	data, err := toml.Parser().Marshal(cfg.toMap())
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".config-*.toml")
	if err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

func (c *Config) toMap() map[string]any {
	external := make([]map[string]any, 0, len(c.ExternalPlugins))
	for _, p := range c.ExternalPlugins {
		external = append(external, map[string]any{"id": p.ID, "path": p.Path})
	}
	m := map[string]any{
		"version":           c.Version,
		"music_directories": nonNil(c.MusicDirectories),
		"setup_done":        c.SetupDone,
		"audio_backend":     c.AudioBackend,
		"lyrics_save":       c.LyricsSave,
		"locale":            c.Locale,
		"enabled_plugins":   nonNil(c.EnabledPlugins),
		"library": map[string]any{
			"prune_missing":  c.Library.PruneMissing,
			"workers":        c.Library.Workers,
			"watch_debounce": c.Library.WatchDebounce.String(),
		},
		"lastfm": map[string]any{
			"api_key":    c.Lastfm.APIKey,
			"api_secret": c.Lastfm.APISecret,
		},
		"log": map[string]any{
			"level":        c.Log.Level,
			"file":         c.Log.File,
			"max_size_mb":  c.Log.MaxSizeMB,
			"max_backups":  c.Log.MaxBackups,
			"max_age_days": c.Log.MaxAgeDays,
			"compress":     c.Log.Compress,
		},
	}
	if len(external) > 0 {
		m["external_plugins"] = external
	}
	return m
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}

// HasLastfmConfig returns true if Last.fm scrobbling is configured.
func (c *Config) HasLastfmConfig() bool {
	return c.Lastfm.APIKey != "" && c.Lastfm.APISecret != ""
}

// PluginEnabled reports whether id is in enabled_plugins.
func (c *Config) PluginEnabled(id string) bool {
	return slices.Contains(c.EnabledPlugins, id)
}

// EnablePlugin adds id to enabled_plugins. It reports whether anything changed.
func (c *Config) EnablePlugin(id string) bool {
	if c.PluginEnabled(id) {
		return false
	}
	c.EnabledPlugins = append(c.EnabledPlugins, id)
	return true
}

// DisablePlugin removes id from enabled_plugins. It reports whether anything changed.
func (c *Config) DisablePlugin(id string) bool {
	n := len(c.EnabledPlugins)
	c.EnabledPlugins = slices.DeleteFunc(c.EnabledPlugins, func(s string) bool { return s == id })
	return len(c.EnabledPlugins) != n
}

// ExternalPaths maps external plugin ids to their executables.
func (c *Config) ExternalPaths() map[string]string {
	out := make(map[string]string, len(c.ExternalPlugins))
	for _, p := range c.ExternalPlugins {
		if p.ID != "" && p.Path != "" {
			out[p.ID] = p.Path
		}
	}
	return out
}

// PluginConfigDir is where plugin config documents live, beside the config file.
func PluginConfigDir(configPath string) string {
	return filepath.Join(filepath.Dir(configPath), "plugins")
}

// AddMusicDirectory appends dir when it is not configured yet.
func (c *Config) AddMusicDirectory(dir string) bool {
	dir = filepath.Clean(expandPath(strings.TrimSpace(dir)))
	if slices.Contains(c.MusicDirectories, dir) {
		return false
	}
	c.MusicDirectories = append(c.MusicDirectories, dir)
	return true
}
